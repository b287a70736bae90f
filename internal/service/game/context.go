package game

import (
	"go.uber.org/zap"
)

// GameContext is the room's private world: roster, round state and the
// collaborator hooks. It is owned by the room goroutine and never shared.
type GameContext struct {
	RoomID string
	Phase  Phase
	Roster Roster
	Round  *RoundState

	// Answer produces the machine stand-in for a question; wired to the
	// generator client with its deterministic fallback.
	Answer AnswerFunc

	// TieBreak resolves split votes; empty means the generated side wins.
	TieBreak string

	// Persist, when set, receives a snapshot after every applied change.
	Persist func(Snapshot)
}

func (gc *GameContext) Host() *Player { return gc.Roster.Host() }

// BroadcastResp fans a response out to every connected player. A full
// channel drops the message for that player; the next snapshot will catch
// them up.
func (gc *GameContext) BroadcastResp(resp ResponseWrapper) {
	for _, p := range gc.Roster {
		if p.RespCh == nil {
			continue
		}
		select {
		case p.RespCh <- resp:
		default:
			zap.L().Warn(
				"dropping broadcast, player response channel full",
				zap.String("room_id", gc.RoomID),
				zap.String("player_id", p.ID),
			)
		}
	}
}

func (gc *GameContext) UnicastResp(playerID string, resp ResponseWrapper) {
	p, ok := gc.Roster[playerID]
	if !ok || p.RespCh == nil {
		zap.L().Warn(
			"cannot unicast to unknown or disconnected player",
			zap.String("room_id", gc.RoomID),
			zap.String("player_id", playerID),
		)
		return
	}
	select {
	case p.RespCh <- resp:
	default:
		zap.L().Warn(
			"dropping unicast, player response channel full",
			zap.String("room_id", gc.RoomID),
			zap.String("player_id", playerID),
		)
	}
}

// PublicPlayers copies the roster with profile text stripped; profiles are
// the raw material for clone answers and must never leak to other players.
func (gc *GameContext) PublicPlayers() []Player {
	out := make([]Player, 0, len(gc.Roster))
	for _, p := range gc.Roster.JoinOrder(TeamNone) {
		cp := *p
		cp.ProfileText = ""
		cp.RespCh = nil
		out = append(out, cp)
	}
	return out
}

// StateNotification builds the broadcast-safe projection of the round. The
// revealed answer is public from voting on; its source is not public until
// results.
func (gc *GameContext) StateNotification() GameStateNotification {
	n := GameStateNotification{
		Phase:   gc.Phase,
		Players: gc.PublicPlayers(),
	}
	if gc.Round != nil {
		rs := gc.Round
		n.RoundNumber = rs.RoundNumber
		n.QuestioningTeam = rs.QuestioningTeam
		n.CurrentPlayer = rs.CurrentPlayer
		n.CurrentQuestion = rs.CurrentQuestion
		n.VotesSubmitted = rs.Votes.Submitted
		n.ExpectedVoters = rs.Votes.Expected
		n.TeamAScore = rs.TeamAScore
		n.TeamBScore = rs.TeamBScore
		n.LastUpdated = rs.LastUpdated
		if rs.Phase == PhaseVoting || rs.Phase == PhaseResults {
			n.PlayerResponse = rs.PlayerResponse
		}
		if rs.Phase == PhaseResults {
			n.RoundResult = rs.RoundResult
		}
	}
	return n
}

// BroadcastState pushes the current public state and persists a snapshot.
func (gc *GameContext) BroadcastState() {
	gc.BroadcastResp(WrapResponse(RespGameState, gc.StateNotification()))
	gc.persist()
}

func (gc *GameContext) persist() {
	if gc.Persist == nil || gc.Round == nil {
		return
	}
	roster := make([]Player, 0, len(gc.Roster))
	for _, p := range gc.Roster.JoinOrder(TeamNone) {
		cp := *p
		cp.RespCh = nil
		roster = append(roster, cp)
	}
	gc.Persist(Snapshot{
		RoomID: gc.RoomID,
		State:  gc.Round.Clone(),
		Roster: roster,
	})
}
