package game

import (
	"time"

	"go.uber.org/zap"
)

// The game runs through its phases under a per-room stage handler, driven by
// the room goroutine in fsm.go. clone_creation collects profiles, then each
// round cycles questioning -> waiting_for_response -> voting -> results
// until the host ends the game.

// phaseFinished is machine-internal: it stops the room loop and is never
// part of the shared round document.
const phaseFinished Phase = "finished"

type StageHandler interface {
	Stage() Phase

	OnEnter(ctx *GameContext)
	OnHandle(ctx *GameContext, req RequestWrapper) error

	SetOnSwitch(func(next Phase))
}

// handleAnyPhase deals with the requests every stage accepts: joining
// (including reconnects), leaving, and the host ending the game. Returns
// true when the request was consumed.
func handleAnyPhase(ctx *GameContext, req RequestWrapper, onSwitch func(Phase)) (bool, error) {
	if jreq := TryUnwrapJoinGame(req); jreq != nil {
		onPlayerJoin(ctx, jreq)
		return true, nil
	}

	if ereq := TryUnwrapExitGame(req); ereq != nil {
		onPlayerExit(ctx, ereq)
		return true, nil
	}

	if ereq := TryUnwrapEndGame(req); ereq != nil {
		host := ctx.Host()
		if host == nil || host.ID != ereq.PlayerID {
			return true, errPrecondition(CodeNotHost, "only the host may end the game")
		}
		onSwitch(phaseFinished)
		return true, nil
	}

	return false, nil
}

// --- clone_creation -------------------------------------------------------

type cloneCreationHandler struct {
	onSwitch func(Phase)
}

func NewCloneCreationHandler() *cloneCreationHandler { return &cloneCreationHandler{} }

func (h *cloneCreationHandler) Stage() Phase { return PhaseCloneCreation }

func (h *cloneCreationHandler) OnEnter(ctx *GameContext) {
	ctx.Phase = PhaseCloneCreation
}

func (h *cloneCreationHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleAnyPhase(ctx, req, h.onSwitch); handled {
		return err
	}

	if preq := TryUnwrapSaveProfile(req); preq != nil {
		p, ok := ctx.Roster[preq.PlayerID]
		if !ok {
			return errUnknownPlayer(preq.PlayerID)
		}
		if preq.ProfileText == "" {
			return errPrecondition(CodeIncompleteProfiles, "profile text must not be empty")
		}

		p.ProfileText = preq.ProfileText
		p.HasProfile = true

		allReady := true
		for _, other := range ctx.Roster {
			if !other.HasProfile {
				allReady = false
				break
			}
		}
		ctx.BroadcastResp(WrapResponse(RespProfileSaved, ProfileSavedResponse{
			PlayerID: p.ID,
			AllReady: allReady,
		}))
		return nil
	}

	if sreq := TryUnwrapStartGame(req); sreq != nil {
		host := ctx.Host()
		if host == nil || host.ID != sreq.PlayerID {
			return errPrecondition(CodeNotHost, "only the host may start the game")
		}

		BalanceTeams(ctx.Roster)

		rs, err := StartGame(ctx.Roster)
		if err != nil {
			return err
		}
		ctx.Round = &rs

		zap.L().Info(
			"game started",
			zap.String("room_id", ctx.RoomID),
			zap.Int("players", len(ctx.Roster)),
			zap.String("responder", rs.CurrentPlayer),
		)

		h.onSwitch(PhaseQuestioning)
		return nil
	}

	return errPrecondition(CodeWrongPhase, "request not accepted while clones are being created")
}

func (h *cloneCreationHandler) SetOnSwitch(fn func(Phase)) { h.onSwitch = fn }

// --- questioning ----------------------------------------------------------

type questioningHandler struct {
	onSwitch func(Phase)
}

func NewQuestioningHandler() *questioningHandler { return &questioningHandler{} }

func (h *questioningHandler) Stage() Phase { return PhaseQuestioning }

func (h *questioningHandler) OnEnter(ctx *GameContext) {
	ctx.Phase = PhaseQuestioning
	ctx.BroadcastState()
}

func (h *questioningHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleAnyPhase(ctx, req, h.onSwitch); handled {
		return err
	}

	if qreq := TryUnwrapSubmitQuestion(req); qreq != nil {
		rs, err := SubmitQuestion(*ctx.Round, ctx.Roster, qreq.PlayerID, qreq.Text, ctx.Answer)
		if err != nil {
			return err
		}
		*ctx.Round = rs
		h.onSwitch(PhaseWaitingForResponse)
		return nil
	}

	return errPrecondition(CodeWrongPhase, "only questions are accepted right now")
}

func (h *questioningHandler) SetOnSwitch(fn func(Phase)) { h.onSwitch = fn }

// --- waiting_for_response -------------------------------------------------

type waitResponseHandler struct {
	onSwitch func(Phase)
}

func NewWaitResponseHandler() *waitResponseHandler { return &waitResponseHandler{} }

func (h *waitResponseHandler) Stage() Phase { return PhaseWaitingForResponse }

func (h *waitResponseHandler) OnEnter(ctx *GameContext) {
	ctx.Phase = PhaseWaitingForResponse
	ctx.BroadcastState()

	// Only the responder sees the machine candidate; picking between the
	// two answers is the whole game.
	ctx.UnicastResp(ctx.Round.CurrentPlayer, WrapResponse(RespQuestion, QuestionNotification{
		Question:        ctx.Round.CurrentQuestion,
		GeneratedAnswer: ctx.Round.GeneratedAnswer,
	}))
}

func (h *waitResponseHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleAnyPhase(ctx, req, h.onSwitch); handled {
		return err
	}

	if rreq := TryUnwrapSubmitResponse(req); rreq != nil {
		rs, err := SubmitResponse(*ctx.Round, ctx.Roster, rreq.PlayerID, rreq.Choice, rreq.AnswerText)
		if err != nil {
			return err
		}
		*ctx.Round = rs
		h.onSwitch(PhaseVoting)
		return nil
	}

	return errPrecondition(CodeWrongPhase, "waiting for the questioned player to respond")
}

func (h *waitResponseHandler) SetOnSwitch(fn func(Phase)) { h.onSwitch = fn }

// --- voting ---------------------------------------------------------------

type votingHandler struct {
	onSwitch func(Phase)
}

func NewVotingHandler() *votingHandler { return &votingHandler{} }

func (h *votingHandler) Stage() Phase { return PhaseVoting }

func (h *votingHandler) OnEnter(ctx *GameContext) {
	ctx.Phase = PhaseVoting
	ctx.BroadcastState()
}

func (h *votingHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleAnyPhase(ctx, req, h.onSwitch); handled {
		return err
	}

	if vreq := TryUnwrapSubmitVote(req); vreq != nil {
		rs, err := SubmitVote(*ctx.Round, ctx.Roster, vreq.PlayerID, vreq.Choice, ctx.TieBreak)
		if err != nil {
			return err
		}
		*ctx.Round = rs

		ctx.BroadcastResp(WrapResponse(RespVote, VoteProgressNotification{
			VoterID:        vreq.PlayerID,
			VotesSubmitted: rs.Votes.Submitted,
			ExpectedVoters: rs.Votes.Expected,
		}))

		if rs.Phase == PhaseResults {
			h.onSwitch(PhaseResults)
		}
		return nil
	}

	return errPrecondition(CodeWrongPhase, "only votes are accepted right now")
}

func (h *votingHandler) SetOnSwitch(fn func(Phase)) { h.onSwitch = fn }

// --- results --------------------------------------------------------------

type resultsHandler struct {
	onSwitch func(Phase)
}

func NewResultsHandler() *resultsHandler { return &resultsHandler{} }

func (h *resultsHandler) Stage() Phase { return PhaseResults }

func (h *resultsHandler) OnEnter(ctx *GameContext) {
	ctx.Phase = PhaseResults

	rs := ctx.Round
	ctx.BroadcastResp(WrapResponse(RespRoundResult, RoundResultNotification{
		Result:         *rs.RoundResult,
		PlayerResponse: rs.PlayerResponse,
		UsedGenerated:  rs.UsedGenerated,
		VotesForHuman:  len(rs.Votes.ForHuman),
		VotesForClone:  len(rs.Votes.ForGenerated),
		TeamAScore:     rs.TeamAScore,
		TeamBScore:     rs.TeamBScore,
	}))
	ctx.BroadcastState()
}

func (h *resultsHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleAnyPhase(ctx, req, h.onSwitch); handled {
		return err
	}

	if areq := TryUnwrapAdvanceRound(req); areq != nil {
		if _, ok := ctx.Roster[areq.PlayerID]; !ok {
			return errUnknownPlayer(areq.PlayerID)
		}
		rs, err := AdvanceRound(*ctx.Round, ctx.Roster)
		if err != nil {
			return err
		}
		*ctx.Round = rs
		h.onSwitch(PhaseQuestioning)
		return nil
	}

	return errPrecondition(CodeWrongPhase, "the round is over, advance or end the game")
}

func (h *resultsHandler) SetOnSwitch(fn func(Phase)) { h.onSwitch = fn }

// --- finished -------------------------------------------------------------

type finishedHandler struct {
	onSwitch func(Phase)
}

func NewFinishedHandler() *finishedHandler { return &finishedHandler{} }

func (h *finishedHandler) Stage() Phase { return phaseFinished }

func (h *finishedHandler) OnEnter(ctx *GameContext) {
	ctx.Phase = phaseFinished

	var a, b int
	if ctx.Round != nil {
		a, b = ctx.Round.TeamAScore, ctx.Round.TeamBScore
	}
	winner := "draw"
	switch {
	case a > b:
		winner = string(TeamA)
	case b > a:
		winner = string(TeamB)
	}
	ctx.BroadcastResp(WrapResponse(RespGameOver, GameOverNotification{
		TeamAScore: a,
		TeamBScore: b,
		Winner:     winner,
	}))
}

func (h *finishedHandler) OnHandle(ctx *GameContext, req RequestWrapper) error {
	if handled, err := handleAnyPhase(ctx, req, h.onSwitch); handled {
		return err
	}
	return errPrecondition(CodeWrongPhase, "the game is over")
}

func (h *finishedHandler) SetOnSwitch(fn func(Phase)) { h.onSwitch = fn }

// --- shared join/exit handling --------------------------------------------

func onPlayerJoin(ctx *GameContext, req *JoinGameRequest) {
	// A known player id means reconnect: rebind the channel, keep
	// everything else.
	if existing, ok := ctx.Roster[req.PlayerID]; ok {
		if existing.RespCh != nil {
			close(existing.RespCh)
		}
		existing.RespCh = req.RespCh
		existing.IsOnline = true

		zap.L().Info(
			"player reconnected",
			zap.String("room_id", ctx.RoomID),
			zap.String("player_id", existing.ID),
		)

		sendJoinResponses(ctx, existing)
		return
	}

	player := &Player{
		ID:       req.PlayerID,
		Name:     req.JoinerName,
		Platform: req.Platform,
		JoinedAt: time.Now(),
		IsOnline: true,
		RespCh:   req.RespCh,
	}
	if player.ID == "" {
		player.ID = GenID()
	}
	if len(ctx.Roster) == 0 {
		player.IsHost = true
	}

	// Mid-game joiners go straight to the smaller team; the balancer never
	// reshuffles an in-progress game.
	if ctx.Phase != PhaseCloneCreation {
		countA, countB := ctx.Roster.TeamCounts()
		if countB < countA {
			player.TeamID = TeamB
		} else {
			player.TeamID = TeamA
		}
	}

	ctx.Roster[player.ID] = player

	zap.L().Info(
		"player joined",
		zap.String("room_id", ctx.RoomID),
		zap.String("player_id", player.ID),
		zap.String("player_name", player.Name),
		zap.String("team", string(player.TeamID)),
	)

	sendJoinResponses(ctx, player)
}

// sendJoinResponses sends the joiner their own full record, then broadcasts
// the public roster to everyone.
func sendJoinResponses(ctx *GameContext, player *Player) {
	private := *player
	private.RespCh = nil

	hostID := ""
	if host := ctx.Host(); host != nil {
		hostID = host.ID
	}

	ctx.UnicastResp(player.ID, WrapResponse(RespJoinGame, JoinGameResponse{
		RoomID:  ctx.RoomID,
		Phase:   ctx.Phase,
		Joiner:  private,
		Players: ctx.PublicPlayers(),
		HostID:  hostID,
	}))

	public := private
	public.ProfileText = ""
	ctx.BroadcastResp(WrapResponse(RespJoinGame, JoinGameResponse{
		RoomID:  ctx.RoomID,
		Phase:   ctx.Phase,
		Joiner:  public,
		Players: ctx.PublicPlayers(),
		HostID:  hostID,
	}))

	// Mid-game catch-up: the joiner missed the phase broadcasts, so replay
	// the current round state privately. A responder who dropped while a
	// question was pending gets the question and the machine candidate
	// again; both were unicast exactly once on phase entry.
	if ctx.Round != nil {
		ctx.UnicastResp(player.ID, WrapResponse(RespGameState, ctx.StateNotification()))

		if ctx.Phase == PhaseWaitingForResponse && player.ID == ctx.Round.CurrentPlayer {
			ctx.UnicastResp(player.ID, WrapResponse(RespQuestion, QuestionNotification{
				Question:        ctx.Round.CurrentQuestion,
				GeneratedAnswer: ctx.Round.GeneratedAnswer,
			}))
		}
	}
}

// onPlayerExit marks the player offline. Players are never removed mid-game;
// the roster entry stays so scores and turn cycles keep their shape.
func onPlayerExit(ctx *GameContext, req *ExitGameRequest) {
	p, ok := ctx.Roster[req.PlayerID]
	if !ok {
		return
	}
	if p.RespCh != nil {
		close(p.RespCh)
		p.RespCh = nil
	}
	p.IsOnline = false

	zap.L().Info(
		"player left",
		zap.String("room_id", ctx.RoomID),
		zap.String("player_id", p.ID),
	)

	ctx.BroadcastState()
}
