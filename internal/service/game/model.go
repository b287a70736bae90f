package game

import (
	"sort"
	"time"
)

type Team string

const (
	TeamA    Team = "A"
	TeamB    Team = "B"
	TeamNone Team = ""
)

// Opposite returns the other team. TeamNone has no opposite.
func (t Team) Opposite() Team {
	switch t {
	case TeamA:
		return TeamB
	case TeamB:
		return TeamA
	default:
		return TeamNone
	}
}

type Phase string

// The round moves strictly through these phases. master_review is a legacy
// phase some writers still emit; the consistency guard normalizes it to
// voting before anything trusts the snapshot.
const (
	PhaseCloneCreation      Phase = "clone_creation"
	PhaseQuestioning        Phase = "questioning"
	PhaseWaitingForResponse Phase = "waiting_for_response"
	PhaseMasterReview       Phase = "master_review"
	PhaseVoting             Phase = "voting"
	PhaseResults            Phase = "results"
)

// Answer sources: the responder either reveals their authentic answer or the
// machine-generated stand-in.
const (
	SourceHuman     = "human"
	SourceGenerated = "generated"
)

type Player struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	TeamID      Team      `json:"team_id"`
	HasProfile  bool      `json:"has_profile"`
	ProfileText string    `json:"profile_text,omitempty"`
	IsHost      bool      `json:"is_host"`
	Platform    string    `json:"platform,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
	IsOnline    bool      `json:"is_online"`

	RespCh chan ResponseWrapper `json:"-"`
}

// Roster is the room membership, keyed by player id. Mutated only by the
// room's own goroutine; snapshots hand out value copies.
type Roster map[string]*Player

// JoinOrder returns the given team's members (or everyone, for TeamNone)
// sorted by the one total order every client must agree on: earliest
// JoinedAt first, ties broken by lexicographic id.
func (r Roster) JoinOrder(team Team) []*Player {
	members := make([]*Player, 0, len(r))
	for _, p := range r {
		if team == TeamNone || p.TeamID == team {
			members = append(members, p)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if !members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].JoinedAt.Before(members[j].JoinedAt)
		}
		return members[i].ID < members[j].ID
	})
	return members
}

// TeamCounts reports how many players carry each team assignment.
func (r Roster) TeamCounts() (a, b int) {
	for _, p := range r {
		switch p.TeamID {
		case TeamA:
			a++
		case TeamB:
			b++
		}
	}
	return a, b
}

func (r Roster) Host() *Player {
	for _, p := range r {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// Clone deep-copies the roster so guard repairs never alias live players.
func (r Roster) Clone() Roster {
	out := make(Roster, len(r))
	for id, p := range r {
		cp := *p
		out[id] = &cp
	}
	return out
}

// VoteTally tracks the questioning team's guesses. ByVoter is the source of
// truth and makes re-votes idempotent; the two sets and the counter are
// derived from it.
type VoteTally struct {
	ForHuman     map[string]bool   `json:"for_human"`
	ForGenerated map[string]bool   `json:"for_generated"`
	ByVoter      map[string]string `json:"by_voter"`
	Submitted    int               `json:"submitted"`
	Expected     int               `json:"expected"`
}

func NewVoteTally(expected int) VoteTally {
	return VoteTally{
		ForHuman:     make(map[string]bool),
		ForGenerated: make(map[string]bool),
		ByVoter:      make(map[string]string),
		Expected:     expected,
	}
}

func (v VoteTally) clone() VoteTally {
	out := NewVoteTally(v.Expected)
	out.Submitted = v.Submitted
	for id := range v.ForHuman {
		out.ForHuman[id] = true
	}
	for id := range v.ForGenerated {
		out.ForGenerated[id] = true
	}
	for id, c := range v.ByVoter {
		out.ByVoter[id] = c
	}
	return out
}

// record stores a vote, overwriting any earlier vote from the same player.
func (v *VoteTally) record(voterID, choice string) {
	delete(v.ForHuman, voterID)
	delete(v.ForGenerated, voterID)
	if choice == SourceGenerated {
		v.ForGenerated[voterID] = true
	} else {
		v.ForHuman[voterID] = true
	}
	v.ByVoter[voterID] = choice
	v.Submitted = len(v.ByVoter)
}

type RoundResult struct {
	Majority string `json:"majority"`
	Actual   string `json:"actual"`
	Correct  bool   `json:"correct"`
}

// RoundState is the single shared document describing the current round. All
// mutation goes through the engine in transitions.go; handlers never poke at
// it directly.
type RoundState struct {
	Phase           Phase           `json:"phase"`
	RoundNumber     int             `json:"round_number"`
	QuestioningTeam Team            `json:"questioning_team"`
	CurrentPlayer   string          `json:"current_player"`
	PlayersAnswered map[string]bool `json:"players_answered"`
	CurrentQuestion string          `json:"current_question,omitempty"`
	GeneratedAnswer string          `json:"generated_answer,omitempty"`
	PlayerResponse  string          `json:"player_response,omitempty"`
	UsedGenerated   bool            `json:"used_generated"`
	Votes           VoteTally       `json:"votes"`
	RoundResult     *RoundResult    `json:"round_result,omitempty"`
	TeamAScore      int             `json:"team_a_score"`
	TeamBScore      int             `json:"team_b_score"`
	LastUpdated     int64           `json:"last_updated"`
}

// Clone deep-copies the state so transitions can fail without mutating their
// input.
func (rs RoundState) Clone() RoundState {
	out := rs
	out.PlayersAnswered = make(map[string]bool, len(rs.PlayersAnswered))
	for id := range rs.PlayersAnswered {
		out.PlayersAnswered[id] = true
	}
	out.Votes = rs.Votes.clone()
	if rs.RoundResult != nil {
		rr := *rs.RoundResult
		out.RoundResult = &rr
	}
	return out
}

// touch advances the write marker. lastUpdated is monotonic per room, never
// read back as a wall clock.
func (rs *RoundState) touch() {
	now := time.Now().UnixMilli()
	if now <= rs.LastUpdated {
		now = rs.LastUpdated + 1
	}
	rs.LastUpdated = now
}

// Snapshot is the document persisted to the shared store and pushed to
// observers: round state plus a value copy of the roster.
type Snapshot struct {
	RoomID string     `json:"room_id"`
	State  RoundState `json:"state"`
	Roster []Player   `json:"roster"`
}
