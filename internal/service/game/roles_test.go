package game

import (
	"testing"
	"time"
)

// fourPlayerRoster: alice/bob on team A, carol/dave on team B, joined in
// that order, all profiled.
func fourPlayerRoster() Roster {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	mk := func(id, name string, team Team, offset int) *Player {
		return &Player{
			ID:          id,
			Name:        name,
			TeamID:      team,
			HasProfile:  true,
			ProfileText: name + " grew up by the sea and plays the violin.",
			JoinedAt:    base.Add(time.Duration(offset) * time.Second),
			IsOnline:    true,
		}
	}
	return Roster{
		"alice": mk("alice", "Alice", TeamA, 0),
		"bob":   mk("bob", "Bob", TeamA, 1),
		"carol": mk("carol", "Carol", TeamB, 2),
		"dave":  mk("dave", "Dave", TeamB, 3),
	}
}

func TestTeamLeader_EarliestJoinWins(t *testing.T) {
	roster := fourPlayerRoster()

	if got := TeamLeader(roster, TeamA); got == nil || got.ID != "alice" {
		t.Fatalf("team A leader: want alice, got %v", got)
	}
	if got := TeamLeader(roster, TeamB); got == nil || got.ID != "carol" {
		t.Fatalf("team B leader: want carol, got %v", got)
	}
	if got := TeamLeader(Roster{}, TeamA); got != nil {
		t.Fatalf("empty team: want nil leader, got %v", got)
	}
}

func TestTeamLeader_JoinTimeTieBreaksOnID(t *testing.T) {
	when := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	roster := Roster{
		"zed": {ID: "zed", TeamID: TeamA, JoinedAt: when},
		"amy": {ID: "amy", TeamID: TeamA, JoinedAt: when},
	}
	if got := TeamLeader(roster, TeamA); got.ID != "amy" {
		t.Fatalf("tied join times: want lexicographically smaller id amy, got %s", got.ID)
	}
}

func TestResolveRole_AllFourRoles(t *testing.T) {
	roster := fourPlayerRoster()
	rs := RoundState{
		Phase:           PhaseQuestioning,
		QuestioningTeam: TeamA,
		CurrentPlayer:   "carol",
	}

	cases := []struct {
		player string
		want   Role
	}{
		{"carol", RoleResponder},
		{"alice", RoleQuestioner}, // two-member team: every non-responder may ask
		{"bob", RoleQuestioner},
		{"dave", RoleSpectator},  // responding team, not selected
		{"ghost", RoleSpectator}, // unknown id
	}
	for _, tc := range cases {
		if got := ResolveRole(rs, roster, tc.player); got != tc.want {
			t.Fatalf("questioning: role(%s) want %s got %s", tc.player, tc.want, got)
		}
	}

	rs.Phase = PhaseVoting
	if got := ResolveRole(rs, roster, "bob"); got != RoleVoter {
		t.Fatalf("voting: bob should be VOTER, got %s", got)
	}
	if got := ResolveRole(rs, roster, "carol"); got != RoleResponder {
		t.Fatalf("voting: responder stays RESPONDER, got %s", got)
	}
	if got := ResolveRole(rs, roster, "dave"); got != RoleSpectator {
		t.Fatalf("voting: responding team member should be SPECTATOR, got %s", got)
	}
}

func TestResolveRole_LargerTeamOnlyLeaderAsks(t *testing.T) {
	roster := fourPlayerRoster()
	roster["eve"] = &Player{
		ID:          "eve",
		Name:        "Eve",
		TeamID:      TeamA,
		HasProfile:  true,
		ProfileText: "Eve keeps bees.",
		JoinedAt:    roster["dave"].JoinedAt.Add(time.Second),
		IsOnline:    true,
	}

	rs := RoundState{
		Phase:           PhaseQuestioning,
		QuestioningTeam: TeamA,
		CurrentPlayer:   "carol",
	}

	if got := ResolveRole(rs, roster, "alice"); got != RoleQuestioner {
		t.Fatalf("leader alice should be QUESTIONER, got %s", got)
	}
	if got := ResolveRole(rs, roster, "bob"); got != RoleSpectator {
		t.Fatalf("three-member team: non-leader bob should be SPECTATOR, got %s", got)
	}
	if got := ResolveRole(rs, roster, "eve"); got != RoleSpectator {
		t.Fatalf("three-member team: non-leader eve should be SPECTATOR, got %s", got)
	}
}

func TestResolveRole_TwoMemberTeamBothMayAsk(t *testing.T) {
	roster := fourPlayerRoster()
	rs := RoundState{
		Phase:           PhaseQuestioning,
		QuestioningTeam: TeamB,
		CurrentPlayer:   "alice",
	}

	// Team B has exactly two members, neither is responding, so both
	// qualify as questioner.
	if got := ResolveRole(rs, roster, "carol"); got != RoleQuestioner {
		t.Fatalf("carol should be QUESTIONER, got %s", got)
	}
	if got := ResolveRole(rs, roster, "dave"); got != RoleQuestioner {
		t.Fatalf("dave should be QUESTIONER, got %s", got)
	}
}

func TestResolveRole_QuestionAlreadyAskedClearsQuestioner(t *testing.T) {
	roster := fourPlayerRoster()
	rs := RoundState{
		Phase:           PhaseQuestioning,
		QuestioningTeam: TeamA,
		CurrentPlayer:   "carol",
		CurrentQuestion: "What instrument do you play?",
	}
	if got := ResolveRole(rs, roster, "alice"); got != RoleSpectator {
		t.Fatalf("question already asked: leader should drop to SPECTATOR, got %s", got)
	}
}
