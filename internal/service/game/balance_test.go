package game

import (
	"fmt"
	"testing"
	"time"
)

func testRoster(n int) Roster {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	roster := make(Roster, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("player%d", i+1)
		roster[id] = &Player{
			ID:       id,
			Name:     fmt.Sprintf("Player %d", i+1),
			JoinedAt: base.Add(time.Duration(i) * time.Second),
			IsOnline: true,
		}
	}
	return roster
}

func TestBalanceTeams_FreshRosterIsBalanced(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 7, 10} {
		roster := testRoster(n)

		assigned := BalanceTeams(roster)
		if len(assigned) != n {
			t.Fatalf("n=%d: want %d assignments, got %d", n, n, len(assigned))
		}

		a, b := roster.TeamCounts()
		if a+b != n {
			t.Fatalf("n=%d: %d players left unassigned", n, n-a-b)
		}
		diff := a - b
		if diff < 0 {
			diff = -diff
		}
		if diff > 1 {
			t.Fatalf("n=%d: team sizes differ by %d (A=%d B=%d)", n, diff, a, b)
		}
	}
}

func TestBalanceTeams_LateJoinerGoesToSmallerTeam(t *testing.T) {
	roster := testRoster(3)
	roster["player1"].TeamID = TeamA
	roster["player2"].TeamID = TeamA
	roster["player3"].TeamID = TeamB

	late := &Player{ID: "player4", Name: "Player 4", JoinedAt: time.Now(), IsOnline: true}
	roster["player4"] = late

	assigned := BalanceTeams(roster)
	if len(assigned) != 1 || assigned[0].ID != "player4" {
		t.Fatalf("want exactly player4 assigned, got %v", assigned)
	}
	if late.TeamID != TeamB {
		t.Fatalf("late joiner should fill the smaller team B, got %s", late.TeamID)
	}

	// Existing assignments must survive untouched.
	if roster["player1"].TeamID != TeamA || roster["player2"].TeamID != TeamA || roster["player3"].TeamID != TeamB {
		t.Fatalf("existing assignments were reshuffled")
	}
}

func TestBalanceTeams_TieGoesToTeamA(t *testing.T) {
	roster := testRoster(2)
	roster["player1"].TeamID = TeamA
	roster["player2"].TeamID = TeamB

	roster["player3"] = &Player{ID: "player3", JoinedAt: time.Now()}

	BalanceTeams(roster)
	if roster["player3"].TeamID != TeamA {
		t.Fatalf("equal teams: new player should go to A, got %s", roster["player3"].TeamID)
	}
}

func TestBalanceTeams_EmptyAndFullyAssignedAreNoOps(t *testing.T) {
	if got := BalanceTeams(Roster{}); got != nil {
		t.Fatalf("empty roster: want nil, got %v", got)
	}

	roster := testRoster(2)
	roster["player1"].TeamID = TeamA
	roster["player2"].TeamID = TeamB
	if got := BalanceTeams(roster); len(got) != 0 {
		t.Fatalf("fully assigned roster: want no assignments, got %v", got)
	}
}
