package game

import "math/rand"

// BalanceTeams assigns every unassigned player to a team.
//
// On a fresh roster (nobody assigned yet) it does a Fisher-Yates shuffle and
// alternates A/B, so counts differ by at most one. Once any assignment
// exists it never reshuffles: each remaining unassigned player is appended
// to whichever team currently has fewer members, so late joiners cannot
// disturb teams mid-game. Zero players is a no-op.
//
// Returns the players that received an assignment.
func BalanceTeams(roster Roster) []*Player {
	if len(roster) == 0 {
		return nil
	}

	unassigned := roster.JoinOrder(TeamNone)
	pending := unassigned[:0]
	for _, p := range unassigned {
		if p.TeamID == TeamNone {
			pending = append(pending, p)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	countA, countB := roster.TeamCounts()
	if countA == 0 && countB == 0 {
		rand.Shuffle(len(pending), func(i, j int) {
			pending[i], pending[j] = pending[j], pending[i]
		})
		for i, p := range pending {
			if i%2 == 0 {
				p.TeamID = TeamA
			} else {
				p.TeamID = TeamB
			}
		}
		return pending
	}

	// Incremental: fill the smaller side, ties go to A.
	for _, p := range pending {
		if countB < countA {
			p.TeamID = TeamB
			countB++
		} else {
			p.TeamID = TeamA
			countA++
		}
	}
	return pending
}
