package game

import "go.uber.org/zap"

// The consistency guard. The shared store delivers snapshots at least once
// and in no particular order, and legacy clients may still write documents
// computed from stale reads. Before any observer renders a snapshot, the
// guard checks the round invariants and repairs what it finds. Repairs are
// idempotent and strictly convergent: one pass yields a valid state, a
// second pass changes nothing.

// GuardReport lists what a repair pass had to fix.
type GuardReport struct {
	Repairs []string
}

func (g *GuardReport) add(what string) { g.Repairs = append(g.Repairs, what) }

// Changed reports whether the pass touched anything.
func (g GuardReport) Changed() bool { return len(g.Repairs) > 0 }

// Repair returns a corrected copy of the state and roster. Inputs are never
// mutated. Violations are logged, never surfaced as user errors.
func Repair(roomID string, rs RoundState, roster Roster) (RoundState, Roster, GuardReport) {
	var report GuardReport
	next := rs.Clone()
	members := roster.Clone()

	// Legacy phase from an old writer: reviewing was folded into voting.
	if next.Phase == PhaseMasterReview {
		next.Phase = PhaseVoting
		report.add("normalized master_review to voting")
	}

	// A results document with no computed result cannot be rendered or
	// advanced. Reopen voting; the counter rederivation below restores a
	// tally the vote aggregator can complete again.
	if next.Phase == PhaseResults && next.RoundResult == nil {
		next.Phase = PhaseVoting
		report.add("reopened voting for a results phase with no result")
	}

	// Mid-game players without a team assignment get the incremental
	// balancing rule, never a reshuffle.
	if next.Phase != PhaseCloneCreation {
		if assigned := BalanceTeams(members); len(assigned) > 0 {
			report.add("assigned teams to unassigned players")
		}
	}

	// The responder invariant: two clients racing "pick next responder" on
	// stale reads can land the responder on the questioning team. Replace
	// with the selection rule's pick from the correct side.
	if next.Phase == PhaseQuestioning && next.CurrentPlayer != "" {
		if p, ok := members[next.CurrentPlayer]; !ok || p.TeamID == next.QuestioningTeam {
			responding := next.QuestioningTeam.Opposite()
			replacement, cycled := nextResponder(members, responding, next.PlayersAnswered)
			if replacement != "" {
				if cycled {
					next.PlayersAnswered = make(map[string]bool)
				}
				next.CurrentPlayer = replacement
				report.add("replaced responder drawn from the questioning team")
			}
		}
	}

	// Vote bookkeeping drifts when two tallies merge at document
	// granularity; re-derive the counters from the per-voter map.
	if next.Phase == PhaseVoting {
		if derived := len(next.Votes.ByVoter); next.Votes.Submitted != derived {
			next.Votes.Submitted = derived
			report.add("rederived submitted vote count")
		}
		expected := ExpectedVoters(members, next.QuestioningTeam, next.CurrentPlayer)
		if next.Votes.Expected != expected {
			next.Votes.Expected = expected
			report.add("rederived expected voter count")
		}
	}

	if report.Changed() {
		next.touch()
		zap.L().Info(
			"repaired inconsistent round state",
			zap.String("room_id", roomID),
			zap.Strings("repairs", report.Repairs),
			zap.String("phase", string(next.Phase)),
		)
	}

	return next, members, report
}
