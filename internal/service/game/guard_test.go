package game

import (
	"testing"
)

func TestRepair_ValidStateIsUntouched(t *testing.T) {
	roster := fourPlayerRoster()
	rs, _ := StartGame(roster)

	got, _, report := Repair("room1", rs, roster)
	if report.Changed() {
		t.Fatalf("valid state repaired: %v", report.Repairs)
	}
	if got.LastUpdated != rs.LastUpdated {
		t.Fatalf("no-op repair must not advance the write marker")
	}
}

func TestRepair_NormalizesLegacyReviewPhase(t *testing.T) {
	roster := fourPlayerRoster()
	rs := votingState(t, roster)
	rs.Phase = PhaseMasterReview

	got, _, report := Repair("room1", rs, roster)
	if got.Phase != PhaseVoting {
		t.Fatalf("want voting, got %s", got.Phase)
	}
	if !report.Changed() {
		t.Fatalf("legacy phase must be reported as a repair")
	}
	if rs.Phase != PhaseMasterReview {
		t.Fatalf("repair mutated its input")
	}
}

func TestRepair_ReplacesResponderOnQuestioningTeam(t *testing.T) {
	roster := fourPlayerRoster()
	rs, _ := StartGame(roster)
	rs.CurrentPlayer = "bob" // team A, same side as the questioners

	got, _, report := Repair("room1", rs, roster)
	if !report.Changed() {
		t.Fatalf("violated responder invariant not repaired")
	}
	if got.CurrentPlayer != "carol" {
		t.Fatalf("replacement should follow join order on team B, got %s", got.CurrentPlayer)
	}
}

func TestRepair_ReopensVotingWhenResultIsMissing(t *testing.T) {
	roster := fourPlayerRoster()
	rs := votingState(t, roster)
	rs.Phase = PhaseResults // result never computed

	got, _, report := Repair("room1", rs, roster)
	if !report.Changed() {
		t.Fatalf("results phase without a result not repaired")
	}
	if got.Phase != PhaseVoting {
		t.Fatalf("want voting reopened, got %s", got.Phase)
	}
	if got.RoundResult != nil {
		t.Fatalf("repair must not invent a result")
	}

	// A results phase with its result present is valid and stays put.
	full := votingState(t, roster)
	full, err := SubmitVote(full, roster, "alice", SourceGenerated, "")
	if err != nil {
		t.Fatalf("vote alice: %v", err)
	}
	full, err = SubmitVote(full, roster, "bob", SourceGenerated, "")
	if err != nil {
		t.Fatalf("vote bob: %v", err)
	}
	if full.Phase != PhaseResults || full.RoundResult == nil {
		t.Fatalf("setup: want a completed round")
	}
	if _, _, report := Repair("room1", full, roster); report.Changed() {
		t.Fatalf("completed round repaired: %v", report.Repairs)
	}
}

func TestRepair_RederivesVoteCounters(t *testing.T) {
	roster := fourPlayerRoster()
	rs := votingState(t, roster)

	// A document-granularity merge dropped a camp entry but kept the
	// counter, and the expected count references a roster that has since
	// grown.
	rs.Votes.ByVoter = map[string]string{"alice": SourceHuman}
	rs.Votes.Submitted = 3
	rs.Votes.Expected = 7

	got, _, report := Repair("room1", rs, roster)
	if !report.Changed() {
		t.Fatalf("drifted counters not repaired")
	}
	if got.Votes.Submitted != 1 {
		t.Fatalf("submitted should be derived from by_voter, got %d", got.Votes.Submitted)
	}
	if got.Votes.Expected != 2 {
		t.Fatalf("expected should be derived from the roster, got %d", got.Votes.Expected)
	}
}

func TestRepair_AssignsTeamsMidGame(t *testing.T) {
	roster := fourPlayerRoster()
	rs := votingState(t, roster)

	roster["erin"] = &Player{ID: "erin", Name: "Erin", JoinedAt: roster["dave"].JoinedAt.Add(1)}

	_, members, report := Repair("room1", rs, roster)
	if !report.Changed() {
		t.Fatalf("unassigned mid-game player not repaired")
	}
	if members["erin"].TeamID == TeamNone {
		t.Fatalf("erin still has no team after repair")
	}
	if roster["erin"].TeamID != TeamNone {
		t.Fatalf("repair mutated the input roster")
	}
}

// A second pass over repaired output must change nothing, whatever the
// corruption was.
func TestRepair_Converges(t *testing.T) {
	roster := fourPlayerRoster()

	states := []RoundState{}

	rs, _ := StartGame(roster)
	rs.CurrentPlayer = "alice"
	states = append(states, rs)

	vs := votingState(t, roster)
	vs.Phase = PhaseMasterReview
	vs.Votes.Submitted = 99
	states = append(states, vs)

	nr := votingState(t, roster)
	nr.Phase = PhaseResults // no result computed
	nr.Votes.Expected = 42
	states = append(states, nr)

	for i, corrupt := range states {
		once, members, report := Repair("room1", corrupt, roster)
		if !report.Changed() {
			t.Fatalf("case %d: corruption not detected", i)
		}
		twice, _, second := Repair("room1", once, members)
		if second.Changed() {
			t.Fatalf("case %d: second pass still repairing: %v", i, second.Repairs)
		}
		if twice.LastUpdated != once.LastUpdated {
			t.Fatalf("case %d: second pass advanced the write marker", i)
		}
	}
}
