package game

// The transition engine. Every function here is pure in the sense that
// matters for concurrency: it takes the current round state by value, and on
// a guard failure returns a typed error with the input untouched. Roster is
// read, never written. The per-room goroutine is the only caller, so a
// returned state is never raced against another write.

// AnswerFunc produces the machine-generated stand-in for a question against
// the responder's profile. It must not fail; the generator package wraps the
// remote endpoint with a deterministic local fallback.
type AnswerFunc func(profileText, question string) string

// ExpectedVoters counts the questioning team minus the current responder.
// The responder is excluded even when a bad write put them on the
// questioning team, so a corrupted snapshot cannot deadlock vote completion.
func ExpectedVoters(roster Roster, questioning Team, responderID string) int {
	n := 0
	for _, p := range roster {
		if p.TeamID == questioning && p.ID != responderID {
			n++
		}
	}
	return n
}

// nextResponder picks the first member of the responding team, by join
// order, that has not answered in the current cycle. An exhausted cycle
// restarts empty. The second return reports whether the cycle was cleared.
func nextResponder(roster Roster, responding Team, answered map[string]bool) (string, bool) {
	members := roster.JoinOrder(responding)
	for _, p := range members {
		if !answered[p.ID] {
			return p.ID, false
		}
	}
	if len(members) == 0 {
		return "", false
	}
	return members[0].ID, true
}

// StartGame creates round 1 from a fully profiled, team-balanced roster.
// Team A asks first; the responder is the first Team B member by join order.
func StartGame(roster Roster) (RoundState, error) {
	if len(roster) == 0 {
		return RoundState{}, errPrecondition(CodeEmptyRoster, "cannot start a game with no players")
	}

	var missing []string
	for _, p := range roster.JoinOrder(TeamNone) {
		if !p.HasProfile || p.ProfileText == "" {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return RoundState{}, errIncompleteProfiles(missing)
	}

	countA, countB := roster.TeamCounts()
	if countA == 0 || countB == 0 {
		return RoundState{}, errPrecondition(CodeEmptyRoster, "both teams need at least one player")
	}

	responder := roster.JoinOrder(TeamB)[0].ID
	rs := RoundState{
		Phase:           PhaseQuestioning,
		RoundNumber:     1,
		QuestioningTeam: TeamA,
		CurrentPlayer:   responder,
		PlayersAnswered: make(map[string]bool),
		Votes:           NewVoteTally(ExpectedVoters(roster, TeamA, responder)),
	}
	rs.touch()
	return rs, nil
}

// SubmitQuestion moves questioning -> waiting_for_response and eagerly
// computes the generated answer from the responder's profile. The responder
// invariant is checked before anything else: a violated state is left
// untouched for the consistency guard to repair.
func SubmitQuestion(rs RoundState, roster Roster, playerID, text string, answer AnswerFunc) (RoundState, error) {
	if rs.Phase != PhaseQuestioning {
		return rs, errPrecondition(CodeWrongPhase, "questions are only accepted during questioning")
	}

	responder, ok := roster[rs.CurrentPlayer]
	if !ok {
		return rs, errInvalidQuestioningState(rs.CurrentPlayer, rs.QuestioningTeam)
	}
	if responder.TeamID == rs.QuestioningTeam {
		return rs, errInvalidQuestioningState(rs.CurrentPlayer, rs.QuestioningTeam)
	}

	asker, ok := roster[playerID]
	if !ok {
		return rs, errUnknownPlayer(playerID)
	}
	if asker.TeamID != rs.QuestioningTeam {
		return rs, errNotYourTurn(playerID, "only the questioning team may ask")
	}
	if text == "" {
		return rs, errPrecondition(CodeWrongPhase, "question text must not be empty")
	}

	next := rs.Clone()
	next.CurrentQuestion = text
	next.GeneratedAnswer = answer(responder.ProfileText, text)
	next.Phase = PhaseWaitingForResponse
	next.touch()
	return next, nil
}

// SubmitResponse records the responder's choice and opens voting.
func SubmitResponse(rs RoundState, roster Roster, playerID, choice, answerText string) (RoundState, error) {
	if rs.Phase != PhaseWaitingForResponse {
		return rs, errPrecondition(CodeWrongPhase, "no response is expected right now")
	}
	if playerID != rs.CurrentPlayer {
		return rs, errNotYourTurn(playerID, "only the questioned player may respond")
	}

	next := rs.Clone()
	switch choice {
	case SourceGenerated:
		next.UsedGenerated = true
		next.PlayerResponse = rs.GeneratedAnswer
	case SourceHuman:
		if answerText == "" {
			return rs, errPrecondition(CodeWrongPhase, "an authentic answer must not be empty")
		}
		next.UsedGenerated = false
		next.PlayerResponse = answerText
	default:
		return rs, errPrecondition(CodeWrongPhase, "choice must be human or generated")
	}

	next.Votes = NewVoteTally(ExpectedVoters(roster, rs.QuestioningTeam, rs.CurrentPlayer))
	next.Phase = PhaseVoting
	next.touch()
	return next, nil
}

// SubmitVote records one questioning-team guess. Re-votes overwrite. When
// the tally completes the round result is computed exactly once and the
// phase moves to results; the questioning team scores iff the majority
// matched the actual source.
func SubmitVote(rs RoundState, roster Roster, voterID, choice, tieBreak string) (RoundState, error) {
	if rs.Phase != PhaseVoting {
		return rs, errVotingClosed(rs.Phase)
	}

	voter, ok := roster[voterID]
	if !ok {
		return rs, errUnknownPlayer(voterID)
	}
	if voter.TeamID != rs.QuestioningTeam {
		return rs, errPrecondition(CodeNotOnQuestioningTeam, "only the questioning team votes")
	}
	if voterID == rs.CurrentPlayer {
		return rs, errPrecondition(CodeResponderCannotVote, "the questioned player never votes")
	}
	if choice != SourceHuman && choice != SourceGenerated {
		return rs, errPrecondition(CodeVotingClosed, "choice must be human or generated")
	}

	next := rs.Clone()
	next.Votes.record(voterID, choice)
	next.touch()

	if next.Votes.Submitted >= next.Votes.Expected && next.RoundResult == nil {
		finalizeRound(&next, tieBreak)
	}
	return next, nil
}

// finalizeRound is the compute-once result step: callers must have checked
// RoundResult == nil.
func finalizeRound(rs *RoundState, tieBreak string) {
	maj := Majority(rs.Votes, tieBreak)
	actual := SourceHuman
	if rs.UsedGenerated {
		actual = SourceGenerated
	}
	correct := maj == actual
	rs.RoundResult = &RoundResult{Majority: maj, Actual: actual, Correct: correct}
	if correct {
		switch rs.QuestioningTeam {
		case TeamA:
			rs.TeamAScore++
		case TeamB:
			rs.TeamBScore++
		}
	}
	rs.Phase = PhaseResults
}

// Majority counts the two camps. Ties resolve to the configured side;
// an unset tie-break keeps the historical default of generated.
func Majority(v VoteTally, tieBreak string) string {
	g, h := len(v.ForGenerated), len(v.ForHuman)
	switch {
	case g > h:
		return SourceGenerated
	case h > g:
		return SourceHuman
	case tieBreak == SourceHuman:
		return SourceHuman
	default:
		return SourceGenerated
	}
}

// AdvanceRound flips the questioning team, rotates the responder through the
// not-yet-questioned members of the new responding team (restarting the
// cycle when exhausted), bumps the round number and clears every per-round
// field. Only legal from results, which is what collapses two concurrent
// advances into a single increment.
func AdvanceRound(rs RoundState, roster Roster) (RoundState, error) {
	if rs.Phase != PhaseResults {
		return rs, errPrecondition(CodeRoundNotFinished, "the current round has not finished")
	}

	next := rs.Clone()
	if next.CurrentPlayer != "" {
		next.PlayersAnswered[next.CurrentPlayer] = true
	}

	questioning := next.QuestioningTeam.Opposite()
	responding := questioning.Opposite()

	responder, cycled := nextResponder(roster, responding, next.PlayersAnswered)
	if responder == "" {
		return rs, errPrecondition(CodeEmptyRoster, "no player available on the responding team")
	}
	if cycled {
		next.PlayersAnswered = make(map[string]bool)
	}

	next.QuestioningTeam = questioning
	next.CurrentPlayer = responder
	next.RoundNumber++
	next.Phase = PhaseQuestioning
	next.CurrentQuestion = ""
	next.GeneratedAnswer = ""
	next.PlayerResponse = ""
	next.UsedGenerated = false
	next.RoundResult = nil
	next.Votes = NewVoteTally(ExpectedVoters(roster, questioning, responder))
	next.touch()
	return next, nil
}
