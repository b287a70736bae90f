package game

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds, per the handling contract: precondition failures are surfaced
// to the acting player and never retried; transient IO is retried by the
// caller; invariant violations are repaired silently and only logged.
type ErrorKind string

const (
	KindPreconditionFailed ErrorKind = "precondition_failed"
	KindTransientIO        ErrorKind = "transient_io"
	KindInvariantViolation ErrorKind = "invariant_violation"
)

// GameError is a value-typed error: a kind plus a stable code and enough
// context to render a message. It is never used for control flow beyond
// errors.Is/errors.As checks.
type GameError struct {
	Kind    ErrorKind
	Code    string
	Detail  string
	Names   []string // offending player names, when relevant
	Player  string   // acting player id, when relevant
	wrapped error
}

func (e *GameError) Error() string {
	var b strings.Builder
	b.WriteString(e.Code)
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if len(e.Names) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(e.Names, ", "))
	}
	return b.String()
}

func (e *GameError) Unwrap() error { return e.wrapped }

// Is matches on kind sentinels so callers can write
// errors.Is(err, ErrPrecondition) without caring about the exact code.
func (e *GameError) Is(target error) bool {
	if t, ok := target.(*GameError); ok {
		if t.Code != "" && t.Code != e.Code {
			return false
		}
		return t.Kind == e.Kind
	}
	return false
}

// Kind sentinels for errors.Is.
var (
	ErrPrecondition = &GameError{Kind: KindPreconditionFailed}
	ErrTransientIO  = &GameError{Kind: KindTransientIO}
	ErrInvariant    = &GameError{Kind: KindInvariantViolation}
)

// Stable codes for the known guard violations.
const (
	CodeIncompleteProfiles      = "IncompleteProfiles"
	CodeInvalidQuestioningState = "InvalidQuestioningState"
	CodeNotYourTurn             = "NotYourTurn"
	CodeVotingClosed            = "VotingClosed"
	CodeNotOnQuestioningTeam    = "NotOnQuestioningTeam"
	CodeResponderCannotVote     = "ResponderCannotVote"
	CodeRoundNotFinished        = "RoundNotFinished"
	CodeWrongPhase              = "WrongPhase"
	CodeNotHost                 = "NotHost"
	CodeEmptyRoster             = "EmptyRoster"
	CodeUnknownPlayer           = "UnknownPlayer"
)

func errIncompleteProfiles(names []string) *GameError {
	return &GameError{
		Kind:   KindPreconditionFailed,
		Code:   CodeIncompleteProfiles,
		Detail: "every player must submit a profile before the game starts",
		Names:  names,
	}
}

func errInvalidQuestioningState(responder string, team Team) *GameError {
	return &GameError{
		Kind:   KindPreconditionFailed,
		Code:   CodeInvalidQuestioningState,
		Detail: fmt.Sprintf("responder %s belongs to questioning team %s", responder, team),
		Player: responder,
	}
}

func errNotYourTurn(playerID, detail string) *GameError {
	return &GameError{
		Kind:   KindPreconditionFailed,
		Code:   CodeNotYourTurn,
		Detail: detail,
		Player: playerID,
	}
}

func errVotingClosed(phase Phase) *GameError {
	return &GameError{
		Kind:   KindPreconditionFailed,
		Code:   CodeVotingClosed,
		Detail: fmt.Sprintf("votes are only accepted during voting, current phase is %s", phase),
	}
}

func errPrecondition(code, detail string) *GameError {
	return &GameError{Kind: KindPreconditionFailed, Code: code, Detail: detail}
}

func errUnknownPlayer(playerID string) *GameError {
	return &GameError{
		Kind:   KindPreconditionFailed,
		Code:   CodeUnknownPlayer,
		Detail: "player is not part of this room",
		Player: playerID,
	}
}

// AsGameError unwraps err into a *GameError if it is one.
func AsGameError(err error) (*GameError, bool) {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
