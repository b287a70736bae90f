package game

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Request types carried over the websocket. These are the only legal
// mutators of a room's round state; everything funnels through the room
// goroutine's request channel.
const (
	ReqJoinGame       = "JoinGame"
	ReqSaveProfile    = "SaveProfile"
	ReqStartGame      = "StartGame"
	ReqSubmitQuestion = "SubmitQuestion"
	ReqSubmitResponse = "SubmitResponse"
	ReqSubmitVote     = "SubmitVote"
	ReqAdvanceRound   = "AdvanceRound"
	ReqEndGame        = "EndGame"
	ReqExitGame       = "ExitGame"
)

type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`

	// Join carries the decoded join request when it originates in-process:
	// a JSON payload cannot transport the response channel.
	Join *JoinGameRequest `json:"-"`
}

// tryUnwrap decodes the payload when the wrapper carries the wanted type,
// nil otherwise. Malformed payloads are logged and dropped rather than
// crashing the room loop.
func tryUnwrap[T any](w RequestWrapper, want string) *T {
	if w.ReqType != want {
		return nil
	}
	var req T
	if err := json.Unmarshal(w.Data, &req); err != nil {
		zap.L().Error(
			"failed to decode request payload",
			zap.String("request_type", w.ReqType),
			zap.Error(err),
		)
		return nil
	}
	return &req
}

func TryUnwrapJoinGame(w RequestWrapper) *JoinGameRequest {
	if w.Join != nil {
		if w.ReqType != ReqJoinGame {
			return nil
		}
		return w.Join
	}
	return tryUnwrap[JoinGameRequest](w, ReqJoinGame)
}

func TryUnwrapSaveProfile(w RequestWrapper) *SaveProfileRequest {
	return tryUnwrap[SaveProfileRequest](w, ReqSaveProfile)
}

func TryUnwrapStartGame(w RequestWrapper) *StartGameRequest {
	return tryUnwrap[StartGameRequest](w, ReqStartGame)
}

func TryUnwrapSubmitQuestion(w RequestWrapper) *SubmitQuestionRequest {
	return tryUnwrap[SubmitQuestionRequest](w, ReqSubmitQuestion)
}

func TryUnwrapSubmitResponse(w RequestWrapper) *SubmitResponseRequest {
	return tryUnwrap[SubmitResponseRequest](w, ReqSubmitResponse)
}

func TryUnwrapSubmitVote(w RequestWrapper) *SubmitVoteRequest {
	return tryUnwrap[SubmitVoteRequest](w, ReqSubmitVote)
}

func TryUnwrapAdvanceRound(w RequestWrapper) *AdvanceRoundRequest {
	return tryUnwrap[AdvanceRoundRequest](w, ReqAdvanceRound)
}

func TryUnwrapEndGame(w RequestWrapper) *EndGameRequest {
	return tryUnwrap[EndGameRequest](w, ReqEndGame)
}

func TryUnwrapExitGame(w RequestWrapper) *ExitGameRequest {
	return tryUnwrap[ExitGameRequest](w, ReqExitGame)
}

// Response types pushed to clients.
const (
	RespError        = "Error"
	RespJoinGame     = "JoinGame"
	RespProfileSaved = "ProfileSaved"
	RespGameState    = "GameState"
	RespQuestion     = "Question"
	RespVote         = "Vote"
	RespRoundResult  = "RoundResult"
	RespGameOver     = "GameOver"
)

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	Data     any    `json:"data,omitempty"`
	ErrCode  string `json:"error_code,omitempty"`
	ErrMsg   string `json:"error_message,omitempty"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{RespType: respType, Data: data}
}

// WrapErrResponse carries the typed error back to the acting player. The
// code lets clients branch without parsing messages.
func WrapErrResponse(err error) ResponseWrapper {
	resp := ResponseWrapper{RespType: RespError, ErrMsg: err.Error()}
	if ge, ok := AsGameError(err); ok {
		resp.ErrCode = ge.Code
	}
	return resp
}
