package game

// Request payloads. JoinGame is special: it may arrive in any phase, either
// as a fresh join or a reconnect carrying a known player id.
type JoinGameRequest struct {
	RoomID     string               `json:"room_id"`
	PlayerID   string               `json:"player_id,omitempty"`
	JoinerName string               `json:"joiner_name"`
	Platform   string               `json:"platform,omitempty"`
	RespCh     chan ResponseWrapper `json:"-"`
}

type SaveProfileRequest struct {
	PlayerID    string `json:"player_id"`
	ProfileText string `json:"profile_text"`
}

type StartGameRequest struct {
	PlayerID string `json:"player_id"`
}

type SubmitQuestionRequest struct {
	PlayerID string `json:"player_id"`
	Text     string `json:"text"`
}

type SubmitResponseRequest struct {
	PlayerID   string `json:"player_id"`
	Choice     string `json:"choice"` // human | generated
	AnswerText string `json:"answer_text,omitempty"`
}

type SubmitVoteRequest struct {
	PlayerID string `json:"player_id"`
	Choice   string `json:"choice"` // human | generated
}

type AdvanceRoundRequest struct {
	PlayerID string `json:"player_id"`
}

type EndGameRequest struct {
	PlayerID string `json:"player_id"`
}

type ExitGameRequest struct {
	PlayerID string `json:"player_id"`
}

// Response payloads.

type JoinGameResponse struct {
	RoomID  string   `json:"room_id"`
	Phase   Phase    `json:"phase"`
	Joiner  Player   `json:"joiner"`
	Players []Player `json:"players"`
	HostID  string   `json:"host_id"`
}

type ProfileSavedResponse struct {
	PlayerID string `json:"player_id"`
	AllReady bool   `json:"all_ready"`
}

// GameStateNotification is the public projection of the round, safe to
// broadcast: the generated answer and the responder's source choice stay
// hidden until results.
type GameStateNotification struct {
	Phase           Phase        `json:"phase"`
	RoundNumber     int          `json:"round_number"`
	QuestioningTeam Team         `json:"questioning_team"`
	CurrentPlayer   string       `json:"current_player,omitempty"`
	CurrentQuestion string       `json:"current_question,omitempty"`
	PlayerResponse  string       `json:"player_response,omitempty"`
	VotesSubmitted  int          `json:"votes_submitted"`
	ExpectedVoters  int          `json:"expected_voters"`
	RoundResult     *RoundResult `json:"round_result,omitempty"`
	TeamAScore      int          `json:"team_a_score"`
	TeamBScore      int          `json:"team_b_score"`
	Players         []Player     `json:"players"`
	LastUpdated     int64        `json:"last_updated"`
}

// QuestionNotification goes to the responder only: it includes the machine
// candidate they may choose to pass off as their own.
type QuestionNotification struct {
	Question        string `json:"question"`
	GeneratedAnswer string `json:"generated_answer"`
}

type VoteProgressNotification struct {
	VoterID        string `json:"voter_id"`
	VotesSubmitted int    `json:"votes_submitted"`
	ExpectedVoters int    `json:"expected_voters"`
}

type RoundResultNotification struct {
	Result         RoundResult `json:"result"`
	PlayerResponse string      `json:"player_response"`
	UsedGenerated  bool        `json:"used_generated"`
	VotesForHuman  int         `json:"votes_for_human"`
	VotesForClone  int         `json:"votes_for_clone"`
	TeamAScore     int         `json:"team_a_score"`
	TeamBScore     int         `json:"team_b_score"`
}

type GameOverNotification struct {
	TeamAScore int    `json:"team_a_score"`
	TeamBScore int    `json:"team_b_score"`
	Winner     string `json:"winner"` // A | B | draw
}
