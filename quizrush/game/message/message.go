// Package message defines the WebSocket wire protocol between clients and
// the game server. Unlike the teacher's nested {tag, payload} envelope,
// every message here carries its discriminant flattened alongside its own
// fields as a "type" key — the format quizrush's browser clients expect.
package message

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rousseya/quizrush-server/quizrush"
)

// ErrUnknownType is returned when decoding a message whose "type" field does
// not match any known ClientMsg variant.
var ErrUnknownType = errors.New("message: unknown client message type")

// ServerMsg is implemented by every message the server may send to a
// client, each of which embeds typeTag. The New* constructors below set the
// "type" value; Encode marshals the message as it is.
type ServerMsg interface {
	setType(t string)
}

type typeTag struct {
	Type string `json:"type"`
}

func (t *typeTag) setType(v string) { t.Type = v }

// --- status updates ---------------------------------------------------

// GameStatusMsg carries the current phase of a session along with its
// phase-specific, loosely-typed payload.
type GameStatusMsg struct {
	typeTag
	Status quizrush.GameStatus `json:"status"`
	Data   interface{}         `json:"data"`
}

// NewGameStatus builds a GameStatus message, stamped and ready to encode.
func NewGameStatus(status quizrush.GameStatus, data interface{}) *GameStatusMsg {
	return &GameStatusMsg{typeTag: typeTag{Type: "GameStatus"}, Status: status, Data: data}
}

type SuccessRoomMsg struct {
	typeTag
	GameID string `json:"game_id"`
}

type SuccessJoinMsg struct {
	typeTag
	GameID string `json:"game_id"`
}

type TotalPlayersMsg struct {
	typeTag
	Count int `json:"count"`
}

type ErrorMessageMsg struct {
	typeTag
	Message string `json:"message"`
}

type StartCooldownMsg struct {
	typeTag
}

type CooldownMsg struct {
	typeTag
	Count uint64 `json:"count"`
}

type ResetMsg struct {
	typeTag
	Message string `json:"message"`
}

type UpdateQuestionMsg struct {
	typeTag
	Current int `json:"current"`
	Total   int `json:"total"`
}

type PlayerAnswerMsg struct {
	typeTag
	Count int `json:"count"`
}

// --- manager-specific ---------------------------------------------------

type QuizListMsg struct {
	typeTag
	Quizzes []quizrush.QuizWithID `json:"quizzes"`
}

type GameCreatedMsg struct {
	typeTag
	GameID     string `json:"game_id"`
	InviteCode string `json:"invite_code"`
}

type ManagerReconnectedMsg struct {
	typeTag
	GameID          string                  `json:"game_id"`
	Status          quizrush.GameStatus     `json:"status"`
	Data            interface{}             `json:"data"`
	Players         []quizrush.Player       `json:"players"`
	CurrentQuestion quizrush.QuestionProgress `json:"current_question"`
}

type NewPlayerMsg struct {
	typeTag
	Player quizrush.Player `json:"player"`
}

type RemovePlayerMsg struct {
	typeTag
	PlayerID string `json:"player_id"`
}

type PlayerKickedMsg struct {
	typeTag
	PlayerID string `json:"player_id"`
}

// --- player-specific -----------------------------------------------------

type PlayerReconnectedMsg struct {
	typeTag
	GameID          string                  `json:"game_id"`
	Status          quizrush.GameStatus     `json:"status"`
	Data            interface{}             `json:"data"`
	Username        string                  `json:"username"`
	Points          float64                 `json:"points"`
	CurrentQuestion quizrush.QuestionProgress `json:"current_question"`
}

type UpdateLeaderboardMsg struct {
	typeTag
	Leaderboard []quizrush.Player `json:"leaderboard"`
}

// Constructors for the remaining ServerMsg variants. These are trivial but
// keep callers from ever forgetting to stamp the type tag.

func NewSuccessRoom(gameID string) *SuccessRoomMsg { return &SuccessRoomMsg{typeTag{Type: "SuccessRoom"}, gameID} }
func NewSuccessJoin(gameID string) *SuccessJoinMsg { return &SuccessJoinMsg{typeTag{Type: "SuccessJoin"}, gameID} }
func NewTotalPlayers(count int) *TotalPlayersMsg   { return &TotalPlayersMsg{typeTag{Type: "TotalPlayers"}, count} }
func NewErrorMessage(msg string) *ErrorMessageMsg  { return &ErrorMessageMsg{typeTag{Type: "ErrorMessage"}, msg} }
func NewStartCooldown() *StartCooldownMsg          { return &StartCooldownMsg{typeTag{Type: "StartCooldown"}} }
func NewCooldown(count uint64) *CooldownMsg        { return &CooldownMsg{typeTag{Type: "Cooldown"}, count} }
func NewReset(msg string) *ResetMsg                { return &ResetMsg{typeTag{Type: "Reset"}, msg} }
func NewUpdateQuestion(current, total int) *UpdateQuestionMsg {
	return &UpdateQuestionMsg{typeTag{Type: "UpdateQuestion"}, current, total}
}
func NewPlayerAnswer(count int) *PlayerAnswerMsg { return &PlayerAnswerMsg{typeTag{Type: "PlayerAnswer"}, count} }
func NewQuizList(quizzes []quizrush.QuizWithID) *QuizListMsg {
	return &QuizListMsg{typeTag{Type: "QuizList"}, quizzes}
}
func NewGameCreated(gameID, inviteCode string) *GameCreatedMsg {
	return &GameCreatedMsg{typeTag{Type: "GameCreated"}, gameID, inviteCode}
}
func NewManagerReconnected(gameID string, status quizrush.GameStatus, data interface{}, players []quizrush.Player, progress quizrush.QuestionProgress) *ManagerReconnectedMsg {
	return &ManagerReconnectedMsg{typeTag{Type: "ManagerReconnected"}, gameID, status, data, players, progress}
}
func NewNewPlayer(player quizrush.Player) *NewPlayerMsg { return &NewPlayerMsg{typeTag{Type: "NewPlayer"}, player} }
func NewRemovePlayer(playerID string) *RemovePlayerMsg {
	return &RemovePlayerMsg{typeTag{Type: "RemovePlayer"}, playerID}
}
func NewPlayerKicked(playerID string) *PlayerKickedMsg {
	return &PlayerKickedMsg{typeTag{Type: "PlayerKicked"}, playerID}
}
func NewPlayerReconnected(gameID string, status quizrush.GameStatus, data interface{}, username string, points float64, progress quizrush.QuestionProgress) *PlayerReconnectedMsg {
	return &PlayerReconnectedMsg{typeTag{Type: "PlayerReconnected"}, gameID, status, data, username, points, progress}
}
func NewUpdateLeaderboard(leaderboard []quizrush.Player) *UpdateLeaderboardMsg {
	return &UpdateLeaderboardMsg{typeTag{Type: "UpdateLeaderboard"}, leaderboard}
}

// Encode marshals a ServerMsg to its wire JSON form.
func Encode(msg ServerMsg) ([]byte, error) {
	return json.Marshal(msg)
}

// MustEncode marshals a ServerMsg and panics on failure. Used for messages
// built from constant data that can never fail to encode.
func MustEncode(msg ServerMsg) []byte {
	b, err := Encode(msg)
	if err != nil {
		panic(fmt.Sprintf("message: unencodable server message: %s", err))
	}
	return b
}

// --- client -> server ----------------------------------------------------

// ClientMsg is the set of messages a client may send. It carries no
// behavior; Decode returns one of the concrete *Msg types below as this
// interface.
type ClientMsg interface {
	clientMsg()
}

type ManagerAuthMsg struct {
	Password string `json:"password"`
}

type CreateGameMsg struct {
	QuizID string `json:"quiz_id"`
}

type ManagerReconnectMsg struct {
	GameID string `json:"game_id"`
}

type StartGameMsg struct {
	GameID string `json:"game_id"`
}

type AbortQuizMsg struct {
	GameID string `json:"game_id"`
}

type NextQuestionMsg struct {
	GameID string `json:"game_id"`
}

type ShowLeaderboardMsg struct {
	GameID string `json:"game_id"`
}

type KickPlayerMsg struct {
	GameID   string `json:"game_id"`
	PlayerID string `json:"player_id"`
}

type PlayerJoinMsg struct {
	InviteCode string `json:"invite_code"`
}

type PlayerLoginMsg struct {
	GameID   string `json:"game_id"`
	Username string `json:"username"`
}

type PlayerReconnectMsg struct {
	GameID string `json:"game_id"`
}

type SelectedAnswerMsg struct {
	GameID    string `json:"game_id"`
	AnswerKey int    `json:"answer_key"`
}

func (*ManagerAuthMsg) clientMsg()      {}
func (*CreateGameMsg) clientMsg()       {}
func (*ManagerReconnectMsg) clientMsg() {}
func (*StartGameMsg) clientMsg()        {}
func (*AbortQuizMsg) clientMsg()        {}
func (*NextQuestionMsg) clientMsg()     {}
func (*ShowLeaderboardMsg) clientMsg()  {}
func (*KickPlayerMsg) clientMsg()       {}
func (*PlayerJoinMsg) clientMsg()       {}
func (*PlayerLoginMsg) clientMsg()      {}
func (*PlayerReconnectMsg) clientMsg()  {}
func (*SelectedAnswerMsg) clientMsg()   {}

// Decode parses an incoming client message, dispatching on its "type" field.
func Decode(data []byte) (ClientMsg, error) {
	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, err
	}

	var msg ClientMsg
	switch tag.Type {
	case "ManagerAuth":
		msg = &ManagerAuthMsg{}
	case "CreateGame":
		msg = &CreateGameMsg{}
	case "ManagerReconnect":
		msg = &ManagerReconnectMsg{}
	case "StartGame":
		msg = &StartGameMsg{}
	case "AbortQuiz":
		msg = &AbortQuizMsg{}
	case "NextQuestion":
		msg = &NextQuestionMsg{}
	case "ShowLeaderboard":
		msg = &ShowLeaderboardMsg{}
	case "KickPlayer":
		msg = &KickPlayerMsg{}
	case "PlayerJoin":
		msg = &PlayerJoinMsg{}
	case "PlayerLogin":
		msg = &PlayerLoginMsg{}
	case "PlayerReconnect":
		msg = &PlayerReconnectMsg{}
	case "SelectedAnswer":
		msg = &SelectedAnswerMsg{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, tag.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}
