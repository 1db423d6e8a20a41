// Package quizrush holds the core domain types shared by every layer of the
// quiz server: the quiz catalog, the game engine, and the connection
// handler's wire messages.
package quizrush

import (
	"errors"
	"math"
	"time"
)

// Player is a participant in a game session.
type Player struct {
	ID        string  `json:"id"`
	ClientID  string  `json:"client_id"`
	Connected bool    `json:"connected"`
	Username  string  `json:"username"`
	Points    float64 `json:"points"`
}

// Answer is a single recorded response from a player during a round.
type Answer struct {
	PlayerID string  `json:"player_id"`
	AnswerID int     `json:"answer_id"`
	Points   float64 `json:"points"`
}

// Question is a single question in a quiz.
type Question struct {
	Question    string   `json:"question"`
	Image       string   `json:"image,omitempty"`
	Video       string   `json:"video,omitempty"`
	Audio       string   `json:"audio,omitempty"`
	AnswerImage string   `json:"answer-image,omitempty"`
	Answers     []string `json:"answers"`
	Solution    int      `json:"solution"`
	Cooldown    uint64   `json:"cooldown"`
	Time        uint64   `json:"time"`
}

// Quiz is a quiz definition loaded from the catalog directory.
type Quiz struct {
	Subject   string     `json:"subject"`
	Questions []Question `json:"questions"`
}

// QuizWithID pairs a quiz with the catalog id derived from its filename.
type QuizWithID struct {
	ID string `json:"id"`
	Quiz
}

// GameConfig is the shared manager configuration loaded from game.json.
type GameConfig struct {
	ManagerPassword string   `json:"managerPassword"`
	ManagerEmails   []string `json:"managerEmails,omitempty"`
}

// QuestionProgress describes how far into the quiz a session currently is.
type QuestionProgress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// GameStatus is the phase a session is currently displaying to its
// participants. It serializes as SCREAMING_SNAKE_CASE on the wire.
type GameStatus int

const (
	StatusShowRoom GameStatus = iota
	StatusShowStart
	StatusShowPrepared
	StatusShowQuestion
	StatusSelectAnswer
	StatusShowResult
	StatusShowResponses
	StatusShowLeaderboard
	StatusFinished
	StatusWait
)

var statusNames = [...]string{
	"SHOW_ROOM",
	"SHOW_START",
	"SHOW_PREPARED",
	"SHOW_QUESTION",
	"SELECT_ANSWER",
	"SHOW_RESULT",
	"SHOW_RESPONSES",
	"SHOW_LEADERBOARD",
	"FINISHED",
	"WAIT",
}

func (s GameStatus) String() string {
	if int(s) < 0 || int(s) >= len(statusNames) {
		return "UNKNOWN"
	}
	return statusNames[s]
}

// MarshalJSON renders the status as its SCREAMING_SNAKE_CASE wire name.
func (s GameStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON parses a SCREAMING_SNAKE_CASE wire name back into a GameStatus.
func (s *GameStatus) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if len(raw) >= 2 && raw[0] == '"' {
		raw = raw[1 : len(raw)-1]
	}
	for i, name := range statusNames {
		if name == raw {
			*s = GameStatus(i)
			return nil
		}
	}
	return errors.New("quizrush: unknown game status " + raw)
}

// Sentinel errors for the domain's failure cases. Of these, only
// ErrQuizNotFound is returned anywhere (by catalog.Find); the session
// reports its failures to clients as messages instead.
var (
	ErrQuizNotFound       = errors.New("quizrush: quiz not found")
	ErrGameNotFound       = errors.New("quizrush: game not found")
	ErrInvalidInviteCode  = errors.New("quizrush: invalid invite code")
	ErrPlayerAlreadyJoined = errors.New("quizrush: player already connected")
	ErrUsernameTooShort   = errors.New("quizrush: username cannot be less than 4 characters")
	ErrUsernameTooLong    = errors.New("quizrush: username cannot exceed 20 characters")
	ErrGameAlreadyExists  = errors.New("quizrush: game with that id already exists")
	ErrInvalidPassword    = errors.New("quizrush: invalid password")
)

// TimeToPoints computes the score earned for an answer submitted elapsed
// time after a question's round started, out of a question whose answer
// window is maxSeconds long. Points decay linearly to zero across the
// window and are never negative.
func TimeToPoints(elapsed time.Duration, maxSeconds uint64) float64 {
	if maxSeconds == 0 {
		return 0
	}
	points := 1000.0 - (1000.0/float64(maxSeconds))*elapsed.Seconds()
	return math.Max(points, 0)
}
