// Package game implements the quiz session engine: one goroutine per
// running game, a registry for finding sessions by invite code or socket
// id, and the broadcaster that fans session events out to connected
// sockets.
package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rousseya/quizrush-server/logging"
	"github.com/rousseya/quizrush-server/quizrush"
	"github.com/rousseya/quizrush-server/quizrush/config"
	"github.com/rousseya/quizrush-server/quizrush/game/message"
	"github.com/rousseya/quizrush-server/quizrush/validate"
)

var logger = logging.NewPrefixed("game")

// cmdChanBuffer matches the original implementation's command channel
// capacity: enough to absorb a burst of simultaneous player actions
// without a session ever needing to apply backpressure to a connection
// handler.
const cmdChanBuffer = 256

// Timing constants carried over from the original game flow.
const (
	showStartDelay     = 3 * time.Second
	roundPreparedDelay = 2 * time.Second
	managerGraceDelay  = 10 * time.Second
)

// Command is the set of actions a connection handler may post to a running
// session. Sessions process commands one at a time on their own goroutine,
// so handlers never need to lock anything themselves.
type Command interface{ command() }

type CmdJoin struct {
	SocketID, ClientID, Username string
}
type CmdSelectAnswer struct {
	SocketID string
	AnswerKey int
}
type CmdStartGame struct{ SocketID string }
type CmdAbortQuiz struct{ SocketID string }
type CmdNextQuestion struct{ SocketID string }
type CmdShowLeaderboard struct{}
type CmdKickPlayer struct{ SocketID, PlayerID string }
type CmdPlayerDisconnect struct{ SocketID string }
type CmdManagerDisconnect struct{ SocketID string }
type CmdPlayerReconnect struct{ SocketID, ClientID string }
type CmdManagerReconnect struct{ SocketID, ClientID string }
type cmdManagerDisconnectCheck struct{}

func (CmdJoin) command()                  {}
func (CmdSelectAnswer) command()          {}
func (CmdStartGame) command()             {}
func (CmdAbortQuiz) command()             {}
func (CmdNextQuestion) command()          {}
func (CmdShowLeaderboard) command()       {}
func (CmdKickPlayer) command()            {}
func (CmdPlayerDisconnect) command()      {}
func (CmdManagerDisconnect) command()     {}
func (CmdPlayerReconnect) command()       {}
func (CmdManagerReconnect) command()      {}
func (cmdManagerDisconnectCheck) command() {}

// status is a (GameStatus, data) pair, cached so that a reconnecting
// socket can be brought back to exactly what it was last shown.
type status struct {
	state quizrush.GameStatus
	data  interface{}
}

func waitStatus(text string) status {
	return status{state: quizrush.StatusWait, data: map[string]interface{}{"text": text}}
}

// Session runs a single quiz game on its own goroutine. All fields below
// the channels are only ever touched from that goroutine.
type Session struct {
	ID         string
	InviteCode string

	registry    *Registry
	cmdCh       chan Command
	broadcaster *Broadcaster
	baseURL     string

	cooldownTickCh chan cooldownTickEvent
	cooldownDoneCh chan cooldownDoneEvent
	phaseCh        chan phaseTimerEvent

	managerSocketID  string
	managerClientID  string
	managerConnected bool
	started          bool

	quiz            quizrush.Quiz
	players         []quizrush.Player
	currentQuestion int
	roundAnswers    []quizrush.Answer
	roundStartTime  time.Time

	leaderboard    []quizrush.Player
	oldLeaderboard []quizrush.Player
	hasOld         bool

	cooldownCancel context.CancelFunc
	cooldownGen    int
	cooldownOnDone func()

	phaseGen    int
	phaseOnFire func()

	lastBroadcastStatus *status
	managerStatus       *status
	playerStatuses      map[string]status
}

type cooldownTickEvent struct {
	gen       int
	remaining uint64
}

type cooldownDoneEvent struct{ gen int }

type phaseTimerEvent struct{ gen int }

// CreateGame creates a new session for quiz, registers it, and starts its
// goroutine. The manager's socket id and client id are bound immediately,
// matching how the original implementation ties a session to the manager
// connection that requested it. Each session gets its own Broadcaster, the
// same way the original gives every game its own broadcast channel.
func CreateGame(registry *Registry, managerSocketID, managerClientID string, quiz quizrush.Quiz, baseURL string) *Session {
	s := &Session{
		ID:               uuid.NewString(),
		InviteCode:       createInviteCode(),
		registry:         registry,
		cmdCh:            make(chan Command, cmdChanBuffer),
		broadcaster:      NewBroadcaster(),
		baseURL:          baseURL,
		cooldownTickCh:   make(chan cooldownTickEvent, 4),
		cooldownDoneCh:   make(chan cooldownDoneEvent, 4),
		phaseCh:          make(chan phaseTimerEvent, 4),
		managerSocketID:  managerSocketID,
		managerClientID:  managerClientID,
		managerConnected: true,
		quiz:             quiz,
		playerStatuses:   make(map[string]status),
	}

	registry.Register(&Handle{
		GameID:      s.ID,
		InviteCode:  s.InviteCode,
		Commands:    s.cmdCh,
		Broadcaster: s.broadcaster,
	}, managerSocketID)

	go s.run()

	logger.Info("game created: %s invite: %s", s.ID, s.InviteCode)
	return s
}

// Commands returns the channel used to post commands to this session.
func (s *Session) Commands() chan<- Command { return s.cmdCh }

func (s *Session) run() {
	for {
		select {
		case cmd := <-s.cmdCh:
			if !s.handleCommand(cmd) {
				return
			}
		case ev := <-s.cooldownTickCh:
			if ev.gen == s.cooldownGen {
				s.broadcast(message.NewCooldown(ev.remaining))
			}
		case ev := <-s.cooldownDoneCh:
			if ev.gen == s.cooldownGen {
				s.cooldownCancel = nil
				onDone := s.cooldownOnDone
				s.cooldownOnDone = nil
				if onDone != nil {
					onDone()
				}
			}
		case ev := <-s.phaseCh:
			if ev.gen == s.phaseGen {
				onFire := s.phaseOnFire
				s.phaseOnFire = nil
				if onFire != nil {
					onFire()
				}
			}
		}
	}
}

func (s *Session) handleCommand(cmd Command) bool {
	switch c := cmd.(type) {
	case CmdJoin:
		s.handleJoin(c.SocketID, c.ClientID, c.Username)
	case CmdSelectAnswer:
		s.handleSelectAnswer(c.SocketID, c.AnswerKey)
	case CmdStartGame:
		if c.SocketID == s.managerSocketID && !s.started {
			s.started = true
			s.handleStartGame()
		}
	case CmdAbortQuiz:
		if c.SocketID == s.managerSocketID && s.started {
			s.cancelCooldown()
		}
	case CmdNextQuestion:
		if c.SocketID == s.managerSocketID && s.started {
			if s.currentQuestion+1 < len(s.quiz.Questions) {
				s.currentQuestion++
				s.beginNewRound()
			}
		}
	case CmdShowLeaderboard:
		s.handleShowLeaderboard()
	case CmdKickPlayer:
		s.handleKickPlayer(c.SocketID, c.PlayerID)
	case CmdPlayerDisconnect:
		s.handlePlayerDisconnect(c.SocketID)
	case CmdManagerDisconnect:
		s.handleManagerDisconnect(c.SocketID)
	case CmdPlayerReconnect:
		s.handlePlayerReconnect(c.SocketID, c.ClientID)
	case CmdManagerReconnect:
		s.handleManagerReconnect(c.SocketID, c.ClientID)
	case cmdManagerDisconnectCheck:
		return s.handleManagerDisconnectCheck()
	default:
		logger.Error("session %s received an unrecognized command %T", s.ID, cmd)
	}
	return true
}

// --- broadcast helpers ----------------------------------------------------

func (s *Session) broadcast(msg message.ServerMsg) {
	s.broadcaster.Publish(Event{Kind: EventBroadcast, Msg: msg})
}

func (s *Session) sendTo(socketID string, msg message.ServerMsg) {
	s.broadcaster.Publish(Event{Kind: EventSendTo, SocketID: socketID, Msg: msg})
}

func (s *Session) broadcastExcept(exclude string, msg message.ServerMsg) {
	s.broadcaster.Publish(Event{Kind: EventBroadcastExcept, Exclude: exclude, Msg: msg})
}

func (s *Session) kick(socketID string, msg message.ServerMsg) {
	s.broadcaster.Publish(Event{Kind: EventKickSocket, SocketID: socketID, Msg: msg})
}

func (s *Session) broadcastStatus(st quizrush.GameStatus, data interface{}) {
	s.lastBroadcastStatus = &status{state: st, data: data}
	s.broadcast(message.NewGameStatus(st, data))
}

func (s *Session) sendStatus(target string, st quizrush.GameStatus, data interface{}) {
	sp := status{state: st, data: data}
	if target == s.managerSocketID {
		s.managerStatus = &sp
	} else {
		s.playerStatuses[target] = sp
	}
	s.sendTo(target, message.NewGameStatus(st, data))
}

func (s *Session) broadcastTotalPlayers() {
	count := 0
	for _, p := range s.players {
		if p.Connected {
			count++
		}
	}
	s.broadcast(message.NewTotalPlayers(count))
}

func (s *Session) questionProgress() quizrush.QuestionProgress {
	return quizrush.QuestionProgress{Current: s.currentQuestion + 1, Total: len(s.quiz.Questions)}
}

func (s *Session) resolveImage(path string) string {
	return config.ResolveImageURL(path, s.baseURL)
}

// cancelCooldown short-circuits the active countdown, if any. The
// countdown's continuation still runs, immediately: cancellation skips the
// remaining wait, it does not skip what the wait was for (an aborted or
// early-ended answer window still computes results).
func (s *Session) cancelCooldown() {
	if s.cooldownCancel == nil {
		return
	}
	s.cooldownCancel()
	s.cooldownCancel = nil

	onDone := s.cooldownOnDone
	s.cooldownOnDone = nil
	if onDone != nil {
		onDone()
	}
}

// startCooldown begins a cancellable per-second countdown, broadcasting a
// Cooldown message each second for the counts seconds-1 down to 1 and then
// waiting one final second. onDone runs on the session's own
// goroutine once the countdown finishes, whether by running out or by
// being cancelled early.
func (s *Session) startCooldown(seconds uint64, onDone func()) {
	s.cooldownGen++
	gen := s.cooldownGen
	s.cooldownOnDone = onDone

	ctx, cancel := context.WithCancel(context.Background())
	s.cooldownCancel = cancel

	go runCooldown(ctx, seconds, gen, s.cooldownTickCh, s.cooldownDoneCh)
}

// scheduleAfter arranges for onFire to run on the session's own goroutine
// after dur has elapsed. Unlike startCooldown this delay is not
// cancellable, matching the fixed animation pauses in the original flow.
func (s *Session) scheduleAfter(dur time.Duration, onFire func()) {
	s.phaseGen++
	gen := s.phaseGen
	s.phaseOnFire = onFire
	time.AfterFunc(dur, func() {
		s.phaseCh <- phaseTimerEvent{gen: gen}
	})
}

// runCooldown is the free function doing the actual ticking so that it can
// run on its own goroutine without touching Session state directly; every
// observation it makes is handed back to the owning goroutine as an event.
func runCooldown(ctx context.Context, seconds uint64, gen int, tickCh chan<- cooldownTickEvent, doneCh chan<- cooldownDoneEvent) {
	for i := int64(seconds) - 1; i >= 1; i-- {
		select {
		case <-time.After(time.Second):
			select {
			case tickCh <- cooldownTickEvent{gen: gen, remaining: uint64(i)}:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}

	// The final second is selected against cancellation too: a cancelled
	// countdown returns at once and never reports completion.
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
		return
	}
	select {
	case doneCh <- cooldownDoneEvent{gen: gen}:
	case <-ctx.Done():
	}
}

// --- command handlers ------------------------------------------------------

func (s *Session) handleJoin(socketID, clientID, username string) {
	for _, p := range s.players {
		if p.ClientID == clientID {
			s.sendTo(socketID, message.NewErrorMessage("Player already connected"))
			return
		}
	}

	if len(username) < validate.MinUsernameLength {
		s.sendTo(socketID, message.NewErrorMessage("Username cannot be less than 4 characters"))
		return
	}
	if len(username) > validate.MaxUsernameLength {
		s.sendTo(socketID, message.NewErrorMessage("Username cannot exceed 20 characters"))
		return
	}

	player := quizrush.Player{ID: socketID, ClientID: clientID, Connected: true, Username: username}
	s.players = append(s.players, player)
	s.registry.BindPlayerSocket(socketID, s.ID)

	s.sendTo(s.managerSocketID, message.NewNewPlayer(player))
	s.broadcastTotalPlayers()
	s.sendTo(socketID, message.NewSuccessJoin(s.ID))
}

func (s *Session) handleSelectAnswer(socketID string, answerKey int) {
	found := false
	for _, p := range s.players {
		if p.ID == socketID {
			found = true
			break
		}
	}
	if !found {
		return
	}

	for _, a := range s.roundAnswers {
		if a.PlayerID == socketID {
			return
		}
	}

	question := s.quiz.Questions[s.currentQuestion]
	points := quizrush.TimeToPoints(time.Since(s.roundStartTime), question.Time)

	s.roundAnswers = append(s.roundAnswers, quizrush.Answer{PlayerID: socketID, AnswerID: answerKey, Points: points})
	s.sendStatus(socketID, quizrush.StatusWait, map[string]interface{}{"text": "Waiting for the players to answer"})
	s.broadcastExcept(socketID, message.NewPlayerAnswer(len(s.roundAnswers)))
	s.broadcastTotalPlayers()

	connected := 0
	for _, p := range s.players {
		if p.Connected {
			connected++
		}
	}
	if len(s.roundAnswers) >= connected {
		s.cancelCooldown()
	}
}

func (s *Session) handleStartGame() {
	s.broadcastStatus(quizrush.StatusShowStart, map[string]interface{}{
		"time":    3,
		"subject": s.quiz.Subject,
	})

	s.scheduleAfter(showStartDelay, func() {
		s.broadcast(message.NewStartCooldown())
		s.startCooldown(3, s.beginNewRound)
	})
}

// beginNewRound starts presenting the current question. It is the
// continuation reached either after the initial ShowStart cooldown or
// after the manager asks for the next question.
func (s *Session) beginNewRound() {
	if !s.started {
		return
	}

	question := s.quiz.Questions[s.currentQuestion]
	s.playerStatuses = make(map[string]status)
	s.roundAnswers = nil

	s.broadcast(message.NewUpdateQuestion(s.currentQuestion+1, len(s.quiz.Questions)))

	s.managerStatus = nil
	s.broadcastStatus(quizrush.StatusShowPrepared, map[string]interface{}{
		"totalAnswers":   len(question.Answers),
		"questionNumber": s.currentQuestion + 1,
	})

	s.scheduleAfter(roundPreparedDelay, func() {
		if !s.started {
			return
		}

		image := s.resolveImage(question.Image)
		s.broadcastStatus(quizrush.StatusShowQuestion, map[string]interface{}{
			"question": question.Question,
			"image":    image,
			"cooldown": question.Cooldown,
		})

		s.scheduleAfter(time.Duration(question.Cooldown)*time.Second, func() {
			if !s.started {
				return
			}

			s.roundStartTime = time.Now()
			connected := 0
			for _, p := range s.players {
				if p.Connected {
					connected++
				}
			}

			s.broadcastStatus(quizrush.StatusSelectAnswer, map[string]interface{}{
				"question":    question.Question,
				"answers":     question.Answers,
				"image":       s.resolveImage(question.Image),
				"video":       question.Video,
				"audio":       question.Audio,
				"time":        question.Time,
				"totalPlayer": connected,
			})

			s.startCooldown(question.Time, func() {
				if !s.started {
					return
				}
				s.handleShowResults()
			})
		})
	})
}

func (s *Session) handleShowResults() {
	question := s.quiz.Questions[s.currentQuestion]

	var oldLeaderboard []quizrush.Player
	if len(s.leaderboard) == 0 {
		oldLeaderboard = append(oldLeaderboard, s.players...)
	} else {
		oldLeaderboard = append(oldLeaderboard, s.leaderboard...)
	}

	responses := make(map[int]int)
	for _, a := range s.roundAnswers {
		responses[a.AnswerID]++
	}

	for i := range s.players {
		answer := findAnswer(s.roundAnswers, s.players[i].ID)
		if answer != nil && answer.AnswerID == question.Solution {
			s.players[i].Points += roundToNearest(answer.Points)
		}
	}

	sortPlayersByPointsDesc(s.players)

	answerImage := s.resolveImage(question.AnswerImage)

	for rank, player := range s.players {
		answer := findAnswer(s.roundAnswers, player.ID)
		correct := answer != nil && answer.AnswerID == question.Solution
		earned := 0.0
		if correct {
			earned = roundToNearest(answer.Points)
		}

		var aheadOfMe interface{}
		if rank > 0 {
			aheadOfMe = s.players[rank-1].Username
		}

		data := map[string]interface{}{
			"correct":     correct,
			"message":     resultMessage(correct),
			"points":      int64(earned),
			"myPoints":    int64(player.Points),
			"rank":        rank + 1,
			"aheadOfMe":   aheadOfMe,
			"answerImage": answerImage,
		}
		s.sendStatus(player.ID, quizrush.StatusShowResult, data)
	}

	responsesJSON := make(map[string]int, len(responses))
	for k, v := range responses {
		responsesJSON[fmt.Sprintf("%d", k)] = v
	}

	s.sendStatus(s.managerSocketID, quizrush.StatusShowResponses, map[string]interface{}{
		"question":  question.Question,
		"responses": responsesJSON,
		"correct":   question.Solution,
		"answers":   question.Answers,
		"image":     s.resolveImage(question.Image),
	})

	s.leaderboard = append([]quizrush.Player(nil), s.players...)
	s.oldLeaderboard = oldLeaderboard
	s.hasOld = true
}

func (s *Session) handleShowLeaderboard() {
	isLast := s.currentQuestion+1 == len(s.quiz.Questions)

	if isLast {
		s.started = false
		top := s.leaderboard
		if len(top) > 3 {
			top = top[:3]
		}
		s.broadcastStatus(quizrush.StatusFinished, map[string]interface{}{
			"subject": s.quiz.Subject,
			"top":     top,
		})
		return
	}

	old := s.leaderboard
	if s.hasOld {
		old = s.oldLeaderboard
	}
	s.hasOld = false

	s.sendStatus(s.managerSocketID, quizrush.StatusShowLeaderboard, map[string]interface{}{
		"oldLeaderboard": capPlayers(old, 5),
		"leaderboard":    capPlayers(s.leaderboard, 5),
	})
}

func (s *Session) handleKickPlayer(socketID, playerID string) {
	if socketID != s.managerSocketID {
		return
	}

	idx := -1
	for i, p := range s.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}

	player := s.players[idx]
	s.players = append(s.players[:idx], s.players[idx+1:]...)
	delete(s.playerStatuses, playerID)
	s.registry.UnbindPlayerSocket(playerID)

	s.kick(player.ID, message.NewReset("You have been kicked by the manager"))
	s.sendTo(s.managerSocketID, message.NewPlayerKicked(player.ID))
	s.broadcastTotalPlayers()
}

func (s *Session) handlePlayerDisconnect(socketID string) {
	s.registry.UnbindPlayerSocket(socketID)

	for i := range s.players {
		if s.players[i].ID != socketID {
			continue
		}
		if !s.started {
			playerID := s.players[i].ID
			s.players = append(s.players[:i], s.players[i+1:]...)
			s.sendTo(s.managerSocketID, message.NewRemovePlayer(playerID))
		} else {
			s.players[i].Connected = false
		}
		s.broadcastTotalPlayers()
		return
	}
}

func (s *Session) handleManagerDisconnect(socketID string) {
	if socketID != s.managerSocketID {
		return
	}

	s.managerConnected = false
	s.registry.UnbindManagerSocket(socketID)

	cmdCh := s.cmdCh
	time.AfterFunc(managerGraceDelay, func() {
		cmdCh <- cmdManagerDisconnectCheck{}
	})
}

func (s *Session) handleManagerDisconnectCheck() bool {
	if s.managerConnected || s.started {
		return true
	}

	s.cancelCooldown()
	s.broadcast(message.NewReset("Manager disconnected"))
	s.registry.RemoveGame(s.ID)
	return false
}

func (s *Session) handlePlayerReconnect(socketID, clientID string) {
	idx := -1
	for i, p := range s.players {
		if p.ClientID == clientID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.sendTo(socketID, message.NewReset("Game not found"))
		return
	}

	if s.players[idx].Connected {
		s.sendTo(socketID, message.NewReset("Player already connected"))
		return
	}

	oldID := s.players[idx].ID
	s.players[idx].ID = socketID
	s.players[idx].Connected = true

	s.registry.UnbindPlayerSocket(oldID)
	s.registry.BindPlayerSocket(socketID, s.ID)

	if st, ok := s.playerStatuses[oldID]; ok {
		delete(s.playerStatuses, oldID)
		s.playerStatuses[socketID] = st
	}

	st, ok := s.playerStatuses[socketID]
	if !ok {
		if s.lastBroadcastStatus != nil {
			st = *s.lastBroadcastStatus
		} else {
			st = waitStatus("Waiting for players")
		}
	}

	player := s.players[idx]
	s.sendTo(socketID, message.NewPlayerReconnected(s.ID, st.state, st.data, player.Username, player.Points, s.questionProgress()))
	s.broadcastTotalPlayers()

	logger.Info("player reconnected to game %s", s.InviteCode)
}

func (s *Session) handleManagerReconnect(socketID, clientID string) {
	if s.managerClientID != clientID {
		s.sendTo(socketID, message.NewReset("Game not found"))
		return
	}
	if s.managerConnected {
		s.sendTo(socketID, message.NewReset("Manager already connected"))
		return
	}

	oldID := s.managerSocketID
	s.managerSocketID = socketID
	s.managerConnected = true

	s.registry.UnbindManagerSocket(oldID)
	s.registry.BindManagerSocket(socketID, s.ID)

	var st status
	switch {
	case s.managerStatus != nil:
		st = *s.managerStatus
	case s.lastBroadcastStatus != nil:
		st = *s.lastBroadcastStatus
	default:
		st = waitStatus("Waiting for players")
	}

	s.sendTo(socketID, message.NewManagerReconnected(s.ID, st.state, st.data, append([]quizrush.Player(nil), s.players...), s.questionProgress()))
	s.broadcastTotalPlayers()

	logger.Info("manager reconnected to game %s", s.InviteCode)
}

// --- small pure helpers ----------------------------------------------------

func findAnswer(answers []quizrush.Answer, playerID string) *quizrush.Answer {
	for i := range answers {
		if answers[i].PlayerID == playerID {
			return &answers[i]
		}
	}
	return nil
}

func roundToNearest(v float64) float64 {
	if v < 0 {
		return 0
	}
	return float64(int64(v + 0.5))
}

func resultMessage(correct bool) string {
	if correct {
		return "Nice!"
	}
	return "Too bad"
}

func capPlayers(players []quizrush.Player, n int) []quizrush.Player {
	if len(players) > n {
		return players[:n]
	}
	return players
}

func sortPlayersByPointsDesc(players []quizrush.Player) {
	for i := 1; i < len(players); i++ {
		for j := i; j > 0 && players[j].Points > players[j-1].Points; j-- {
			players[j], players[j-1] = players[j-1], players[j]
		}
	}
}
