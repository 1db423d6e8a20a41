package game

import (
	"crypto/subtle"
	"sync"

	"github.com/google/uuid"

	"github.com/rousseya/quizrush-server/quizrush"
	"github.com/rousseya/quizrush-server/quizrush/game/message"
	"github.com/rousseya/quizrush-server/quizrush/validate"
)

// Gateway is shared, read-mostly state every connection handler dispatches
// pre-session messages against: the quiz catalog, the shared manager
// password, and the running session registry. One Gateway serves every
// socket the process accepts.
type Gateway struct {
	Registry *Registry
	Quizzes  []quizrush.QuizWithID
	Password string
	BaseURL  string
}

// NewGateway builds a Gateway over an already-populated registry and quiz
// catalog.
func NewGateway(registry *Registry, quizzes []quizrush.QuizWithID, password, baseURL string) *Gateway {
	return &Gateway{Registry: registry, Quizzes: quizzes, Password: password, BaseURL: baseURL}
}

// ConnectionHandler is the per-socket routing fabric described in spec §4.4:
// it decodes client frames, answers pre-session messages directly against
// the Gateway, forwards in-session messages to the right Session as a
// Command, and relays that Session's broadcast Events back down the socket.
type ConnectionHandler struct {
	gw       *Gateway
	conn     *Conn
	socketID string
	clientID string

	mu      sync.Mutex
	current *Handle

	handleSignal chan struct{}
	done         chan struct{}
	closeOnce    sync.Once
}

// NewConnectionHandler wraps conn with a fresh socket id and the client's
// self-reported, reconnect-stable client id.
func NewConnectionHandler(gw *Gateway, conn *Conn, clientID string) *ConnectionHandler {
	return &ConnectionHandler{
		gw:           gw,
		conn:         conn,
		socketID:     uuid.NewString(),
		clientID:     clientID,
		handleSignal: make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
}

// Run drives this connection until its socket closes: the outbound relay
// runs on its own goroutine while the inbound decode loop runs on the
// caller's, so Run blocks until the client disconnects.
func (h *ConnectionHandler) Run() {
	go h.runOutboundLoop()
	h.runInboundLoop()
}

func (h *ConnectionHandler) setCurrent(handle *Handle) {
	h.mu.Lock()
	h.current = handle
	h.mu.Unlock()
	select {
	case h.handleSignal <- struct{}{}:
	default:
	}
}

func (h *ConnectionHandler) getCurrent() *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *ConnectionHandler) markDone() {
	h.closeOnce.Do(func() { close(h.done) })
}

// --- inbound loop ----------------------------------------------------------

func (h *ConnectionHandler) runInboundLoop() {
	for {
		raw := h.conn.ReadMessageBlock()
		if _, closed := raw.(socketClosed); closed {
			h.markDone()
			h.handleSocketClosed()
			return
		}

		cm, ok := raw.(message.ClientMsg)
		if !ok {
			logger.Warn("connection %s received a non-client message %T, dropping", h.socketID, raw)
			continue
		}
		h.dispatch(cm)
	}
}

func (h *ConnectionHandler) dispatch(msg message.ClientMsg) {
	switch m := msg.(type) {
	case *message.ManagerAuthMsg:
		h.handleManagerAuth(m)
	case *message.CreateGameMsg:
		h.handleCreateGame(m)
	case *message.PlayerJoinMsg:
		h.handlePlayerJoin(m)
	case *message.PlayerLoginMsg:
		h.handlePlayerLogin(m)
	case *message.StartGameMsg:
		h.forward(m.GameID, CmdStartGame{SocketID: h.socketID})
	case *message.AbortQuizMsg:
		h.forward(m.GameID, CmdAbortQuiz{SocketID: h.socketID})
	case *message.NextQuestionMsg:
		h.forward(m.GameID, CmdNextQuestion{SocketID: h.socketID})
	case *message.ShowLeaderboardMsg:
		h.forward(m.GameID, CmdShowLeaderboard{})
	case *message.KickPlayerMsg:
		h.forward(m.GameID, CmdKickPlayer{SocketID: h.socketID, PlayerID: m.PlayerID})
	case *message.SelectedAnswerMsg:
		h.forward(m.GameID, CmdSelectAnswer{SocketID: h.socketID, AnswerKey: m.AnswerKey})
	case *message.PlayerReconnectMsg:
		h.handlePlayerReconnect(m)
	case *message.ManagerReconnectMsg:
		h.handleManagerReconnect(m)
	default:
		logger.Warn("connection %s received a message with no dispatch rule: %T", h.socketID, msg)
	}
}

// handleSocketClosed runs once, when the socket's read loop stops: it tells
// whichever session this socket belonged to (as manager or player) that the
// socket is gone.
func (h *ConnectionHandler) handleSocketClosed() {
	if gameID, ok := h.gw.Registry.GameForManagerSocket(h.socketID); ok {
		if handle, ok := h.gw.Registry.Game(gameID); ok {
			handle.Commands <- CmdManagerDisconnect{SocketID: h.socketID}
			return
		}
	}
	if gameID, ok := h.gw.Registry.GameForPlayerSocket(h.socketID); ok {
		if handle, ok := h.gw.Registry.Game(gameID); ok {
			handle.Commands <- CmdPlayerDisconnect{SocketID: h.socketID}
		}
	}
}

// forward resolves gameID against the registry and, if a session is still
// running under that id, routes cmd to it. An absent game id is not an
// error: the registry is never a source of logical errors (spec §4.1), so a
// stale or unknown id is simply dropped.
func (h *ConnectionHandler) forward(gameID string, cmd Command) {
	handle, ok := h.gw.Registry.Game(gameID)
	if !ok {
		return
	}
	h.setCurrent(handle)
	handle.Commands <- cmd
}

// --- pre-session message handlers ------------------------------------------

func (h *ConnectionHandler) handleManagerAuth(m *message.ManagerAuthMsg) {
	given := []byte(m.Password)
	want := []byte(h.gw.Password)
	match := len(given) == len(want) && subtle.ConstantTimeCompare(given, want) == 1
	if !match {
		h.conn.WriteMessage(message.NewErrorMessage("Invalid password"))
		return
	}
	h.conn.WriteMessage(message.NewQuizList(h.gw.Quizzes))
}

func (h *ConnectionHandler) handleCreateGame(m *message.CreateGameMsg) {
	var quiz *quizrush.QuizWithID
	for i := range h.gw.Quizzes {
		if h.gw.Quizzes[i].ID == m.QuizID {
			quiz = &h.gw.Quizzes[i]
			break
		}
	}
	if quiz == nil {
		h.conn.WriteMessage(message.NewErrorMessage("Quiz not found"))
		return
	}

	session := CreateGame(h.gw.Registry, h.socketID, h.clientID, quiz.Quiz, h.gw.BaseURL)
	handle, _ := h.gw.Registry.Game(session.ID)
	h.setCurrent(handle)
	h.conn.WriteMessage(message.NewGameCreated(session.ID, session.InviteCode))
}

func (h *ConnectionHandler) handlePlayerJoin(m *message.PlayerJoinMsg) {
	if !validate.IsValidInviteCode(m.InviteCode) {
		h.conn.WriteMessage(message.NewErrorMessage("Invalid invite code"))
		return
	}

	handle, ok := h.gw.Registry.GameByInviteCode(m.InviteCode)
	if !ok {
		h.conn.WriteMessage(message.NewErrorMessage("Game not found"))
		return
	}

	h.setCurrent(handle)
	h.conn.WriteMessage(message.NewSuccessRoom(handle.GameID))
}

func (h *ConnectionHandler) handlePlayerLogin(m *message.PlayerLoginMsg) {
	handle, ok := h.gw.Registry.Game(m.GameID)
	if !ok {
		h.conn.WriteMessage(message.NewReset("Game not found"))
		return
	}
	h.setCurrent(handle)
	handle.Commands <- CmdJoin{SocketID: h.socketID, ClientID: h.clientID, Username: m.Username}
}

func (h *ConnectionHandler) handlePlayerReconnect(m *message.PlayerReconnectMsg) {
	handle, ok := h.gw.Registry.Game(m.GameID)
	if !ok {
		h.conn.WriteMessage(message.NewReset("Game not found"))
		return
	}
	h.setCurrent(handle)
	handle.Commands <- CmdPlayerReconnect{SocketID: h.socketID, ClientID: h.clientID}
}

func (h *ConnectionHandler) handleManagerReconnect(m *message.ManagerReconnectMsg) {
	handle, ok := h.gw.Registry.Game(m.GameID)
	if !ok {
		h.conn.WriteMessage(message.NewReset("Game not found"))
		return
	}
	h.setCurrent(handle)
	handle.Commands <- CmdManagerReconnect{SocketID: h.socketID, ClientID: h.clientID}
}

// --- outbound loop -----------------------------------------------------

// runOutboundLoop relays whichever session is "current" for this socket to
// the client, resubscribing whenever that session changes (a fresh game
// creation, a room entry, or a reconnect) and parking when there is none
// yet, matching spec §4.4's "poll for a new current session" behavior.
func (h *ConnectionHandler) runOutboundLoop() {
	var events <-chan Event
	var unsubscribe func()
	defer func() {
		if unsubscribe != nil {
			unsubscribe()
		}
	}()

	for {
		handle := h.getCurrent()
		if handle == nil {
			select {
			case <-h.handleSignal:
				continue
			case <-h.done:
				return
			}
		}

		if events == nil {
			events, unsubscribe = handle.Broadcaster.Subscribe(h.socketID)
		}

		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			msg, ok := ev.Msg.(message.ServerMsg)
			if !ok {
				continue
			}
			h.conn.WriteMessage(msg)
			if ev.Kind == EventKickSocket {
				h.conn.Close()
				return
			}
		case <-h.handleSignal:
			if unsubscribe != nil {
				unsubscribe()
				unsubscribe = nil
			}
			events = nil
		case <-h.done:
			return
		}
	}
}
