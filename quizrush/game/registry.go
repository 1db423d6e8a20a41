package game

import (
	"math/rand"
	"sync"
)

// inviteCodeLength is the number of decimal digits in a game invite code.
const inviteCodeLength = 6

// createInviteCode returns a new random six decimal digit invite code.
func createInviteCode() string {
	digits := make([]byte, inviteCodeLength)
	for i := range digits {
		digits[i] = byte('0' + rand.Intn(10))
	}
	return string(digits)
}

// Handle is what the connection handler holds onto for a running session:
// enough to route commands into it and subscribe to its broadcast events.
type Handle struct {
	GameID      string
	InviteCode  string
	Commands    chan<- Command
	Broadcaster *Broadcaster
}

// Registry tracks every session currently running on this server, along
// with the lookup tables the connection handler needs: invite code to
// game, and socket id to game for both roles. Each map owns its own lock
// since the four are populated and queried independently of one another.
type Registry struct {
	gamesMu sync.RWMutex
	games   map[string]*Handle

	inviteCodesMu sync.RWMutex
	inviteCodes   map[string]string // invite code -> game id

	playerSocketsMu sync.RWMutex
	playerSockets   map[string]string // socket id -> game id

	managerSocketsMu sync.RWMutex
	managerSockets   map[string]string // socket id -> game id
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		games:         make(map[string]*Handle),
		inviteCodes:   make(map[string]string),
		playerSockets: make(map[string]string),
		managerSockets: make(map[string]string),
	}
}

// Register adds a freshly-created session's handle and its invite code to
// the registry, and claims the given manager socket id for it.
func (r *Registry) Register(handle *Handle, managerSocketID string) {
	r.gamesMu.Lock()
	r.games[handle.GameID] = handle
	r.gamesMu.Unlock()

	r.inviteCodesMu.Lock()
	r.inviteCodes[handle.InviteCode] = handle.GameID
	r.inviteCodesMu.Unlock()

	r.managerSocketsMu.Lock()
	r.managerSockets[managerSocketID] = handle.GameID
	r.managerSocketsMu.Unlock()
}

// Game looks up a session's handle by its game id.
func (r *Registry) Game(gameID string) (*Handle, bool) {
	r.gamesMu.RLock()
	defer r.gamesMu.RUnlock()
	h, ok := r.games[gameID]
	return h, ok
}

// GameByInviteCode resolves an invite code to a running session's handle.
func (r *Registry) GameByInviteCode(inviteCode string) (*Handle, bool) {
	r.inviteCodesMu.RLock()
	gameID, ok := r.inviteCodes[inviteCode]
	r.inviteCodesMu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.Game(gameID)
}

// BindPlayerSocket records that socketID belongs to gameID as a player.
func (r *Registry) BindPlayerSocket(socketID, gameID string) {
	r.playerSocketsMu.Lock()
	r.playerSockets[socketID] = gameID
	r.playerSocketsMu.Unlock()
}

// UnbindPlayerSocket removes socketID's player-socket binding, if any.
func (r *Registry) UnbindPlayerSocket(socketID string) {
	r.playerSocketsMu.Lock()
	delete(r.playerSockets, socketID)
	r.playerSocketsMu.Unlock()
}

// GameForPlayerSocket resolves a player socket id to its game id.
func (r *Registry) GameForPlayerSocket(socketID string) (string, bool) {
	r.playerSocketsMu.RLock()
	defer r.playerSocketsMu.RUnlock()
	gameID, ok := r.playerSockets[socketID]
	return gameID, ok
}

// BindManagerSocket records that socketID belongs to gameID as the manager.
func (r *Registry) BindManagerSocket(socketID, gameID string) {
	r.managerSocketsMu.Lock()
	r.managerSockets[socketID] = gameID
	r.managerSocketsMu.Unlock()
}

// UnbindManagerSocket removes socketID's manager-socket binding, if any.
func (r *Registry) UnbindManagerSocket(socketID string) {
	r.managerSocketsMu.Lock()
	delete(r.managerSockets, socketID)
	r.managerSocketsMu.Unlock()
}

// GameForManagerSocket resolves a manager socket id to its game id.
func (r *Registry) GameForManagerSocket(socketID string) (string, bool) {
	r.managerSocketsMu.RLock()
	defer r.managerSocketsMu.RUnlock()
	gameID, ok := r.managerSockets[socketID]
	return gameID, ok
}

// RemoveGame drops a finished session and every lookup entry that pointed
// at it: its invite code and any player/manager socket bindings still
// referencing it. All four locks are held together, so no reader sees the
// removal half done.
func (r *Registry) RemoveGame(gameID string) {
	r.gamesMu.Lock()
	defer r.gamesMu.Unlock()
	r.inviteCodesMu.Lock()
	defer r.inviteCodesMu.Unlock()
	r.playerSocketsMu.Lock()
	defer r.playerSocketsMu.Unlock()
	r.managerSocketsMu.Lock()
	defer r.managerSocketsMu.Unlock()

	handle, ok := r.games[gameID]
	delete(r.games, gameID)

	if ok {
		delete(r.inviteCodes, handle.InviteCode)
	}

	for socketID, gid := range r.playerSockets {
		if gid == gameID {
			delete(r.playerSockets, socketID)
		}
	}

	for socketID, gid := range r.managerSockets {
		if gid == gameID {
			delete(r.managerSockets, socketID)
		}
	}
}
