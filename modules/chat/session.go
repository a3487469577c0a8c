package chat

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// DefaultRoom is used when the connection names no room.
const DefaultRoom = "ai_chat_room"

// State is the lifecycle state of a chat connection.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	StateRejected
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateRejected:
		return "rejected"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var transitions = map[State][]State{
	StateConnecting:     {StateAuthenticating, StateClosed},
	StateAuthenticating: {StateRejected, StateOpen, StateClosed},
	StateRejected:       {StateClosed},
	StateOpen:           {StateClosed},
}

// Identity is the authenticated user behind a connection.
type Identity struct {
	UserID   string
	Username string
}

// Session tracks one websocket connection.
type Session struct {
	ID       string
	Room     string
	identity Identity
	state    State
	mu       sync.RWMutex
}

// NewSession creates a session in the connecting state. An empty room
// selects DefaultRoom.
func NewSession(room string) *Session {
	if room == "" {
		room = DefaultRoom
	}
	return &Session{
		ID:    uuid.New().String(),
		Room:  room,
		state: StateConnecting,
	}
}

// GroupName is the routing key of the session's room.
func (s *Session) GroupName() string {
	return "chat_" + s.Room
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Identity returns the user set by Accept.
func (s *Session) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

// BeginAuth moves the session to authenticating.
func (s *Session) BeginAuth() error {
	return s.transition(StateAuthenticating)
}

// Accept opens the session for identity.
func (s *Session) Accept(identity Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.transitionLocked(StateOpen); err != nil {
		return err
	}
	s.identity = identity
	return nil
}

// Reject marks the session as rejected by the gate.
func (s *Session) Reject() error {
	return s.transition(StateRejected)
}

// Close moves the session to its terminal state. Closing twice is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateClosed
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to)
}

func (s *Session) transitionLocked(to State) error {
	for _, allowed := range transitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
}
