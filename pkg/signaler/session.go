package signaler

import (
	"sync/atomic"

	"github.com/openhuddle/huddle/pkg/api"
	"github.com/openhuddle/huddle/pkg/com"
	"github.com/openhuddle/huddle/pkg/logger"
)

// notifier is the delivery side of one connection.
type notifier interface {
	Notify(t api.PT, data any)
	Disconnect()
}

type sessionState int32

const (
	stateConnecting sessionState = iota
	stateJoined
	stateLeaving
	stateClosed
)

// Session is one browser connection tracked by the signaler.
// Its handle is assigned on connect and dies with the connection,
// a reconnecting client gets a brand-new session.
type Session struct {
	id    com.Uid
	peer  notifier
	log   *logger.Logger
	state atomic.Int32

	// room and user are written only by the session's own reader goroutine,
	// the registry keeps its own copy for concurrent roster reads
	room string
	user string
}

func NewSession(id com.Uid, peer notifier, log *logger.Logger) *Session {
	return &Session{id: id, peer: peer, log: log}
}

func (s *Session) Id() com.Uid  { return s.id }
func (s *Session) Room() string { return s.room }
func (s *Session) User() string { return s.user }

// SetJoined moves the session into a room. Returns false when teardown
// has already begun: a closed session cannot be resurrected into a room.
// The registry calls it under its own mutex, which orders the state check
// against a concurrent teardown's registry removal.
func (s *Session) SetJoined(room string, user string) bool {
	for {
		cur := s.state.Load()
		if cur == int32(stateLeaving) || cur == int32(stateClosed) {
			return false
		}
		if s.state.CompareAndSwap(cur, int32(stateJoined)) {
			s.room, s.user = room, user
			return true
		}
	}
}

// LeaveRoom drops a joined session back to the lobby state and clears
// its room assignment. Sessions mid-teardown are left alone.
func (s *Session) LeaveRoom() {
	if s.state.CompareAndSwap(int32(stateJoined), int32(stateConnecting)) {
		s.room, s.user = "", ""
	}
}

// BeginLeave moves the session into the terminal teardown path.
// Returns false when teardown has already started, which makes
// concurrent double-disconnects collapse into a single one.
func (s *Session) BeginLeave() bool {
	for {
		cur := s.state.Load()
		if cur == int32(stateLeaving) || cur == int32(stateClosed) {
			return false
		}
		if s.state.CompareAndSwap(cur, int32(stateLeaving)) {
			return true
		}
	}
}

func (s *Session) Close() { s.state.Store(int32(stateClosed)) }

func (s *Session) Closed() bool {
	st := s.state.Load()
	return st == int32(stateLeaving) || st == int32(stateClosed)
}

// Notify forwards a packet to the browser unless the session
// has already entered teardown.
func (s *Session) Notify(t api.PT, data any) {
	if s.Closed() {
		return
	}
	s.peer.Notify(t, data)
}
