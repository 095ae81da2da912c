package signaler

import (
	"errors"
	"sync"

	"github.com/openhuddle/huddle/pkg/com"
)

var (
	ErrRoomFull = errors.New("room is full")
	ErrClosed   = errors.New("connection is closed")
	errNotFound = errors.New("not found")
)

// Member is a registry snapshot entry: the participant identity
// captured at registration time plus its live session.
type Member struct {
	Handle com.Uid
	User   string

	sess *Session
}

// Registry tracks which connection belongs to which room.
//
// One mutex covers every mutation and every roster read, so a roster
// snapshot can never hand out a handle removed before the read started.
// Per-room participant order is insertion order. Rooms come into existence
// with the first participant and are dropped with the last one.
type Registry struct {
	mu       sync.Mutex
	rooms    map[string][]Member
	byHandle map[com.Uid]string
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string][]Member, 10),
		byHandle: make(map[com.Uid]string, 10),
	}
}

// Register adds the session to a room, appending to the room order,
// and marks it joined in one step. The limit param caps the room size,
// 0 is no cap. A session whose teardown has already begun is refused,
// so a racing disconnect can never leave a dead handle registered:
// teardown flips the session state before it touches the registry.
func (r *Registry) Register(room string, s *Session, user string, limit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHandle[s.Id()]; ok {
		// the handle is still somewhere else, first-remove was skipped
		r.removeLocked(s.Id())
	}
	if limit > 0 && len(r.rooms[room]) >= limit {
		return ErrRoomFull
	}
	if !s.SetJoined(room, user) {
		return ErrClosed
	}
	r.rooms[room] = append(r.rooms[room], Member{Handle: s.Id(), User: user, sess: s})
	r.byHandle[s.Id()] = room
	return nil
}

// List returns an insertion-ordered snapshot of the room,
// skipping the exclude handle when it is not nil.
func (r *Registry) List(room string, exclude com.Uid) []Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	members := r.rooms[room]
	out := make([]Member, 0, len(members))
	for _, m := range members {
		if !exclude.IsNil() && m.Handle == exclude {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Find returns the live session registered under the handle.
func (r *Registry) Find(handle com.Uid) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.byHandle[handle]
	if !ok {
		return nil, errNotFound
	}
	for _, m := range r.rooms[room] {
		if m.Handle == handle {
			return m.sess, nil
		}
	}
	return nil, errNotFound
}

// Remove evicts the handle from whichever room it was in and returns that
// room together with a snapshot of the remaining members. It is a no-op
// for unknown handles, so concurrent teardowns of the same connection
// collapse into a single removal.
func (r *Registry) Remove(handle com.Uid) (room string, remaining []Member, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok = r.byHandle[handle]
	if !ok {
		return "", nil, false
	}
	r.removeLocked(handle)
	remaining = append(remaining, r.rooms[room]...)
	return room, remaining, true
}

func (r *Registry) removeLocked(handle com.Uid) {
	room, ok := r.byHandle[handle]
	if !ok {
		return
	}
	delete(r.byHandle, handle)
	members := r.rooms[room]
	for i, m := range members {
		if m.Handle == handle {
			r.rooms[room] = append(members[:i:i], members[i+1:]...)
			break
		}
	}
	if len(r.rooms[room]) == 0 {
		delete(r.rooms, room)
	}
}

// RoomSize returns the current number of participants in a room.
func (r *Registry) RoomSize(room string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[room])
}

// Counts returns the number of live rooms and participants.
func (r *Registry) Counts() (rooms int, participants int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms), len(r.byHandle)
}
