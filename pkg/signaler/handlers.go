package signaler

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/openhuddle/huddle/pkg/api"
	"github.com/openhuddle/huddle/pkg/com"
)

// HandleJoin registers the connection in a room, replies with the current
// roster, and announces the joiner to everyone else. Joins with an empty
// room or user id are rejected without registering anything. A second join
// from the same connection moves it: the old room sees a departure first.
func (h *Hub) HandleJoin(s *Session, payload []byte) {
	rq := api.Unwrap[api.JoinRoomRequest](payload)
	if rq == nil || rq.RoomId == "" || rq.UserId == "" {
		s.log.Warn().Err(api.ErrMalformed).Msg("join")
		s.Notify(api.JoinError, api.JoinErrorResponse{Reason: "room id and user id are required"})
		return
	}
	if s.Room() != "" {
		h.leaveRoom(s)
	}
	if err := h.registry.Register(rq.RoomId, s, rq.UserId, h.conf.Rooms.MaxParticipants); err != nil {
		s.log.Warn().Err(err).Str("room", rq.RoomId).Msg("join rejected")
		s.Notify(api.JoinError, api.JoinErrorResponse{Reason: err.Error()})
		return
	}
	h.syncRoomMetrics()

	others := h.registry.List(rq.RoomId, s.Id())
	roster := make([]api.RosterUser, 0, len(others))
	for _, m := range others {
		roster = append(roster, api.RosterUser{Id: m.Handle.String(), UserId: m.User})
	}
	s.Notify(api.Roster, roster)

	joined := api.RosterUser{Id: s.Id().String(), UserId: rq.UserId}
	for _, m := range others {
		m.sess.Notify(api.UserJoined, joined)
	}
	s.log.Info().Str("room", rq.RoomId).Str("user", rq.UserId).Msg("joined")
}

// leaveRoom evicts a still-open session from its current room,
// used when a joined connection re-joins another room. The session
// drops back to the lobby state, so a later rejected registration
// cannot leave it claiming a room the registry denies.
func (h *Hub) leaveRoom(s *Session) {
	room, remaining, ok := h.registry.Remove(s.Id())
	if !ok {
		return
	}
	s.LeaveRoom()
	for _, m := range remaining {
		m.sess.Notify(api.UserLeft, s.Id().String())
	}
	s.log.Debug().Str("room", room).Msg("moved out")
}

// HandleSendSignal relays an opaque WebRTC offer to the target handle.
// A target that is gone means the disconnect race won: the payload is
// dropped silently, nothing is surfaced to the sender.
func (h *Hub) HandleSendSignal(s *Session, payload []byte) {
	rq := api.Unwrap[api.SendSignalRequest](payload)
	if rq == nil || rq.UserToSignal == "" {
		s.log.Warn().Err(api.ErrMalformed).Msg("signal")
		return
	}
	h.relay(s, rq.UserToSignal, api.IncomingSignal,
		api.IncomingSignalResponse{Signal: rq.Signal, CallerId: s.Id().String()})
}

// HandleReturnSignal relays the answer back to the original caller.
func (h *Hub) HandleReturnSignal(s *Session, payload []byte) {
	rq := api.Unwrap[api.ReturnSignalRequest](payload)
	if rq == nil || rq.CallerId == "" {
		s.log.Warn().Err(api.ErrMalformed).Msg("signal")
		return
	}
	h.relay(s, rq.CallerId, api.ReturnedSignal,
		api.ReturnedSignalResponse{Signal: rq.Signal, Id: s.Id().String()})
}

func (h *Hub) relay(s *Session, to string, t api.PT, data any) {
	handle, err := com.UidFrom(to)
	if err != nil {
		s.log.Debug().Str("to", to).Msg("bogus relay target")
		metrics.DropSignals.Inc()
		return
	}
	target, err := h.registry.Find(handle)
	if err != nil {
		// expected disconnect race, not an error
		s.log.Debug().Str("to", to).Msg("relay target is gone")
		metrics.DropSignals.Inc()
		return
	}
	target.Notify(t, data)
	metrics.Signals.Inc()
}

// HandleChat fans a chat message out to the sender's room. The payload
// stays opaque except for the room id check and the added server
// timestamp; the sender gets its own copy back as the delivery receipt.
func (h *Hub) HandleChat(s *Session, payload []byte) {
	var data map[string]any
	if err := json.Unmarshal(payload, &data); err != nil {
		s.log.Warn().Err(err).Msg("malformed chat")
		return
	}
	room, _ := data["room_id"].(string)
	if room == "" || room != s.Room() {
		s.log.Warn().Err(api.ErrForbidden).Str("room", room).Msg("chat outside of the joined room")
		return
	}
	data["ts"] = time.Now().UnixMilli()
	exclude := com.NilUid
	if !h.conf.Rooms.EchoChat {
		exclude = s.Id()
	}
	h.broadcast(room, api.ChatMessage, data, exclude)
	metrics.RoomEvents.WithLabelValues("chat").Inc()
}

// HandleDraw fans a whiteboard stroke out to everyone but the sender,
// who has already rendered it locally.
func (h *Hub) HandleDraw(s *Session, payload []byte) {
	h.roomEvent(s, payload, api.Drawing, "draw-stroke")
}

// HandleCanvasPush fans a full canvas snapshot out to everyone
// but the sender, used to catch late joiners up.
func (h *Hub) HandleCanvasPush(s *Session, payload []byte) {
	h.roomEvent(s, payload, api.CanvasState, "canvas-sync")
}

// roomEvent re-broadcasts the raw payload byte-for-byte,
// the server reads nothing of it but the room id.
func (h *Hub) roomEvent(s *Session, payload []byte, t api.PT, kind string) {
	rq := api.Unwrap[api.RoomScoped](payload)
	if rq == nil || rq.RoomId == "" || rq.RoomId != s.Room() {
		s.log.Warn().Err(api.ErrForbidden).Str("kind", kind).Msg("room event outside of the joined room")
		return
	}
	h.broadcast(rq.RoomId, t, json.RawMessage(payload), s.Id())
	metrics.RoomEvents.WithLabelValues(kind).Inc()
}
