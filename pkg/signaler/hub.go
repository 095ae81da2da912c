package signaler

import (
	"net/http"

	"github.com/openhuddle/huddle/pkg/api"
	"github.com/openhuddle/huddle/pkg/com"
	"github.com/openhuddle/huddle/pkg/config"
	"github.com/openhuddle/huddle/pkg/logger"
)

// Hub ties the connection registry, the pairwise signal relay,
// and the room event bus to incoming websocket connections.
type Hub struct {
	conf      config.Signaler
	log       *logger.Logger
	registry  *Registry
	users     com.Map[com.Uid, *Session]
	connector *com.Connector
}

func NewHub(conf config.Signaler, log *logger.Logger) *Hub {
	return &Hub{
		conf:      conf,
		log:       log,
		registry:  NewRegistry(),
		users:     com.NewMap[com.Uid, *Session](),
		connector: com.NewConnector(com.WithOrigin(conf.Origin), com.WithTag("sig")),
	}
}

// handleConnection serves one browser connection until it drops.
// All packets of the connection are processed on its single reader
// goroutine, so per-sender emission order is preserved end to end.
func (h *Hub) handleConnection(w http.ResponseWriter, r *http.Request) {
	user, err := h.connector.NewServer(w, r, h.log)
	if err != nil {
		h.log.Error().Err(err).Msg("couldn't upgrade the user connection")
		return
	}
	s := NewSession(user.Id(), user, h.log.Extend(h.log.With().Str("cid", user.Id().Short())))
	h.users.Put(s.Id(), s)
	metrics.Connections.Inc()

	user.OnPacket(func(p api.In) { h.route(s, p) })
	<-user.Listen()

	h.Teardown(s)
	h.users.RemoveByKey(s.Id())
	metrics.Connections.Dec()
}

func (h *Hub) route(s *Session, p api.In) {
	switch p.T {
	case api.JoinRoom:
		h.HandleJoin(s, p.Payload)
	case api.LeaveRoom:
		h.Teardown(s)
		s.peer.Disconnect()
	case api.SendSignal:
		h.HandleSendSignal(s, p.Payload)
	case api.ReturnSignal:
		h.HandleReturnSignal(s, p.Payload)
	case api.SendChat:
		h.HandleChat(s, p.Payload)
	case api.SendDraw:
		h.HandleDraw(s, p.Payload)
	case api.CanvasPush:
		h.HandleCanvasPush(s, p.Payload)
	default:
		s.log.Warn().Msgf("unknown packet %v", p.T)
	}
}

// broadcast fans data out to the room members in their join order,
// skipping the exclude handle when it is not nil. Each delivery is
// independent: a member mid-teardown just loses its own copy.
func (h *Hub) broadcast(room string, t api.PT, data any, exclude com.Uid) {
	for _, m := range h.registry.List(room, exclude) {
		m.sess.Notify(t, data)
	}
}

// Teardown evicts the session from its room and tells the remaining
// members to drop their peer connections. Safe to call multiple times
// and from concurrent paths, the room sees exactly one departure.
func (h *Hub) Teardown(s *Session) {
	if !s.BeginLeave() {
		return
	}
	room, remaining, ok := h.registry.Remove(s.Id())
	if ok {
		for _, m := range remaining {
			m.sess.Notify(api.UserLeft, s.Id().String())
		}
		s.log.Debug().Str("room", room).Msg("left")
	}
	s.Close()
	h.syncRoomMetrics()
}

// Drain tells every live connection to close, used on server shutdown.
// Each connection then runs its own teardown path.
func (h *Hub) Drain() {
	h.users.ForEach(func(s *Session) { s.peer.Disconnect() })
}
