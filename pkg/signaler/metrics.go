package signaler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metrics = struct {
	Connections  prometheus.Gauge
	Rooms        prometheus.Gauge
	Participants prometheus.Gauge
	Signals      prometheus.Counter
	DropSignals  prometheus.Counter
	RoomEvents   *prometheus.CounterVec
}{
	Connections: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huddle_connections",
		Help: "Open websocket connections.",
	}),
	Rooms: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huddle_rooms",
		Help: "Rooms with at least one participant.",
	}),
	Participants: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "huddle_participants",
		Help: "Registered room participants.",
	}),
	Signals: promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddle_signals_relayed_total",
		Help: "Relayed WebRTC handshake payloads.",
	}),
	DropSignals: promauto.NewCounter(prometheus.CounterOpts{
		Name: "huddle_signals_dropped_total",
		Help: "Handshake payloads dropped because the target was gone.",
	}),
	RoomEvents: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "huddle_room_events_total",
		Help: "Broadcast room events.",
	}, []string{"kind"}),
}

func (h *Hub) syncRoomMetrics() {
	rooms, participants := h.registry.Counts()
	metrics.Rooms.Set(float64(rooms))
	metrics.Participants.Set(float64(participants))
}
