package signaler

import (
	"context"
	"net/http"

	"github.com/openhuddle/huddle/pkg/config"
	"github.com/openhuddle/huddle/pkg/logger"
	"github.com/openhuddle/huddle/pkg/monitoring"
	"github.com/openhuddle/huddle/pkg/network/httpx"
	"github.com/openhuddle/huddle/pkg/service"
)

// Signaler is the signaling server application:
// the websocket endpoint plus the optional monitoring sidecar.
type Signaler struct {
	conf     config.Config
	log      *logger.Logger
	hub      *Hub
	services service.Group
}

func New(conf config.Config, log *logger.Logger) *Signaler {
	s := &Signaler{conf: conf, log: log}
	hub := NewHub(conf.Signaler, log)
	s.hub = hub

	address := conf.Signaler.Server.Address
	if conf.Signaler.Server.Https {
		address = conf.Signaler.Server.Tls.Address
	}
	h, err := httpx.NewServer(
		address,
		func(serv *httpx.Server) httpx.Handler {
			mux := serv.Mux()
			mux.HandleFunc("/ws", hub.handleConnection)
			mux.HandleFunc("/health", func(w httpx.ResponseWriter, _ *httpx.Request) {
				w.WriteHeader(http.StatusOK)
			})
			return mux
		},
		httpx.WithServerConfig(conf.Signaler.Server),
		httpx.WithLogger(log),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("couldn't init the signaling server")
	}
	s.services.Add(h)
	if conf.Signaler.Monitoring.IsEnabled() {
		s.services.Add(monitoring.New(conf.Signaler.Monitoring, "sig", log))
	}
	return s
}

func (s *Signaler) Start() { s.services.Start() }

func (s *Signaler) Shutdown(ctx context.Context) error {
	s.hub.Drain()
	return s.services.Shutdown(ctx)
}
