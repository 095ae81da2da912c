package com

import (
	"net/http"
	"sync"

	"github.com/goccy/go-json"
	"github.com/openhuddle/huddle/pkg/api"
	"github.com/openhuddle/huddle/pkg/logger"
	"github.com/openhuddle/huddle/pkg/network/websocket"
)

type (
	// Connector upgrades HTTP requests into packet clients.
	Connector struct {
		tag string
		wu  *websocket.Upgrader
	}
	// Client is a JSON packet codec on top of a single websocket.
	Client struct {
		id       Uid
		conn     *websocket.WS
		onPacket func(packet api.In)
		log      *logger.Logger
	}
	Option = func(c *Connector)
)

var outPool = sync.Pool{New: func() any { o := api.Out{}; return &o }}

func WithOrigin(origin string) Option {
	return func(c *Connector) { c.wu = websocket.NewUpgrader(origin) }
}
func WithTag(tag string) Option { return func(c *Connector) { c.tag = tag } }

func NewConnector(opts ...Option) *Connector {
	c := &Connector{}
	for _, opt := range opts {
		opt(c)
	}
	if c.wu == nil {
		c.wu = &websocket.DefaultUpgrader
	}
	return c
}

// NewServer upgrades an incoming connection and assigns it a fresh handle.
func (co *Connector) NewServer(w http.ResponseWriter, r *http.Request, log *logger.Logger) (*Client, error) {
	conn, err := co.wu.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	id := NewUid()
	lctx := log.With().Str("cid", id.Short())
	if co.tag != "" {
		lctx = lctx.Str("s", co.tag)
	}
	clog := log.Extend(lctx)
	clog.Debug().Str(logger.DirectionField, "←").Msg("Connect")
	return &Client{id: id, conn: websocket.NewServer(conn, clog), log: clog}, nil
}

func (c *Client) Id() Uid { return c.id }

func (c *Client) OnPacket(fn func(packet api.In)) { c.onPacket = fn }

// Listen starts the packet exchange and returns
// a channel closed on disconnect.
func (c *Client) Listen() chan struct{} {
	c.conn.OnMessage = c.handleMessage
	return c.conn.Listen()
}

// Notify sends a fire-and-forget message.
func (c *Client) Notify(t api.PT, data any) {
	c.log.Debug().Str(logger.DirectionField, "→").Msgf("%v", t)
	rq := outPool.Get().(*api.Out)
	rq.Id, rq.T, rq.Payload = "", t, data
	defer outPool.Put(rq)
	_ = c.send(rq)
}

// Route replies to a tracked request with the same id and type.
func (c *Client) Route(in api.In, data any) {
	rq := outPool.Get().(*api.Out)
	rq.Id, rq.T, rq.Payload = in.Id, in.T, data
	defer outPool.Put(rq)
	_ = c.send(rq)
}

func (c *Client) send(packet *api.Out) error {
	r, err := json.Marshal(packet)
	if err != nil {
		return err
	}
	c.conn.Write(r)
	return nil
}

func (c *Client) Disconnect() {
	c.conn.Close()
	c.log.Debug().Str(logger.DirectionField, "x").Msg("Close")
}

func (c *Client) handleMessage(message []byte, err error) {
	if err != nil {
		return
	}
	var in api.In
	if err = json.Unmarshal(message, &in); err != nil {
		c.log.Error().Err(err).Msg("malformed packet")
		return
	}
	c.log.Debug().Str(logger.DirectionField, "←").Msgf("%v", in.T)
	c.onPacket(in)
}
