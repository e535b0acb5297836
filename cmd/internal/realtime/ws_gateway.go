package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"pulse/cmd/internal/metrics"
	"pulse/cmd/internal/presence"
	v1 "pulse/contracts/presence/v1"

	"github.com/coder/websocket"
	"github.com/oklog/ulid/v2"
)

const (
	wsDefaultSendQueueSize = 256
	wsMinSendQueueSize     = 32

	wsDefaultWriteTimeout = 5 * time.Second
	wsDefaultReadIdle     = 2 * time.Minute
)

// Options tunes the websocket gateway. Zero values fall back to defaults.
type Options struct {
	// DefaultDB is the database selector assumed when the client omits one.
	DefaultDB string

	// OriginPatterns is passed to websocket.Accept for cross-origin clients.
	OriginPatterns []string

	WriteTimeout    time.Duration
	ReadIdleTimeout time.Duration
	SendQueueSize   int

	// RateEvents/RateWindow bound inbound heartbeats per connection.
	RateEvents int
	RateWindow time.Duration
}

// WSGateway is the websocket entrypoint through which chat clients receive
// presence events and send heartbeats.
//
// A client connects with its user identifier and derived session token; the
// token is verified against the session store before the upgrade completes.
// Each accepted heartbeat refreshes the session's validity.
type WSGateway struct {
	log     *slog.Logger
	hub     *Hub
	svc     *presence.Service
	metrics *metrics.Metrics
	opts    Options
}

// NewWSGateway constructs a gateway. A nil hub falls back to a fresh one.
func NewWSGateway(log *slog.Logger, hub *Hub, svc *presence.Service, m *metrics.Metrics, opts Options) *WSGateway {
	if log == nil {
		log = slog.Default()
	}
	if hub == nil {
		hub = NewHub(log, m)
	}

	if opts.DefaultDB == "" {
		opts.DefaultDB = "chat"
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = wsDefaultWriteTimeout
	}
	if opts.ReadIdleTimeout <= 0 {
		opts.ReadIdleTimeout = wsDefaultReadIdle
	}
	if opts.SendQueueSize < wsMinSendQueueSize {
		opts.SendQueueSize = wsDefaultSendQueueSize
	}
	if opts.RateEvents <= 0 {
		opts.RateEvents = defaultRateEvents
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = defaultRateWindow
	}

	return &WSGateway{log: log, hub: hub, svc: svc, metrics: m, opts: opts}
}

// Hub exposes the gateway's fan-out hub so it can be wired as the notifier.
func (g *WSGateway) Hub() *Hub { return g.hub }

// ServeHTTP adapter so the gateway can be mounted as an http.Handler.
func (g *WSGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.HandleWS(w, r)
}

// HandleWS authenticates the connection, upgrades it, and runs the
// read/write loops until the peer goes away.
func (g *WSGateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user := q.Get("username")
	tok := q.Get("token")
	db := q.Get("dbName")
	if db == "" {
		db = g.opts.DefaultDB
	}

	if user == "" || tok == "" {
		http.Error(w, "username and token are required", http.StatusBadRequest)
		return
	}

	ok, err := g.svc.HasSession(r.Context(), db, user, tok)
	if err != nil {
		g.log.Error("ws.auth.fail", "db", db, "user", user, "err", err)
		http.Error(w, "session lookup failed", http.StatusServiceUnavailable)
		return
	}
	if !ok {
		http.Error(w, "token doesn't match", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: g.opts.OriginPatterns,
	})
	if err != nil {
		g.log.Info("ws.accept.fail", "user", user, "err", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	connID := ulid.Make().String()
	client := NewClient(user, connID, g.opts.SendQueueSize)

	g.hub.Register(client)
	defer g.hub.Unregister(connID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Writer: drains the client queue onto the wire.
	writeErr := make(chan error, 1)
	go func() {
		writeErr <- g.writeLoop(ctx, conn, client)
	}()

	// Greet before any event can be delivered.
	ack, _ := json.Marshal(v1.HelloAckPayload{ConnID: connID, User: user})
	g.offerEnvelope(client, v1.Envelope{
		V: v1.Version, Type: v1.TypeHelloAck, ID: connID, TS: time.Now().UTC(), Payload: ack,
	})

	limiter := NewRateLimiter(g.opts.RateEvents, g.opts.RateWindow)

	readErr := g.readLoop(ctx, conn, client, db, user, tok, limiter)

	cancel()
	<-writeErr

	if readErr != nil && websocket.CloseStatus(readErr) == -1 && !errors.Is(readErr, context.Canceled) {
		g.log.Info("ws.read.stop", "conn_id", connID, "err", readErr)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

func (g *WSGateway) offerEnvelope(client *Client, env v1.Envelope) {
	select {
	case client.Send <- env:
	default:
	}
}

func (g *WSGateway) writeLoop(ctx context.Context, conn *websocket.Conn, client *Client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-client.Done():
			return nil
		case env := <-client.Send:
			data, err := json.Marshal(env)
			if err != nil {
				g.log.Error("ws.write.encode.fail", "conn_id", client.ConnID, "err", err)
				continue
			}

			wctx, cancel := context.WithTimeout(ctx, g.opts.WriteTimeout)
			err = conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}

func (g *WSGateway) readLoop(ctx context.Context, conn *websocket.Conn, client *Client, db, user, tok string, limiter *RateLimiter) error {
	for {
		rctx, cancel := context.WithTimeout(ctx, g.opts.ReadIdleTimeout)
		_, data, err := conn.Read(rctx)
		cancel()
		if err != nil {
			return err
		}

		var env v1.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			g.sendError(client, "invalid_json", "malformed envelope")
			continue
		}
		if err := env.Validate(); err != nil {
			g.sendError(client, "invalid_envelope", err.Error())
			continue
		}

		switch env.Type {
		case v1.TypeHello:
			// Idempotent: the ack was already queued on connect.
		case v1.TypeHeartbeat:
			now := time.Now().UTC()
			if !limiter.Allow(now) {
				g.sendError(client, "rate_limited", "heartbeat rate exceeded")
				continue
			}
			if err := g.svc.Refresh(ctx, now, db, user, tok); err != nil {
				g.log.Error("ws.heartbeat.fail", "conn_id", client.ConnID, "err", err)
				continue
			}
			g.metrics.Heartbeat()
		default:
			g.sendError(client, "unexpected_type", "type not accepted from clients: "+env.Type)
		}
	}
}

func (g *WSGateway) sendError(client *Client, code, msg string) {
	payload, _ := json.Marshal(v1.ErrorPayload{Code: code, Message: msg})
	g.offerEnvelope(client, v1.Envelope{
		V: v1.Version, Type: v1.TypeError, TS: time.Now().UTC(), Payload: payload,
	})
}
