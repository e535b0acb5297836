// Package realtime delivers presence events to connected chat clients over
// websockets. It implements presence.Notifier: delivery is fire-and-forget
// and never blocks or fails the originating session operation.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"

	"pulse/cmd/internal/metrics"
	"pulse/cmd/internal/presence"
	v1 "pulse/contracts/presence/v1"
)

// Hub is the in-memory registry of connected clients and the fan-out
// primitive addressing them either per user or globally.
//
// Concurrency guarantees:
// - Register/Unregister are safe under concurrent Publish.
// - Publish never blocks (drops under backpressure).
// - Publish is panic-safe because Client.Send is never closed by the server.
type Hub struct {
	log     *slog.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	clients map[string]*Client            // conn id -> client
	byUser  map[string]map[string]*Client // user -> conn id -> client
}

// NewHub constructs a Hub instance.
func NewHub(log *slog.Logger, m *metrics.Metrics) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:     log,
		metrics: m,
		clients: make(map[string]*Client),
		byUser:  make(map[string]map[string]*Client),
	}
}

// Register adds a connected client to the registry.
func (h *Hub) Register(client *Client) {
	if h == nil || client == nil || client.ConnID == "" {
		return
	}

	h.mu.Lock()
	h.clients[client.ConnID] = client
	conns := h.byUser[client.User]
	if conns == nil {
		conns = make(map[string]*Client)
		h.byUser[client.User] = conns
	}
	conns[client.ConnID] = client
	h.mu.Unlock()

	h.metrics.ClientConnected(1)
	h.log.Info("hub.client.register", "conn_id", client.ConnID, "user", client.User)
}

// Unregister removes a client and signals shutdown for it.
func (h *Hub) Unregister(connID string) {
	if h == nil || connID == "" {
		return
	}

	var cl *Client

	h.mu.Lock()
	cl = h.clients[connID]
	delete(h.clients, connID)
	if cl != nil {
		conns := h.byUser[cl.User]
		delete(conns, connID)
		if len(conns) == 0 {
			delete(h.byUser, cl.User)
		}
	}
	h.mu.Unlock()

	// Signal client shutdown after removing it from the registry so that a
	// broadcaster holding the pointer only ever sees a still-valid client.
	if cl != nil {
		cl.Close()
		h.metrics.ClientConnected(-1)
		h.log.Info("hub.client.unregister", "conn_id", connID, "user", cl.User)
	}
}

// Publish implements presence.Notifier. The event is encoded once and fanned
// out to its audience; slow or closing clients are skipped, never waited on.
func (h *Hub) Publish(ev presence.Event) {
	if h == nil {
		return
	}

	env, err := encodeEvent(ev)
	if err != nil {
		h.log.Error("hub.publish.encode.fail", "kind", ev.Kind.String(), "err", err)
		return
	}

	h.metrics.EventPublished(ev.Kind.String())

	switch ev.Audience {
	case presence.AudienceUser:
		h.publishToUser(ev.TargetUser, env)
	case presence.AudienceAll:
		h.publishAll(env)
	}
}

func (h *Hub) publishToUser(user string, env v1.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, cl := range h.byUser[user] {
		h.offer(cl, env)
	}
}

func (h *Hub) publishAll(env v1.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, cl := range h.clients {
		h.offer(cl, env)
	}
}

// offer is a non-blocking send: a full queue or a shutting-down client drops
// the envelope rather than stalling the whole fan-out.
func (h *Hub) offer(cl *Client, env v1.Envelope) {
	if cl == nil {
		return
	}

	select {
	case <-cl.Done():
		return
	default:
	}

	select {
	case cl.Send <- env:
	default:
		h.log.Warn("hub.publish.drop", "conn_id", cl.ConnID, "type", env.Type)
	}
}

func encodeEvent(ev presence.Event) (v1.Envelope, error) {
	var (
		typ     string
		payload any
	)

	switch ev.Kind {
	case presence.KindSessionEnding:
		typ = v1.TypeSessionEnding
		payload = v1.SessionEndingPayload{SessionID: ev.SessionID}
	case presence.KindStatusChanged:
		typ = v1.TypeStatusChanged
		payload = v1.StatusChangedPayload{User: ev.TargetUser, Status: ev.Status}
	default:
		return v1.Envelope{}, errUnknownEventKind
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return v1.Envelope{}, err
	}

	return v1.Envelope{
		V:       v1.Version,
		Type:    typ,
		ID:      ev.ID,
		TS:      ev.Timestamp,
		Payload: raw,
	}, nil
}
