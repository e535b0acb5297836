// Package v1 defines the pulse presence protocol v1 contract.
//
// This package is intentionally stable and dependency-light. It is shared
// between the server and realtime clients to keep the wire protocol
// authoritative.
package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version is the protocol version identifier embedded into every envelope.
const Version = "v1"

// Type constants (wire-stable).
const (
	// TypeHello starts a connection handshake (client -> server).
	TypeHello = "hello"
	// TypeHelloAck acknowledges the handshake (server -> client).
	TypeHelloAck = "hello_ack"

	// TypeHeartbeat refreshes session validity (client -> server).
	TypeHeartbeat = "heartbeat"

	// TypeSessionEnding announces a terminating session to the other
	// sessions of the same user (server -> user's clients).
	TypeSessionEnding = "session_ending"
	// TypeStatusChanged announces a user status transition to everyone
	// (server -> all clients).
	TypeStatusChanged = "status_changed"

	// TypeError is a generic error envelope (server -> client).
	TypeError = "error"
)

// Envelope is the canonical wire wrapper.
type Envelope struct {
	V       string          `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	TS      time.Time       `json:"ts,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Validate performs strict structural validation for an Envelope.
func (e Envelope) Validate() error {
	if strings.TrimSpace(e.V) == "" {
		return errors.New("missing field: v")
	}
	if e.V != Version {
		return fmt.Errorf("unsupported protocol version: %q", e.V)
	}
	if strings.TrimSpace(e.Type) == "" {
		return errors.New("missing field: type")
	}

	switch e.Type {
	case TypeHello,
		TypeHelloAck,
		TypeHeartbeat,
		TypeSessionEnding,
		TypeStatusChanged,
		TypeError:
		return nil
	default:
		return fmt.Errorf("unknown type: %q", e.Type)
	}
}

// SessionEndingPayload carries the identifier of the terminating session so
// that concurrently-open sessions of the same user can detect and close
// themselves if they match it.
type SessionEndingPayload struct {
	SessionID string `json:"session_id"`
}

// StatusChangedPayload carries a user's new status.
type StatusChangedPayload struct {
	User   string `json:"user"`
	Status string `json:"status"`
}

// HelloAckPayload confirms the server accepted the connection.
type HelloAckPayload struct {
	ConnID string `json:"conn_id"`
	User   string `json:"user"`
}

// ErrorPayload describes a protocol-level error.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
