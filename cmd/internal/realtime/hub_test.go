package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"pulse/cmd/internal/presence"
	v1 "pulse/contracts/presence/v1"
)

func recv(t *testing.T, cl *Client) v1.Envelope {
	t.Helper()
	select {
	case env := <-cl.Send:
		return env
	default:
		t.Fatalf("no envelope queued for %s", cl.ConnID)
		return v1.Envelope{}
	}
}

func TestHub_PublishToUserAudience(t *testing.T) {
	t.Parallel()

	h := NewHub(nil, nil)

	aliceA := NewClient("alice", "c1", 8)
	aliceB := NewClient("alice", "c2", 8)
	bob := NewClient("bob", "c3", 8)
	h.Register(aliceA)
	h.Register(aliceB)
	h.Register(bob)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	h.Publish(presence.NewSessionEnding(now, "alice", "S1"))

	for _, cl := range []*Client{aliceA, aliceB} {
		env := recv(t, cl)
		if env.Type != v1.TypeSessionEnding {
			t.Fatalf("type = %s, want %s", env.Type, v1.TypeSessionEnding)
		}
		var p v1.SessionEndingPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if p.SessionID != "S1" {
			t.Fatalf("session id = %q, want S1", p.SessionID)
		}
	}

	if len(bob.Send) != 0 {
		t.Fatalf("user-addressed event leaked to another user")
	}
}

func TestHub_PublishAll(t *testing.T) {
	t.Parallel()

	h := NewHub(nil, nil)
	alice := NewClient("alice", "c1", 8)
	bob := NewClient("bob", "c2", 8)
	h.Register(alice)
	h.Register(bob)

	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	h.Publish(presence.NewStatusChanged(now, "alice", presence.StatusOffline))

	for _, cl := range []*Client{alice, bob} {
		env := recv(t, cl)
		if env.Type != v1.TypeStatusChanged {
			t.Fatalf("type = %s, want %s", env.Type, v1.TypeStatusChanged)
		}
		if env.V != v1.Version || env.ID == "" || env.TS.IsZero() {
			t.Fatalf("envelope metadata incomplete: %+v", env)
		}
		var p v1.StatusChangedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if p.User != "alice" || p.Status != presence.StatusOffline {
			t.Fatalf("payload = %+v", p)
		}
	}
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	t.Parallel()

	h := NewHub(nil, nil)

	// Queue size below the constructor minimum keeps the test deterministic.
	slow := &Client{ConnID: "c1", User: "alice", Send: make(chan v1.Envelope, 1), done: make(chan struct{})}
	h.Register(slow)

	now := time.Now().UTC()
	h.Publish(presence.NewSessionEnding(now, "alice", "S1"))

	done := make(chan struct{})
	go func() {
		h.Publish(presence.NewSessionEnding(now, "alice", "S2"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Publish blocked on a full client queue")
	}
	if len(slow.Send) != 1 {
		t.Fatalf("queue len = %d, want 1 (overflow dropped)", len(slow.Send))
	}
}

func TestHub_SkipsClosedClients(t *testing.T) {
	t.Parallel()

	h := NewHub(nil, nil)
	cl := NewClient("alice", "c1", 8)
	h.Register(cl)
	cl.Close()

	h.Publish(presence.NewSessionEnding(time.Now().UTC(), "alice", "S1"))
	if len(cl.Send) != 0 {
		t.Fatalf("event delivered to a closed client")
	}
}

func TestHub_UnregisterStopsDelivery(t *testing.T) {
	t.Parallel()

	h := NewHub(nil, nil)
	cl := NewClient("alice", "c1", 8)
	h.Register(cl)
	h.Unregister("c1")

	select {
	case <-cl.Done():
	default:
		t.Fatalf("Unregister did not close the client")
	}

	h.Publish(presence.NewSessionEnding(time.Now().UTC(), "alice", "S1"))
	if len(cl.Send) != 0 {
		t.Fatalf("event delivered after unregister")
	}
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	cl := NewClient("alice", "c1", 8)
	cl.Close()
	cl.Close()

	select {
	case <-cl.Done():
	default:
		t.Fatalf("Done not closed")
	}
}
