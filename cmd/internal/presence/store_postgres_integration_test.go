package presence

import (
	"context"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
)

// Integration tests are enabled when PULSE_DATABASE_URL is set; otherwise
// they skip to keep local runs fast.

func newIntegrationStore(ctx context.Context, t *testing.T) (*PostgresStore, string) {
	t.Helper()

	dbURL := os.Getenv("PULSE_DATABASE_URL")
	if dbURL == "" {
		t.Skip("PULSE_DATABASE_URL is not set; skipping Postgres integration test")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)

	s, err := NewPostgresStore(pool)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}

	// Fresh schema per run so concurrent test databases never collide.
	db := testDBName()
	if err := s.Init(ctx, db); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.EnsureIndexes(ctx, db); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Drop(context.Background(), db); err != nil {
			t.Logf("Drop %s: %v", db, err)
		}
	})

	return s, db
}

func testDBName() string {
	return "t_" + time.Now().UTC().Format("20060102150405") + "_" + strings.ToLower(ulid.Make().String()[20:])
}

func TestPostgresStore_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	s, db := newIntegrationStore(ctx, t)

	t0 := time.Now().UTC().Truncate(time.Millisecond)

	if err := s.Upsert(ctx, db, t0, "alice", "T1"); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.Upsert(ctx, db, t0, "alice", "T2"); err != nil {
		t.Fatalf("Upsert replace: %v", err)
	}

	if ok, err := s.Exists(ctx, db, "alice", "T1"); err != nil || ok {
		t.Fatalf("Exists(T1) = %v, %v; want false", ok, err)
	}
	if ok, err := s.Exists(ctx, db, "alice", "T2"); err != nil || !ok {
		t.Fatalf("Exists(T2) = %v, %v; want true", ok, err)
	}

	active, err := s.ActiveSince(ctx, db, false, t0.Add(-time.Second))
	if err != nil {
		t.Fatalf("ActiveSince: %v", err)
	}
	if !slices.Equal(active, []string{"alice"}) {
		t.Fatalf("active = %v, want [alice]", active)
	}

	// Refresh moves the validity forward past a later cutoff.
	if err := s.Refresh(ctx, db, t0.Add(time.Minute), "alice", "T2"); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	active, err = s.ActiveSince(ctx, db, false, t0.Add(30*time.Second))
	if err != nil {
		t.Fatalf("ActiveSince after refresh: %v", err)
	}
	if !slices.Equal(active, []string{"alice"}) {
		t.Fatalf("active after refresh = %v, want [alice]", active)
	}
}

func TestPostgresStore_AnonymityPartition(t *testing.T) {
	ctx := context.Background()
	s, db := newIntegrationStore(ctx, t)

	now := time.Now().UTC()
	guest := AnonymousPrefix + "7"

	if err := s.Upsert(ctx, db, now, "alice", "T1"); err != nil {
		t.Fatalf("Upsert alice: %v", err)
	}
	if err := s.Upsert(ctx, db, now, guest, "T2"); err != nil {
		t.Fatalf("Upsert guest: %v", err)
	}

	auth, err := s.ActiveSince(ctx, db, false, now.Add(-time.Second))
	if err != nil {
		t.Fatalf("ActiveSince auth: %v", err)
	}
	if !slices.Equal(auth, []string{"alice"}) {
		t.Fatalf("auth class = %v, want [alice]", auth)
	}

	anon, err := s.ActiveSince(ctx, db, true, now.Add(-time.Second))
	if err != nil {
		t.Fatalf("ActiveSince anon: %v", err)
	}
	if !slices.Equal(anon, []string{guest}) {
		t.Fatalf("anon class = %v, want [%s]", anon, guest)
	}
}
