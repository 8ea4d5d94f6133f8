package agentRepository

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/entity"

	"github.com/sirupsen/logrus"
)

func newTestStore() *sessionStore {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	store := newSessionStore(log)
	store.Close()
	return store
}

func TestGetOrCreateIsIdempotent(t *testing.T) {
	store := newTestStore()

	first := store.GetOrCreate("CA123")
	second := store.GetOrCreate("CA123")

	if first.ID != "CA123" || second.ID != "CA123" {
		t.Fatalf("expected session id CA123, got %q and %q", first.ID, second.ID)
	}
	if !first.CreatedAt.Equal(second.CreatedAt) {
		t.Fatalf("expected same CreatedAt for repeated lookups, got %v and %v", first.CreatedAt, second.CreatedAt)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}
}

func TestSnapshotMissingSession(t *testing.T) {
	store := newTestStore()

	if _, ok := store.Snapshot("missing"); ok {
		t.Fatal("expected no snapshot for unknown session id")
	}
}

func TestUpdateIsVisibleToSnapshot(t *testing.T) {
	store := newTestStore()
	store.GetOrCreate("CA123")

	store.Update("CA123", func(s *entity.CallSession) {
		s.LastUtterance = "book me for tomorrow"
		s.BookingPending = true
	})

	snap, ok := store.Snapshot("CA123")
	if !ok {
		t.Fatal("expected snapshot after update")
	}
	if snap.LastUtterance != "book me for tomorrow" {
		t.Fatalf("unexpected LastUtterance %q", snap.LastUtterance)
	}
	if !snap.BookingPending {
		t.Fatal("expected BookingPending to survive the snapshot")
	}
	if snap.LastActivity.IsZero() {
		t.Fatal("expected Update to stamp LastActivity")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	store := newTestStore()
	store.GetOrCreate("CA123")

	snap, _ := store.Snapshot("CA123")
	snap.LastUtterance = "mutated copy"

	again, _ := store.Snapshot("CA123")
	if again.LastUtterance != "" {
		t.Fatalf("snapshot mutation leaked into the store: %q", again.LastUtterance)
	}
}

func TestConcurrentUpdatesDifferentSessions(t *testing.T) {
	store := newTestStore()

	const sessions = 8
	const turnsPerSession = 50

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		id := fmt.Sprintf("CA%03d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < turnsPerSession; j++ {
				store.Update(id, func(s *entity.CallSession) {
					s.Errors = append(s.Errors, "x")
				})
			}
		}()
	}
	wg.Wait()

	if store.Len() != sessions {
		t.Fatalf("expected %d sessions, got %d", sessions, store.Len())
	}
	for i := 0; i < sessions; i++ {
		snap, ok := store.Snapshot(fmt.Sprintf("CA%03d", i))
		if !ok {
			t.Fatalf("session CA%03d missing", i)
		}
		if len(snap.Errors) != turnsPerSession {
			t.Fatalf("session CA%03d: expected %d updates, got %d", i, turnsPerSession, len(snap.Errors))
		}
	}
}

func TestBeginTurnSerializesSameSession(t *testing.T) {
	store := newTestStore()

	end := store.BeginTurn("CA123")

	acquired := make(chan struct{})
	go func() {
		end2 := store.BeginTurn("CA123")
		close(acquired)
		end2()
	}()

	select {
	case <-acquired:
		t.Fatal("second turn started while the first was still running")
	case <-time.After(50 * time.Millisecond):
	}

	end()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second turn never started after the first ended")
	}
}

func TestBeginTurnDoesNotBlockOtherSessions(t *testing.T) {
	store := newTestStore()

	end := store.BeginTurn("CA123")
	defer end()

	done := make(chan struct{})
	go func() {
		endOther := store.BeginTurn("CA456")
		endOther()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a turn on one session must not block another session")
	}
}

func TestEvictIdle(t *testing.T) {
	store := newTestStore()

	store.GetOrCreate("stale")
	store.GetOrCreate("fresh")

	// Update stamps LastActivity after the mutator runs, so rewind the slot
	// directly to simulate an abandoned call.
	store.mu.RLock()
	store.slots["stale"].session.LastActivity = time.Now().Add(-time.Hour)
	store.mu.RUnlock()

	if evicted := store.EvictIdle(30 * time.Minute); evicted != 1 {
		t.Fatalf("expected 1 eviction, got %d", evicted)
	}
	if _, ok := store.Snapshot("stale"); ok {
		t.Fatal("stale session should have been evicted")
	}
	if _, ok := store.Snapshot("fresh"); !ok {
		t.Fatal("fresh session should have survived eviction")
	}
}

func TestEvictIdleSparesInFlightTurn(t *testing.T) {
	store := newTestStore()

	store.GetOrCreate("busy")
	store.mu.RLock()
	store.slots["busy"].session.LastActivity = time.Now().Add(-time.Hour)
	store.mu.RUnlock()

	end := store.BeginTurn("busy")
	if evicted := store.EvictIdle(30 * time.Minute); evicted != 0 {
		t.Fatalf("a session with a turn in flight must not be evicted, got %d", evicted)
	}
	end()

	if evicted := store.EvictIdle(30 * time.Minute); evicted != 1 {
		t.Fatalf("expected eviction once the turn ended, got %d", evicted)
	}
}
