package agentRepository

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/entity"

	"github.com/sirupsen/logrus"
)

const (
	defaultIdleTTLMinutes  = 30
	defaultSweepIntervalMs = 5 * 60 * 1000
)

type sessionSlot struct {
	// turn is held for the whole duration of a conversational turn so turns
	// for the same call never interleave; mu only guards the session fields.
	turn    sync.Mutex
	mu      sync.Mutex
	session *entity.CallSession
}

type sessionStore struct {
	mu    sync.RWMutex
	slots map[string]*sessionSlot
	log   *logrus.Logger

	idleTTL time.Duration
	done    chan struct{}
	once    sync.Once
}

func newSessionStore(log *logrus.Logger) *sessionStore {
	idleTTL := time.Duration(defaultIdleTTLMinutes) * time.Minute
	if v := os.Getenv("SESSION_IDLE_TTL_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			idleTTL = time.Duration(minutes) * time.Minute
		}
	}

	s := &sessionStore{
		slots:   make(map[string]*sessionSlot),
		log:     log,
		idleTTL: idleTTL,
		done:    make(chan struct{}),
	}

	go s.janitor()

	return s
}

func (s *sessionStore) GetOrCreate(sessionID string) entity.CallSession {
	slot := s.slot(sessionID)

	slot.mu.Lock()
	defer slot.mu.Unlock()
	return *slot.session
}

// BeginTurn blocks until no other turn is running for the session and
// returns the func that ends the turn. Every caller must invoke it.
func (s *sessionStore) BeginTurn(sessionID string) func() {
	slot := s.slot(sessionID)
	slot.turn.Lock()
	return slot.turn.Unlock
}

func (s *sessionStore) Snapshot(sessionID string) (entity.CallSession, bool) {
	s.mu.RLock()
	slot, ok := s.slots[sessionID]
	s.mu.RUnlock()
	if !ok {
		return entity.CallSession{}, false
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()
	return *slot.session, true
}

// Update applies a turn's state changes atomically with respect to other
// turns for the same session id. Turns for different ids do not block each
// other.
func (s *sessionStore) Update(sessionID string, mutate func(*entity.CallSession)) {
	slot := s.slot(sessionID)

	slot.mu.Lock()
	defer slot.mu.Unlock()

	mutate(slot.session)
	slot.session.LastActivity = time.Now()
}

func (s *sessionStore) EvictIdle(idleFor time.Duration) int {
	cutoff := time.Now().Add(-idleFor)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, slot := range s.slots {
		// A session with a turn in flight is never idle, whatever its
		// LastActivity says.
		if !slot.turn.TryLock() {
			continue
		}

		slot.mu.Lock()
		idle := slot.session.LastActivity.Before(cutoff)
		slot.mu.Unlock()
		slot.turn.Unlock()

		if idle {
			delete(s.slots, id)
			evicted++
		}
	}

	return evicted
}

func (s *sessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots)
}

func (s *sessionStore) Close() {
	s.once.Do(func() {
		close(s.done)
	})
}

func (s *sessionStore) slot(sessionID string) *sessionSlot {
	s.mu.RLock()
	slot, ok := s.slots[sessionID]
	s.mu.RUnlock()
	if ok {
		return slot
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slot, ok = s.slots[sessionID]; ok {
		return slot
	}

	now := time.Now()
	slot = &sessionSlot{
		session: &entity.CallSession{
			ID:           sessionID,
			CreatedAt:    now,
			LastActivity: now,
		},
	}
	s.slots[sessionID] = slot

	return slot
}

func (s *sessionStore) janitor() {
	ticker := time.NewTicker(defaultSweepIntervalMs * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if evicted := s.EvictIdle(s.idleTTL); evicted > 0 {
				s.log.WithFields(logrus.Fields{
					"evicted":   evicted,
					"remaining": s.Len(),
				}).Debug("Evicted idle call sessions")
			}
		case <-s.done:
			return
		}
	}
}
