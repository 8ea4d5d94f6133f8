package agentRepository

import (
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/entity"

	"github.com/sirupsen/logrus"
)

// Repository is the process-wide table of per-call conversational state.
// Sessions are created lazily and evicted after sitting idle past the TTL;
// there is no persistence across restarts.
type Repository interface {
	GetOrCreate(sessionID string) entity.CallSession
	BeginTurn(sessionID string) func()
	Snapshot(sessionID string) (entity.CallSession, bool)
	Update(sessionID string, mutate func(*entity.CallSession))
	EvictIdle(idleFor time.Duration) int
	Len() int
	Close()
}

func New(log *logrus.Logger) Repository {
	return newSessionStore(log)
}
