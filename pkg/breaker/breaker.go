package breaker

import (
	"sync"
	"time"
)

// BookingBreaker fails fast on scheduling attempts for a cooldown window
// after an authorization failure from the scheduling backend. There is no
// manual reset; the breaker re-enables only by the cooldown elapsing.
type BookingBreaker struct {
	mu              sync.Mutex
	lastAuthFailure time.Time
	cooldown        time.Duration
}

const DefaultCooldown = 5 * time.Minute

func New(cooldown time.Duration) *BookingBreaker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	return &BookingBreaker{cooldown: cooldown}
}

func (b *BookingBreaker) RecordFailure(now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastAuthFailure = now
}

func (b *BookingBreaker) ShouldFailFast(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lastAuthFailure.IsZero() {
		return false
	}
	return now.Sub(b.lastAuthFailure) < b.cooldown
}

func (b *BookingBreaker) Cooldown() time.Duration {
	return b.cooldown
}
