package breaker

import (
	"testing"
	"time"
)

func TestShouldFailFast(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		failAt   time.Time
		checkAt  time.Time
		expected bool
	}{
		{
			name:     "no failure recorded",
			checkAt:  base,
			expected: false,
		},
		{
			name:     "within cooldown",
			failAt:   base,
			checkAt:  base.Add(120 * time.Second),
			expected: true,
		},
		{
			name:     "just before cooldown expires",
			failAt:   base,
			checkAt:  base.Add(5*time.Minute - time.Second),
			expected: true,
		},
		{
			name:     "after cooldown",
			failAt:   base,
			checkAt:  base.Add(301 * time.Second),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(DefaultCooldown)
			if !tt.failAt.IsZero() {
				b.RecordFailure(tt.failAt)
			}
			if got := b.ShouldFailFast(tt.checkAt); got != tt.expected {
				t.Errorf("ShouldFailFast = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRecordFailureResetsWindow(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := New(DefaultCooldown)

	b.RecordFailure(base)
	b.RecordFailure(base.Add(4 * time.Minute))

	// The second failure restarts the cooldown.
	if !b.ShouldFailFast(base.Add(8 * time.Minute)) {
		t.Error("expected fail-fast 4 minutes after the latest failure")
	}
	if b.ShouldFailFast(base.Add(10 * time.Minute)) {
		t.Error("expected breaker to re-enable after cooldown from latest failure")
	}
}
