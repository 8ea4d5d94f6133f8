package entity

import "time"

// CallSession is the per-call conversational context tracked across turns.
// The session store owns every instance; the orchestrator is the only writer.
type CallSession struct {
	ID             string
	LastIntent     Intent
	LastSlot       string
	LastContact    string
	LastUtterance  string
	LastTurnAt     time.Time
	LastReply      string
	CachedVerdict  *QualificationVerdict
	CachedIntent   *IntentResult
	BookingPending bool
	Cancelled      bool
	Booking        *BookingRecord
	Errors         []string
	CreatedAt      time.Time
	LastActivity   time.Time
}

// HasActiveBooking reports whether the session holds a booking that has not
// been cancelled.
func (s *CallSession) HasActiveBooking() bool {
	return s.Booking != nil && !s.Cancelled
}
