package agentService

import (
	"strings"

	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
)

const (
	SkipPendingBooking = "pending_booking"
	SkipJunk           = "junk_message"
	SkipDuplicate      = "duplicate_intent"
)

const (
	pendingBookingReply = "One moment please, I'm still finalizing your booking."
	junkReply           = "I'm sorry, I didn't catch that. Could you say that again?"
)

var defaultJunkPatterns = []string{
	"hello",
	"hi",
	"hey",
	"ok",
	"okay",
	"yes",
	"no",
	"yeah",
	"hmm",
	"mhm",
	"uh",
	"um",
	"uh huh",
	"thanks",
	"thank you",
	"test",
	"testing",
}

// routeUtterance decides whether a transcript deserves a full turn before any
// model call is made. Checks run in priority order: an in-flight booking wins
// over everything, junk wins over duplicates.
func (s *agentService) routeUtterance(session entity.CallSession, utterance string) (skipReason, cannedReply string) {
	if session.BookingPending {
		return SkipPendingBooking, pendingBookingReply
	}

	if s.isJunk(utterance) {
		return SkipJunk, junkReply
	}

	if session.LastUtterance != "" &&
		strings.TrimSpace(utterance) == session.LastUtterance &&
		s.clock().Sub(session.LastTurnAt) < s.config.DuplicateWindow {
		reply := session.LastReply
		if reply == "" {
			reply = junkReply
		}
		return SkipDuplicate, reply
	}

	return "", ""
}

func (s *agentService) isJunk(utterance string) bool {
	normalized := normalizeUtterance(utterance)
	if normalized == "" {
		return true
	}

	patterns := s.config.JunkPatterns
	if len(patterns) == 0 {
		patterns = defaultJunkPatterns
	}
	for _, p := range patterns {
		if normalized == p {
			return true
		}
	}

	return false
}

// normalizeUtterance lowercases and strips punctuation so "Hello!!" and
// "hello" compare equal.
func normalizeUtterance(utterance string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(utterance)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ', r == '\'':
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
