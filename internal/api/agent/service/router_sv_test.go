package agentService

import (
	"testing"
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
)

func TestRouteUtterancePriority(t *testing.T) {
	h := newHarness()
	base := h.now

	tests := []struct {
		name       string
		session    entity.CallSession
		utterance  string
		wantReason string
	}{
		{
			name:       "pending booking wins over everything",
			session:    entity.CallSession{BookingPending: true, LastUtterance: "hello", LastTurnAt: base},
			utterance:  "hello",
			wantReason: SkipPendingBooking,
		},
		{
			name:       "junk filler",
			session:    entity.CallSession{},
			utterance:  "Hello!!",
			wantReason: SkipJunk,
		},
		{
			name:       "junk wins over duplicate",
			session:    entity.CallSession{LastUtterance: "okay", LastTurnAt: base},
			utterance:  "okay",
			wantReason: SkipJunk,
		},
		{
			name:       "empty utterance is junk",
			session:    entity.CallSession{},
			utterance:  "   ",
			wantReason: SkipJunk,
		},
		{
			name:       "verbatim repeat inside window",
			session:    entity.CallSession{LastUtterance: "book me a call tomorrow", LastTurnAt: base.Add(-10 * time.Second), LastReply: "Booked!"},
			utterance:  "book me a call tomorrow",
			wantReason: SkipDuplicate,
		},
		{
			name:       "repeat after window proceeds",
			session:    entity.CallSession{LastUtterance: "book me a call tomorrow", LastTurnAt: base.Add(-31 * time.Second)},
			utterance:  "book me a call tomorrow",
			wantReason: "",
		},
		{
			name:       "different utterance proceeds",
			session:    entity.CallSession{LastUtterance: "book me a call tomorrow", LastTurnAt: base},
			utterance:  "actually make it friday",
			wantReason: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reason, reply := h.svc.routeUtterance(tt.session, tt.utterance)
			if reason != tt.wantReason {
				t.Fatalf("routeUtterance() reason = %q, want %q", reason, tt.wantReason)
			}
			if reason != "" && reply == "" {
				t.Fatal("skipped turn must carry a canned reply")
			}
		})
	}
}

func TestDuplicateReplayUsesLastReply(t *testing.T) {
	h := newHarness()

	session := entity.CallSession{
		LastUtterance: "what do you charge",
		LastTurnAt:    h.now.Add(-5 * time.Second),
		LastReply:     "We start with a free strategy call.",
	}

	reason, reply := h.svc.routeUtterance(session, "what do you charge")
	if reason != SkipDuplicate {
		t.Fatalf("expected duplicate skip, got %q", reason)
	}
	if reply != "We start with a free strategy call." {
		t.Fatalf("expected the previous reply verbatim, got %q", reply)
	}
}

func TestNormalizeUtterance(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello!!", "hello"},
		{"  UM...  ", "um"},
		{"Thank   you.", "thank you"},
		{"I'd like to book", "i'd like to book"},
		{"?!.,", ""},
	}

	for _, tt := range tests {
		if got := normalizeUtterance(tt.in); got != tt.want {
			t.Errorf("normalizeUtterance(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
