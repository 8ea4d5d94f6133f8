package gemini

import (
	"testing"

	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
)

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "no fence",
			raw:      `{"qualified": true}`,
			expected: `{"qualified": true}`,
		},
		{
			name:     "json fence",
			raw:      "```json\n{\"qualified\": true}\n```",
			expected: `{"qualified": true}`,
		},
		{
			name:     "bare fence",
			raw:      "```\n{\"qualified\": true}\n```",
			expected: `{"qualified": true}`,
		},
		{
			name:     "unterminated fence",
			raw:      "```json\n{\"qualified\": true}",
			expected: `{"qualified": true}`,
		},
		{
			name:     "surrounding whitespace",
			raw:      "  ```json\n{\"a\": 1}\n```  ",
			expected: `{"a": 1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripCodeFence(tt.raw); got != tt.expected {
				t.Errorf("StripCodeFence = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected entity.QualificationVerdict
	}{
		{
			name: "qualified",
			raw:  `{"qualified": true, "reason": "B2B SaaS founder", "route_to": null}`,
			expected: entity.QualificationVerdict{
				Qualified: true,
				Reason:    "B2B SaaS founder",
			},
		},
		{
			name: "routed",
			raw:  `{"qualified": false, "reason": "cold seller", "route_to": "Aryan"}`,
			expected: entity.QualificationVerdict{
				Qualified: false,
				Reason:    "cold seller",
				RouteTo:   "Aryan",
			},
		},
		{
			name: "fenced output",
			raw:  "```json\n{\"qualified\": true, \"reason\": \"fits profile\"}\n```",
			expected: entity.QualificationVerdict{
				Qualified: true,
				Reason:    "fits profile",
			},
		},
		{
			name: "malformed degrades to disqualified",
			raw:  "the user seems qualified to me",
			expected: entity.QualificationVerdict{
				Qualified: false,
				Reason:    "could not parse model output",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseVerdict(tt.raw); got != tt.expected {
				t.Errorf("ParseVerdict = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestParseIntentResult(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected entity.IntentResult
	}{
		{
			name:     "book call",
			raw:      `{"intent": "book_call", "datetime": "Friday 6pm"}`,
			expected: entity.IntentResult{Intent: entity.IntentBookCall, Slot: "Friday 6pm"},
		},
		{
			name:     "cancel call",
			raw:      `{"intent": "cancel_call", "datetime": ""}`,
			expected: entity.IntentResult{Intent: entity.IntentCancelCall},
		},
		{
			name:     "unrecognized intent normalizes to unknown",
			raw:      `{"intent": "reschedule_call", "datetime": "Monday"}`,
			expected: entity.IntentResult{Intent: entity.IntentUnknown, Slot: "Monday"},
		},
		{
			name:     "malformed degrades to unknown",
			raw:      "I could not determine the intent",
			expected: entity.IntentResult{Intent: entity.IntentUnknown, Slot: "unknown"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseIntentResult(tt.raw); got != tt.expected {
				t.Errorf("ParseIntentResult = %+v, want %+v", got, tt.expected)
			}
		})
	}
}
