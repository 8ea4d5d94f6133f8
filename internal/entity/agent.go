package entity

import (
	"encoding/json"
	"time"
)

type Intent string

const (
	IntentBookCall     Intent = "book_call"
	IntentCancelCall   Intent = "cancel_call"
	IntentGeneralQuery Intent = "general_query"
	IntentUnknown      Intent = "unknown"
)

// ParseIntent normalizes free-form model output to a known intent value.
func ParseIntent(raw string) Intent {
	switch Intent(raw) {
	case IntentBookCall, IntentCancelCall, IntentGeneralQuery:
		return Intent(raw)
	default:
		return IntentUnknown
	}
}

type QualificationVerdict struct {
	Qualified bool   `json:"qualified"`
	Reason    string `json:"reason"`
	RouteTo   string `json:"route_to,omitempty"`
}

type IntentResult struct {
	Intent   Intent `json:"intent"`
	Slot     string `json:"datetime"`
	Duration string `json:"duration,omitempty"`
}

type BookingRecord struct {
	Confirmation json.RawMessage `json:"confirmation"`
	Slot         string          `json:"slot"`
	Contact      string          `json:"contact"`
	BookedAt     time.Time       `json:"booked_at"`
}

type AudioArtifact struct {
	Path string `json:"path"`
	URL  string `json:"url,omitempty"`
}

type TurnResult struct {
	SessionID     string               `json:"session_id"`
	Text          string               `json:"text"`
	Audio         AudioArtifact        `json:"audio"`
	Intent        Intent               `json:"intent"`
	Slot          string               `json:"slot"`
	Contact       string               `json:"contact"`
	Skipped       bool                 `json:"skipped"`
	SkipReason    string               `json:"skip_reason,omitempty"`
	Qualification QualificationVerdict `json:"qualification"`
	Booking       *BookingRecord       `json:"booking,omitempty"`
	Errors        []string             `json:"errors,omitempty"`
}

type LeadEntry struct {
	Timestamp     time.Time            `json:"timestamp"`
	SessionID     string               `json:"session_id"`
	UserUtterance string               `json:"user_utterance"`
	Intent        Intent               `json:"intent"`
	Slot          string               `json:"slot"`
	Contact       string               `json:"contact"`
	Qualification QualificationVerdict `json:"qualification"`
}
