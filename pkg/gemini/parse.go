package gemini

import (
	"encoding/json"
	"strings"

	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
)

// StripCodeFence removes a wrapping markdown code block from model output.
func StripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}

	if idx := strings.Index(raw, "\n"); idx >= 0 {
		raw = raw[idx+1:]
	} else {
		raw = strings.TrimPrefix(raw, "```")
	}
	if idx := strings.LastIndex(raw, "```"); idx >= 0 {
		raw = raw[:idx]
	}

	return strings.TrimSpace(raw)
}

// ParseVerdict parses a qualification verdict from model output. Malformed
// output degrades to a safe disqualified verdict instead of an error.
func ParseVerdict(raw string) entity.QualificationVerdict {
	cleaned := StripCodeFence(raw)

	var parsed struct {
		Qualified bool    `json:"qualified"`
		Reason    string  `json:"reason"`
		RouteTo   *string `json:"route_to"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return entity.QualificationVerdict{
			Qualified: false,
			Reason:    "could not parse model output",
		}
	}

	verdict := entity.QualificationVerdict{
		Qualified: parsed.Qualified,
		Reason:    parsed.Reason,
	}
	if parsed.RouteTo != nil {
		verdict.RouteTo = *parsed.RouteTo
	}
	return verdict
}

// ParseIntentResult parses an intent extraction from model output. Malformed
// output degrades to the unknown intent.
func ParseIntentResult(raw string) entity.IntentResult {
	cleaned := StripCodeFence(raw)

	var parsed struct {
		Intent   string `json:"intent"`
		Datetime string `json:"datetime"`
		Duration string `json:"duration"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return entity.IntentResult{Intent: entity.IntentUnknown, Slot: "unknown"}
	}

	return entity.IntentResult{
		Intent:   entity.ParseIntent(parsed.Intent),
		Slot:     parsed.Datetime,
		Duration: parsed.Duration,
	}
}
