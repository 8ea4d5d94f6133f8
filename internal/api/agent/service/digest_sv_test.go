package agentService

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/api/agent"
	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
)

func TestSendDailyDigest(t *testing.T) {
	h := newHarness()

	h.leads.entries = []entity.LeadEntry{
		{
			Timestamp:     h.now.Add(-2 * time.Hour),
			SessionID:     "CA001",
			UserUtterance: "i run a saas at 30k mrr and need help scaling",
			Intent:        entity.IntentBookCall,
			Slot:          "2026-09-02T10:00:00+05:30",
			Contact:       "Vaishakh",
			Qualification: entity.QualificationVerdict{Qualified: true, Reason: "saas founder above threshold"},
		},
		{
			Timestamp:     h.now.Add(-3 * time.Hour),
			SessionID:     "CA002",
			UserUtterance: "just browsing",
			Qualification: entity.QualificationVerdict{Qualified: false, Reason: "no buying signal"},
		},
		{
			// Older than the 24 hour window, must not be counted.
			Timestamp:     h.now.Add(-26 * time.Hour),
			SessionID:     "CA000",
			UserUtterance: "old qualified lead",
			Qualification: entity.QualificationVerdict{Qualified: true},
		},
	}

	result, err := h.svc.SendDailyDigest(context.Background(), false)
	if err != nil {
		t.Fatalf("SendDailyDigest() error = %v", err)
	}
	if result.Status != DigestStatusSent {
		t.Fatalf("expected sent status, got %q", result.Status)
	}
	if result.Count != 1 {
		t.Fatalf("expected 1 qualified lead, got %d", result.Count)
	}
	if result.To != "digest@obelisk.example" {
		t.Fatalf("unexpected recipient %q", result.To)
	}

	if len(h.mailer.subjects) != 1 {
		t.Fatalf("expected one email, got %d", len(h.mailer.subjects))
	}
	if h.mailer.subjects[0] != "[DAILY DIGEST] 1 Qualified Conversations - September 1" {
		t.Fatalf("unexpected subject %q", h.mailer.subjects[0])
	}
	if !strings.Contains(h.mailer.bodies[0], "i run a saas at 30k mrr") {
		t.Fatalf("body should include the utterance:\n%s", h.mailer.bodies[0])
	}
	if strings.Contains(h.mailer.bodies[0], "just browsing") {
		t.Fatal("unqualified leads must not appear in the digest")
	}
	if h.leads.cleared {
		t.Fatal("log must not be cleared unless requested")
	}
}

func TestSendDailyDigestClearsLogWhenAsked(t *testing.T) {
	h := newHarness()
	h.leads.entries = []entity.LeadEntry{
		{
			Timestamp:     h.now.Add(-time.Hour),
			UserUtterance: "qualified lead",
			Qualification: entity.QualificationVerdict{Qualified: true},
		},
	}

	if _, err := h.svc.SendDailyDigest(context.Background(), true); err != nil {
		t.Fatalf("SendDailyDigest() error = %v", err)
	}
	if !h.leads.cleared {
		t.Fatal("expected lead log cleared after digest")
	}
}

func TestSendDailyDigestNoQualifiedLeads(t *testing.T) {
	h := newHarness()

	result, err := h.svc.SendDailyDigest(context.Background(), false)
	if err != nil {
		t.Fatalf("SendDailyDigest() error = %v", err)
	}
	if result.Status != DigestStatusNoQualifiedLeads {
		t.Fatalf("expected no-leads status, got %q", result.Status)
	}
	if len(h.mailer.subjects) != 0 {
		t.Fatal("no email should be sent without qualified leads")
	}
}

func TestSendDailyDigestMissingLogFile(t *testing.T) {
	h := newHarness()
	h.leads.path = "/nonexistent/daily_log.jsonl"

	result, err := h.svc.SendDailyDigest(context.Background(), false)
	if err != nil {
		t.Fatalf("SendDailyDigest() error = %v", err)
	}
	if result.Status != DigestStatusNoLogFile {
		t.Fatalf("expected no-log-file status, got %q", result.Status)
	}
}

func TestSendDailyDigestWithoutMailer(t *testing.T) {
	h := newHarness()
	h.svc.mailer = nil

	if _, err := h.svc.SendDailyDigest(context.Background(), false); err != agent.ErrMailerNotConfigured {
		t.Fatalf("expected ErrMailerNotConfigured, got %v", err)
	}
}

func TestSendDailyDigestWithoutRecipient(t *testing.T) {
	h := newHarness()
	h.svc.config.DigestEmail = ""

	result, err := h.svc.SendDailyDigest(context.Background(), false)
	if err != nil {
		t.Fatalf("SendDailyDigest() error = %v", err)
	}
	if result.Status != DigestStatusNoRecipient {
		t.Fatalf("expected no-recipient status, got %q", result.Status)
	}
}
