package agentService

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/api/agent"
	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
	contextPkg "github.com/obelisk-acquisitions/chronos-be/pkg/context"

	"github.com/sirupsen/logrus"
)

const (
	DigestStatusSent             = "sent"
	DigestStatusNoLogFile        = "no lead log file"
	DigestStatusNoQualifiedLeads = "no qualified leads in the last 24 hours"
	DigestStatusNoRecipient      = "no digest recipient configured"
)

// SendDailyDigest emails a summary of the qualified conversations from the
// last 24 hours to the configured recipient.
func (s *agentService) SendDailyDigest(ctx context.Context, clearLog bool) (*agent.DigestResult, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if s.mailer == nil {
		return nil, agent.ErrMailerNotConfigured
	}
	if s.config.DigestEmail == "" {
		return &agent.DigestResult{Status: DigestStatusNoRecipient}, nil
	}

	if _, err := os.Stat(s.leads.Path()); os.IsNotExist(err) {
		return &agent.DigestResult{Status: DigestStatusNoLogFile}, nil
	}

	now := s.clock()
	entries, err := s.leads.ReadSince(now.Add(-24 * time.Hour))
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to read lead log")
		return nil, agent.ErrDigestFailed
	}

	qualified := make([]entity.LeadEntry, 0, len(entries))
	for _, e := range entries {
		if e.Qualification.Qualified {
			qualified = append(qualified, e)
		}
	}

	if len(qualified) == 0 {
		return &agent.DigestResult{Status: DigestStatusNoQualifiedLeads}, nil
	}

	subject := fmt.Sprintf("[DAILY DIGEST] %d Qualified Conversations - %s", len(qualified), now.Format("January 2"))
	body := digestBody(qualified)

	if err := s.mailer.SendEmail(ctx, subject, body, s.config.DigestEmail); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"to":         s.config.DigestEmail,
			"error":      err.Error(),
		}).Error("Failed to send daily digest email")
		return nil, agent.ErrDigestFailed
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"to":         s.config.DigestEmail,
		"count":      len(qualified),
	}).Info("Sent daily digest")

	if clearLog {
		if err := s.leads.Clear(); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Warn("Digest sent but lead log could not be cleared")
		}
	}

	return &agent.DigestResult{
		Status: DigestStatusSent,
		To:     s.config.DigestEmail,
		Count:  len(qualified),
	}, nil
}

func digestBody(entries []entity.LeadEntry) string {
	var b strings.Builder
	b.WriteString("Qualified conversations from the last 24 hours:\n\n")

	for i, e := range entries {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i+1, e.Timestamp.Format("15:04 MST"), e.UserUtterance)
		fmt.Fprintf(&b, "   Intent: %s", e.Intent)
		if e.Slot != "" && e.Slot != "unknown" {
			fmt.Fprintf(&b, " | Slot: %s", e.Slot)
		}
		if e.Contact != "" {
			fmt.Fprintf(&b, " | Contact: %s", e.Contact)
		}
		b.WriteString("\n")
		if e.Qualification.Reason != "" {
			fmt.Fprintf(&b, "   Reason: %s\n", e.Qualification.Reason)
		}
		b.WriteString("\n")
	}

	return b.String()
}
