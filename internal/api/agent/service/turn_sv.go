package agentService

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/api/agent"
	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
	contextPkg "github.com/obelisk-acquisitions/chronos-be/pkg/context"
	"github.com/obelisk-acquisitions/chronos-be/pkg/deepgram"
	"github.com/obelisk-acquisitions/chronos-be/pkg/gemini"

	"github.com/sirupsen/logrus"
)

const fallbackReply = "I'm sorry, something went wrong on my end. Could you repeat that?"

// HandleTurn runs one full conversational turn. It never returns an error:
// any failure, including a panic somewhere in the pipeline, degrades into a
// spoken fallback so the caller always hears something.
func (s *agentService) HandleTurn(ctx context.Context, sessionID, utterance string) (result *entity.TurnResult) {
	requestID := contextPkg.GetRequestID(ctx)

	// One turn at a time per session: the next utterance waits until this one
	// reaches a terminal state, so a two-source caller (stream plus simulate)
	// can never race two bookings through the same session.
	endTurn := s.sessions.BeginTurn(sessionID)
	defer endTurn()

	if s.config.TurnTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.TurnTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": sessionID,
				"panic":      fmt.Sprintf("%v", r),
			}).Error("Recovered from panic during turn, serving fallback")
			result = s.fallbackTurn(ctx, sessionID, fmt.Sprintf("panic: %v", r))
		}
	}()

	utterance = strings.TrimSpace(utterance)
	session := s.sessions.GetOrCreate(sessionID)

	if reason, canned := s.routeUtterance(session, utterance); reason != "" {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"skip":       reason,
		}).Info("Skipping turn before understanding")

		result := &entity.TurnResult{
			SessionID:  sessionID,
			Text:       canned,
			Skipped:    true,
			SkipReason: reason,
		}
		if reason != SkipJunk {
			result.Audio = s.synthesize(ctx, canned)
		}

		// Skipped turns keep the session alive but do not count as a turn:
		// the duplicate window still measures from the original utterance.
		s.sessions.Update(sessionID, func(cs *entity.CallSession) {})
		return result
	}

	result, err := s.processTurn(ctx, sessionID, session, utterance)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Error("Turn processing failed, serving fallback")
		return s.fallbackTurn(ctx, sessionID, err.Error())
	}

	return result
}

func (s *agentService) processTurn(ctx context.Context, sessionID string, session entity.CallSession, utterance string) (*entity.TurnResult, error) {
	requestID := contextPkg.GetRequestID(ctx)
	now := s.clock()

	verdict, err := s.qualify(ctx, session, utterance)
	if err != nil {
		return nil, fmt.Errorf("qualification failed: %w", err)
	}

	// Intent is extracted on every understood turn, qualified or not: the
	// decline reply still names what the caller asked for, and a repeated
	// utterance reuses the cached result either way.
	intent, err := s.extractIntent(ctx, session, utterance)
	if err != nil {
		return nil, fmt.Errorf("intent extraction failed: %w", err)
	}

	result := &entity.TurnResult{
		SessionID:     sessionID,
		Qualification: verdict,
		Intent:        intent.Intent,
		Slot:          intent.Slot,
	}

	if !verdict.Qualified {
		result.Text = s.disqualifiedReply(ctx, verdict, intent)
		result.Audio = s.synthesize(ctx, result.Text)

		s.sessions.Update(sessionID, func(cs *entity.CallSession) {
			cs.LastUtterance = utterance
			cs.LastTurnAt = now
			cs.LastIntent = intent.Intent
			cs.LastSlot = intent.Slot
			cs.LastReply = result.Text
			cs.CachedVerdict = &verdict
			cs.CachedIntent = &intent
			cs.Errors = nil
		})
		return result, nil
	}

	var (
		replyErrContext string
		contact         entity.Contact
		booking         *entity.BookingRecord
		cancelled       = session.Cancelled
	)

	switch intent.Intent {
	case entity.IntentBookCall:
		contact = s.picker.Pick(s.business, intent)
		result.Contact = contact.Name

		booking, err = s.performBooking(ctx, sessionID, contact, intent)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Booking failed, reply will acknowledge the failure")
			replyErrContext = err.Error()
			result.Errors = append(result.Errors, err.Error())
		} else {
			result.Booking = booking
			result.Slot = booking.Slot
			cancelled = false
		}

	case entity.IntentCancelCall:
		result.Text = cancelReply(session)
		if session.HasActiveBooking() {
			cancelled = true
		}

	default:
		// general_query and unknown both fall through to a plain reply.
	}

	if result.Text == "" {
		text, err := s.llm.GenerateReply(ctx, gemini.ReplyRequest{
			Intent:       result.Intent,
			Slot:         result.Slot,
			Contact:      contact,
			Business:     s.business,
			ErrorContext: replyErrContext,
		})
		if err != nil {
			return nil, fmt.Errorf("reply generation failed: %w", err)
		}
		result.Text = text
	}

	result.Audio = s.synthesize(ctx, result.Text)

	if verdict.Qualified || booking != nil {
		s.recordLead(sessionID, utterance, verdict, intent, contact.Name)
	}

	s.sessions.Update(sessionID, func(cs *entity.CallSession) {
		cs.LastUtterance = utterance
		cs.LastTurnAt = now
		cs.LastIntent = result.Intent
		cs.LastSlot = result.Slot
		cs.LastContact = result.Contact
		cs.LastReply = result.Text
		cs.CachedVerdict = &verdict
		cs.CachedIntent = &intent
		cs.Cancelled = cancelled
		cs.Errors = result.Errors
		if booking != nil {
			cs.Booking = booking
		}
	})

	return result, nil
}

// qualify reuses the cached verdict when the caller repeats the exact same
// utterance outside the duplicate window; otherwise it asks the model.
func (s *agentService) qualify(ctx context.Context, session entity.CallSession, utterance string) (entity.QualificationVerdict, error) {
	if session.CachedVerdict != nil && session.LastUtterance == utterance {
		return *session.CachedVerdict, nil
	}
	return s.llm.Qualify(ctx, utterance, s.business, s.qualification)
}

func (s *agentService) extractIntent(ctx context.Context, session entity.CallSession, utterance string) (entity.IntentResult, error) {
	if session.CachedIntent != nil && session.LastUtterance == utterance {
		return *session.CachedIntent, nil
	}
	return s.llm.ExtractIntent(ctx, utterance)
}

func (s *agentService) disqualifiedReply(ctx context.Context, verdict entity.QualificationVerdict, intent entity.IntentResult) string {
	contact := s.resolveRoute(verdict.RouteTo)

	text, err := s.llm.GenerateReply(ctx, gemini.ReplyRequest{
		Intent:       intent.Intent,
		Slot:         intent.Slot,
		Contact:      contact,
		Business:     s.business,
		ErrorContext: "caller is not a fit: " + verdict.Reason,
	})
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Failed to generate routing reply, using canned text")
		return "Thanks for reaching out. This line is for our strategy calls, but I'll pass your message along to the team."
	}
	return text
}

// resolveRoute maps a verdict's route_to to a roster contact. Unresolvable
// names fall back to the default contact; "Ignore" resolves to nobody.
func (s *agentService) resolveRoute(routeTo string) entity.Contact {
	if strings.EqualFold(routeTo, "ignore") {
		return entity.Contact{}
	}
	for _, c := range s.business.Contacts {
		if strings.EqualFold(c.Name, routeTo) {
			return c
		}
	}
	if len(s.business.Contacts) > 0 {
		return s.business.Contacts[0]
	}
	return entity.Contact{}
}

func cancelReply(session entity.CallSession) string {
	switch {
	case session.HasActiveBooking():
		return "Your booking has been cancelled. Feel free to reach out if you'd like to reschedule."
	case session.Booking != nil:
		return "That booking was already cancelled. Let me know if you'd like to book a new call."
	default:
		return "I don't see an active booking on file. Would you like to schedule a call?"
	}
}

// synthesize is best-effort: a TTS outage must not kill the turn, the text
// reply still goes back over the wire.
func (s *agentService) synthesize(ctx context.Context, text string) entity.AudioArtifact {
	artifact, err := s.speaker.Speak(ctx, text)
	if err != nil && err != deepgram.ErrEmptyText {
		s.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("TTS synthesis failed, continuing without audio")
	}
	return artifact
}

func (s *agentService) fallbackTurn(ctx context.Context, sessionID, errorContext string) *entity.TurnResult {
	result := &entity.TurnResult{
		SessionID: sessionID,
		Intent:    entity.IntentUnknown,
		Qualification: entity.QualificationVerdict{
			Qualified: false,
			Reason:    "turn aborted by internal error",
		},
		Errors: []string{errorContext},
	}

	text, err := s.llm.GenerateReply(ctx, gemini.ReplyRequest{
		Intent:       entity.IntentUnknown,
		Business:     s.business,
		ErrorContext: errorContext,
	})
	if err != nil || strings.TrimSpace(text) == "" {
		text = fallbackReply
	}
	result.Text = text
	result.Audio = s.synthesize(ctx, text)

	s.sessions.Update(sessionID, func(cs *entity.CallSession) {
		cs.Errors = append(cs.Errors, errorContext)
		cs.BookingPending = false
	})

	return result
}

func (s *agentService) recordLead(sessionID, utterance string, verdict entity.QualificationVerdict, intent entity.IntentResult, contact string) {
	entry := entity.LeadEntry{
		Timestamp:     s.clock(),
		SessionID:     sessionID,
		UserUtterance: utterance,
		Intent:        intent.Intent,
		Slot:          intent.Slot,
		Contact:       contact,
		Qualification: verdict,
	}
	if err := s.leads.Append(entry); err != nil {
		s.log.WithFields(logrus.Fields{
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Failed to append lead log entry")
	}
}

func (s *agentService) HandleAudioCommand(ctx context.Context, req agent.AudioCommandRequest) (*entity.TurnResult, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if req.AudioFile == nil {
		return nil, agent.ErrAudioFileRequired
	}
	if err := s.utils.ValidateAudioFile(req.AudioFile, s.config.AllowedFormats); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Rejected audio command upload")
		return nil, agent.ErrInvalidAudioFile
	}

	path, err := s.saveUpload(req.AudioFile)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to persist audio upload")
		return nil, err
	}
	defer os.Remove(path)

	transcript, err := s.transcriber.TranscribeFile(ctx, path)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to transcribe audio command")
		return nil, agent.ErrTranscriptionFailed
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID, err = s.utils.NewULIDFromTimestamp(time.Now())
		if err != nil {
			return nil, err
		}
	}

	return s.HandleTurn(ctx, sessionID, transcript), nil
}

func (s *agentService) saveUpload(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(s.config.AudioDir, 0o755); err != nil {
		return "", err
	}

	dst, err := os.CreateTemp(s.config.AudioDir, "upload-*"+filepath.Ext(fileHeader.Filename))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", err
	}

	return dst.Name(), nil
}

func (s *agentService) ServeAudioFile(ctx context.Context, filename string) ([]byte, error) {
	if filename == "" || filename != filepath.Base(filename) {
		return nil, agent.ErrAudioNotFound
	}

	data, err := os.ReadFile(filepath.Join(s.config.AudioDir, filename))
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"filename":   filename,
		}).Warn("Requested audio artifact not found")
		return nil, agent.ErrAudioNotFound
	}

	return data, nil
}
