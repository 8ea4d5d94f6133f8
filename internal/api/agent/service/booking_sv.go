package agentService

import (
	"context"
	"errors"
	"fmt"

	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
	contextPkg "github.com/obelisk-acquisitions/chronos-be/pkg/context"
	"github.com/obelisk-acquisitions/chronos-be/pkg/caldotcom"

	"github.com/sirupsen/logrus"
)

// ErrBookingCoolingDown is returned without touching cal.com while the
// authorization cooldown from a previous failure is still active.
var ErrBookingCoolingDown = errors.New("booking temporarily unavailable, calendar credentials recently failed")

// performBooking drives the full cal.com flow for one turn: first event type,
// first available slot, book it. BookingPending is raised for the duration of
// the calendar calls and is guaranteed to be false again by the time this
// returns, on every path.
func (s *agentService) performBooking(ctx context.Context, sessionID string, contact entity.Contact, intent entity.IntentResult) (*entity.BookingRecord, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if s.bookingGuard.ShouldFailFast(s.clock()) {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"cooldown":   s.bookingGuard.Cooldown().String(),
		}).Warn("Booking rejected by cooldown, skipping calendar calls")
		return nil, ErrBookingCoolingDown
	}

	s.sessions.Update(sessionID, func(cs *entity.CallSession) {
		cs.BookingPending = true
	})
	defer s.sessions.Update(sessionID, func(cs *entity.CallSession) {
		cs.BookingPending = false
	})

	eventTypeID, err := s.calendar.FirstEventTypeID(ctx)
	if err != nil {
		return nil, s.noteCalendarError(requestID, sessionID, err)
	}

	slots, err := s.calendar.AvailableSlots(ctx, eventTypeID, s.config.Timezone)
	if err != nil {
		return nil, s.noteCalendarError(requestID, sessionID, err)
	}
	if len(slots) == 0 {
		return nil, caldotcom.ErrNoSlots
	}

	// The earliest slot the calendar offers wins; callers asking for a
	// specific time still get the first opening, the reply names it.
	slot := slots[0]

	confirmation, err := s.calendar.Book(ctx, caldotcom.BookingRequest{
		EventTypeID: eventTypeID,
		Name:        contact.Name,
		Email:       s.config.AttendeeEmail,
		Start:       slot,
		Timezone:    s.config.Timezone,
	})
	if err != nil {
		return nil, s.noteCalendarError(requestID, sessionID, err)
	}

	record := &entity.BookingRecord{
		Confirmation: confirmation,
		Slot:         slot,
		Contact:      contact.Name,
		BookedAt:     s.clock(),
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"session_id": sessionID,
		"slot":       slot,
		"contact":    contact.Name,
	}).Info("Booked calendar slot")

	s.notifyContact(ctx, contact, slot)

	return record, nil
}

func (s *agentService) noteCalendarError(requestID, sessionID string, err error) error {
	if caldotcom.IsAuthError(err) {
		s.bookingGuard.RecordFailure(s.clock())
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"cooldown":   s.bookingGuard.Cooldown().String(),
		}).Error("Calendar authorization failed, starting booking cooldown")
	}
	return fmt.Errorf("calendar call failed: %w", err)
}

// notifyContact texts the scheduled team member. Best-effort: contacts
// without a phone number on file are skipped silently.
func (s *agentService) notifyContact(ctx context.Context, contact entity.Contact, slot string) {
	if s.sms == nil || contact.Phone == "" {
		return
	}

	message := fmt.Sprintf("New call booked with %s at %s.", contact.Name, slot)
	if _, err := s.sms.SendSMS(ctx, contact.Phone, message); err != nil {
		s.log.WithFields(logrus.Fields{
			"contact": contact.Name,
			"error":   err.Error(),
		}).Warn("Failed to send booking SMS")
	}
}
