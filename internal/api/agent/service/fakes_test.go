package agentService

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	agentRepository "github.com/obelisk-acquisitions/chronos-be/internal/api/agent/repository"
	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
	"github.com/obelisk-acquisitions/chronos-be/pkg/caldotcom"
	"github.com/obelisk-acquisitions/chronos-be/pkg/gemini"
	"github.com/obelisk-acquisitions/chronos-be/pkg/utils"

	"github.com/sirupsen/logrus"
)

type fakeLLM struct {
	verdict     entity.QualificationVerdict
	verdictErr  error
	intent      entity.IntentResult
	intentErr   error
	reply       string
	replyErr    error
	qualifyCall int
	intentCall  int
	replyCall   int
	lastReplyRq gemini.ReplyRequest
	panicOnCall string

	// qualifyDelay models the model's latency; a cancelled context wins.
	qualifyDelay time.Duration
}

func (f *fakeLLM) Qualify(ctx context.Context, _ string, _ entity.BusinessProfile, _ entity.QualificationProfile) (entity.QualificationVerdict, error) {
	f.qualifyCall++
	if f.panicOnCall == "qualify" {
		panic("model exploded")
	}
	if f.qualifyDelay > 0 {
		select {
		case <-time.After(f.qualifyDelay):
		case <-ctx.Done():
			return entity.QualificationVerdict{}, ctx.Err()
		}
	}
	return f.verdict, f.verdictErr
}

func (f *fakeLLM) ExtractIntent(_ context.Context, _ string) (entity.IntentResult, error) {
	f.intentCall++
	if f.panicOnCall == "intent" {
		panic("model exploded")
	}
	return f.intent, f.intentErr
}

func (f *fakeLLM) GenerateReply(_ context.Context, req gemini.ReplyRequest) (string, error) {
	f.replyCall++
	f.lastReplyRq = req
	if f.reply == "" && f.replyErr == nil {
		return "Sounds good, I've got you covered.", nil
	}
	return f.reply, f.replyErr
}

type fakeCal struct {
	eventTypeID  int
	eventTypeErr error
	slots        []string
	slotsErr     error
	bookErr      error
	bookCall     int
	lastBooking  caldotcom.BookingRequest
}

func (f *fakeCal) FirstEventTypeID(_ context.Context) (int, error) {
	if f.eventTypeErr != nil {
		return 0, f.eventTypeErr
	}
	if f.eventTypeID == 0 {
		return 101, nil
	}
	return f.eventTypeID, nil
}

func (f *fakeCal) AvailableSlots(_ context.Context, _ int, _ string) ([]string, error) {
	return f.slots, f.slotsErr
}

func (f *fakeCal) Book(_ context.Context, req caldotcom.BookingRequest) (json.RawMessage, error) {
	f.bookCall++
	f.lastBooking = req
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return json.RawMessage(`{"id":555,"status":"ACCEPTED"}`), nil
}

type fakeSpeaker struct {
	spoken []string
	err    error
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) (entity.AudioArtifact, error) {
	f.spoken = append(f.spoken, text)
	if f.err != nil {
		return entity.AudioArtifact{}, f.err
	}
	return entity.AudioArtifact{Path: "storage/audio/tts-test.wav", URL: "http://localhost/agent/audio/tts-test.wav"}, nil
}

type fakeSMS struct {
	sent []string
	err  error
}

func (f *fakeSMS) SendSMS(_ context.Context, to, message string) (string, error) {
	f.sent = append(f.sent, to+": "+message)
	return "SM123", f.err
}

type fakeMailer struct {
	subjects []string
	bodies   []string
	to       []string
	err      error
}

func (f *fakeMailer) SendEmail(_ context.Context, subject, body, toEmail string) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, body)
	f.to = append(f.to, toEmail)
	return nil
}

type fakeLeadLog struct {
	mu      sync.Mutex
	entries []entity.LeadEntry
	readErr error
	cleared bool
	path    string
}

func (f *fakeLeadLog) Append(entry entity.LeadEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLeadLog) ReadSince(cutoff time.Time) ([]entity.LeadEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []entity.LeadEntry
	for _, e := range f.entries {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeLeadLog) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = nil
	f.cleared = true
	return nil
}

func (f *fakeLeadLog) Path() string {
	if f.path != "" {
		return f.path
	}
	return os.DevNull
}

func (f *fakeLeadLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries)
}

type fakeTranscriber struct {
	transcript string
	err        error
}

func (f *fakeTranscriber) TranscribeFile(_ context.Context, _ string) (string, error) {
	return f.transcript, f.err
}

var errCalAuth = fmt.Errorf("cal.com returned 401: %w", caldotcom.ErrAuthorization)

type testHarness struct {
	svc     *agentService
	llm     *fakeLLM
	cal     *fakeCal
	speaker *fakeSpeaker
	sms     *fakeSMS
	mailer  *fakeMailer
	leads   *fakeLeadLog
	repo    agentRepository.Repository
	now     time.Time
}

func (h *testHarness) advance(d time.Duration) {
	h.now = h.now.Add(d)
}

func newHarness() *testHarness {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	repo := agentRepository.New(log)

	h := &testHarness{
		llm: &fakeLLM{
			verdict: entity.QualificationVerdict{Qualified: true, Reason: "agency founder above threshold"},
			intent:  entity.IntentResult{Intent: entity.IntentGeneralQuery, Slot: "unknown"},
		},
		cal:     &fakeCal{slots: []string{"2026-09-02T10:00:00+05:30", "2026-09-02T11:00:00+05:30"}},
		speaker: &fakeSpeaker{},
		sms:     &fakeSMS{},
		mailer:  &fakeMailer{},
		leads:   &fakeLeadLog{},
		repo:    repo,
		now:     time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}

	config := DefaultAgentConfig()
	config.DigestEmail = "digest@obelisk.example"

	svc := NewAgentService(
		log,
		repo,
		h.llm,
		h.cal,
		h.speaker,
		&fakeTranscriber{transcript: "book me a call"},
		h.sms,
		h.mailer,
		h.leads,
		utils.New(),
		entity.DefaultBusinessProfile(),
		entity.DefaultQualificationProfile(),
		config,
	).(*agentService)
	svc.clock = func() time.Time { return h.now }

	h.svc = svc
	return h
}
