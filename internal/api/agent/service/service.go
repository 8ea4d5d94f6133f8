package agentService

import (
	"context"
	"os"
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/api/agent"
	agentRepository "github.com/obelisk-acquisitions/chronos-be/internal/api/agent/repository"
	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
	"github.com/obelisk-acquisitions/chronos-be/pkg/audio"
	"github.com/obelisk-acquisitions/chronos-be/pkg/breaker"
	"github.com/obelisk-acquisitions/chronos-be/pkg/caldotcom"
	"github.com/obelisk-acquisitions/chronos-be/pkg/deepgram"
	"github.com/obelisk-acquisitions/chronos-be/pkg/gemini"
	"github.com/obelisk-acquisitions/chronos-be/pkg/gmail"
	"github.com/obelisk-acquisitions/chronos-be/pkg/leadlog"
	"github.com/obelisk-acquisitions/chronos-be/pkg/twilio"
	"github.com/obelisk-acquisitions/chronos-be/pkg/utils"

	"github.com/sirupsen/logrus"
)

type IAgentService interface {
	HandleTurn(ctx context.Context, sessionID, utterance string) *entity.TurnResult
	HandleAudioCommand(ctx context.Context, req agent.AudioCommandRequest) (*entity.TurnResult, error)
	SendDailyDigest(ctx context.Context, clearLog bool) (*agent.DigestResult, error)
	ServeAudioFile(ctx context.Context, filename string) ([]byte, error)
}

// ContactPicker chooses which team member a booked call is scheduled with.
type ContactPicker interface {
	Pick(business entity.BusinessProfile, intent entity.IntentResult) entity.Contact
}

type firstContactPicker struct{}

func (firstContactPicker) Pick(business entity.BusinessProfile, _ entity.IntentResult) entity.Contact {
	if len(business.Contacts) == 0 {
		return entity.Contact{}
	}
	return business.Contacts[0]
}

type AgentConfig struct {
	DuplicateWindow time.Duration `json:"duplicate_window"`
	JunkPatterns    []string      `json:"junk_patterns"`
	Timezone        string        `json:"timezone"`
	AttendeeEmail   string        `json:"attendee_email"`
	DigestEmail     string        `json:"digest_email"`
	TurnTimeout     time.Duration `json:"turn_timeout"`
	AudioDir        string        `json:"audio_dir"`
	AllowedFormats  []string      `json:"allowed_formats"`
}

func DefaultAgentConfig() *AgentConfig {
	return &AgentConfig{
		DuplicateWindow: 30 * time.Second,
		Timezone:        "Asia/Kolkata",
		AttendeeEmail:   "sample@example.com",
		DigestEmail:     os.Getenv("DIGEST_EMAIL"),
		TurnTimeout:     45 * time.Second,
		AudioDir:        "./storage/audio",
		AllowedFormats:  []string{".mp3", ".wav", ".m4a", ".ogg", ".webm"},
	}
}

type agentService struct {
	log           *logrus.Logger
	sessions      agentRepository.Repository
	llm           gemini.IGemini
	calendar      caldotcom.ICal
	speaker       deepgram.ISpeaker
	transcriber   audio.ITranscriber
	sms           twilio.ISMS
	mailer        gmail.IMailer
	leads         leadlog.ILeadLog
	bookingGuard  *breaker.BookingBreaker
	business      entity.BusinessProfile
	qualification entity.QualificationProfile
	picker        ContactPicker
	utils         utils.IUtils
	config        *AgentConfig
	clock         func() time.Time
}

func NewAgentService(
	log *logrus.Logger,
	sessions agentRepository.Repository,
	llm gemini.IGemini,
	calendar caldotcom.ICal,
	speaker deepgram.ISpeaker,
	transcriber audio.ITranscriber,
	sms twilio.ISMS,
	mailer gmail.IMailer,
	leads leadlog.ILeadLog,
	utils utils.IUtils,
	business entity.BusinessProfile,
	qualification entity.QualificationProfile,
	config *AgentConfig,
) IAgentService {
	if config == nil {
		config = DefaultAgentConfig()
	}

	return &agentService{
		log:           log,
		sessions:      sessions,
		llm:           llm,
		calendar:      calendar,
		speaker:       speaker,
		transcriber:   transcriber,
		sms:           sms,
		mailer:        mailer,
		leads:         leads,
		bookingGuard:  breaker.New(breaker.DefaultCooldown),
		business:      business,
		qualification: qualification,
		picker:        firstContactPicker{},
		utils:         utils,
		config:        config,
		clock:         time.Now,
	}
}
