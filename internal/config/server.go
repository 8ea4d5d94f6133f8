package config

import (
	"fmt"
	"os"

	agentHandler "github.com/obelisk-acquisitions/chronos-be/internal/api/agent/handler"
	agentRepository "github.com/obelisk-acquisitions/chronos-be/internal/api/agent/repository"
	agentService "github.com/obelisk-acquisitions/chronos-be/internal/api/agent/service"
	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
	"github.com/obelisk-acquisitions/chronos-be/internal/middleware"
	"github.com/obelisk-acquisitions/chronos-be/pkg/assembly"
	"github.com/obelisk-acquisitions/chronos-be/pkg/audio"
	"github.com/obelisk-acquisitions/chronos-be/pkg/caldotcom"
	"github.com/obelisk-acquisitions/chronos-be/pkg/deepgram"
	"github.com/obelisk-acquisitions/chronos-be/pkg/gemini"
	"github.com/obelisk-acquisitions/chronos-be/pkg/gmail"
	"github.com/obelisk-acquisitions/chronos-be/pkg/leadlog"
	"github.com/obelisk-acquisitions/chronos-be/pkg/s3"
	"github.com/obelisk-acquisitions/chronos-be/pkg/twilio"
	"github.com/obelisk-acquisitions/chronos-be/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ServerOption func(*Server) error

type Server struct {
	engine         *fiber.App
	log            *logrus.Logger
	middleware     middleware.Middleware
	validator      *validator.Validate
	utils          utils.IUtils
	handlers       []handler
	geminiClient   gemini.IGemini
	calClient      caldotcom.ICal
	speakerClient  deepgram.ISpeaker
	assemblyClient assembly.IAssembly
	transcriber    audio.ITranscriber
	smsClient      twilio.ISMS
	mailerClient   gmail.IMailer
	s3Client       s3.ItfS3
	sessionStore   agentRepository.Repository
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func WithGeminiClient() ServerOption {
	return func(s *Server) error {
		client, err := gemini.NewGeminiClient()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create Gemini client: %v", err)
			}
			return fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.geminiClient = client
		return nil
	}
}

func WithCalClient() ServerOption {
	return func(s *Server) error {
		s.calClient = caldotcom.New()
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			// TTS artifacts fall back to local disk when S3 is not
			// configured, so this is not fatal.
			if s.log != nil {
				s.log.Warnf("S3 client unavailable, audio artifacts stay local: %v", err)
			}
			return nil
		}
		s.s3Client = client
		return nil
	}
}

func WithSpeakerClient() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before the speaker client")
		}
		s.speakerClient = deepgram.New(s.log, s.s3Client)
		return nil
	}
}

func WithAssemblyClient() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before the transcription client")
		}
		s.assemblyClient = assembly.New(s.log)
		return nil
	}
}

func WithTranscriber() ServerOption {
	return func(s *Server) error {
		s.transcriber = audio.NewTranscriber()
		return nil
	}
}

func WithSMSClient() ServerOption {
	return func(s *Server) error {
		if os.Getenv("TWILIO_ACCOUNT_ID") == "" {
			// Booking notifications are best-effort.
			if s.log != nil {
				s.log.Warn("Twilio credentials missing, booking SMS disabled")
			}
			return nil
		}
		s.smsClient = twilio.New()
		return nil
	}
}

func WithMailerClient() ServerOption {
	return func(s *Server) error {
		client, err := gmail.New()
		if err != nil {
			if s.log != nil {
				s.log.Warnf("Gmail client unavailable, daily digest disabled: %v", err)
			}
			return nil
		}
		s.mailerClient = client
		return nil
	}
}

func (s *Server) RegisterHandler() {
	business, qualification, err := entity.LoadBusinessProfile()
	if err != nil {
		s.log.Warnf("Failed to load business profile, using defaults: %v", err)
		business = entity.DefaultBusinessProfile()
		qualification = entity.DefaultQualificationProfile()
	}

	// Agent Domain
	s.sessionStore = agentRepository.New(s.log)
	leads := leadlog.New(s.log)
	agentServices := agentService.NewAgentService(
		s.log,
		s.sessionStore,
		s.geminiClient,
		s.calClient,
		s.speakerClient,
		s.transcriber,
		s.smsClient,
		s.mailerClient,
		leads,
		s.utils,
		business,
		qualification,
		agentService.DefaultAgentConfig(),
	)
	agentHandlers := agentHandler.New(s.log, s.validator, s.middleware, agentServices, s.assemblyClient, s.utils)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, agentHandlers)
}

func (s *Server) Run() error {
	router := s.engine.Group("/api/v1")
	s.engine.Use(s.middleware.NewRequestIDMiddleware())

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	if err := s.engine.Listen(fmt.Sprintf(":%s", port)); err != nil {
		if s.sessionStore != nil {
			s.sessionStore.Close()
		}
		return err
	}

	return nil
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
