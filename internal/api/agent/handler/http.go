package agentHandler

import (
	agentService "github.com/obelisk-acquisitions/chronos-be/internal/api/agent/service"
	"github.com/obelisk-acquisitions/chronos-be/internal/middleware"
	"github.com/obelisk-acquisitions/chronos-be/pkg/assembly"
	"github.com/obelisk-acquisitions/chronos-be/pkg/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type AgentHandler struct {
	log          *logrus.Logger
	validator    *validator.Validate
	middleware   middleware.Middleware
	agentService agentService.IAgentService
	transcripts  assembly.IAssembly
	utils        utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	as agentService.IAgentService,
	transcripts assembly.IAssembly,
	utils utils.IUtils,
) *AgentHandler {
	return &AgentHandler{
		log:          log,
		validator:    validator,
		middleware:   middleware,
		agentService: as,
		transcripts:  transcripts,
		utils:        utils,
	}
}

func (h *AgentHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	agent := srv.Group("/agent")

	// Telephony media stream (PCM in, transcript-driven replies out)
	agent.Use("/stream", wsMiddleware)
	agent.Get("/stream", websocket.New(h.handleMediaStream))

	// Text and audio entry points for the same turn pipeline
	agent.Post("/simulate", h.SimulateTurn)
	agent.Post("/command", h.ProcessAudioCommand)

	// Operations
	agent.Post("/digest", h.SendDailyDigest)
	agent.Get("/audio/:filename", h.ServeAudioFile)
}
