package agentHandler

import (
	"errors"
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/api/agent"
	contextPkg "github.com/obelisk-acquisitions/chronos-be/pkg/context"
	"github.com/obelisk-acquisitions/chronos-be/pkg/handlerUtil"
	"github.com/obelisk-acquisitions/chronos-be/pkg/log"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *AgentHandler) SimulateTurn(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 60*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing simulated turn request")

	var req agent.SimulateTurnRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	sessionID := req.SessionID
	if sessionID == "" {
		id, err := h.utils.NewULIDFromTimestamp(time.Now())
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "simulate_turn")
		}
		sessionID = id
	}

	result := h.agentService.HandleTurn(c, sessionID, req.Utterance)

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *AgentHandler) ProcessAudioCommand(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 60*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing audio command request")

	audioFile, err := ctx.FormFile("audio")
	if err != nil {
		return errHandler.HandleValidationError(ctx, requestID,
			errors.New("audio file is required"), ctx.Path())
	}

	req := agent.AudioCommandRequest{
		SessionID: ctx.FormValue("session_id"),
		AudioFile: audioFile,
	}

	result, err := h.agentService.HandleAudioCommand(c, req)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "process_audio_command")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *AgentHandler) SendDailyDigest(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 30*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing daily digest request")

	var req agent.DigestRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}
	}

	result, err := h.agentService.SendDailyDigest(c, req.ClearLog)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "send_daily_digest")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, result)
	}
}

func (h *AgentHandler) ServeAudioFile(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	filename := ctx.Params("filename")

	data, err := h.agentService.ServeAudioFile(c, filename)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "serve_audio_file")
	}

	ctx.Set("Content-Type", "audio/wav")
	return ctx.Send(data)
}
