package agentHandler

import (
	"os"
	"strconv"
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/api/agent"
	"github.com/obelisk-acquisitions/chronos-be/pkg/audio"
	contextPkg "github.com/obelisk-acquisitions/chronos-be/pkg/context"
	"github.com/obelisk-acquisitions/chronos-be/pkg/log"

	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"
)

const streamReadTimeout = 120 * time.Second

// handleMediaStream bridges one phone call: raw PCM frames come in over the
// websocket, finalized transcripts drive agent turns, and each reply goes
// back as a JSON frame followed by the synthesized audio bytes.
func (h *AgentHandler) handleMediaStream(c *websocket.Conn) {
	sessionID := c.Query("call_sid")
	if sessionID == "" {
		id, err := h.utils.NewULIDFromTimestamp(time.Now())
		if err != nil {
			h.log.Errorf("Failed to generate stream session id: %v", err)
			return
		}
		sessionID = id
	}

	sampleRate := 8000
	if v := c.Query("sample_rate"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			sampleRate = parsed
		}
	}

	h.log.WithFields(log.Fields{
		"session_id":  sessionID,
		"sample_rate": sampleRate,
	}).Info("Media stream connected")
	defer h.log.WithFields(log.Fields{
		"session_id": sessionID,
	}).Info("Media stream disconnected")

	transcriber, err := h.transcripts.OpenSession(audio.TargetSampleRate)
	if err != nil {
		h.log.Errorf("Failed to open transcription session: %v", err)
		_ = c.WriteJSON(map[string]string{"error": "transcription backend unavailable"})
		return
	}
	defer transcriber.Close()

	chunker := audio.NewChunker(sampleRate)

	ctx := contextPkg.WithRequestID(context.Background(), sessionID)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for transcript := range transcriber.Transcripts() {
			h.replyToTranscript(ctx, c, sessionID, transcript)
		}
	}()

	c.SetPingHandler(func(data string) error {
		return c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	for {
		if err := c.SetReadDeadline(time.Now().Add(streamReadTimeout)); err != nil {
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Media stream read error: %v", err)
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			continue
		}

		for _, frame := range chunker.Write(message) {
			if err := transcriber.SendAudio(frame); err != nil {
				h.log.Errorf("Failed to forward audio frame: %v", err)
				break
			}
		}
	}

	if remainder := chunker.Flush(); len(remainder) > 0 {
		if err := transcriber.SendAudio(remainder); err != nil {
			h.log.Errorf("Failed to flush final audio frame: %v", err)
		}
	}

	if err := transcriber.Terminate(); err != nil {
		h.log.Errorf("Failed to terminate transcription session: %v", err)
	}

	// Wait for the transcript drain to finish so the last turn's reply
	// still reaches the caller before the socket closes.
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		h.log.WithFields(log.Fields{
			"session_id": sessionID,
		}).Warn("Timed out waiting for final transcripts")
	}
}

func (h *AgentHandler) replyToTranscript(ctx context.Context, c *websocket.Conn, sessionID, transcript string) {
	turnCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	result := h.agentService.HandleTurn(turnCtx, sessionID, transcript)

	reply := agent.StreamReply{
		Text:     result.Text,
		AudioURL: result.Audio.URL,
		Skipped:  result.Skipped,
	}

	if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
		return
	}
	if err := c.WriteJSON(reply); err != nil {
		h.log.Errorf("Failed to write stream reply: %v", err)
		return
	}

	if result.Audio.Path == "" {
		return
	}
	data, err := os.ReadFile(result.Audio.Path)
	if err != nil {
		h.log.Errorf("Failed to read synthesized audio: %v", err)
		return
	}
	if err := c.WriteMessage(websocket.BinaryMessage, data); err != nil {
		h.log.Errorf("Failed to write synthesized audio: %v", err)
	}
}
