package agent

import "mime/multipart"

type SimulateTurnRequest struct {
	SessionID string `json:"session_id"`
	Utterance string `json:"utterance" validate:"required"`
}

type AudioCommandRequest struct {
	SessionID string
	AudioFile *multipart.FileHeader
}

type DigestRequest struct {
	ClearLog bool `json:"clear_log"`
}

type DigestResult struct {
	Status string `json:"status"`
	To     string `json:"to,omitempty"`
	Count  int    `json:"count,omitempty"`
}

// StreamReply is the JSON frame written back over the telephony websocket
// before the raw synthesized audio bytes.
type StreamReply struct {
	Text     string `json:"text"`
	AudioURL string `json:"audio_url,omitempty"`
	Skipped  bool   `json:"skipped,omitempty"`
}
