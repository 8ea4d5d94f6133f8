package agent

import "github.com/obelisk-acquisitions/chronos-be/pkg/response"

var (
	ErrInvalidAudioFile    = response.NewError(400, "invalid audio file")
	ErrAudioFileRequired   = response.NewError(400, "audio file is required")
	ErrTranscriptionFailed = response.NewError(500, "failed to transcribe audio")
	ErrAudioNotFound       = response.NewError(404, "audio artifact not found")
	ErrDigestFailed        = response.NewError(500, "failed to send daily digest")
	ErrMailerNotConfigured = response.NewError(503, "email delivery is not configured")
)
