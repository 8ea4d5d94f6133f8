package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/obelisk-acquisitions/chronos-be/internal/entity"
	"github.com/obelisk-acquisitions/chronos-be/pkg/s3"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrEmptyText = errors.New("tts text must be non-empty")

type ISpeaker interface {
	Speak(ctx context.Context, text string) (entity.AudioArtifact, error)
}

type speaker struct {
	apiKey     string
	model      string
	baseURL    string
	storageDir string
	s3Client   s3.ItfS3
	client     *http.Client
	log        *logrus.Logger
}

// New builds the Deepgram TTS client. s3Client is optional; when present,
// synthesized audio is uploaded and the artifact carries a presigned URL.
func New(log *logrus.Logger, s3Client s3.ItfS3) ISpeaker {
	baseURL := os.Getenv("DEEPGRAM_API_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.deepgram.com"
	}

	model := os.Getenv("DEEPGRAM_TTS_MODEL")
	if model == "" {
		model = "aura-asteria-en"
	}

	storageDir := os.Getenv("AUDIO_STORAGE_DIR")
	if storageDir == "" {
		storageDir = "./storage/audio"
	}

	return &speaker{
		apiKey:     os.Getenv("DEEPGRAM_API_KEY"),
		model:      model,
		baseURL:    baseURL,
		storageDir: storageDir,
		s3Client:   s3Client,
		client:     &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

func (s *speaker) Speak(ctx context.Context, text string) (entity.AudioArtifact, error) {
	if strings.TrimSpace(text) == "" {
		s.log.WithFields(logrus.Fields{
			"error": ErrEmptyText.Error(),
		}).Error("Skipping TTS call for empty text")
		return entity.AudioArtifact{}, ErrEmptyText
	}

	url := fmt.Sprintf("%s/v1/speak?model=%s&encoding=linear16&sample_rate=16000", s.baseURL, s.model)

	jsonData, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return entity.AudioArtifact{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return entity.AudioArtifact{}, err
	}
	req.Header.Set("Authorization", "Token "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return entity.AudioArtifact{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return entity.AudioArtifact{}, fmt.Errorf("deepgram API error: %s - %s", resp.Status, string(body))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return entity.AudioArtifact{}, fmt.Errorf("failed to read audio response: %w", err)
	}

	filename := fmt.Sprintf("tts-%s.wav", uuid.New().String())

	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return entity.AudioArtifact{}, err
	}
	path := filepath.Join(s.storageDir, filename)
	if err := os.WriteFile(path, audioData, 0o644); err != nil {
		return entity.AudioArtifact{}, err
	}

	artifact := entity.AudioArtifact{Path: path}

	if s.s3Client != nil {
		s3URL, err := s.s3Client.UploadBytes(filename, audioData)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"filename": filename,
				"error":    err.Error(),
			}).Warn("Failed to upload TTS audio to S3, serving local file only")
		} else if presigned, err := s.s3Client.PresignUrl(s3URL); err == nil {
			artifact.URL = presigned
		}
	}

	s.log.WithFields(logrus.Fields{
		"path": path,
		"size": len(audioData),
	}).Debug("TTS audio generated")

	return artifact, nil
}
