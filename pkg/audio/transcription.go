package audio

import (
	"context"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

type ITranscriber interface {
	TranscribeFile(ctx context.Context, filePath string) (string, error)
}

type transcriptionService struct {
	client *openai.Client
}

func NewTranscriber() ITranscriber {
	return &transcriptionService{
		client: openai.NewClient(os.Getenv("OPENAI_API_KEY")),
	}
}

func (t *transcriptionService) TranscribeFile(ctx context.Context, filePath string) (string, error) {
	req := openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: filePath,
		Language: "en",
	}

	resp, err := t.client.CreateTranscription(ctx, req)
	if err != nil {
		return "", err
	}

	return resp.Text, nil
}
