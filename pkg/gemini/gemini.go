package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/obelisk-acquisitions/chronos-be/internal/entity"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type ReplyRequest struct {
	Intent       entity.Intent
	Slot         string
	Contact      entity.Contact
	Business     entity.BusinessProfile
	ErrorContext string
}

type IGemini interface {
	Qualify(ctx context.Context, utterance string, business entity.BusinessProfile, profile entity.QualificationProfile) (entity.QualificationVerdict, error)
	ExtractIntent(ctx context.Context, utterance string) (entity.IntentResult, error)
	GenerateReply(ctx context.Context, req ReplyRequest) (string, error)
}

type geminiClient struct {
	apiKey    string
	modelName string
	client    *genai.Client
}

func NewGeminiClient() (IGemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	modelName := os.Getenv("GEMINI_MODEL_NAME")
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &geminiClient{
		apiKey:    apiKey,
		modelName: modelName,
		client:    client,
	}, nil
}

func (g *geminiClient) Qualify(ctx context.Context, utterance string, business entity.BusinessProfile, profile entity.QualificationProfile) (entity.QualificationVerdict, error) {
	prompt := fmt.Sprintf(`You are a qualification assistant for %s.
Here is the ideal client profile:
Type: %s
Revenue: %s
Pain points: %s
Non-ideal routes: %s

Based on this user's message, are they a qualified prospect for our %s? If not, label them and suggest how to respond.

User message: "%s"

Respond ONLY in this JSON format:
{
  "qualified": true/false,
  "reason": "...",
  "route_to": null or a contact name or "Ignore"
}`,
		business.Seller,
		profile.IdealUser.Type,
		profile.IdealUser.Revenue,
		strings.Join(profile.IdealUser.PainPoints, ", "),
		formatRoutes(profile.NonIdealRoutes),
		business.Offer,
		utterance,
	)

	raw, err := g.generateText(ctx, prompt)
	if err != nil {
		return entity.QualificationVerdict{}, err
	}

	return ParseVerdict(raw), nil
}

func (g *geminiClient) ExtractIntent(ctx context.Context, utterance string) (entity.IntentResult, error) {
	prompt := fmt.Sprintf(`You're a backend AI agent for a voice scheduling system. Your job is to extract:
1. The user's intent - only respond with 'book_call', 'cancel_call', or 'general_query'
2. The most likely time the user wants (in plain text, e.g. 'Friday 6pm')

Here's the user input:
"""%s"""

Respond ONLY in this JSON format:
{
  "intent": "...",
  "datetime": "..."
}`, utterance)

	raw, err := g.generateText(ctx, prompt)
	if err != nil {
		return entity.IntentResult{}, err
	}

	return ParseIntentResult(raw), nil
}

func (g *geminiClient) GenerateReply(ctx context.Context, req ReplyRequest) (string, error) {
	prompt := fmt.Sprintf(`You're a friendly scheduling assistant for %s. Based on the intent and slot info below, generate a natural, helpful sentence to say back to the user.

Intent: %s
Slot: %s
Offer: %s
Seller: %s
Contact: %s (%s)`,
		req.Business.Seller,
		req.Intent,
		req.Slot,
		req.Business.Offer,
		req.Business.Seller,
		req.Contact.Name,
		req.Contact.Role,
	)
	if req.ErrorContext != "" {
		prompt += fmt.Sprintf("\nError: %s\nIf there is an error, suggest a helpful next step or alternative.", req.ErrorContext)
	}

	raw, err := g.generateText(ctx, prompt)
	if err != nil {
		return "", err
	}

	return StripCodeFence(raw), nil
}

func (g *geminiClient) generateText(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.modelName)

	res, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Gemini API")
	}

	text, ok := res.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", errors.New("unexpected response format from Gemini API")
	}

	return strings.TrimSpace(string(text)), nil
}

func (g *geminiClient) Close() {
	if g.client != nil {
		g.client.Close()
	}
}

func formatRoutes(routes map[string]string) string {
	parts := make([]string, 0, len(routes))
	for label, route := range routes {
		parts = append(parts, fmt.Sprintf("%s -> %s", label, route))
	}
	return strings.Join(parts, "; ")
}
