package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type IMailer interface {
	SendEmail(ctx context.Context, subject, body, toEmail string) error
}

type mailer struct {
	service *gmailapi.Service
}

// New builds a Gmail sender from an OAuth client-secrets file and a
// previously authorized token file.
func New() (IMailer, error) {
	credentialsPath := os.Getenv("GMAIL_CREDENTIALS_PATH")
	if credentialsPath == "" {
		credentialsPath = "credentials.json"
	}
	tokenPath := os.Getenv("GMAIL_TOKEN_PATH")
	if tokenPath == "" {
		tokenPath = "token.json"
	}

	credentials, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read gmail credentials: %w", err)
	}

	config, err := google.ConfigFromJSON(credentials, gmailapi.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gmail credentials: %w", err)
	}

	tokenData, err := os.ReadFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read gmail token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("failed to parse gmail token: %w", err)
	}

	ctx := context.Background()
	service, err := gmailapi.NewService(ctx, option.WithTokenSource(config.TokenSource(ctx, &token)))
	if err != nil {
		return nil, err
	}

	return &mailer{service: service}, nil
}

func (m *mailer) SendEmail(ctx context.Context, subject, body, toEmail string) error {
	if toEmail == "" {
		return errors.New("recipient email is required")
	}

	raw := fmt.Sprintf("To: %s\r\nSubject: %s\r\n\r\n%s", toEmail, subject, body)
	message := &gmailapi.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}

	_, err := m.service.Users.Messages.Send("me", message).Context(ctx).Do()
	return err
}
