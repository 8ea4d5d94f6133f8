package caldotcom

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

var (
	// ErrAuthorization marks 401/403 responses from cal.com. The booking
	// circuit breaker keys off this error.
	ErrAuthorization = errors.New("cal.com authorization failed")
	ErrNoEventTypes  = errors.New("no event types configured")
	ErrNoSlots       = errors.New("no available slots")
)

// IsAuthError reports whether err is an authorization failure.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthorization)
}

type BookingRequest struct {
	EventTypeID int
	Name        string
	Email       string
	Start       string
	Timezone    string
}

type ICal interface {
	FirstEventTypeID(ctx context.Context) (int, error)
	AvailableSlots(ctx context.Context, eventTypeID int, timezone string) ([]string, error)
	Book(ctx context.Context, req BookingRequest) (json.RawMessage, error)
}

type calClient struct {
	apiKey   string
	username string
	baseURL  string
	client   *http.Client
}

func New() ICal {
	baseURL := os.Getenv("CAL_API_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.cal.com/v1"
	}

	return &calClient{
		apiKey:   os.Getenv("CAL_API_KEY"),
		username: os.Getenv("CAL_USERNAME"),
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *calClient) FirstEventTypeID(ctx context.Context) (int, error) {
	params := url.Values{}
	params.Set("username", c.username)

	body, err := c.get(ctx, "/event-types", params)
	if err != nil {
		return 0, err
	}

	var parsed struct {
		EventTypes []struct {
			ID int `json:"id"`
		} `json:"event_types"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse event types: %w", err)
	}
	if len(parsed.EventTypes) == 0 {
		return 0, ErrNoEventTypes
	}

	return parsed.EventTypes[0].ID, nil
}

// AvailableSlots returns slot start times in the order the backend offers
// them. That ordering is authoritative; callers must not reorder.
func (c *calClient) AvailableSlots(ctx context.Context, eventTypeID int, timezone string) ([]string, error) {
	today := time.Now().UTC()
	params := url.Values{}
	params.Set("username", c.username)
	params.Set("eventTypeId", fmt.Sprintf("%d", eventTypeID))
	params.Set("timezone", timezone)
	params.Set("startDate", today.Format("2006-01-02"))
	params.Set("endDate", today.AddDate(0, 0, 7).Format("2006-01-02"))

	body, err := c.get(ctx, "/availability", params)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Availability []struct {
			Date  string   `json:"date"`
			Slots []string `json:"slots"`
		} `json:"availability"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse availability: %w", err)
	}

	var slots []string
	for _, day := range parsed.Availability {
		slots = append(slots, day.Slots...)
	}

	return slots, nil
}

func (c *calClient) Book(ctx context.Context, req BookingRequest) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"eventTypeId": req.EventTypeID,
		"attendees": []map[string]string{
			{"name": req.Name, "email": req.Email},
		},
		"start":    req.Start,
		"timezone": req.Timezone,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bookings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if err := statusError(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

func (c *calClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if err := statusError(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

func statusError(code int, body []byte) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("cal.com returned %d: %s: %w", code, string(body), ErrAuthorization)
	case code >= 400:
		return fmt.Errorf("cal.com returned %d: %s", code, string(body))
	default:
		return nil
	}
}
