package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultEndpoint is the legacy FCM HTTP send endpoint.
const DefaultEndpoint = "https://fcm.googleapis.com/fcm/send"

const (
	maxPushAttempts  = 3
	androidChannelID = "high_importance_channel"
)

// Push is one device notification.
type Push struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Pusher delivers device notifications.
type Pusher interface {
	Send(ctx context.Context, p Push) error
}

// HTTPPusher posts FCM-compatible messages with a server key.
// Failed attempts are retried with a linear backoff.
type HTTPPusher struct {
	endpoint  string
	serverKey string
	client    *http.Client
	backoff   time.Duration
}

// NewHTTPPusher creates a push sender. An empty endpoint uses DefaultEndpoint.
func NewHTTPPusher(endpoint, serverKey string, client *http.Client) *HTTPPusher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPPusher{
		endpoint:  endpoint,
		serverKey: serverKey,
		client:    client,
		backoff:   time.Second,
	}
}

type fcmNotification struct {
	Title            string `json:"title"`
	Body             string `json:"body"`
	Sound            string `json:"sound"`
	AndroidChannelID string `json:"android_channel_id"`
}

type fcmMessage struct {
	To           string            `json:"to"`
	Priority     string            `json:"priority"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

// Send delivers p, trying up to three times.
func (s *HTTPPusher) Send(ctx context.Context, p Push) error {
	if p.Token == "" {
		return ErrInvalidRecipient
	}
	payload, err := json.Marshal(fcmMessage{
		To:       p.Token,
		Priority: "high",
		Notification: fcmNotification{
			Title:            p.Title,
			Body:             p.Body,
			Sound:            "notification",
			AndroidChannelID: androidChannelID,
		},
		Data: p.Data,
	})
	if err != nil {
		return fmt.Errorf("failed to encode push: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxPushAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.backoff):
			}
		}
		lastErr = s.post(ctx, payload)
		if lastErr == nil {
			return nil
		}
		log.Warn().Err(lastErr).Int("attempt", attempt+1).Msg("push attempt failed")
	}
	return &NotificationError{Message: "push delivery failed", Err: lastErr}
}

func (s *HTTPPusher) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "key="+s.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("push provider status %d", resp.StatusCode)
}

// LogPusher only logs pushes. Used when no server key is configured.
type LogPusher struct {
	logger zerolog.Logger
}

// NewLogPusher creates a logging push sender.
func NewLogPusher(logger zerolog.Logger) *LogPusher {
	return &LogPusher{logger: logger}
}

// Send logs p and never fails.
func (s *LogPusher) Send(_ context.Context, p Push) error {
	s.logger.Info().
		Str("title", p.Title).
		Str("body", p.Body).
		Msg("push not sent: no server key configured")
	return nil
}

// Errors
var (
	ErrInvalidRecipient = &NotificationError{Message: "invalid recipient"}
)

// NotificationError represents a notification error
type NotificationError struct {
	Message string
	Err     error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
