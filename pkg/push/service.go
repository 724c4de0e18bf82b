// Package push alerts reviewers about finished audit batches by Expo push
// notification and by email.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// ExpoPushURL is the Expo Push API endpoint
	ExpoPushURL = "https://exp.host/--/api/v2/push/send"

	// RequestTimeout for push requests
	RequestTimeout = 10 * time.Second

	// AlertTitle heads every batch alert
	AlertTitle = "Invoice audit needs review"
)

// Message represents an Expo push notification message
type Message struct {
	To       string         `json:"to"`
	Title    string         `json:"title,omitempty"`
	Body     string         `json:"body"`
	Data     map[string]any `json:"data,omitempty"`
	Sound    string         `json:"sound,omitempty"`    // "default" or custom
	Priority string         `json:"priority,omitempty"` // "default", "normal", "high"
}

// Response represents the Expo Push API response
type Response struct {
	Data []TicketResponse `json:"data"`
}

// TicketResponse represents a single push ticket
type TicketResponse struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
	Details struct {
		Error string `json:"error,omitempty"`
	} `json:"details,omitempty"`
}

// Alert is the batch outcome a notification reports.
type Alert struct {
	SessionID  string
	Files      int
	Failed     int
	Critical   int
	Unknown    int
	Overcharge string // Display amount, e.g. "$12.40"
}

// Worth reports whether the batch found anything a reviewer must act on.
func (a Alert) Worth() bool {
	return a.Critical > 0 || a.Unknown > 0 || a.Failed > 0
}

// Summary is the one-line text every alert channel sends.
func (a Alert) Summary() string {
	body := fmt.Sprintf("%d critical overcharges (%s), %d unknown parts across %d invoices",
		a.Critical, a.Overcharge, a.Unknown, a.Files)
	if a.Failed > 0 {
		body += fmt.Sprintf("; %d invoices failed", a.Failed)
	}
	return body
}

// Service handles Expo Push notifications
type Service struct {
	client   *http.Client
	endpoint string
	tokens   []string
	logger   *slog.Logger
}

// NewService creates a push service for tokens. Invalid tokens are dropped.
// An empty endpoint means ExpoPushURL.
func NewService(endpoint string, tokens []string, logger *slog.Logger) *Service {
	if endpoint == "" {
		endpoint = ExpoPushURL
	}

	valid := make([]string, 0, len(tokens))
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if isValidExpoPushToken(t) {
			valid = append(valid, t)
		} else if t != "" {
			logger.Warn("ignoring invalid push token", slog.String("token", redact(t)))
		}
	}

	return &Service{
		client: &http.Client{
			Timeout: RequestTimeout,
		},
		endpoint: endpoint,
		tokens:   valid,
		logger:   logger,
	}
}

// Enabled reports whether any recipient is configured.
func (s *Service) Enabled() bool {
	return len(s.tokens) > 0
}

// NotifyBatch sends alert to every configured token. Batches with nothing to
// review send nothing.
func (s *Service) NotifyBatch(ctx context.Context, alert Alert) error {
	if !s.Enabled() || !alert.Worth() {
		return nil
	}

	body := alert.Summary()
	messages := make([]*Message, len(s.tokens))
	for i, token := range s.tokens {
		messages[i] = &Message{
			To:       token,
			Title:    "Invoice audit needs review",
			Body:     body,
			Data:     map[string]any{"session_id": alert.SessionID},
			Priority: "high",
		}
	}
	return s.SendBatch(ctx, messages)
}

// SendBatch sends push notifications to multiple tokens in one request.
// It fails when the request fails or any ticket comes back as an error.
func (s *Service) SendBatch(ctx context.Context, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}
	for _, msg := range messages {
		if msg.Sound == "" {
			msg.Sound = "default"
		}
	}

	// Marshal messages
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal push messages: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push notifications: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read push response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.Error("push batch failed", slog.Int("status", resp.StatusCode), slog.String("body", string(body)))
		return fmt.Errorf("push batch failed with status: %d", resp.StatusCode)
	}

	var pushResp Response
	if err := json.Unmarshal(body, &pushResp); err != nil {
		return fmt.Errorf("failed to parse push response: %w", err)
	}

	var failed []string
	for i, ticket := range pushResp.Data {
		if ticket.Status != "error" {
			continue
		}
		reason := ticket.Message
		if ticket.Details.Error != "" {
			reason = ticket.Details.Error
		}
		token := ""
		if i < len(messages) {
			token = redact(messages[i].To)
		}
		s.logger.Warn("push notification failed", slog.String("token", token), slog.String("error", reason))
		failed = append(failed, reason)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d push notifications failed: %s", len(failed), len(messages), strings.Join(failed, "; "))
	}

	s.logger.Info("push batch sent", slog.Int("count", len(messages)))
	return nil
}

// isValidExpoPushToken checks if a token is a valid Expo push token
func isValidExpoPushToken(token string) bool {
	// Expo push tokens start with "ExponentPushToken[" or "ExpoPushToken["
	return len(token) > 20 && strings.HasSuffix(token, "]") &&
		(strings.HasPrefix(token, "ExponentPushToken[") || strings.HasPrefix(token, "ExpoPushToken["))
}

func redact(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20] + "..."
}
