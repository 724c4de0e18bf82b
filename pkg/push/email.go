package push

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// DefaultFromEmail is used when no sender is configured.
const DefaultFromEmail = "Invoice Audit <audit@localhost>"

// EmailService mails batch alerts through Resend.
type EmailService struct {
	client *resend.Client
	from   string
	to     []string
	logger *slog.Logger
}

// NewEmailService creates an email alert channel. Without an API key or
// recipients it is disabled and NotifyBatch does nothing.
func NewEmailService(apiKey, from string, to []string, logger *slog.Logger) *EmailService {
	var client *resend.Client
	if apiKey != "" {
		client = resend.NewClient(apiKey)
	}
	if from == "" {
		from = DefaultFromEmail
	}

	return &EmailService{
		client: client,
		from:   from,
		to:     to,
		logger: logger,
	}
}

// Enabled reports whether alerts will be mailed.
func (s *EmailService) Enabled() bool {
	return s.client != nil && len(s.to) > 0
}

// NotifyBatch mails alert to every recipient in one message. Batches with
// nothing to review send nothing.
func (s *EmailService) NotifyBatch(ctx context.Context, alert Alert) error {
	if !s.Enabled() || !alert.Worth() {
		return nil
	}

	summary := alert.Summary()
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body>
  <h1>%s</h1>
  <p>%s</p>
  <p>Processing session: <code>%s</code></p>
</body>
</html>
`, AlertTitle, html.EscapeString(summary), html.EscapeString(alert.SessionID))

	resp, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      s.to,
		Subject: fmt.Sprintf("%s: %d critical, %d unknown", AlertTitle, alert.Critical, alert.Unknown),
		Text:    summary + "\nProcessing session: " + alert.SessionID,
		Html:    body,
		Tags:    []resend.Tag{{Name: "session_id", Value: alert.SessionID}},
	})
	if err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}

	s.logger.Info("alert email sent",
		slog.String("email_id", resp.Id),
		slog.Int("recipients", len(s.to)),
	)
	return nil
}
