// Package notify delivers best-effort email notifications through the Brevo
// transactional API. Sends happen on a background worker and never block or
// fail the request that triggered them.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mfarrow/taskhive/internal/config"
)

// Email is one outbound message.
type Email struct {
	ToEmail     string
	ToName      string
	Subject     string
	TextContent string
	HTMLContent string
}

// Sender delivers a single email. It exists to allow testing the dispatcher
// without a real API.
type Sender interface {
	Send(ctx context.Context, e Email) error
}

// BrevoClient sends email through the Brevo SMTP API.
type BrevoClient struct {
	apiURL     string
	apiKey     string
	senderName string
	senderMail string
	sandbox    bool
	httpClient *http.Client
}

// NewBrevoClient creates a client from the notify configuration.
func NewBrevoClient(cfg config.NotifyConfig) *BrevoClient {
	return &BrevoClient{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		senderName: cfg.SenderName,
		senderMail: cfg.SenderEmail,
		sandbox:    cfg.Sandbox,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type brevoAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type brevoPayload struct {
	Sender      brevoAddress      `json:"sender"`
	To          []brevoAddress    `json:"to"`
	Subject     string            `json:"subject"`
	TextContent string            `json:"textContent"`
	HTMLContent string            `json:"htmlContent"`
	Headers     map[string]string `json:"headers,omitempty"`
}

// Send posts the email to the Brevo API. A non-2xx response is an error.
func (c *BrevoClient) Send(ctx context.Context, e Email) error {
	payload := brevoPayload{
		Sender:      brevoAddress{Email: c.senderMail, Name: c.senderName},
		To:          []brevoAddress{{Email: e.ToEmail, Name: e.ToName}},
		Subject:     e.Subject,
		TextContent: e.TextContent,
		HTMLContent: e.HTMLContent,
	}
	if c.sandbox {
		payload.Headers = map[string]string{"X-Sib-Sandbox": "drop"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building email request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if len(detail) == 0 {
			detail = []byte("empty response")
		}
		return fmt.Errorf("brevo api request failed (%d): %s", resp.StatusCode, detail)
	}
	return nil
}

// TeamAddedEmail builds the message sent to a user just added to a team.
func TeamAddedEmail(toEmail, toName, teamName, inviterEmail string) Email {
	intro := fmt.Sprintf(`You were added to the team "%s".`, teamName)
	if inviterEmail != "" {
		intro = fmt.Sprintf(`You were added to the team "%s" by %s.`, teamName, inviterEmail)
	}
	const outro = "You can now access team resources in Taskhive."

	return Email{
		ToEmail:     toEmail,
		ToName:      toName,
		Subject:     "Added to team: " + teamName,
		TextContent: intro + "\n\n" + outro,
		HTMLContent: "<p>" + escapeHTML(intro) + "</p><p>" + outro + "</p>",
	}
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
