// Package reactions delivers checker failures and status changes to people:
// Slack messages, admin and owner emails, and pages for high severity
// checkers.
package reactions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

//go:generate go tool mockgen -source=notify.go -destination=notify_mocks_test.go -package=reactions

// DefaultSlackChannel receives failure notifications unless configured otherwise.
const DefaultSlackChannel = "#alerts"

// Notification is one Slack message.
type Notification struct {
	Title   string
	Text    string
	Channel string
}

// Notifier posts Slack notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Message is one email.
type Message struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SlackWebhook posts notifications to a Slack incoming webhook.
type SlackWebhook struct {
	URL    string
	Client *http.Client
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Text string `json:"text"`
}

func (s *SlackWebhook) Notify(ctx context.Context, n Notification) error {
	payload := slackPayload{Channel: n.Channel, Text: n.Title}
	if n.Text != "" {
		payload.Attachments = []slackAttachment{{Text: n.Text}}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

// SMTPMailer sends multipart text/HTML email through an SMTP relay.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// sendMail is smtp.SendMail, replaced in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}

	send := m.sendMail
	if send == nil {
		send = smtp.SendMail
	}
	addr := m.Host + ":" + strconv.Itoa(m.Port)
	if err := send(addr, auth, m.From, msg.To, buildMIME(m.From, msg)); err != nil {
		return fmt.Errorf("sending %q to %s: %w", msg.Subject, strings.Join(msg.To, ", "), err)
	}
	return nil
}

const mimeBoundary = "checkerd-alternative"

func buildMIME(from string, msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", singleLine(msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")

	if msg.HTML == "" {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(msg.Text)
		return b.Bytes()
	}

	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mimeBoundary)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n", mimeBoundary, msg.Text)
	fmt.Fprintf(&b, "--%s\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n", mimeBoundary, msg.HTML)
	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return b.Bytes()
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
