package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"time"

	"github.com/google/uuid"

	"github.com/juparave/commitreminder/internal/config"
	"github.com/juparave/commitreminder/internal/domain"
	"github.com/juparave/commitreminder/internal/logging"
)

const maxAttempts = 3

var emailBody = template.Must(template.New("reminder").Parse(`<html><body style="font-family:sans-serif">
<h2>Commit reminder</h2>
<p>{{.Headline}}</p>
<p><span style="color:#1a7f37">+{{.Stat.Additions}}</span> | <span style="color:#cf222e">-{{.Stat.Deletions}}</span> in <code>{{.Workspace}}</code>{{if .Branch}} on <code>{{.Branch}}</code>{{end}}</p>
{{if .Suggestion}}<p>Suggested message:</p><pre>{{.Suggestion}}</pre>{{end}}
<p style="color:#6e7781">Sent {{.At}}</p>
</body></html>`))

// Email delivers reminders over SMTP
type Email struct {
	config  config.EmailConfig
	logger  logging.Logger
	backoff func(attempt int) time.Duration
	sendFn  func(addr string, message []byte, timeout time.Duration) error
}

// NewEmail creates a new Email notifier
func NewEmail(cfg config.EmailConfig, logger logging.Logger) *Email {
	if logger == nil {
		logger = logging.Nop()
	}
	e := &Email{
		config:  cfg,
		logger:  logger,
		backoff: func(attempt int) time.Duration { return time.Duration(attempt*attempt) * time.Second },
	}
	e.sendFn = e.sendWithTimeout
	return e
}

// Notify implements Notifier
func (e *Email) Notify(ctx context.Context, r domain.Reminder) error {
	body, err := e.buildBody(r)
	if err != nil {
		return fmt.Errorf("rendering email: %w", err)
	}
	return e.send(ctx, e.buildSubject(r), body)
}

func (e *Email) buildSubject(r domain.Reminder) string {
	return fmt.Sprintf("[commit-reminder] %d uncommitted lines in %s", r.Stat.Total(), baseName(r.Workspace))
}

func (e *Email) buildBody(r domain.Reminder) (string, error) {
	var buf bytes.Buffer
	err := emailBody.Execute(&buf, struct {
		domain.Reminder
		Headline string
	}{r, Headline(r)})
	return buf.String(), err
}

func (e *Email) send(ctx context.Context, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", e.config.SMTPHost, e.config.SMTPPort)
	message := e.buildMessage(subject, htmlBody)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := e.sendFn(addr, message, 30*time.Second)
		if err == nil {
			return nil
		}

		lastErr = err
		e.logger.Warn("email attempt failed", "attempt", attempt, "error", err)

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(e.backoff(attempt)):
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

func (e *Email) buildMessage(subject, htmlBody string) []byte {
	var buf bytes.Buffer

	// Headers
	buf.WriteString(fmt.Sprintf("From: %s <%s>\r\n", e.config.FromName, e.config.FromAddress))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", e.config.ToAddress))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString(fmt.Sprintf("Date: %s\r\n", time.Now().Format(time.RFC1123Z)))
	buf.WriteString(fmt.Sprintf("Message-ID: <%s@%s>\r\n", uuid.NewString(), e.config.SMTPHost))
	buf.WriteString("\r\n")

	buf.WriteString(htmlBody)

	return buf.Bytes()
}

func (e *Email) sendWithTimeout(addr string, message []byte, timeout time.Duration) error {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return fmt.Errorf("connecting to SMTP server: %w", err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(timeout))

	client, err := smtp.NewClient(conn, e.config.SMTPHost)
	if err != nil {
		return fmt.Errorf("creating SMTP client: %w", err)
	}
	defer client.Quit()

	// Start TLS if port is 587
	if e.config.SMTPPort == 587 {
		tlsConfig := &tls.Config{ServerName: e.config.SMTPHost}
		if err = client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("starting TLS: %w", err)
		}
	}

	if e.config.SMTPUser != "" && e.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", e.config.SMTPUser, e.config.SMTPPassword, e.config.SMTPHost)
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("authenticating: %w", err)
		}
	}

	if err = client.Mail(e.config.FromAddress); err != nil {
		return fmt.Errorf("setting sender: %w", err)
	}

	if err = client.Rcpt(e.config.ToAddress); err != nil {
		return fmt.Errorf("setting recipient: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("getting data writer: %w", err)
	}

	if _, err = writer.Write(message); err != nil {
		return fmt.Errorf("writing message: %w", err)
	}

	return writer.Close()
}
