package email

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/stacksift/api/internal/config"
)

type Message struct {
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

func (s *SMTPSender) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := net.JoinHostPort(s.host, strconv.Itoa(s.port))

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	err := smtp.SendMail(addr, auth, s.from, []string{headerValue(m.To)}, buildMessage(s.from, m))
	if err != nil {
		slog.Error("failed to send email", "component", "email", "to", m.To, "error", err)
		return err
	}

	slog.Info("sent email", "component", "email", "to", m.To, "subject", m.Subject)
	return nil
}

func buildMessage(from string, m Message) []byte {
	var buf bytes.Buffer
	header := func(key, value string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", key, value)
	}

	header("From", headerValue(from))
	header("To", headerValue(m.To))
	if m.ReplyTo != "" {
		header("Reply-To", headerValue(m.ReplyTo))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", headerValue(m.Subject)))
	header("Date", time.Now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	if m.HTML == "" {
		header("Content-Type", `text/plain; charset="utf-8"`)
		buf.WriteString("\r\n" + m.Text + "\r\n")
		return buf.Bytes()
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, alt := range []struct{ contentType, content string }{
		{`text/plain; charset="utf-8"`, m.Text},
		{`text/html; charset="utf-8"`, m.HTML},
	} {
		part, _ := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {alt.contentType}})
		_, _ = io.WriteString(part, alt.content)
	}
	_ = mw.Close()

	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	buf.WriteString("\r\n")
	buf.Write(body.Bytes())
	return buf.Bytes()
}

// headerValue strips line breaks so user input cannot inject headers.
func headerValue(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(strings.TrimSpace(v))
}

type NoOpSender struct{}

func (s *NoOpSender) Send(ctx context.Context, m Message) error {
	slog.Debug("would send email", "component", "email", "to", m.To, "subject", m.Subject)
	return nil
}
