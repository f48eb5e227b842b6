package email

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/stacksift/api/internal/config"
)

var ErrContactIncomplete = errors.New("name, email and message are required")

type Service struct {
	sender         Sender
	supportAddress string
	enabled        bool
	policy         *bluemonday.Policy
}

func NewService(cfg config.EmailConfig) *Service {
	var sender Sender
	if cfg.Enabled {
		sender = NewSMTPSender(cfg)
	} else {
		sender = &NoOpSender{}
	}
	return NewServiceWithSender(sender, cfg.SupportAddress, cfg.Enabled)
}

func NewServiceWithSender(sender Sender, supportAddress string, enabled bool) *Service {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	return &Service{
		sender:         sender,
		supportAddress: supportAddress,
		enabled:        enabled,
		policy:         policy,
	}
}

func (s *Service) IsEnabled() bool {
	return s.enabled
}

type ContactMessage struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// SendContact forwards a contact form submission to the support address with
// the sender as Reply-To.
func (s *Service) SendContact(ctx context.Context, c ContactMessage) error {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Subject = strings.TrimSpace(c.Subject)
	c.Message = strings.TrimSpace(c.Message)
	if c.Name == "" || c.Email == "" || c.Message == "" {
		return ErrContactIncomplete
	}

	if !s.enabled {
		slog.Info("email disabled, dropping contact message", "component", "email", "from", c.Email, "subject", c.Subject)
		return nil
	}

	subject := "Contact: " + c.Subject
	if c.Subject == "" {
		subject = "Contact form message from " + c.Name
	}

	text := fmt.Sprintf("From: %s <%s>\n\n%s\n", c.Name, c.Email, c.Message)
	body := fmt.Sprintf("<p><strong>From:</strong> %s &lt;%s&gt;</p><p>%s</p>",
		html.EscapeString(c.Name), html.EscapeString(c.Email), s.messageHTML(c.Message))

	return s.sender.Send(ctx, Message{
		To:      s.supportAddress,
		ReplyTo: c.Email,
		Subject: subject,
		Text:    text,
		HTML:    body,
	})
}

// messageHTML sanitizes user-supplied text and keeps its line breaks.
func (s *Service) messageHTML(message string) string {
	message = strings.ReplaceAll(message, "\r\n", "\n")
	return strings.ReplaceAll(s.policy.Sanitize(message), "\n", "<br>")
}
