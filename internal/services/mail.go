package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/sendgrid"
)

type MailRecipient struct {
	Email string
	Name  string
}

// MailMessage is one outbound email. Kind picks the template; Data is passed to
// it unchanged.
type MailMessage struct {
	To         MailRecipient
	Kind       string
	Data       map[string]any
	CustomArgs map[string]string
}

// MailSender delivers a MailMessage and returns the provider message id.
type MailSender interface {
	Send(ctx context.Context, msg MailMessage) (string, error)
}

type sendGridMailSender struct {
	client    sendgrid.Client
	templates *MailTemplates
}

// NewSendGridMailSender returns nil when client is nil so callers can treat a
// nil sender as "email disabled".
func NewSendGridMailSender(client sendgrid.Client, templates *MailTemplates) MailSender {
	if client == nil {
		return nil
	}
	return &sendGridMailSender{client: client, templates: templates}
}

func (s *sendGridMailSender) Send(ctx context.Context, msg MailMessage) (string, error) {
	if strings.TrimSpace(msg.To.Email) == "" {
		return "", fmt.Errorf("mail recipient email required")
	}
	subject, text, err := s.templates.Render(msg.Kind, msg.Data)
	if err != nil {
		return "", err
	}
	req := sendgrid.SendEmailRequest{
		To:         []sendgrid.EmailAddress{{Email: msg.To.Email, Name: msg.To.Name}},
		Subject:    subject,
		Text:       text,
		Categories: []string{"gm-scheduling", msg.Kind},
		CustomArgs: msg.CustomArgs,
	}
	if id := s.templates.TemplateID(msg.Kind); id != "" {
		req.TemplateID = id
		req.DynamicTemplateData = msg.Data
	}
	res, err := s.client.Send(ctx, req)
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}
