package services

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

const MailKindAdminUnassigned = "admin_unassigned"

//go:embed mail_templates.yaml
var defaultMailTemplates []byte

type MailTemplate struct {
	TemplateID string `yaml:"template_id"`
	Subject    string `yaml:"subject"`
	Text       string `yaml:"text"`
}

type compiledMailTemplate struct {
	MailTemplate
	subject *template.Template
	text    *template.Template
}

// MailTemplates resolves a mail kind (a notification type or admin_unassigned)
// to a SendGrid template id and a plain-text fallback.
type MailTemplates struct {
	byKind map[string]compiledMailTemplate
}

func ParseMailTemplates(raw []byte) (*MailTemplates, error) {
	var catalogue map[string]MailTemplate
	if err := yaml.Unmarshal(raw, &catalogue); err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	out := &MailTemplates{byKind: make(map[string]compiledMailTemplate, len(catalogue))}
	for kind, mt := range catalogue {
		kind = strings.ToLower(strings.TrimSpace(kind))
		subj, err := template.New(kind + ".subject").Parse(mt.Subject)
		if err != nil {
			return nil, fmt.Errorf("mail template %s subject: %w", kind, err)
		}
		text, err := template.New(kind + ".text").Parse(mt.Text)
		if err != nil {
			return nil, fmt.Errorf("mail template %s text: %w", kind, err)
		}
		out.byKind[kind] = compiledMailTemplate{MailTemplate: mt, subject: subj, text: text}
	}
	return out, nil
}

// LoadMailTemplates parses the embedded catalogue and applies
// MAIL_TEMPLATE_<KIND> overrides.
func LoadMailTemplates() (*MailTemplates, error) {
	t, err := ParseMailTemplates(defaultMailTemplates)
	if err != nil {
		return nil, err
	}
	for kind, mt := range t.byKind {
		if v := strings.TrimSpace(os.Getenv("MAIL_TEMPLATE_" + strings.ToUpper(kind))); v != "" {
			mt.TemplateID = v
			t.byKind[kind] = mt
		}
	}
	return t, nil
}

func (t *MailTemplates) TemplateID(kind string) string {
	if t == nil {
		return ""
	}
	return strings.TrimSpace(t.byKind[strings.ToLower(kind)].TemplateID)
}

func (t *MailTemplates) Render(kind string, data map[string]any) (string, string, error) {
	if t == nil {
		return "", "", fmt.Errorf("mail templates not loaded")
	}
	mt, ok := t.byKind[strings.ToLower(kind)]
	if !ok {
		return "", "", fmt.Errorf("unknown mail kind %q", kind)
	}
	var subj, text bytes.Buffer
	if err := mt.subject.Execute(&subj, data); err != nil {
		return "", "", fmt.Errorf("render %s subject: %w", kind, err)
	}
	if err := mt.text.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("render %s text: %w", kind, err)
	}
	return strings.TrimSpace(subj.String()), strings.TrimSpace(text.String()), nil
}
