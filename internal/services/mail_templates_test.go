package services

import (
	"strings"
	"testing"
)

func TestLoadMailTemplatesRendersEveryKind(t *testing.T) {
	tmpl, err := LoadMailTemplates()
	if err != nil {
		t.Fatalf("LoadMailTemplates: %v", err)
	}
	data := map[string]any{
		"recipient_name": "Alex",
		"title":          "Escape Room",
		"date":           "2025-01-01",
		"start_time":     "14:00",
		"end_time":       "16:00",
		"changes":        []string{"Title: \"A\" -> \"B\""},
		"count":          1,
		"activities":     []map[string]any{{"title": "Escape Room", "date": "2025-01-01", "start_time": "14:00", "end_time": "16:00"}},
	}
	for _, kind := range []string{"assignment", "modified", "cancelled", "unassigned", MailKindAdminUnassigned} {
		subj, text, err := tmpl.Render(kind, data)
		if err != nil {
			t.Fatalf("Render(%s): %v", kind, err)
		}
		if subj == "" || !strings.Contains(text, "Alex") {
			t.Fatalf("Render(%s): subject=%q text=%q", kind, subj, text)
		}
	}
	if _, _, err := tmpl.Render("unknown", data); err == nil {
		t.Fatalf("Render(unknown): expected error")
	}
}

func TestLoadMailTemplatesEnvOverride(t *testing.T) {
	t.Setenv("MAIL_TEMPLATE_MODIFIED", "d-123")
	tmpl, err := LoadMailTemplates()
	if err != nil {
		t.Fatalf("LoadMailTemplates: %v", err)
	}
	if got := tmpl.TemplateID("modified"); got != "d-123" {
		t.Fatalf("TemplateID(modified): want=d-123 got=%q", got)
	}
	if got := tmpl.TemplateID("assignment"); got != "" {
		t.Fatalf("TemplateID(assignment): want empty got=%q", got)
	}
}
