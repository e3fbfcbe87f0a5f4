package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValueRedactsSensitiveKeys(t *testing.T) {
	for _, key := range []string{"access_token", "recipient_email", "sendgrid_api_key", "authorization"} {
		if got := sanitizeValue(key, "value"); got != "[REDACTED]" {
			t.Fatalf("sanitizeValue(%q): want=[REDACTED] got=%v", key, got)
		}
	}
}

func TestSanitizeValueHashesUserIDs(t *testing.T) {
	got, ok := sanitizeValue("user_id", "5b1c7a0e-0000-4000-8000-000000000001").(string)
	if !ok || !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("sanitizeValue(user_id): unexpected %v", got)
	}
	again := sanitizeValue("user_id", "5b1c7a0e-0000-4000-8000-000000000001")
	if again != got {
		t.Fatalf("hash not stable: %v vs %v", got, again)
	}
}

func TestSanitizeValueKeepsOrdinaryValues(t *testing.T) {
	if got := sanitizeValue("activity_id", "abc"); got != "abc" {
		t.Fatalf("sanitizeValue(activity_id): want=abc got=%v", got)
	}
	if got := sanitizeValue("count", 3); got != 3 {
		t.Fatalf("sanitizeValue(count): want=3 got=%v", got)
	}
}

func TestSanitizeValueNestedMap(t *testing.T) {
	got := sanitizeValue("payload", map[string]interface{}{"email": "a@b.c", "title": "Escape"})
	m, ok := got.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map, got %T", got)
	}
	if m["email"] != "[REDACTED]" || m["title"] != "Escape" {
		t.Fatalf("unexpected nested sanitize: %+v", m)
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("hello", "k", "v")
	l.Sync()
}
