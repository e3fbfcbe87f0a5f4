package sendgrid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

func TestSendPostsTemplatePayload(t *testing.T) {
	var got mailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" {
			t.Errorf("path: want=/v3/mail/send got=%s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("authorization header missing")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("X-Message-Id", "msg-1")
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "key", BaseURL: srv.URL, DefaultFromEmail: "noreply@venue.ch"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := c.Send(context.Background(), SendEmailRequest{
		To:                  []EmailAddress{{Email: "gm@venue.ch", Name: "Ana"}},
		TemplateID:          "d-123",
		DynamicTemplateData: map[string]any{"activity_title": "Escape"},
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.MessageID != "msg-1" || res.StatusCode != http.StatusAccepted {
		t.Fatalf("Send result: unexpected %+v", res)
	}
	if got.TemplateID != "d-123" || got.From.Email != "noreply@venue.ch" {
		t.Fatalf("wire: unexpected %+v", got)
	}
	if len(got.Personalizations) != 1 || got.Personalizations[0].To[0].Email != "gm@venue.ch" {
		t.Fatalf("wire personalizations: unexpected %+v", got.Personalizations)
	}
	if got.Personalizations[0].DynamicTemplateData["activity_title"] != "Escape" {
		t.Fatalf("wire template data: unexpected %+v", got.Personalizations[0].DynamicTemplateData)
	}
}

func TestSendZeroRetriesMakesSingleAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"errors":[{"message":"down"}]}`))
	}))
	defer srv.Close()

	c, err := New(logger.Nop(), Config{APIKey: "key", BaseURL: srv.URL, DefaultFromEmail: "noreply@venue.ch"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Send(context.Background(), SendEmailRequest{
		To:      []EmailAddress{{Email: "gm@venue.ch"}},
		Subject: "s",
		Text:    "t",
	})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("Send: want HTTPError 503, got %v", err)
	}
	if he.Error() != "sendgrid http 503: down" {
		t.Fatalf("HTTPError message: got %q", he.Error())
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("attempts: want=1 got=%d", n)
	}
}

func TestSendValidatesRequest(t *testing.T) {
	c, err := New(logger.Nop(), Config{APIKey: "key", BaseURL: "http://127.0.0.1:1", DefaultFromEmail: "noreply@venue.ch"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Send(context.Background(), SendEmailRequest{Subject: "s", Text: "t"}); err == nil {
		t.Fatalf("expected error for missing recipient")
	}
	if _, err := c.Send(context.Background(), SendEmailRequest{To: []EmailAddress{{Email: "a@b.c"}}}); err == nil {
		t.Fatalf("expected error for missing subject/template")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected error without api key")
	}
}
