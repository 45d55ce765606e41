package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealthz(t *testing.T) {
	cases := []struct {
		name string
		db   Pinger
		code int
		body string
	}{
		{"no database", nil, http.StatusOK, "ok"},
		{"database up", pingerFunc(func(context.Context) error { return nil }), http.StatusOK, "ok"},
		{"database down", pingerFunc(func(context.Context) error { return errors.New("refused") }), http.StatusServiceUnavailable, "db: not ok\nrefused"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewRouter(Options{DB: c.db}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != c.code || rec.Body.String() != c.body {
				t.Errorf("got %d %q, want %d %q", rec.Code, rec.Body.String(), c.code, c.body)
			}
		})
	}
}

func TestWebhook(t *testing.T) {
	updates := make(chan tgbotapi.Update, 1)
	h := NewRouter(Options{
		WebhookPath: "/webhook/abc",
		Decoder:     &tgbotapi.BotAPI{},
		Updates:     updates,
	})

	body := `{"update_id": 7, "message": {"message_id": 1, "chat": {"id": 42}, "text": "/start"}}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/abc", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	select {
	case upd := <-updates:
		if upd.UpdateID != 7 || upd.Message == nil || upd.Message.Chat.ID != 42 {
			t.Errorf("unexpected update %+v", upd)
		}
	default:
		t.Fatal("update not forwarded")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/abc", strings.NewReader("{")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad body: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook/abc", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET webhook: status %d", rec.Code)
	}
}

func TestWebhookDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(Options{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook/abc", strings.NewReader("{}")))
	if rec.Code != http.StatusNotFound {
		t.Errorf("webhook route without decoder: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewRouter(Options{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Body.String() != "homework grader bot" {
		t.Errorf("root: %q", rec.Body.String())
	}
}
