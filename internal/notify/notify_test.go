package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"streakwatch/pkg/logx"
)

func newTestResend(t *testing.T, handler http.HandlerFunc) *ResendChannel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	ch, err := NewResendChannel(ResendConfig{APIKey: "re_test", BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewResendChannel: %v", err)
	}
	return ch
}

func TestResendSend(t *testing.T) {
	t.Parallel()
	var gotAuth string
	var gotReq resendRequest
	ch := newTestResend(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/emails" {
			t.Errorf("path = %s, want /emails", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"id":"4ef0945f"}`))
	})

	id, err := ch.Send(context.Background(), Message{
		From:    "bot@example.com",
		To:      "dev@example.com",
		Subject: "hello",
		HTML:    "<p>hi</p>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "4ef0945f" {
		t.Fatalf("delivery id = %q", id)
	}
	if gotAuth != "Bearer re_test" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if len(gotReq.To) != 1 || gotReq.To[0] != "dev@example.com" {
		t.Fatalf("to = %v", gotReq.To)
	}
}

func TestResendSendProviderError(t *testing.T) {
	t.Parallel()
	ch := newTestResend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"Invalid to address"}`))
	})

	_, err := ch.Send(context.Background(), Message{From: "a@b.c", To: "bad"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "Invalid to address") {
		t.Fatalf("err = %v, want provider message included", err)
	}
}

func TestResendSendMissingID(t *testing.T) {
	t.Parallel()
	ch := newTestResend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	if _, err := ch.Send(context.Background(), Message{From: "a@b.c", To: "d@e.f"}); err == nil {
		t.Fatal("expected error for missing delivery id")
	}
}

type stubChannel struct {
	name  string
	err   error
	calls int
}

func (s *stubChannel) Name() string { return s.name }
func (s *stubChannel) Send(ctx context.Context, msg Message) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "id-1", nil
}

func TestNotifierCollapsesErrorsToBool(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "accepted", err: nil, want: true},
		{name: "provider failure", err: errors.New("rate limited"), want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ch := &stubChannel{name: "email", err: tt.err}
			n := NewNotifier([]Channel{ch}, "bot@example.com", "dev@example.com", logx.Nop())
			if got := n.SendReminder(context.Background(), "octocat"); got != tt.want {
				t.Fatalf("SendReminder = %v, want %v", got, tt.want)
			}
			// Exactly one delivery attempt per call, never a retry.
			if ch.calls != 1 {
				t.Fatalf("calls = %d, want 1", ch.calls)
			}
		})
	}
}

func TestNotifierMultiChannel(t *testing.T) {
	t.Parallel()
	email := &stubChannel{name: "email"}
	tg := &stubChannel{name: "telegram", err: errors.New("chat not found")}
	n := NewNotifier([]Channel{email, tg}, "bot@example.com", "dev@example.com", logx.Nop())

	if n.SendReminder(context.Background(), "octocat") {
		t.Fatal("expected false when any channel fails")
	}
	if email.calls != 1 || tg.calls != 1 {
		t.Fatalf("all channels must be attempted: email=%d tg=%d", email.calls, tg.calls)
	}
}

func TestNotifierNoChannels(t *testing.T) {
	t.Parallel()
	n := NewNotifier(nil, "a@b.c", "d@e.f", logx.Nop())
	if n.SendReminder(context.Background(), "octocat") {
		t.Fatal("expected false with no channels")
	}
}

func TestBuildReminderEscapesLogin(t *testing.T) {
	t.Parallel()
	msg := buildReminder("bot@example.com", "dev@example.com", "<script>")
	if strings.Contains(msg.HTML, "<script>") {
		t.Fatal("login not escaped in HTML body")
	}
	if !strings.Contains(msg.Subject, "<script>") {
		// Subject is plain text; the raw login is fine there.
		t.Fatal("subject should reference the login")
	}
}
