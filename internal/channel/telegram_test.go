package channel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTelegramSendText(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	ch := NewTelegramChannel("123:abc", srv.URL)
	if ch.Name() != "telegram" {
		t.Fatalf("unexpected channel name %q", ch.Name())
	}
	if err := ch.SendText(context.Background(), "42", "chain finished"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if gotPath != "/bot123:abc/sendMessage" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody["chat_id"] != "42" || gotBody["text"] != "chain finished" {
		t.Fatalf("unexpected body %v", gotBody)
	}
}

func TestTelegramSendTextErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok": false, "description": "bad token"}`))
	}))
	defer srv.Close()

	err := NewTelegramChannel("123:abc", srv.URL).SendText(context.Background(), "42", "hello")
	if err == nil {
		t.Fatalf("expected error for 401")
	}
	if !strings.Contains(err.Error(), "401") || !strings.Contains(err.Error(), "bad token") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestTelegramSendTextValidation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Errorf("no request should be made")
	}))
	defer srv.Close()

	if err := NewTelegramChannel("", srv.URL).SendText(context.Background(), "42", "hello"); err == nil {
		t.Fatalf("missing token must be an error")
	}
	if err := NewTelegramChannel("123:abc", srv.URL).SendText(context.Background(), "", "hello"); err == nil {
		t.Fatalf("missing chat id must be an error")
	}
	// Empty text is dropped quietly, not delivered.
	if err := NewTelegramChannel("123:abc", srv.URL).SendText(context.Background(), "42", "  "); err != nil {
		t.Fatalf("empty text should be a no-op, got %v", err)
	}
}
