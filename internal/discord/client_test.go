package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Auth   string
	Body   map[string]any
}

// recorder is an httptest handler that stores every request.
type recorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	respond  func(w http.ResponseWriter, r *http.Request)
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var body map[string]any
	if len(data) > 0 {
		json.Unmarshal(data, &body)
	}

	rec.mu.Lock()
	rec.requests = append(rec.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Auth:   r.Header.Get("Authorization"),
		Body:   body,
	})
	rec.mu.Unlock()

	if rec.respond != nil {
		rec.respond(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rec *recorder) all() []recordedRequest {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]recordedRequest(nil), rec.requests...)
}

func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient("https://discord.com/api/v10", staticToken("tok"))

		if c.baseURL != "https://discord.com/api/v10" {
			t.Errorf("baseURL = %q, want %q", c.baseURL, "https://discord.com/api/v10")
		}
		if c.httpClient.Timeout != 15*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 15*time.Second)
		}
		if c.maxRetries != 3 {
			t.Errorf("maxRetries = %d, want %d", c.maxRetries, 3)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		c := NewClient("https://discord.com/api/v10", staticToken("tok"),
			WithTimeout(5*time.Second),
			WithRetries(1, 10*time.Millisecond),
			WithLogger(logger),
			WithProxy("https://proxy.example"),
		)
		if c.httpClient.Timeout != 5*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 5*time.Second)
		}
		if c.maxRetries != 1 || c.retryBackoff != 10*time.Millisecond {
			t.Errorf("retries = %d/%v", c.maxRetries, c.retryBackoff)
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
		if c.proxyURL != "https://proxy.example" {
			t.Errorf("proxyURL = %q", c.proxyURL)
		}
	})
}

func TestAPIError(t *testing.T) {
	err := &APIError{StatusCode: 403, Message: "Missing Access"}
	if err.Error() != "discord api error 403: Missing Access" {
		t.Errorf("Error() = %q", err.Error())
	}

	tests := []struct {
		code     int
		expected bool
	}{
		{500, true},
		{502, true},
		{429, true},
		{400, false},
		{401, false},
		{404, false},
	}
	for _, tt := range tests {
		err := &APIError{StatusCode: tt.code}
		if got := err.IsRetryable(); got != tt.expected {
			t.Errorf("IsRetryable() for status %d = %v, want %v", tt.code, got, tt.expected)
		}
	}
}

func TestOpenDMChannel(t *testing.T) {
	rec := &recorder{respond: func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chan-9","type":1}`))
	}}
	server := httptest.NewServer(rec)
	defer server.Close()

	c := NewClient(server.URL, staticToken("tok"))
	id, err := c.OpenDMChannel(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("OpenDMChannel failed: %v", err)
	}
	if id != "chan-9" {
		t.Errorf("channel id = %q, want chan-9", id)
	}

	reqs := rec.all()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	r := reqs[0]
	if r.Method != http.MethodPost || r.Path != "/users/@me/channels" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
	if r.Auth != "Bot tok" {
		t.Errorf("Authorization = %q, want %q", r.Auth, "Bot tok")
	}
	if r.Body["recipient_id"] != "user-1" {
		t.Errorf("recipient_id = %v", r.Body["recipient_id"])
	}
}

func TestSendMessage_ChunksAndReply(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	c := NewClient(server.URL, staticToken("tok"))
	content := strings.Repeat("a", MaxChunk) + strings.Repeat("b", 15)

	if err := c.SendMessage(context.Background(), "c1", content, "m1"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	reqs := rec.all()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	if reqs[0].Path != "/channels/c1/messages" {
		t.Errorf("path = %q", reqs[0].Path)
	}
	if got := reqs[0].Body["content"].(string); len(got) != MaxChunk {
		t.Errorf("first chunk len = %d, want %d", len(got), MaxChunk)
	}
	ref, ok := reqs[0].Body["message_reference"].(map[string]any)
	if !ok || ref["message_id"] != "m1" {
		t.Errorf("message_reference = %v", reqs[0].Body["message_reference"])
	}
	if _, ok := reqs[1].Body["message_reference"]; ok {
		t.Error("only the first chunk should be a reply")
	}
	if reqs[1].Body["content"] != strings.Repeat("b", 15) {
		t.Errorf("second chunk = %v", reqs[1].Body["content"])
	}
}

func TestSendMessage_Empty(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	c := NewClient(server.URL, staticToken("tok"))
	if err := c.SendMessage(context.Background(), "c1", "", ""); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if n := len(rec.all()); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
}

func TestAddReactionAndTyping(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	c := NewClient(server.URL, staticToken("tok"))
	ctx := context.Background()

	if err := c.AddReaction(ctx, "c1", "m1", "👀"); err != nil {
		t.Fatalf("AddReaction failed: %v", err)
	}
	if err := c.TriggerTyping(ctx, "c1"); err != nil {
		t.Fatalf("TriggerTyping failed: %v", err)
	}

	reqs := rec.all()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	if reqs[0].Method != http.MethodPut || reqs[0].Path != "/channels/c1/messages/m1/reactions/👀/@me" {
		t.Errorf("reaction request = %s %s", reqs[0].Method, reqs[0].Path)
	}
	if reqs[1].Method != http.MethodPost || reqs[1].Path != "/channels/c1/typing" {
		t.Errorf("typing request = %s %s", reqs[1].Method, reqs[1].Path)
	}
}

func TestProxyRouting(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(rec)
	defer server.Close()

	c := NewClient("https://discord.com/api/v10", staticToken("tok"), WithProxy(server.URL+"/"))
	if err := c.TriggerTyping(context.Background(), "c1"); err != nil {
		t.Fatalf("TriggerTyping failed: %v", err)
	}

	reqs := rec.all()
	if len(reqs) != 1 {
		t.Fatalf("requests = %d, want 1", len(reqs))
	}
	want := "url=https%3A%2F%2Fdiscord.com%2Fapi%2Fv10%2Fchannels%2Fc1%2Ftyping"
	if reqs[0].Query != want {
		t.Errorf("query = %q, want %q", reqs[0].Query, want)
	}
}

func TestNoToken(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	c := NewClient(server.URL, staticToken(""))
	err := c.TriggerTyping(context.Background(), "c1")
	if !errors.Is(err, ErrNoToken) {
		t.Errorf("err = %v, want ErrNoToken", err)
	}
	if calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", calls.Load())
	}
}

func TestRetry(t *testing.T) {
	t.Run("retries server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		c := NewClient(server.URL, staticToken("tok"), WithRetries(3, time.Millisecond))
		if err := c.TriggerTyping(context.Background(), "c1"); err != nil {
			t.Fatalf("TriggerTyping failed: %v", err)
		}
		if calls.Load() != 3 {
			t.Errorf("calls = %d, want 3", calls.Load())
		}
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"message":"Missing Permissions","code":50013}`))
		}))
		defer server.Close()

		c := NewClient(server.URL, staticToken("tok"), WithRetries(3, time.Millisecond))
		err := c.AddReaction(context.Background(), "c1", "m1", "👀")

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("err = %v, want APIError", err)
		}
		if apiErr.StatusCode != http.StatusForbidden || apiErr.Message != "Missing Permissions" {
			t.Errorf("apiErr = %+v", apiErr)
		}
		if calls.Load() != 1 {
			t.Errorf("calls = %d, want 1", calls.Load())
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		c := NewClient(server.URL, staticToken("tok"), WithRetries(2, time.Millisecond))
		err := c.TriggerTyping(context.Background(), "c1")
		if err == nil || !strings.Contains(err.Error(), "max retries exceeded") {
			t.Errorf("err = %v, want max retries exceeded", err)
		}
	})
}

func TestSplitContent(t *testing.T) {
	if got := SplitContent("", 10); len(got) != 0 {
		t.Errorf("SplitContent(empty) = %v", got)
	}

	got := SplitContent("héllo wörld", 4)
	want := []string{"héll", "o wö", "rld"}
	if len(got) != len(want) {
		t.Fatalf("SplitContent = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}
