package genai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCompleteVision(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("authorization=%q", auth)
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model=%q", req.Model)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("messages=%d, want 2", len(req.Messages))
		}
		if req.Messages[0].Role != "system" {
			t.Errorf("first role=%q, want system", req.Messages[0].Role)
		}

		w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	t.Cleanup(srv.Close)

	c := New(Config{Endpoint: srv.URL, APIKey: "key", Model: "test-model"})
	out, err := c.CompleteVision(context.Background(), "system prompt", "user prompt", []byte("img"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hello" {
		t.Errorf("content=%q", out)
	}
}

func TestCompleteVision_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
	}))
	t.Cleanup(srv.Close)

	c := New(Config{Endpoint: srv.URL})
	_, err := c.CompleteVision(context.Background(), "", "prompt", nil)
	if err == nil || !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("err=%v, want API error surfaced", err)
	}
}

func TestCompleteVision_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	c := New(Config{Endpoint: srv.URL})
	if _, err := c.CompleteVision(context.Background(), "", "prompt", nil); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"{\"a\":1}", "{\"a\":1}"},
		{"```json\n{\"a\":1}\n```", "{\"a\":1}"},
		{"```\n{\"a\":1}\n```", "{\"a\":1}"},
		{"  {\"a\":1}  ", "{\"a\":1}"},
	}
	for _, tt := range tests {
		if got := StripFences(tt.in); got != tt.want {
			t.Errorf("StripFences(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}
