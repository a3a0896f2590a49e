package classifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func syncServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestSyncHTTP_NormalizesFakeVerdict(t *testing.T) {
	srv := syncServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%s, want POST", r.Method)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization=%q", auth)
		}

		var req syncRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		payload, err := base64.StdEncoding.DecodeString(req.Media)
		if err != nil {
			t.Fatalf("payload not base64: %v", err)
		}
		if string(payload) != "image-bytes" {
			t.Errorf("payload=%q", payload)
		}

		json.NewEncoder(w).Encode(syncResponse{IsFake: true, Confidence: 0.85})
	})

	c := NewSyncHTTP(SyncHTTPConfig{Endpoint: srv.URL, APIKey: "test-key"})
	verdict, err := c.Classify(context.Background(), []byte("image-bytes"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.PFake != 0.85 {
		t.Errorf("pFake=%v, want 0.85", verdict.PFake)
	}
	if verdict.Latency <= 0 {
		t.Errorf("latency=%v, want > 0", verdict.Latency)
	}
}

func TestSyncHTTP_NormalizesRealVerdict(t *testing.T) {
	srv := syncServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(syncResponse{IsFake: false, Confidence: 0.9})
	})

	c := NewSyncHTTP(SyncHTTPConfig{Endpoint: srv.URL})
	verdict, err := c.Classify(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(verdict.PFake-0.1) > 1e-9 {
		t.Errorf("pFake=%v, want 0.1", verdict.PFake)
	}
}

func TestSyncHTTP_AuthError(t *testing.T) {
	srv := syncServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	c := NewSyncHTTP(SyncHTTPConfig{Endpoint: srv.URL})
	_, err := c.Classify(context.Background(), []byte("x"))

	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("err=%v, want *AuthError", err)
	}
}

func TestSyncHTTP_RateLimitError(t *testing.T) {
	srv := syncServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	c := NewSyncHTTP(SyncHTTPConfig{Endpoint: srv.URL})
	_, err := c.Classify(context.Background(), []byte("x"))

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("err=%v, want *RateLimitError", err)
	}
	if rateErr.RetryAfter != 30*time.Second {
		t.Errorf("retryAfter=%v, want 30s", rateErr.RetryAfter)
	}
}

func TestSyncHTTP_QuotaExhaustedIsRateLimit(t *testing.T) {
	srv := syncServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	})

	c := NewSyncHTTP(SyncHTTPConfig{Endpoint: srv.URL})
	_, err := c.Classify(context.Background(), []byte("x"))

	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("err=%v, want *RateLimitError for quota exhaustion", err)
	}
}

func TestSyncHTTP_ServerErrorIsProcessingError(t *testing.T) {
	srv := syncServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := NewSyncHTTP(SyncHTTPConfig{Endpoint: srv.URL})
	_, err := c.Classify(context.Background(), []byte("x"))

	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("err=%v, want *ProcessingError", err)
	}
}

func TestSyncHTTP_ConfidenceOutOfRange(t *testing.T) {
	srv := syncServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(syncResponse{IsFake: true, Confidence: 87})
	})

	c := NewSyncHTTP(SyncHTTPConfig{Endpoint: srv.URL})
	_, err := c.Classify(context.Background(), []byte("x"))

	var procErr *ProcessingError
	if !errors.As(err, &procErr) {
		t.Fatalf("err=%v, want *ProcessingError", err)
	}
}

func TestSyncHTTP_EmptyPayload(t *testing.T) {
	c := NewSyncHTTP(SyncHTTPConfig{Endpoint: "http://unused"})
	_, err := c.Classify(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for empty payload")
	}
}
