package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// SyncHTTPConfig configures a single-call HTTP classifier.
type SyncHTTPConfig struct {
	Name     string
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// SyncHTTP calls a classifier that scores a sample in one bounded request.
// The remote contract is a POST of the base64 payload returning
// {"isFake": bool, "confidence": number}.
type SyncHTTP struct {
	cfg        SyncHTTPConfig
	httpClient *http.Client
}

// NewSyncHTTP creates a synchronous HTTP classifier.
func NewSyncHTTP(cfg SyncHTTPConfig) *SyncHTTP {
	if cfg.Name == "" {
		cfg.Name = "sync-http"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SyncHTTP{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name implements Classifier.
func (c *SyncHTTP) Name() string {
	return c.cfg.Name
}

type syncRequest struct {
	Media string `json:"media"`
}

type syncResponse struct {
	IsFake     bool    `json:"isFake"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
}

// Classify implements Classifier.
//
// The remote reports confidence in its own verdict, so the normalized
// pFake is confidence for isFake samples and 1-confidence otherwise.
func (c *SyncHTTP) Classify(ctx context.Context, data []byte) (*Verdict, error) {
	if len(data) == 0 {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "empty payload"}
	}

	body, err := json.Marshal(syncRequest{
		Media: base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "read response", Err: err}
	}

	var parsed syncResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "unmarshal response", Err: err}
	}
	if parsed.Error != "" {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: parsed.Error}
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return nil, &ProcessingError{
			Provider: c.cfg.Name,
			Detail:   fmt.Sprintf("confidence %v out of range", parsed.Confidence),
		}
	}

	pFake := parsed.Confidence
	if !parsed.IsFake {
		pFake = 1 - parsed.Confidence
	}

	return &Verdict{PFake: pFake, Latency: time.Since(start)}, nil
}

func (c *SyncHTTP) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{Provider: c.cfg.Name, Detail: resp.Status}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusPaymentRequired:
		return &RateLimitError{Provider: c.cfg.Name, RetryAfter: parseRetryAfter(resp)}
	default:
		return &ProcessingError{Provider: c.cfg.Name, Detail: "unexpected status " + resp.Status}
	}
}

func parseRetryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
