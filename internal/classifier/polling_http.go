package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/veriscope/veriscope/internal/poll"
)

// PollingHTTPConfig configures an asynchronous classifier that requires a
// presign/upload/poll cycle.
type PollingHTTPConfig struct {
	Name            string
	BaseURL         string
	APIKey          string
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
}

// PollingHTTP talks to a classifier whose jobs complete asynchronously:
// request an upload target, PUT the payload, then poll the result endpoint
// until the job reports a score or the attempt budget runs out.
type PollingHTTP struct {
	cfg        PollingHTTPConfig
	httpClient *http.Client
}

// NewPollingHTTP creates an asynchronous polling classifier.
func NewPollingHTTP(cfg PollingHTTPConfig) *PollingHTTP {
	if cfg.Name == "" {
		cfg.Name = "polling-http"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.MaxPollAttempts <= 0 {
		cfg.MaxPollAttempts = 20
	}
	return &PollingHTTP{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
	}
}

// Name implements Classifier.
func (c *PollingHTTP) Name() string {
	return c.cfg.Name
}

type presignResponse struct {
	RequestID string `json:"requestId"`
	UploadURL string `json:"uploadUrl"`
}

type jobStatusResponse struct {
	Status string  `json:"status"` // "processing", "completed", "failed"
	Score  float64 `json:"score"`
	Detail string  `json:"detail,omitempty"`
}

// Classify implements Classifier.
func (c *PollingHTTP) Classify(ctx context.Context, data []byte) (*Verdict, error) {
	if len(data) == 0 {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "empty payload"}
	}

	start := time.Now()

	presigned, err := c.presign(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.upload(ctx, presigned.UploadURL, data); err != nil {
		return nil, err
	}

	var score float64
	err = poll.Until(ctx, c.cfg.MaxPollAttempts, c.cfg.PollInterval, func(ctx context.Context) (bool, error) {
		status, err := c.jobStatus(ctx, presigned.RequestID)
		if err != nil {
			return false, err
		}
		switch status.Status {
		case "completed":
			score = status.Score
			return true, nil
		case "failed":
			return false, &ProcessingError{Provider: c.cfg.Name, Detail: "remote job failed: " + status.Detail}
		default:
			return false, nil
		}
	})
	if errors.Is(err, poll.ErrExhausted) {
		return nil, &TimeoutError{Provider: c.cfg.Name, Attempts: c.cfg.MaxPollAttempts}
	}
	if err != nil {
		return nil, err
	}

	if score < 0 || score > 1 {
		return nil, &ProcessingError{
			Provider: c.cfg.Name,
			Detail:   fmt.Sprintf("score %v out of range", score),
		}
	}

	return &Verdict{PFake: score, Latency: time.Since(start)}, nil
}

func (c *PollingHTTP) presign(ctx context.Context) (*presignResponse, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/uploads"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "build presign request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "presign request failed", Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var parsed presignResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "unmarshal presign response", Err: err}
	}
	if parsed.RequestID == "" || parsed.UploadURL == "" {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "incomplete presign response"}
	}

	return &parsed, nil
}

func (c *PollingHTTP) upload(ctx context.Context, uploadURL string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return &ProcessingError{Provider: c.cfg.Name, Detail: "build upload request", Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProcessingError{Provider: c.cfg.Name, Detail: "upload failed", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		return &ProcessingError{Provider: c.cfg.Name, Detail: "upload returned " + resp.Status}
	}

	return nil
}

func (c *PollingHTTP) jobStatus(ctx context.Context, requestID string) (*jobStatusResponse, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/v1/results/" + requestID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "build status request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "status request failed", Err: err}
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}

	var parsed jobStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &ProcessingError{Provider: c.cfg.Name, Detail: "unmarshal status response", Err: err}
	}

	return &parsed, nil
}

func (c *PollingHTTP) checkStatus(resp *http.Response) error {
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
