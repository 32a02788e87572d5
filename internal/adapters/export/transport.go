package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RetryPolicy is an explicit, configurable retry policy for transient
// transport failures. It is passed to the Transport as a first-class value.
type RetryPolicy struct {
	// MaxRetries bounds the number of retries after the initial attempt.
	MaxRetries int

	// BackoffFactor scales the sleep between attempts:
	// sleep = BackoffFactor * 2^(attempt-1) seconds.
	BackoffFactor float64

	// RetryStatuses lists the HTTP statuses treated as transient.
	RetryStatuses []int
}

// DefaultRetryPolicy retries 429 and common 5xx responses three times.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		BackoffFactor: 0.5,
		RetryStatuses: []int{http.StatusTooManyRequests, 500, 502, 503, 504},
	}
}

func (p RetryPolicy) retryable(status int) bool {
	for _, s := range p.RetryStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	secs := p.BackoffFactor * math.Pow(2, float64(attempt-1))
	return time.Duration(secs * float64(time.Second))
}

// Transport wraps an HTTP client with API-key authentication and the retry
// policy. The underlying client pools connections and is safe for concurrent
// use by the chunk-download workers.
type Transport struct {
	client    *http.Client
	policy    RetryPolicy
	baseURL   string
	accessKey string
	secretKey string
	userAgent string
}

// NewTransport builds a Transport over an otelhttp-instrumented client.
func NewTransport(baseURL, accessKey, secretKey, userAgent string, requestTimeout time.Duration, policy RetryPolicy) *Transport {
	return &Transport{
		client: &http.Client{
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		policy:    policy,
		baseURL:   baseURL,
		accessKey: accessKey,
		secretKey: secretKey,
		userAgent: userAgent,
	}
}

// Do issues method path with an optional JSON body and decodes the JSON
// response into out (when out is non-nil). Transient statuses and
// connection errors are retried per the policy; exhausting the retry
// budget surfaces a ProtocolError.
func (t *Transport) Do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= t.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := t.policy.backoff(attempt)
			slog.Debug("retrying request", "method", method, "path", path, "attempt", attempt, "wait", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		done, err := t.attempt(ctx, method, path, payload, out)
		if done {
			return err
		}
		lastErr = err
	}

	return &ProtocolError{Op: method + " " + path, Message: "retry budget exhausted", Err: lastErr}
}

// attempt performs a single request. done=false means the failure is
// transient and the caller may retry.
func (t *Transport) attempt(ctx context.Context, method, path string, payload []byte, out any) (done bool, err error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return true, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-ApiKeys", fmt.Sprintf("accessKey=%s; secretKey=%s;", t.accessKey, t.secretKey))
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return true, ctx.Err()
		}
		// Connection errors are transient.
		return false, err
	}
	defer resp.Body.Close()

	if t.policy.retryable(resp.StatusCode) {
		io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("transient status %d", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return true, &ProtocolError{
			Op:         method + " " + path,
			StatusCode: resp.StatusCode,
			Message:    string(snippet),
		}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return true, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return true, &ProtocolError{Op: method + " " + path, Message: "decode response: " + err.Error()}
	}
	return true, nil
}
