package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTPSender delivers queued payloads by POSTing them as JSON to a fixed
// endpoint, typically the server's form submission route.
type HTTPSender struct {
	client   *http.Client
	endpoint string
	header   http.Header
}

// SenderOption configures an HTTPSender.
type SenderOption func(*HTTPSender)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) SenderOption {
	return func(s *HTTPSender) {
		if c != nil {
			s.client = c
		}
	}
}

// WithHeader adds a header to every delivery request, for example a session
// cookie or bearer token.
func WithHeader(key, value string) SenderOption {
	return func(s *HTTPSender) {
		s.header.Set(key, value)
	}
}

// NewHTTPSender constructs a sender targeting the given endpoint URL.
func NewHTTPSender(endpoint string, opts ...SenderOption) *HTTPSender {
	s := &HTTPSender{
		client:   &http.Client{Timeout: sendTimeout},
		endpoint: endpoint,
		header:   make(http.Header),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send posts the payload and treats any non-2xx response as a failed
// delivery so the entry stays queued for a later retry.
func (s *HTTPSender) Send(ctx context.Context, payload json.RawMessage) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range s.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivering submission: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := resp.Header.Get("Retry-After")
			if retryAfter != "" {
				return fmt.Errorf("delivery rate limited, retry after %ss", retryAfter)
			}
		}
		return fmt.Errorf("delivery rejected with status %d", resp.StatusCode)
	}
	return nil
}

var _ Sender = (*HTTPSender)(nil)
