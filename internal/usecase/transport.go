package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"election-agent/internal/domain"
)

const (
	errorBodyLimit    = 4096
	responseBodyLimit = 1 << 20
)

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPStatusError captures non-2xx upstream responses with status-aware context.
type HTTPStatusError struct {
	Provider   domain.Provider
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d from %s: %s", e.Provider, e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}

// send performs exactly one POST for pr and returns the raw 2xx body.
func send(ctx context.Context, doer HTTPDoer, provider domain.Provider, pr domain.ProviderRequest) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pr.URL, bytes.NewReader(pr.Body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", provider, err)
	}
	for k, vs := range pr.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	res, err := doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", provider, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, errorBodyLimit))
		return nil, &HTTPStatusError{
			Provider:   provider,
			StatusCode: res.StatusCode,
			URL:        pr.URL,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, responseBodyLimit))
	if err != nil {
		return nil, fmt.Errorf("%s: read response body: %w", provider, err)
	}
	return buf, nil
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
