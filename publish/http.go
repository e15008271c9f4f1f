package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-cleanhttp"
)

const (
	DefaultTimeout = 5 * time.Second
	ProbeTimeout   = 2 * time.Second

	// maxErrorBody bounds how much of an error response is kept
	maxErrorBody = 1024
)

// NewHTTPClient returns a non-shared client bounded by timeout
func NewHTTPClient(timeout time.Duration) *http.Client {
	c := cleanhttp.DefaultClient()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c.Timeout = timeout
	return c
}

func joinURL(base string, elem ...string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("empty base URL")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", base, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid URL %q: scheme must be http or https", base)
	}
	return u.JoinPath(elem...).String(), nil
}

// post sends body and returns the status code and a bounded prefix of the response body
func post(ctx context.Context, client *http.Client, target, contentType string, body []byte, header http.Header) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, string(respBody), nil
}

// probe issues a GET against target and expects a 200
func probe(ctx context.Context, client *http.Client, backend, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return &DeliveryError{Backend: backend, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	if resp.StatusCode != http.StatusOK {
		return &DeliveryError{Backend: backend, StatusCode: resp.StatusCode}
	}
	return nil
}
