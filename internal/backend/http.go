package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/Iron-Ham/quorum/internal/errors"
)

// MaxErrorBodySize limits how much of an error response body is read (1MB).
const MaxErrorBodySize = 1 * 1024 * 1024

// maxErrorSnippet is how much of the error body ends up in the message.
const maxErrorSnippet = 512

func readLimitedBody(r io.Reader, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBytes))
}

// httpCaller performs JSON POST requests and classifies every failure.
type httpCaller struct {
	id     string
	client *http.Client
}

// postJSON sends payload to url and decodes a 2xx response into out.
func (c *httpCaller) postJSON(ctx context.Context, url string, headers map[string]string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewBackendError(errors.KindMalformed, c.id, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.NewBackendError(errors.KindUnavailable, c.id, "create request", err).WithRetryable(false)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := readLimitedBody(resp.Body, MaxErrorBodySize)
		return c.statusError(resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return c.transportError(ctx, err)
		}
		return errors.NewBackendError(errors.KindMalformed, c.id, "decode response", err)
	}
	return nil
}

// transportError classifies a failure that produced no HTTP response.
func (c *httpCaller) transportError(ctx context.Context, err error) *errors.BackendError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.NewBackendError(errors.KindTimeout, c.id, "request timed out", err)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return errors.NewBackendError(errors.KindCanceled, c.id, "request canceled", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return errors.NewBackendError(errors.KindTimeout, c.id, "request timed out", err)
	default:
		return errors.NewBackendError(errors.KindUnavailable, c.id, "request failed", err)
	}
}

// statusError maps a non-2xx status to a failure kind.
func (c *httpCaller) statusError(status int, body []byte) *errors.BackendError {
	msg := fmt.Sprintf("HTTP %d", status)
	if s := strings.TrimSpace(string(body)); s != "" {
		if len(s) > maxErrorSnippet {
			s = s[:maxErrorSnippet] + "..."
		}
		msg += ": " + s
	}

	var be *errors.BackendError
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		be = errors.NewBackendError(errors.KindAuth, c.id, msg, nil)
	case status == http.StatusTooManyRequests:
		be = errors.NewBackendError(errors.KindRateLimited, c.id, msg, nil)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		be = errors.NewBackendError(errors.KindTimeout, c.id, msg, nil)
	default:
		// Only server-side failures are worth retrying.
		be = errors.NewBackendError(errors.KindUnavailable, c.id, msg, nil).WithRetryable(status >= 500)
	}
	return be.WithStatusCode(status)
}

// missingKey is returned before any request when a key is required.
func missingKey(id string) error {
	return errors.NewBackendError(errors.KindAuth, id, "API key not configured", nil)
}
