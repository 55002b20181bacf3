/*
Package api implements the REST client for the persistence collaborator.

It encapsulates the session/auth endpoints the client needs to establish identity,
plus the messaging endpoints the sync engine consumes: the registered-user roster,
conversation summaries, message history pages, durable writes, and read marks.
Field-name normalization into the engine's canonical structs happens here, at the
collaborator boundary, and nowhere else.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/rs/zerolog"

	"forumchat/internal/pkg/errs"
	"forumchat/internal/pkg/logx"
)

// requestTimeout bounds every persistence call. Persistence errors are not
// retried automatically; a hung call would otherwise stall its logical flow
// indefinitely.
const requestTimeout = 10 * time.Second

// Client is the HTTP client for the persistence collaborator.
// The session cookie issued at login lives in the jar; the identity token from
// the login response is kept for claims-based expiry checks.
type Client struct {
	// baseURL is the collaborator's base URL without a trailing slash.
	baseURL string

	// httpClient carries the cookie jar and the logging transport.
	httpClient *http.Client

	// structured logger with Client context.
	logger zerolog.Logger
}

// NewClient constructs a Client for the given base URL.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Jar:       jar,
			Timeout:   requestTimeout,
			Transport: &logx.LoggingTransport{},
		},
		logger: logx.Logger().With().Str("component", "APIClient").Logger(),
	}, nil
}

// doJSON performs one JSON request/response round trip. A nil body sends no
// payload; a nil dst discards the response body. Transport-level failures map to
// ErrPersistenceUnavailable; non-2xx statuses are returned for the caller to map
// onto its operation-specific error code.
func (c *Client) doJSON(ctx context.Context, method, path string, body, dst any) (int, *errs.CustomError) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			c.logger.Error().Err(err).Str("path", path).Msg("Failed to encode request body")
			return 0, errs.NewError(errs.ErrUnknown, err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, errs.NewError(errs.ErrUnknown, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("path", path).Msg("Persistence API unreachable")
		return 0, errs.NewError(errs.ErrPersistenceUnavailable)
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 && dst != nil {
		if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
			c.logger.Error().Err(err).Str("path", path).Msg("Failed to decode response body")
			return res.StatusCode, errs.NewError(errs.ErrUnknown, err)
		}
	}

	return res.StatusCode, nil
}
