/*
Package logx provides a structured logging wrapper based on zerolog.

This file contains an http.RoundTripper decorator used to log the lifecycle of
outbound API requests, including method, URL path, response status, and latency.
*/
package logx

import (
	"net/http"
	"time"
)

// LoggingTransport is an http.RoundTripper that logs every outbound request made
// through it. It wraps an inner transport (http.DefaultTransport when nil).
type LoggingTransport struct {
	// Inner is the transport that actually performs the request.
	Inner http.RoundTripper
}

// RoundTrip performs the request via the inner transport and logs the outcome.
// Responses with status >= 500 are logged at Error level, >= 400 at Warn level.
func (t *LoggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	inner := t.Inner
	if inner == nil {
		inner = http.DefaultTransport
	}

	logger := Logger().With().
		Str("component", "api_http").
		Str("request_method", r.Method).
		Str("request_path", r.URL.Path).
		Logger()

	t1 := time.Now()
	res, err := inner.RoundTrip(r)
	if err != nil {
		logger.Error().Err(err).Dur("latency", time.Since(t1)).Msg("Request failed")
		return nil, err
	}

	logEvent := logger.Debug()
	if res.StatusCode >= 500 {
		logEvent = logger.Error()
	} else if res.StatusCode >= 400 {
		logEvent = logger.Warn()
	}

	logEvent.
		Int("status", res.StatusCode).
		Dur("latency", time.Since(t1)).
		Msg("Request completed")

	return res, nil
}
