/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures the chat client by reading operating system environment variables,
including the persistence API base URL, the WebSocket endpoint, reconnect backoff
parameters, history pagination, and the periodic reconciliation interval.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// AppConfig contains all configuration parameters required for the chat client to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Settings
	Environment string

	// Endpoints
	ServerURL string // base URL of the persistence API
	WSURL     string // WebSocket endpoint of the live push channel

	// Reconnect Settings
	ReconnectBase        time.Duration
	ReconnectMax         time.Duration
	ReconnectMaxAttempts int

	// Conversation Settings
	HistoryPageSize  int
	MaxMessageLength int

	// Reconciliation poll interval for roster and conversation summaries.
	RefreshInterval time.Duration

	// Outbound Send Limiting
	SendRate  float64
	SendBurst int

	// RequirePeerOnline enforces the policy that outbound sending is only
	// permitted while the active conversation's peer is online.
	RequirePeerOnline bool
}

// LoadConfig reads and parses the application configuration from environment variables.
// It provides default values for each configuration item and performs necessary type
// conversions and validation. It returns a pointer to the AppConfig struct and any
// error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Settings ---
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// --- Endpoints ---
	cfg.ServerURL = os.Getenv("SERVER_URL")
	if cfg.ServerURL == "" {
		cfg.ServerURL = "http://localhost:8083"
	}
	if _, err := url.Parse(cfg.ServerURL); err != nil {
		return nil, fmt.Errorf("invalid SERVER_URL environment variable: %w", err)
	}

	cfg.WSURL = os.Getenv("WS_URL")
	if cfg.WSURL == "" {
		cfg.WSURL = "ws://localhost:8083/ws"
	}
	wsParsed, err := url.Parse(cfg.WSURL)
	if err != nil {
		return nil, fmt.Errorf("invalid WS_URL environment variable: %w", err)
	}
	if wsParsed.Scheme != "ws" && wsParsed.Scheme != "wss" {
		return nil, fmt.Errorf("WS_URL scheme must be ws or wss, got %q", wsParsed.Scheme)
	}

	// --- Reconnect Settings ---
	baseMS, err := intFromEnv("RECONNECT_BASE_MS", 1000)
	if err != nil {
		return nil, err
	}
	cfg.ReconnectBase = time.Duration(baseMS) * time.Millisecond

	maxMS, err := intFromEnv("RECONNECT_MAX_MS", 30000)
	if err != nil {
		return nil, err
	}
	cfg.ReconnectMax = time.Duration(maxMS) * time.Millisecond

	if cfg.ReconnectMax < cfg.ReconnectBase {
		return nil, fmt.Errorf("RECONNECT_MAX_MS (%d) must not be below RECONNECT_BASE_MS (%d)", maxMS, baseMS)
	}

	cfg.ReconnectMaxAttempts, err = intFromEnv("RECONNECT_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}

	// --- Conversation Settings ---
	cfg.HistoryPageSize, err = intFromEnv("HISTORY_PAGE_SIZE", 10)
	if err != nil {
		return nil, err
	}
	if cfg.HistoryPageSize < 1 {
		return nil, fmt.Errorf("HISTORY_PAGE_SIZE must be positive, got %d", cfg.HistoryPageSize)
	}

	cfg.MaxMessageLength, err = intFromEnv("MAX_MESSAGE_LENGTH", 500)
	if err != nil {
		return nil, err
	}

	refreshMS, err := intFromEnv("REFRESH_INTERVAL_MS", 30000)
	if err != nil {
		return nil, err
	}
	cfg.RefreshInterval = time.Duration(refreshMS) * time.Millisecond

	// --- Outbound Send Limiting ---
	rateStr := os.Getenv("SEND_RATE")
	if rateStr == "" {
		rateStr = "2"
	}
	cfg.SendRate, err = strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid SEND_RATE environment variable: %w", err)
	}

	cfg.SendBurst, err = intFromEnv("SEND_BURST", 5)
	if err != nil {
		return nil, err
	}

	// --- Send Policy ---
	onlineStr := os.Getenv("REQUIRE_PEER_ONLINE")
	if onlineStr == "" {
		cfg.RequirePeerOnline = true
	} else {
		cfg.RequirePeerOnline, err = strconv.ParseBool(onlineStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REQUIRE_PEER_ONLINE environment variable: %w", err)
		}
	}

	return cfg, nil
}

// intFromEnv reads an integer environment variable, falling back to def when unset.
func intFromEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}

	return value, nil
}
