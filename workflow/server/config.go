// ABOUTME: Server configuration loaded from NODER_* environment variables.
// ABOUTME: Enforces security constraint: non-loopback binds require explicit opt-in.
package server

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// ErrRemoteWithoutToken and ErrNonLoopbackBind reject configurations that
// would accept remote connections without authentication.
var (
	ErrRemoteWithoutToken = errors.New(
		"NODER_ALLOW_REMOTE is true but NODER_AUTH_TOKEN is not set; refusing to start without authentication",
	)
	ErrNonLoopbackBind = errors.New(
		"NODER_BIND is a non-loopback address but NODER_ALLOW_REMOTE is not true; set NODER_ALLOW_REMOTE=true and NODER_AUTH_TOKEN to allow remote access",
	)
)

// MirrorMemory and MirrorSqlite are the accepted NODER_MIRROR values.
const (
	MirrorMemory = "memory"
	MirrorSqlite = "sqlite"
)

// Config holds server configuration loaded from environment variables.
type Config struct {
	DataDir     string        // Data directory (NODER_DATA_DIR, default: ~/.noder)
	Bind        string        // Socket address (NODER_BIND, default: 127.0.0.1:7870)
	AllowRemote bool          // Allow non-loopback connections (NODER_ALLOW_REMOTE, default: false)
	AuthToken   string        // Bearer token for API auth (NODER_AUTH_TOKEN, optional)
	Mirror      string        // Mirror driver: memory or sqlite (NODER_MIRROR, default: memory)
	MaxHistory  int           // Undo depth per session (NODER_MAX_HISTORY, default: 50)
	Debounce    time.Duration // Snapshot coalescing window (NODER_DEBOUNCE_MS, default: 300ms)
	MaxSessions int           // Session store capacity (NODER_MAX_SESSIONS, default: 200)
	SessionTTL  time.Duration // Idle session lifetime (NODER_SESSION_TTL, default: 24h)
}

// ConfigFromEnv loads configuration from NODER_* environment variables with
// sensible defaults.
func ConfigFromEnv() (*Config, error) {
	dataDir := envOrDefault("NODER_DATA_DIR", "")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			homeDir = "/tmp"
		}
		dataDir = filepath.Join(homeDir, ".noder")
	}

	bind := envOrDefault("NODER_BIND", "127.0.0.1:7870")

	allowRemote := false
	if v := os.Getenv("NODER_ALLOW_REMOTE"); v == "true" || v == "1" || v == "yes" {
		allowRemote = true
	}

	authToken := os.Getenv("NODER_AUTH_TOKEN")

	mirror := envOrDefault("NODER_MIRROR", MirrorMemory)
	if mirror != MirrorMemory && mirror != MirrorSqlite {
		return nil, fmt.Errorf("invalid NODER_MIRROR %q: must be %q or %q", mirror, MirrorMemory, MirrorSqlite)
	}

	maxHistory, err := envInt("NODER_MAX_HISTORY", 50)
	if err != nil {
		return nil, err
	}
	debounceMS, err := envInt("NODER_DEBOUNCE_MS", 300)
	if err != nil {
		return nil, err
	}
	maxSessions, err := envInt("NODER_MAX_SESSIONS", 200)
	if err != nil {
		return nil, err
	}
	sessionTTL, err := envDuration("NODER_SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	// Security: remote access requires auth token
	if allowRemote && authToken == "" {
		return nil, ErrRemoteWithoutToken
	}

	// Security: refuse non-loopback binds unless explicitly opting into remote
	// access. Checks both IP literals and hostnames; only 127.0.0.0/8, ::1,
	// and "localhost" are considered safe.
	if !allowRemote {
		if host, _, err := net.SplitHostPort(bind); err == nil && host != "" {
			ip := net.ParseIP(host)
			switch {
			case ip != nil && ip.IsLoopback():
				// Safe: 127.x.x.x or ::1
			case ip != nil:
				return nil, fmt.Errorf("%w: NODER_BIND=%s", ErrNonLoopbackBind, bind)
			case host == "localhost":
				// Safe: conventional loopback hostname
			default:
				return nil, fmt.Errorf("%w: NODER_BIND=%s", ErrNonLoopbackBind, bind)
			}
		}
	}

	return &Config{
		DataDir:     dataDir,
		Bind:        bind,
		AllowRemote: allowRemote,
		AuthToken:   authToken,
		Mirror:      mirror,
		MaxHistory:  maxHistory,
		Debounce:    time.Duration(debounceMS) * time.Millisecond,
		MaxSessions: maxSessions,
		SessionTTL:  sessionTTL,
	}, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}
