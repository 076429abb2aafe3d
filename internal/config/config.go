package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the donorgate client needs to run. All values
// come from DONORGATE_* environment variables, optionally seeded from a
// .env file in the working directory.
type Config struct {
	// Port is the local HTTP port the UI talks to.
	Port string
	// BaseURL is the externally visible base of this client, used to
	// build the gateway return URL.
	BaseURL string
	// BackendURL is the trust's backend API base.
	BackendURL string
	// GatewayCheckoutURL is the hosted checkout page of the payment
	// gateway.
	GatewayCheckoutURL string
	// DBPath is the sqlite file holding durable client state.
	DBPath string
	// LogLevel and LogFormat configure slog.
	LogLevel  string
	LogFormat string
	// RequestTimeout bounds each backend call.
	RequestTimeout time.Duration
	// VerifyDeadline bounds the whole verification phase, retries
	// included. Past it the attempt ends in the unknown state.
	VerifyDeadline time.Duration
	// RefreshWindow is how close to expiry an access token may get
	// before an identity refresh is triggered.
	RefreshWindow time.Duration
	// MarkerFreshness is how long a success marker counts as recent.
	MarkerFreshness time.Duration
}

// Load reads configuration from the environment. A missing .env file is
// not an error; a malformed one is.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:               envOr("DONORGATE_PORT", "8488"),
		BackendURL:         envOr("DONORGATE_BACKEND_URL", "https://api.ameentrust.org"),
		GatewayCheckoutURL: envOr("DONORGATE_GATEWAY_CHECKOUT_URL", "https://checkout.razorpay.com/v1/checkout"),
		DBPath:             envOr("DONORGATE_DB_PATH", "donorgate.db"),
		LogLevel:           envOr("DONORGATE_LOG_LEVEL", "info"),
		LogFormat:          envOr("DONORGATE_LOG_FORMAT", "text"),
		RequestTimeout:     envDuration("DONORGATE_REQUEST_TIMEOUT", 15*time.Second),
		VerifyDeadline:     envDuration("DONORGATE_VERIFY_DEADLINE", 45*time.Second),
		RefreshWindow:      envDuration("DONORGATE_REFRESH_WINDOW", 2*time.Minute),
		MarkerFreshness:    envDuration("DONORGATE_MARKER_FRESHNESS", 15*time.Minute),
	}
	cfg.BaseURL = envOr("DONORGATE_BASE_URL", "http://localhost:"+cfg.Port)

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	// Bare numbers are read as seconds for kiosk operators who skip units.
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return fallback
}
