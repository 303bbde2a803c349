package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for the inspector server.
type Config struct {
	// Address is the address to listen on (e.g., ":7070" or "localhost:7070").
	// Default: "localhost:7070".
	Address string

	// MetricsPath is where Prometheus metrics are served.
	// Default: "/metrics".
	MetricsPath string

	// DisableMetrics turns off the metrics endpoint and store
	// instrumentation.
	DisableMetrics bool

	// Gatherer is the Prometheus registry served on MetricsPath.
	// Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer

	// Registerer receives the store metrics registered by Register.
	// Default: prometheus.DefaultRegisterer
	Registerer prometheus.Registerer

	// AllowedOrigins lists origins, besides the server's own, that may open
	// a watch stream. "*" allows any origin.
	AllowedOrigins []string

	// CheckOrigin overrides the origin check for watch streams.
	// Default: same origin plus AllowedOrigins.
	CheckOrigin func(r *http.Request) bool

	// WebSocket buffer sizes
	ReadBufferSize  int
	WriteBufferSize int

	// WriteTimeout bounds each write to a watch stream.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// PingInterval is the time between pings on a watch stream.
	// Default: 30 seconds.
	PingInterval time.Duration

	// WatchBuffer is the number of updates queued per watch stream before
	// intermediate updates are dropped.
	// Default: 64.
	WatchBuffer int

	// MaxBodySize limits PUT request bodies.
	// Default: 4MB.
	MaxBodySize int64

	// ReadHeaderTimeout is the HTTP server read header timeout.
	// Default: 5 seconds.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Logger receives request and stream logs.
	// Default: slog.Default() with component=inspector.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           "localhost:7070",
		MetricsPath:       "/metrics",
		Gatherer:          prometheus.DefaultGatherer,
		Registerer:        prometheus.DefaultRegisterer,
		ReadBufferSize:    1024,
		WriteBufferSize:   4096,
		WriteTimeout:      10 * time.Second,
		PingInterval:      30 * time.Second,
		WatchBuffer:       64,
		MaxBodySize:       4 << 20,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   30 * time.Second,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.AllowedOrigins = slices.Clone(c.AllowedOrigins)
	return &clone
}

// WithAddress sets the server address and returns the config for chaining.
func (c *Config) WithAddress(addr string) *Config {
	c.Address = addr
	return c
}

// WithAllowedOrigins sets the allowed origins and returns the config for chaining.
func (c *Config) WithAllowedOrigins(origins ...string) *Config {
	c.AllowedOrigins = origins
	return c
}

// withDefaults fills unset fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}
	out := c.Clone()
	if out.Address == "" {
		out.Address = defaults.Address
	}
	if out.MetricsPath == "" {
		out.MetricsPath = defaults.MetricsPath
	}
	if out.Gatherer == nil {
		out.Gatherer = defaults.Gatherer
	}
	if out.Registerer == nil {
		out.Registerer = defaults.Registerer
	}
	if out.ReadBufferSize == 0 {
		out.ReadBufferSize = defaults.ReadBufferSize
	}
	if out.WriteBufferSize == 0 {
		out.WriteBufferSize = defaults.WriteBufferSize
	}
	if out.WriteTimeout == 0 {
		out.WriteTimeout = defaults.WriteTimeout
	}
	if out.PingInterval == 0 {
		out.PingInterval = defaults.PingInterval
	}
	if out.WatchBuffer <= 0 {
		out.WatchBuffer = defaults.WatchBuffer
	}
	if out.MaxBodySize == 0 {
		out.MaxBodySize = defaults.MaxBodySize
	}
	if out.ReadHeaderTimeout == 0 {
		out.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if out.ShutdownTimeout == 0 {
		out.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = OriginCheck(out.AllowedOrigins)
	}
	return out
}

// SameOriginCheck validates that the WebSocket request origin matches the host.
// Requests without an Origin header (curl, server-side clients) are allowed.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	host := r.Host
	if host == "" {
		return false
	}

	return originURL.Host == host
}

// OriginCheck returns a check accepting the same origin and every origin in
// allowed. "*" accepts any origin.
func OriginCheck(allowed []string) func(r *http.Request) bool {
	allowed = slices.Clone(allowed)
	return func(r *http.Request) bool {
		if SameOriginCheck(r) {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}
