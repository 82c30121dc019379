package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the runtime settings taken from the environment. The routes
// themselves live in the configuration document (see Document).
type Config struct {
	ConfigPath string // --config, path to the routes document

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	CertbotBin    string        // certificate authority client binary (default: certbot)
	NginxBin      string        // reverse proxy binary (default: nginx)
	CycleInterval time.Duration // pause between certificate cycles (default: 24h)

	StatusAddr      string        // ex: ":9180", empty disables the status endpoints
	ShutdownTimeout time.Duration // ex: 5s
	AllowedCIDRS    []string      // optional, restrict status endpoints to these IPs/CIDRs
	TrustProxy      bool          // true => trust X-Forwarded-For headers
}

// Load parses the command line and reads the environment.
func Load(args []string) (*Config, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfigPath: flags.ConfigPath,

		// Logging
		LogLevel:  getenv("NGINXLB_LOG_LEVEL", "info"),
		PrettyLog: mustBool("NGINXLB_PRETTY_LOG", true),

		// External tools
		CertbotBin:    getenv("NGINXLB_CERTBOT_BIN", "certbot"),
		NginxBin:      getenv("NGINXLB_NGINX_BIN", "nginx"),
		CycleInterval: mustPositiveDuration("NGINXLB_CYCLE_INTERVAL", 24*time.Hour),

		// Status endpoints
		StatusAddr:      getenv("NGINXLB_STATUS_ADDR", ""),
		ShutdownTimeout: mustDuration("NGINXLB_SHUTDOWN_TIMEOUT", 5*time.Second),
		AllowedCIDRS:    parseAllowedIPs(getenv("NGINXLB_ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("NGINXLB_TRUST_PROXY", false),
	}

	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", *cfg)
	}

	return cfg, nil
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= 0 {
			return d
		}
	}
	return def
}

// mustPositiveDuration is mustDuration without zero: back-to-back cycles
// would hammer the rate-limited certificate authority.
func mustPositiveDuration(key string, def time.Duration) time.Duration {
	if d := mustDuration(key, def); d > 0 {
		return d
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
