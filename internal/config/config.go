package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends accepted by SITEDIR_STORE_BACKEND.
const (
	BackendContentAPI = "contentapi"
	BackendRedis      = "redis"
	BackendSQLite     = "sqlite"
	BackendMemory     = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	StoreBackend string // contentapi | redis | sqlite | memory

	// Content API (version-controlled document host)
	ContentAPIURL     string        // ex: "https://api.github.com"
	ContentOwner      string        // repository owner
	ContentRepo       string        // repository name
	ContentBranch     string        // branch holding the documents
	ContentToken      string        // bearer token, never logged
	ContentPathPrefix string        // optional folder inside the repo
	ContentTimeout    time.Duration // per-request timeout
	CommitterName     string
	CommitterEmail    string

	// SQLite
	SQLitePath string // ex: "./sitedir.sqlite3"

	// Icons
	IconFetchTimeout   time.Duration // per-candidate timeout (5s..10s)
	IconRefreshCron    string        // cron spec for the batch refresh, "off" = manual only
	IconBatchDelay     time.Duration // delay between two refreshes in a batch
	IconBatchParallel  int           // max concurrent refreshes in a batch
	IconUserAgent      string
	MutateMaxAttempts  int    // CAS retry budget for document mutations
	ReconcileCron      string // cron spec for the pending/website reconciliation, "off" = disabled
	SeedFile           string // optional YAML seed, imported additively at startup
	WatchSeedFile      bool   // re-import seed when the file changes
	PublicRateBurst    int    // burst per client IP on public icon endpoint
	PublicRatePerMin   int    // refill per IP per minute on public icon endpoint
	AdminRequestLimit  time.Duration
	PublicRequestLimit time.Duration

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts []string // optional, restrict admin access to specific Host headers
	AllowedCIDRS []string // optional, restrict admin access to specific IPs
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("SITEDIR_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SITEDIR_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("SITEDIR_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SITEDIR_PRETTY_LOG", true),

		StoreBackend: strings.ToLower(getenv("SITEDIR_STORE_BACKEND", BackendContentAPI)),

		// Content API
		ContentAPIURL:     getenv("SITEDIR_CONTENT_API_URL", "https://api.github.com"),
		ContentOwner:      getenv("SITEDIR_CONTENT_OWNER", ""),
		ContentRepo:       getenv("SITEDIR_CONTENT_REPO", ""),
		ContentBranch:     getenv("SITEDIR_CONTENT_BRANCH", "main"),
		ContentToken:      getenv("SITEDIR_CONTENT_TOKEN", ""),
		ContentPathPrefix: getenv("SITEDIR_CONTENT_PATH_PREFIX", ""),
		ContentTimeout:    mustDuration("SITEDIR_CONTENT_TIMEOUT", 15*time.Second),
		CommitterName:     getenv("SITEDIR_COMMITTER_NAME", "sitedir"),
		CommitterEmail:    getenv("SITEDIR_COMMITTER_EMAIL", "sitedir@users.noreply.github.com"),

		SQLitePath: getenv("SITEDIR_SQLITE_PATH", "./sitedir.sqlite3"),

		// Icons
		IconFetchTimeout:   clampDuration(mustDuration("SITEDIR_ICON_FETCH_TIMEOUT", 8*time.Second), 5*time.Second, 10*time.Second),
		IconRefreshCron:    getenv("SITEDIR_ICON_REFRESH_CRON", "@daily"),
		IconBatchDelay:     mustDuration("SITEDIR_ICON_BATCH_DELAY", time.Second),
		IconBatchParallel:  getenvInt("SITEDIR_ICON_BATCH_PARALLEL", 1),
		IconUserAgent:      getenv("SITEDIR_ICON_USER_AGENT", "sitedir-icon-fetcher/1.0"),
		MutateMaxAttempts:  getenvInt("SITEDIR_MUTATE_MAX_ATTEMPTS", 4),
		ReconcileCron:      getenv("SITEDIR_RECONCILE_CRON", "@hourly"),
		SeedFile:           getenv("SITEDIR_SEED_FILE", ""),
		WatchSeedFile:      mustBool("SITEDIR_WATCH_SEED_FILE", false),
		PublicRateBurst:    getenvInt("SITEDIR_PUBLIC_RATE_BURST", 60),
		PublicRatePerMin:   getenvInt("SITEDIR_PUBLIC_RATE_PER_MIN", 120),
		AdminRequestLimit:  mustDuration("SITEDIR_ADMIN_REQUEST_TIMEOUT", 5*time.Minute),
		PublicRequestLimit: mustDuration("SITEDIR_PUBLIC_REQUEST_TIMEOUT", time.Minute),

		// Redis settings
		RedisAddr:             getenv("SITEDIR_REDIS_ADDR", "localhost:6379"),
		RedisUser:             getenv("SITEDIR_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("SITEDIR_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("SITEDIR_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("SITEDIR_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(getenv("SITEDIR_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(getenv("SITEDIR_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("SITEDIR_TRUST_PROXY", true),
	}

	switch cfg.StoreBackend {
	case BackendContentAPI:
		cfg.ContentOwner = requireEnv("SITEDIR_CONTENT_OWNER")
		cfg.ContentRepo = requireEnv("SITEDIR_CONTENT_REPO")
		cfg.ContentToken = requireEnv("SITEDIR_CONTENT_TOKEN")
	case BackendRedis:
		cfg.RedisAddr = requireEnv("SITEDIR_REDIS_ADDR")
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: SITEDIR_REDIS_PASSWORD is required when SITEDIR_REDIS_PASSWORD_REQUIRED=true")
		}
	case BackendSQLite, BackendMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: unknown SITEDIR_STORE_BACKEND %q", cfg.StoreBackend))
	}

	if cfg.IconBatchParallel < 1 {
		cfg.IconBatchParallel = 1
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe for logging.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.ContentToken != "" {
		cp.ContentToken = "***REDACTED***"
	}
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
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
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func clampDuration(d, lo, hi time.Duration) time.Duration {
	if d < lo {
		return lo
	}
	if d > hi {
		return hi
	}
	return d
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
