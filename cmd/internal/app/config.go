package app

import (
	"time"

	"pulse/cmd/internal/presence"
)

// Config contains all runtime configuration. Values come from environment
// variables, optionally overridden by a YAML file (PULSE_CONFIG_FILE).
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// Passphrase is the deployment-wide shared secret every call carries.
	Passphrase string
	// If true, startup fails when the passphrase is empty or the
	// well-known insecure default.
	RequirePassphrase bool
	// TokenHMACKey switches token derivation to HMAC-SHA256 when set.
	TokenHMACKey string

	// DefaultDB is the database selector assumed when callers omit one.
	DefaultDB string
	// PresenceWindow is the liveness window for heartbeat queries.
	PresenceWindow time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// RedisAddr enables the Redis session store when DatabaseURL is unset.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// If true, /readyz returns 503 unless a backing store is configured
	// and reachable.
	ReadinessRequireDB bool

	WSOriginPatterns []string
	WSWriteTimeout   time.Duration
	WSSendQueueSize  int
	WSRateEvents     int
	WSRateWindow     time.Duration
}

// LoadConfig loads Config from environment variables with defaults, then
// applies the optional config file overlay.
func LoadConfig() (Config, error) {
	cfg := Config{
		HTTPAddr: EnvString("PULSE_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("PULSE_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("PULSE_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("PULSE_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("PULSE_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("PULSE_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("PULSE_HTTP_MAX_HEADER_BYTES", 1<<20),

		Passphrase:        EnvString("PULSE_PASSPHRASE", ""),
		RequirePassphrase: EnvBool("PULSE_REQUIRE_PASSPHRASE", false),
		TokenHMACKey:      EnvString("PULSE_TOKEN_HMAC_KEY", ""),

		DefaultDB:      EnvString("PULSE_DEFAULT_DB", "chat"),
		PresenceWindow: EnvDuration("PULSE_PRESENCE_WINDOW", presence.DefaultWindow),

		DatabaseURL: EnvString("PULSE_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("PULSE_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("PULSE_DB_MIN_CONNS", 0),

		RedisAddr:     EnvString("PULSE_REDIS_ADDR", ""),
		RedisPassword: EnvString("PULSE_REDIS_PASSWORD", ""),
		RedisDB:       EnvIntNonNeg("PULSE_REDIS_DB", 0),

		ReadinessRequireDB: EnvBool("PULSE_READINESS_REQUIRE_DB", false),

		WSOriginPatterns: EnvCSV("PULSE_WS_ORIGIN_PATTERNS", ""),
		WSWriteTimeout:   EnvDuration("PULSE_WS_WRITE_TIMEOUT", 5*time.Second),
		WSSendQueueSize:  EnvInt("PULSE_WS_SEND_QUEUE", 256),
		WSRateEvents:     EnvInt("PULSE_WS_RATE_EVENTS", 30),
		WSRateWindow:     EnvDuration("PULSE_WS_RATE_WINDOW", 10*time.Second),
	}

	if path := EnvString("PULSE_CONFIG_FILE", ""); path != "" {
		if err := applyConfigFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}
