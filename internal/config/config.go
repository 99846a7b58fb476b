package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewEntitlementConfigHolder),
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	HTTPAddr         string
	PublicBaseURL    string
	AuthCookieSecure bool
	SnowflakeNode    int64

	SecretEncryptionKey string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBRunMigrations   bool

	Discord   DiscordConfig
	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
}

// DiscordConfig configures the Discord OAuth connect flow.
type DiscordConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIURL       string
	StateSecret  string
	StateTTL     time.Duration
}

// Enabled reports whether the connect flow has enough configuration to run.
func (d DiscordConfig) Enabled() bool {
	return d.ClientID != "" && d.ClientSecret != "" && d.RedirectURL != "" && d.StateSecret != ""
}

type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	DashboardRate  float64
	DashboardBurst int
	BearerRate     float64
	BearerBurst    int
}

// SchedulerConfig controls the maintenance loop.
type SchedulerConfig struct {
	Enabled          bool
	RunInterval      time.Duration
	BatchSize        int
	SessionRetention time.Duration
	EnabledJobs      []string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "botcentral"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       environment,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		PublicBaseURL:     strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		AuthCookieSecure:  authCookieSecure,
		SnowflakeNode:     getenvInt64("SNOWFLAKE_NODE", 1),

		SecretEncryptionKey: strings.TrimSpace(getenv("SECRET_ENCRYPTION_KEY", "")),

		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "botcentral"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
		DBRunMigrations:   getenvBool("DATABASE_RUN_MIGRATIONS", true),
		Discord: DiscordConfig{
			ClientID:     strings.TrimSpace(getenv("DISCORD_CLIENT_ID", "")),
			ClientSecret: strings.TrimSpace(getenv("DISCORD_CLIENT_SECRET", "")),
			RedirectURL:  strings.TrimSpace(getenv("DISCORD_REDIRECT_URL", "")),
			AuthURL:      getenv("DISCORD_AUTH_URL", "https://discord.com/api/oauth2/authorize"),
			TokenURL:     getenv("DISCORD_TOKEN_URL", "https://discord.com/api/oauth2/token"),
			APIURL:       strings.TrimRight(getenv("DISCORD_API_URL", "https://discord.com/api"), "/"),
			StateSecret:  strings.TrimSpace(getenv("OAUTH_STATE_SECRET", "")),
			StateTTL:     time.Duration(getenvInt64("OAUTH_STATE_TTL_SECONDS", 600)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:        getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:      strings.TrimSpace(getenv("REDIS_ADDR", "")),
			RedisPassword:  getenv("REDIS_PASSWORD", ""),
			RedisDB:        int(getenvInt64("REDIS_DB", 0)),
			DashboardRate:  getenvFloat("RATE_LIMIT_DASHBOARD_RATE", 1),
			DashboardBurst: int(getenvInt64("RATE_LIMIT_DASHBOARD_BURST", 30)),
			BearerRate:     getenvFloat("RATE_LIMIT_BEARER_RATE", 10),
			BearerBurst:    int(getenvInt64("RATE_LIMIT_BEARER_BURST", 100)),
		},
		Scheduler: SchedulerConfig{
			Enabled:          getenvBool("SCHEDULER_ENABLED", true),
			RunInterval:      time.Duration(getenvInt64("SCHEDULER_INTERVAL_SECONDS", 60)) * time.Second,
			BatchSize:        int(getenvInt64("SCHEDULER_BATCH_SIZE", 100)),
			SessionRetention: time.Duration(getenvInt64("SESSION_RETENTION_HOURS", 24*30)) * time.Hour,
			EnabledJobs:      getenvList("SCHEDULER_JOBS"),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
