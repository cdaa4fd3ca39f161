package config // package config loads application configuration from environment variables

import (
	"log"      // log is used to report configuration errors and halt execution
	"os"       // os provides access to environment variables
	"time"     // time parses duration settings

	"github.com/joho/godotenv" // godotenv loads a local .env file into the environment
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Only the movie database key is mandatory; every
// other value has a default suited to running the app locally against a
// sqlite file.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBDriver    string // sqlite | mysql | postgres
	DBPath      string // sqlite database file
	DBUser      string // mysql user
	DBPass      string // mysql password (optional)
	DBHost      string // mysql host address
	DBPort      string // mysql port number
	DBName      string // mysql database name
	DatabaseURL string // postgres DSN

	TMDBAPIKey     string        // movie database API key or v4 read token
	TMDBBaseURL    string        // movie database API root
	TMDBImageURL   string        // prefix joined with poster paths
	TMDBTimeout    time.Duration // per-request timeout for movie database calls
	LookupCacheTTL time.Duration // lifetime of cached search/detail lookups

	JWTSecret         string // secret used to sign JWTs; empty disables the write API
	AdminUser         string // owner account name for the JSON API
	AdminPasswordHash string // bcrypt hash of the owner password
	AccessTTLMin      int    // access token time-to-live in minutes

	TrustedProxies []string // CIDRs or IPs allowed to set X-Forwarded-For; empty uses the peer address

	AMQPURL         string        // RabbitMQ URL; empty disables movie events
	TemplateDir     string        // load templates from disk and watch them (development)
	LogLevel        string        // hclog level name
	RefreshInterval time.Duration // detail refresh job interval; 0 disables
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when
// present; values already set in the environment win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:  envStr("APP_ENV", "dev"),
		Port: envStr("APP_PORT", "5000"),

		DBDriver:    envStr("DB_DRIVER", "sqlite"),
		DBPath:      envStr("DB_PATH", "movies.db"),
		DBUser:      envStr("DB_USER", "root"),
		DBPass:      os.Getenv("DB_PASS"), // empty allowed
		DBHost:      envStr("DB_HOST", "127.0.0.1"),
		DBPort:      envStr("DB_PORT", "3306"),
		DBName:      envStr("DB_NAME", "movies"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		TMDBAPIKey:     must("TMDB_API_KEY"),
		TMDBBaseURL:    envStr("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBImageURL:   envStr("TMDB_IMAGE_URL", "https://image.tmdb.org/t/p/w500"),
		TMDBTimeout:    envDur("TMDB_TIMEOUT", 10*time.Second),
		LookupCacheTTL: envDur("LOOKUP_CACHE_TTL", time.Hour),

		JWTSecret:         os.Getenv("JWT_SECRET"),
		AdminUser:         envStr("ADMIN_USER", "admin"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		AccessTTLMin:      envInt("ACCESS_TOKEN_TTL_MIN", 60),

		TrustedProxies: envList("TRUSTED_PROXIES"),

		AMQPURL:         envStr("AMQP_URL", os.Getenv("RABBITMQ_URL")),
		TemplateDir:     os.Getenv("TEMPLATE_DIR"),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		RefreshInterval: envDur("REFRESH_INTERVAL", time.Hour),
	}
}

// IsDev reports whether the app runs in the development environment.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "development" }

// APIWritesEnabled reports whether the authenticated JSON API can be served.
func (c Config) APIWritesEnabled() bool { return c.JWTSecret != "" && c.AdminPasswordHash != "" }

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

