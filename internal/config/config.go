package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server Server
	App    App
	Steam  Steam
	Store  Store
	Cache  Cache
}

// Server holds HTTP server settings.
type Server struct {
	Host        string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port        int           `envconfig:"SERVER_PORT" default:"3000"`
	ReadTimeout time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	// WriteTimeout of 0 keeps the SSE event stream open indefinitely.
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"0s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// App holds application-level settings.
type App struct {
	Name        string `envconfig:"APP_NAME" default:"steamboard-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
}

// Steam holds remote platform settings and sync tuning knobs.
type Steam struct {
	// APIBaseURL is the upstream Steam Web API origin; the reverse proxy and
	// the sync client both point here.
	APIBaseURL string        `envconfig:"STEAM_API_BASE_URL" default:"https://api.steampowered.com"`
	Timeout    time.Duration `envconfig:"STEAM_TIMEOUT" default:"30s"`

	// BatchSize bounds the number of games detailed concurrently per batch.
	BatchSize int `envconfig:"STEAM_BATCH_SIZE" default:"3"`
	// BatchDelay is the pause between detail batches; deliberately
	// conservative against the undocumented upstream rate limits.
	BatchDelay time.Duration `envconfig:"STEAM_BATCH_DELAY" default:"500ms"`

	// AutoRefreshAfter is the staleness threshold for the background
	// refresh scheduler.
	AutoRefreshAfter    time.Duration `envconfig:"STEAM_AUTO_REFRESH_AFTER" default:"48h"`
	AutoRefreshInterval time.Duration `envconfig:"STEAM_AUTO_REFRESH_INTERVAL" default:"1h"`
	AutoRefresh         bool          `envconfig:"STEAM_AUTO_REFRESH" default:"true"`
}

// Store holds library database settings.
type Store struct {
	Type string `envconfig:"STORE_DB_TYPE" default:"sqlite"` // sqlite or mysql
	Path string `envconfig:"STORE_DB_PATH" default:"./data/library.db"`
	// MySQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"3306"`
	Name     string `envconfig:"STORE_DB_NAME" default:"steamboard"`
	User     string `envconfig:"STORE_DB_USER" default:"root"`
	Password string `envconfig:"STORE_DB_PASS" default:""`
}

// Cache holds cache settings.
type Cache struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"1h"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// MySQLDSN returns the MySQL data source name.
func (s *Store) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.User, s.Password, s.Host, s.Port, s.Name)
}

// Address returns the server address in host:port format.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *Cache) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *App) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *App) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
