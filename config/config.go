package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server configuration
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LINE Messaging API
	Line struct {
		ChannelSecret      string        `env:"LINE_CHANNEL_SECRET"`
		ChannelAccessToken string        `env:"LINE_CHANNEL_ACCESS_TOKEN"`
		APIBaseURL         string        `env:"LINE_API_BASE_URL" envDefault:"https://api.line.me"`
		ReplyWindow        time.Duration `env:"LINE_REPLY_WINDOW" envDefault:"50s"`
	}

	// Storage: "file", "mongo" or "memory"
	Storage struct {
		Backend      string `env:"STORAGE_BACKEND" envDefault:"file"`
		DataDir      string `env:"DATA_DIR" envDefault:"./data"`
		UsersFile    string `env:"USERS_FILE" envDefault:"users.json"`
		MongoURI     string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
		DatabaseName string `env:"MONGO_DB_NAME" envDefault:"line_register_bot"`
		// Unfinished registrations idle longer than StaleTTL are deleted; 0 keeps them
		StaleTTL        time.Duration `env:"STALE_RECORD_TTL" envDefault:"720h"`
		CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	}

	// Name statistics: "memory" or "redis"
	Stats struct {
		Backend       string `env:"STATS_BACKEND" envDefault:"memory"`
		RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
		RedisPassword string `env:"REDIS_PASSWORD"`
		RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
		KeyPrefix     string `env:"STATS_KEY_PREFIX" envDefault:"namestats"`
	}

	// Claude fallback
	Claude struct {
		APIKey    string        `env:"CLAUDE_API_KEY"`
		Model     string        `env:"CLAUDE_MODEL" envDefault:"claude-3-5-haiku-latest"`
		MaxTokens int           `env:"CLAUDE_MAX_TOKENS" envDefault:"512"`
		Timeout   time.Duration `env:"CLAUDE_TIMEOUT" envDefault:"25s"`
		Debug     bool          `env:"DEBUG_CLAUDE" envDefault:"false"`
		APIURL    string        `env:"CLAUDE_API_URL" envDefault:"https://api.anthropic.com/v1/messages"`
		// Requests per minute across all users; 0 disables the limit
		RequestsPerMinute int    `env:"CLAUDE_RPM" envDefault:"50"`
		BotName           string `env:"BOT_NAME" envDefault:"น้องลงทะเบียน"`
	}

	// Conversation policy
	Policy struct {
		AgeMin         int           `env:"AGE_MIN" envDefault:"1"`
		AgeMax         int           `env:"AGE_MAX" envDefault:"80"`
		BadThreshold   int           `env:"BAD_THRESHOLD" envDefault:"3"`
		BlockDuration  time.Duration `env:"BLOCK_DURATION" envDefault:"3m"`
		IdleTimeout    time.Duration `env:"IDLE_TIMEOUT" envDefault:"15m"`
		AskDepartment  bool          `env:"ASK_DEPARTMENT" envDefault:"false"`
		Departments    []string      `env:"DEPARTMENTS" envSeparator:";"`
		Timezone       string        `env:"TIMEZONE" envDefault:"Asia/Bangkok"`
		TopNamesLimit  int           `env:"TOP_NAMES_LIMIT" envDefault:"5"`
		ReportMaxRunes int           `env:"REPORT_MAX_RUNES" envDefault:"1000"`
	}

	// Admin access
	Admin struct {
		UserIDs    []string `env:"ADMIN_USER_IDS" envSeparator:","`
		APIKeyHash string   `env:"ADMIN_API_KEY_HASH"` // bcrypt hash of the admin API key
	}
}

// LoadConfig reads .env (when present) and the process environment
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Policy.AgeMin < 1 || cfg.Policy.AgeMax < cfg.Policy.AgeMin {
		return nil, fmt.Errorf("invalid age bound %d-%d", cfg.Policy.AgeMin, cfg.Policy.AgeMax)
	}
	if cfg.Policy.BadThreshold < 1 {
		return nil, fmt.Errorf("invalid BAD_THRESHOLD %d", cfg.Policy.BadThreshold)
	}
	if cfg.Policy.BlockDuration <= 0 {
		return nil, fmt.Errorf("invalid BLOCK_DURATION %s", cfg.Policy.BlockDuration)
	}

	// A report detail must hold at least two runes
	if cfg.Policy.ReportMaxRunes < 2 {
		return nil, fmt.Errorf("invalid REPORT_MAX_RUNES %d", cfg.Policy.ReportMaxRunes)
	}

	// Without the secret every webhook signature check would pass
	if cfg.Line.ChannelSecret == "" || cfg.Line.ChannelAccessToken == "" {
		return nil, fmt.Errorf("LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN are required")
	}

	return cfg, nil
}

// IsAdmin reports whether userID is listed in ADMIN_USER_IDS
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Admin.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Location returns the configured time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Policy.Timezone)
	if err != nil {
		slog.Warn("Unknown timezone, using UTC", "timezone", c.Policy.Timezone, "error", err)
		return time.UTC
	}
	return loc
}
