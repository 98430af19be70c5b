package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string

	JWTSecret string
	JWTTTL    time.Duration

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryURL          string
	CloudinaryCloudName    string
	CloudinaryUploadFolder string

	TelegramToken       string
	NotificationWorkers int
	NotificationQueue   int

	GoogleServiceAccountJSON string
	SpreadsheetID            string

	StatusRefreshSchedule   string
	LeaderboardSyncSchedule string
	NewsFeedURL             string
	NewsFeedSchedule        string
	NewsFeedLimit           int

	// FullRegionCount is the permission-list length treated as "open to every region".
	FullRegionCount int

	RateLimitAuth        time.Duration
	RateLimitApplication time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		JWTSecret: getEnv("JWT_SECRET", "change-me"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "sbp_news"),

		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN")),

		GoogleServiceAccountJSON: strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")),
		SpreadsheetID:            strings.TrimSpace(os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")),

		StatusRefreshSchedule:   getEnv("STATUS_REFRESH_SCHEDULE", "*/5 * * * *"),
		LeaderboardSyncSchedule: getEnv("LEADERBOARD_SYNC_SCHEDULE", "0 4 * * *"),
		NewsFeedURL:             os.Getenv("NEWS_FEED_URL"),
		NewsFeedSchedule:        getEnv("NEWS_FEED_SCHEDULE", "0 7,19 * * *"),
	}

	if !strings.HasPrefix(cfg.MeiliSearchHost, "http") {
		cfg.MeiliSearchHost = "http://" + cfg.MeiliSearchHost + ":7700"
	}

	var err error
	cfg.JWTTTL, err = parseDuration(getEnv("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	cfg.RateLimitAuth, err = parseDuration(getEnv("RATE_LIMIT_AUTH", "3s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_AUTH: %w", err)
	}
	cfg.RateLimitApplication, err = parseDuration(getEnv("RATE_LIMIT_APPLICATION", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_APPLICATION: %w", err)
	}

	if cfg.FullRegionCount, err = getInt("FULL_REGION_COUNT", 89); err != nil {
		return nil, err
	}
	if cfg.NotificationWorkers, err = getInt("NOTIFICATION_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.NotificationQueue, err = getInt("NOTIFICATION_QUEUE", 256); err != nil {
		return nil, err
	}
	if cfg.NewsFeedLimit, err = getInt("NEWS_FEED_LIMIT", 5); err != nil {
		return nil, err
	}

	return cfg, nil
}

// BotConfig is what the companion bot process needs.
type BotConfig struct {
	TelegramToken   string
	DatabaseURL     string
	SiteURL         string
	FullRegionCount int
}

func BotFromEnv() (BotConfig, error) {
	_ = godotenv.Load()

	var c BotConfig
	c.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	c.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	c.SiteURL = strings.TrimRight(getEnv("SITE_URL", "https://www.codedepartament.ru"), "/")

	full, err := getInt("FULL_REGION_COUNT", 89)
	if err != nil {
		return c, err
	}
	c.FullRegionCount = full

	if c.TelegramToken == "" {
		return c, fmt.Errorf("TELEGRAM_BOT_TOKEN is empty")
	}
	return c, nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
