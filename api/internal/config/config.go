package config

import (
	"log"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"homework-grader/api/internal/grading"
)

type Config struct {
	Port       string
	WebhookURL string

	TelegramBotToken string

	// GeminiAPIKey may be empty; grading then fails with a missing-credential error.
	GeminiAPIKey string
	GeminiModel  string
	Locale       string

	// DatabaseURL is empty when no database is configured.
	DatabaseURL    string
	ReportCacheTTL time.Duration
}

func mustEnv(k string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Fatalf("bad duration in env %s: %q", k, v)
	}
	return d
}

func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "8080"),
		WebhookURL: getEnv("WEBHOOK_URL", ""),

		TelegramBotToken: mustEnv("TELEGRAM_BOT_TOKEN"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		GeminiModel:  getEnv("GEMINI_MODEL", grading.DefaultModel),
		Locale:       getEnv("GRADER_LOCALE", grading.DefaultLocale),

		DatabaseURL:    resolveDSN(),
		ReportCacheTTL: getDuration("REPORT_CACHE_TTL", 24*time.Hour),
	}
}

// resolveDSN prefers DATABASE_URL and otherwise builds a URL from the
// POSTGRES_* / PG* variables. Without any of them there is no database.
func resolveDSN() string {
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	if getEnv("PGHOST", "") == "" && getEnv("POSTGRES_DB", "") == "" && getEnv("POSTGRES_PASSWORD", "") == "" {
		return ""
	}

	user := getEnv("POSTGRES_USER", "grader")
	pass := os.Getenv("POSTGRES_PASSWORD")
	host := getEnv("PGHOST", "db")
	port := getEnv("PGPORT", "5432")
	db := getEnv("POSTGRES_DB", "grader")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
