package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"homework-grader/api/internal/config"
	"homework-grader/api/internal/flow"
	"homework-grader/api/internal/grading"
	"homework-grader/api/internal/grading/gemini"
	"homework-grader/api/internal/httpserver"
	"homework-grader/api/internal/photo"
	"homework-grader/api/internal/store"
	"homework-grader/api/internal/telegram"
)

func main() {
	cfg := config.Load()

	if cfg.GeminiAPIKey == "" {
		log.Printf("warning: GEMINI_API_KEY is empty; grading requests will fail until it is set")
	}

	// --- Grading pipeline ---
	engine := gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel)
	client := grading.New(engine, grading.Config{Model: cfg.GeminiModel, Locale: cfg.Locale})
	var grader grading.Grader = client

	// --- Postgres (optional) ---
	var db *sql.DB
	if cfg.DatabaseURL != "" {
		db = openDB(cfg.DatabaseURL)
		repo := store.NewReportRepo(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatalf("schema: %v", err)
		}
		cancel()
		grader = grading.NewCachedGrader(client, repo, client.Model(), cfg.ReportCacheTTL)
		log.Printf("report archive enabled, cache ttl=%s", cfg.ReportCacheTTL)
	} else {
		log.Printf("no database configured; report archive disabled")
	}

	controller := flow.NewController(photo.NewNormalizer(), grader)

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Fatal(err)
	}
	bot.Debug = false
	log.Printf("authorized as @%s, model=%s", bot.Self.UserName, engine.GetModel())

	r := telegram.NewRouter(bot, controller)

	opts := httpserver.Options{}
	if db != nil {
		opts.DB = db
	}
	addr := "0.0.0.0:" + cfg.Port

	// --- Choose mode: Webhook vs Polling ---
	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		startWebhookMode(addr, bot, r, webhookURL, opts)
	} else {
		startPollingMode(addr, bot, r, opts)
	}
}

func openDB(dsn string) *sql.DB {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatalf("sql.Open: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("db.Ping: %v", err)
	}
	log.Printf("db connected: %s", safeDSNSummary(dsn))
	return db
}

// ---------------- Modes -----------------

func startWebhookMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, baseURL string, opts httpserver.Options) {
	// secret webhook path derived from the token
	path := "/webhook/" + shortHash(bot.Token)
	public := strings.TrimRight(baseURL, "/") + path

	wh, err := tgbotapi.NewWebhook(public)
	if err != nil {
		log.Fatal(err)
	}
	wh.DropPendingUpdates = true
	if _, err := bot.Request(wh); err != nil {
		log.Fatal(err)
	}

	updates := make(chan tgbotapi.Update, bot.Buffer)
	opts.WebhookPath = path
	opts.Decoder = bot
	opts.Updates = updates

	go func() {
		for upd := range updates {
			r.HandleUpdate(upd)
		}
		log.Printf("webhook updates channel closed")
	}()

	log.Printf("webhook listening on %s%s", addr, path)
	if err := httpserver.Start(addr, httpserver.NewRouter(opts)); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func startPollingMode(addr string, bot *tgbotapi.BotAPI, r *telegram.Router, opts httpserver.Options) {
	// polling replaces any webhook left over from a previous deployment
	if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Printf("delete webhook: %v", err)
	}

	go func() {
		if err := httpserver.Start(addr, httpserver.NewRouter(opts)); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	runPolling(context.Background(), bot, r.HandleUpdate)
}
