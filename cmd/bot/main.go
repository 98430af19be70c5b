package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"codedepartament.ru/sbp/internal/bot"
	"codedepartament.ru/sbp/internal/config"
	"codedepartament.ru/sbp/pkg/database"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func main() {
	cfg, err := config.BotFromEnv()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = database.DSN()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectPool(cfg.DatabaseURL, 5, 30*time.Second)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("failed to create telegram bot: %v", err)
	}
	log.Printf("🤖 Authorized as @%s", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := api.GetUpdatesChan(u)

	app := bot.New(api, bot.NewStore(pool, cfg.FullRegionCount), cfg.SiteURL)
	if err := app.Run(ctx, updates); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("bot stopped: %v", err)
	}
	api.StopReceivingUpdates()
	log.Println("✓ Bot shutdown complete")
}
