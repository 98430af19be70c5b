package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codedepartament.ru/sbp/internal/bootstrap"
	"codedepartament.ru/sbp/internal/config"
	"codedepartament.ru/sbp/internal/server"
	"codedepartament.ru/sbp/pkg/database"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	db := database.Connect()
	if err := bootstrap.Migrate(db); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	if err := bootstrap.SeedCatalog(db); err != nil {
		log.Fatalf("failed to seed catalog: %v", err)
	}
	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedModerator(db); err != nil {
			log.Fatalf("failed to seed moderator: %v", err)
		}
	}

	redisClient := initRedis(cfg.RedisURL)

	srv, err := server.NewServer(cfg, db, redisClient)
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}
	srv.Start()

	done := make(chan struct{})
	go func() {
		defer close(done)
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("🛑 Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				log.Printf("Error closing Redis: %v", err)
			}
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := srv.Run(); err != nil {
		log.Fatalf("server exited with error: %v", err)
	}
	<-done
	log.Println("✓ Server shutdown complete")
}

// initRedis returns nil when REDIS_URL is unset or unreachable.
func initRedis(url string) *redis.Client {
	if url == "" {
		log.Println("⚠️ REDIS_URL is not set, running without cache and rate limits")
		return nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("⚠️ Invalid REDIS_URL: %v", err)
		return nil
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("⚠️ Redis unreachable, continuing without it: %v", err)
		_ = client.Close()
		return nil
	}

	log.Println("✅ Redis connected")
	return client
}
