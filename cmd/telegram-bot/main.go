package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smart-pantry/internal/config"
	"smart-pantry/internal/database"
	"smart-pantry/internal/metrics"
	"smart-pantry/internal/telegram"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.TelegramBotToken == "" || cfg.TelegramWebhookURL == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN and TELEGRAM_WEBHOOK_URL are required")
	}

	var metricsStore *metrics.Store
	if cfg.MetricsDBPath != "" {
		db, err := database.NewDB(cfg.MetricsDBPath)
		if err != nil {
			log.Fatalf("Failed to initialize metrics database: %v", err)
		}
		metricsStore = metrics.NewStore(db.SQL)
		defer metricsStore.Close()
	}

	bot, err := telegram.NewBot(cfg, metricsStore)
	if err != nil {
		log.Fatalf("Failed to initialize Telegram Bot: %v", err)
	}

	mux := http.NewServeMux()
	bot.RegisterHandlers(mux)

	srv := &http.Server{
		Addr:    cfg.HTTPAddress(),
		Handler: mux,
	}

	go func() {
		log.Printf("Telegram Bot Server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
