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
	"smart-pantry/internal/llm"
	"smart-pantry/internal/metrics"
	"smart-pantry/internal/server"
	"smart-pantry/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.SigningKey == "" {
		log.Fatal("PANTRY_SIGNING_KEY is required")
	}

	ctx := context.Background()

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	metricsStore := metrics.NewStore(db.SQL)
	opts := []server.Option{server.WithMetrics(metricsStore)}

	if cfg.GroqAPIKey != "" {
		groq := llm.NewGroqClient(cfg, llm.WithSystemPrompt(llm.RecipeSystemPrompt))
		opts = append(opts, server.WithSuggester(llm.NewRecipeSuggester(groq)))
	} else {
		log.Printf("Warning: GROQ_API_KEY not set, serving fallback recipes")
	}

	if cfg.GeminiAPIKey != "" {
		gemini, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to create Gemini client: %v", err)
		}
		defer gemini.Close()
		opts = append(opts, server.WithDetector(llm.NewFoodDetector(gemini)))
	} else {
		log.Printf("Warning: GEMINI_API_KEY not set, photo uploads are disabled")
	}

	accounts := storage.NewAccountStore(db.SQL)
	tokens := server.NewTokenManager(cfg.SigningKey, "pantryd")
	srv := &http.Server{
		Addr:    cfg.HTTPAddress(),
		Handler: server.New(accounts, tokens, opts...).Router(),
	}

	go func() {
		log.Printf("Pantry server listening on %s", srv.Addr)
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
