package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"lavoroonesto/api/internal/adminauth"
	"lavoroonesto/api/internal/advice"
	"lavoroonesto/api/internal/app"
	"lavoroonesto/api/internal/config"
	"lavoroonesto/api/internal/search"
	"lavoroonesto/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient)

	admin := adminauth.New(cfg.AdminPassword, cfg.AdminPasswordBcrypt)

	// The service runs without a store or generator; the operations that
	// need them return a configuration error instead.
	var gen *advice.Generator
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		var err error
		gen, err = advice.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("gemini client failed: %v", err)
		}
	} else {
		log.Printf("WARNING: GEMINI_API_KEY not set, advice and analysis disabled")
	}

	var redisStore *store.RedisStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		var err error
		redisStore, err = store.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
	} else {
		log.Printf("WARNING: REDIS_URL not set, report operations disabled")
	}

	service := app.New(cfg, redisStore, admin, gen, searchService)
	if err := service.Bootstrap(ctx); err != nil {
		log.Printf("WARNING: bootstrap error (will retry on next restart): %v", err)
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Lavoro Onesto API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
