package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedtuner/feedtuner/app/api"
	"github.com/feedtuner/feedtuner/app/cfg"
	"github.com/feedtuner/feedtuner/app/database"
	"github.com/feedtuner/feedtuner/app/feed"
	"github.com/feedtuner/feedtuner/app/ingest"
	"github.com/feedtuner/feedtuner/app/prefs"
	"github.com/feedtuner/feedtuner/app/tasks"
	"github.com/feedtuner/feedtuner/app/taxonomy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	log.Println("Starting FeedTuner server...")

	// Database connection
	log.Printf("Opening database at %s...", appCfg.DBPath)
	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		log.Fatal("Failed to open database:", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations:", err)
	}
	log.Printf("Database ready (schema version %d, dirty: %v)", version, dirty)

	// Topic taxonomy
	tax, err := taxonomy.Load(appCfg.TaxonomyFile)
	if err != nil {
		log.Fatal("Failed to load taxonomy:", err)
	}
	log.Printf("Loaded taxonomy with %d categories", tax.CategoryCount())

	// Repositories and registry
	prefRepo := database.NewPreferenceRepository(db)
	settingsRepo := database.NewSettingsRepository(db)
	registry := prefs.NewRegistry(prefRepo)

	// Background persistence scheduler
	log.Printf("Starting background scheduler with %d workers...", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(registry, prefRepo)
	registry.SetSaver(scheduler)
	scheduler.Start()
	defer scheduler.Stop()

	// Personalization pipeline
	filter := feed.NewFilter(appCfg.BoostUnit)
	personalizer := feed.NewPersonalizer(filter)
	parser := ingest.NewParser()

	// HTTP server
	log.Println("Initializing HTTP server...")
	handler := api.NewHandler(registry, personalizer, parser, tax, prefRepo, settingsRepo)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %s", appCfg.Port)
		log.Printf("API endpoints available:")
		log.Printf("  Taxonomy:      http://localhost:%s/taxonomy", appCfg.Port)
		log.Printf("  Preferences:   http://localhost:%s/api/profiles/<id>/preferences", appCfg.Port)
		log.Printf("  Personalize:   http://localhost:%s/api/profiles/<id>/feed (POST)", appCfg.Port)
		log.Printf("  Settings:      http://localhost:%s/api/profiles/<id>/settings", appCfg.Port)
		log.Printf("  Health check:  http://localhost:%s/health", appCfg.Port)
		log.Printf("  Statistics:    http://localhost:%s/stats", appCfg.Port)

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Println("FeedTuner server started successfully!")

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-serverErrChan:
		log.Printf("Server error: %v", err)
	}

	// Graceful shutdown
	log.Println("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	} else {
		log.Println("HTTP server stopped")
	}

	// Scheduler is stopped via defer; it flushes pending saves first
	log.Println("FeedTuner server shutdown complete")
}
