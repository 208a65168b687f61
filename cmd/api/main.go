package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"steamboard-api/internal/cache"
	"steamboard-api/internal/config"
	"steamboard-api/internal/handler"
	"steamboard-api/internal/proxy"
	"steamboard-api/internal/repository"
	"steamboard-api/internal/router"
	"steamboard-api/internal/service"
	"steamboard-api/internal/steam"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting steamboard API...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	// Initialize library store based on config
	var db *sql.DB
	var gameRepo repository.GameRepository
	var metaRepo repository.MetadataRepository
	var err error

	switch cfg.Store.Type {
	case "mysql":
		db, err = repository.OpenMySQL(cfg.Store.MySQLDSN())
		if err != nil {
			log.Fatalf("Failed to initialize MySQL: %v", err)
		}
		gameRepo = repository.NewMySQLGameRepository(db)
		metaRepo = repository.NewMySQLMetadataRepository(db)
		log.Println("MySQL library store initialized")
	default: // sqlite
		if err := os.MkdirAll("./data", 0o755); err != nil {
			log.Printf("Warning: could not create data dir: %v", err)
		}
		db, err = repository.OpenSQLite(cfg.Store.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		gameRepo = repository.NewSQLiteGameRepository(db)
		metaRepo = repository.NewSQLiteMetadataRepository(db)
		log.Println("SQLite library store initialized")
	}
	defer db.Close()

	// Initialize response cache
	var responseCache cache.Cache
	switch cfg.Cache.Type {
	case "redis":
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Printf("Warning: Redis connection failed, falling back to memory cache: %v", err)
			responseCache = cache.NewMemoryCache()
		} else {
			defer redisCache.Close()
			responseCache = redisCache
			log.Println("Redis cache initialized")
		}
	default:
		responseCache = cache.NewMemoryCache()
		log.Println("Memory cache initialized")
	}

	// Steam API client and library service
	steamClient := steam.NewClient(cfg.Steam.APIBaseURL, cfg.Steam.Timeout)
	librarySvc := service.NewLibraryService(steamClient, gameRepo, metaRepo, responseCache, service.Options{
		BatchSize:  cfg.Steam.BatchSize,
		BatchDelay: cfg.Steam.BatchDelay,
		CacheTTL:   cfg.Cache.TTL,
	})

	// Background auto-refresh
	var scheduler *service.RefreshScheduler
	if cfg.Steam.AutoRefresh {
		scheduler = service.NewRefreshScheduler(librarySvc, service.SchedulerConfig{
			StaleAfter:    cfg.Steam.AutoRefreshAfter,
			CheckInterval: cfg.Steam.AutoRefreshInterval,
		})
		scheduler.Start()
	}

	// Steam reverse proxy
	steamProxy, err := proxy.New(cfg.Steam.APIBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize Steam proxy: %v", err)
	}

	// Create router
	r := router.New(router.Config{
		Handler:        handler.New(cfg.App.Version),
		LibraryHandler: handler.NewLibraryHandler(librarySvc),
		GameHandler:    handler.NewGameHandler(librarySvc),
		ProfileHandler: handler.NewProfileHandler(librarySvc),
		AdminHandler:   handler.NewAdminHandler(gameRepo, cfg.Store.Type),
		SteamProxy:     steamProxy,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}
