package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"wardrobeapi/catalog"
	"wardrobeapi/config"
	"wardrobeapi/controllers"
	"wardrobeapi/dbhelper"
	"wardrobeapi/services"
)

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %s", err)
	}
	err = sentry.Init(sentry.ClientOptions{
		// Empty DSN disables reporting.
		Dsn:              cfg.Sentry.DSN,
		Environment:      cfg.Env,
		Release:          cfg.Sentry.Release,
		Debug:            false,
		TracesSampleRate: 1.0,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}
	defer sentry.Recover()
	defer sentry.Flush(2 * time.Second)

	ctx := context.Background()
	db, err := dbhelper.SetupDB(cfg.Database)
	if err != nil {
		log.Fatalf("database: %s", err)
	}
	store := services.NewGormWardrobeStore(db)

	storage, err := services.NewStorageProvider(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage provider %s: %s", cfg.Storage.Provider, err)
	}
	urlCache, err := services.NewURLCacheService(storage, cfg.Storage.SignedURLTTL)
	if err != nil {
		log.Fatal("Failed to initialize URL cache service")
	}

	google := services.NewGoogleClients(ctx, cfg.AI)
	uploads := &services.ClothingUploadService{
		Storage:    storage,
		Remover:    services.NewBackgroundRemover(cfg),
		Classifier: services.NewGeminiClassifier(google.GeminiModels(), cfg.AI.VisionModel, cfg.Timeouts.Classify),
		Store:      store,
		Resolver:   &services.ImageURLResolver{Cache: urlCache, Storage: storage, TTL: cfg.Storage.SignedURLTTL},
		Taxonomy:   catalog.Default(),
		MaxBytes:   cfg.MaxUploadBytes,
	}
	fitting := services.NewFittingService(
		services.NewGoogleImageGenerator(google, cfg),
		services.NewGeminiPhotoAnalyzer(google.GeminiModels(), cfg.AI.VisionModel, cfg.Timeouts.Generate),
	)

	e := controllers.SetupServer(cfg, store, uploads, fitting)
	e.Debug = cfg.Env == "local"
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.Logger.Fatal(err)
		}
	}()

	quit, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-quit.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %s", err)
	}
	if err := services.CloseStorage(storage); err != nil {
		log.Printf("closing storage client: %s", err)
	}
}
