package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"thepup/internal/auth"
	"thepup/internal/cache"
	"thepup/internal/config"
	"thepup/internal/geo"
	"thepup/internal/graceful"
	"thepup/internal/models/domain"
	"thepup/internal/openrouter"
	"thepup/internal/orchestrator"
	"thepup/internal/repositories"
	"thepup/internal/scraper"
	"thepup/internal/storage"
	telegramBot "thepup/internal/telegram"
	"thepup/internal/transport/httpServer"
	"thepup/internal/transport/httpServer/handlers"
	"thepup/internal/transport/httpServer/routers"
	"thepup/internal/utils/logger/handlers/slogpretty"
	"thepup/internal/utils/logger/sl"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

var Version = "0.1"

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	if err := cfg.ReadPromptFromFile(); err != nil {
		log.Warn("system prompt not loaded", sl.Err(err))
	}

	log.Info(
		"starting thepup",
		slog.String("env", cfg.Env),
		slog.String("version", Version),
		slog.String("timezone", cfg.Location().String()),
	)

	ctx := context.Background()

	repositoryService, err := repositories.New(log, cfg)
	if err != nil {
		log.Error("failed to init repository", sl.Err(err))
		os.Exit(1)
	}

	cacheService := cache.New(log, cfg.CacheConfig)

	// без бакета загрузка картинок отключена
	var (
		uploader handlers.Uploader
		images   handlers.ImageRemover
	)
	var storageService *storage.Storage
	if cfg.StorageConfig.Bucket != "" {
		storageService, err = storage.New(ctx, log, cfg.StorageConfig)
		if err != nil {
			log.Error("failed to init storage", sl.Err(err))
			os.Exit(1)
		}
		uploader, images = storageService, storageService
	} else {
		log.Info("storage bucket is empty, uploads disabled")
	}

	authService := auth.New(log, repositoryService, cfg.AuthConfig.JWTSecret, cfg.AuthConfig.TokenTTL)
	if err := authService.Bootstrap(ctx, cfg.AuthConfig.AdminEmail, cfg.AuthConfig.AdminPassword); err != nil {
		log.Error("failed to bootstrap admin", sl.Err(err))
		os.Exit(1)
	}

	shutdownOps := map[string]graceful.Operation{
		"Repository service": func(ctx context.Context) error {
			return repositoryService.Shutdown(ctx)
		},
		"Cache service": func(ctx context.Context) error {
			return cacheService.Shutdown(ctx)
		},
	}

	// Импорт: scraper → AI → модерация в Telegram
	var (
		importer  handlers.Importer
		ai        orchestrator.AI
		moderator orchestrator.Moderator
		enriched  <-chan domain.Draft
	)

	if cfg.ScraperConfig.Enabled {
		scraperService := scraper.New(log, cfg, repositoryService)

		if cfg.BotConfig.AI.Enabled {
			aiService := openrouter.NewClient(log, cfg, repositoryService)
			ai, enriched = aiService, aiService.EnrichedChan
			shutdownOps["AI service"] = aiService.Shutdown
			go aiService.Start()
		}

		if cfg.BotConfig.Enabled {
			tgBot, err := telegramBot.New(log, cfg, repositoryService, cacheService)
			if err != nil {
				log.Error("failed to init telegram bot", sl.Err(err))
				os.Exit(1)
			}
			moderator = tgBot
			shutdownOps["Telegram bot"] = tgBot.Shutdown
			go tgBot.Start(30)
		}

		orchestratorService := orchestrator.New(log, cfg, scraperService, ai, moderator, scraperService.CompletedChan, enriched)
		importer = orchestratorService
		shutdownOps["Scraper service"] = scraperService.Shutdown
		shutdownOps["Orchestrator service"] = orchestratorService.Shutdown

		go scraperService.Start()
		if err := orchestratorService.Start(); err != nil {
			log.Error("failed to start orchestrator", sl.Err(err))
			os.Exit(1)
		}
	} else {
		log.Info("scraper disabled, import is unavailable")
	}

	// HTTP Server
	loc := cfg.Location()
	markers := geo.NewMarkerCache(cfg.MapConfig.IconBaseURL, cfg.MapConfig.DefaultColor, cfg.MapConfig.CategoryColor)

	router := routers.NewRouter(log, routers.Handlers{
		News:   handlers.NewNewsHandler(log, repositoryService, cacheService, images),
		Events: handlers.NewEventHandler(log, repositoryService, cacheService, images, markers, cfg.MapConfig, loc),
		Cafes:  handlers.NewCafeHandler(log, repositoryService, cacheService, images),
		Search: handlers.NewSearchHandler(log, repositoryService, repositoryService, repositoryService, cacheService),
		Admin:  handlers.NewAdminHandler(log, authService, importer),
		Upload: handlers.NewUploadHandler(log, uploader),
	}, authService, cfg.HttpServer.AllowedOrigins)

	httpSrv := httpServer.NewHttpServer(log, cfg.HttpServer, router)
	shutdownOps["HTTP server"] = httpSrv.Shutdown

	maxSecond := 15 * time.Second
	waitShutdown := graceful.GracefulShutdown(
		context.Background(),
		maxSecond,
		shutdownOps,
		log,
	)

	go httpSrv.Listen()

	<-waitShutdown
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog(slog.LevelDebug)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = setupPrettySlog(slog.LevelInfo)
	default: // If env config is invalid, set prod settings by default due to security
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog(level slog.Level) *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: level,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}
