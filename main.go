package main

import (
	"context"
	"log"
	"os/signal"
	"sync"
	"syscall"

	"reelvote/cmd"
	"reelvote/internal/data/cache"
	"reelvote/internal/data/repository"
	"reelvote/internal/wire"
	"reelvote/pkg/database"
	"reelvote/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using zap production logger.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.Bool("score_worker", config.Worker.Enabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if config.Database.AutoMigrate {
		if err := database.Migrate(config.Database, logger); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	db, err := database.InitDB(ctx, config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("Database connected successfully")

	reviewCache := cache.NewReviewCache(ctx, config.Redis.URL, config.Redis.CacheTTL, logger)
	defer reviewCache.Close()

	repos := repository.NewRepository(db, logger)
	app := wire.Wiring(db, repos, reviewCache, config, logger)

	var workers sync.WaitGroup
	if config.Worker.Enabled {
		workers.Add(1)
		go func() {
			defer workers.Done()
			app.Service.ScoreWorker.Run(ctx)
		}()
	}

	if err := cmd.APIServer(ctx, app.Router, config.App, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		stop()
	}

	workers.Wait()
}
