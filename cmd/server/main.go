package main

import (
	"fmt"
	"os"

	"github.com/hudai/ingest-backend/internal/app"
	"github.com/hudai/ingest-backend/internal/data/db"
	repos "github.com/hudai/ingest-backend/internal/data/repos/media"
	"github.com/hudai/ingest-backend/internal/handlers"
	"github.com/hudai/ingest-backend/internal/pkg/logger"
	"github.com/hudai/ingest-backend/internal/platform/gcp"
	"github.com/hudai/ingest-backend/internal/server"
)

func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := app.LoadConfig(log)

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	pg := postgresService.DB()

	videoRepo := repos.NewVideoRepo(pg, log)

	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Fatal("GCS init failed", "error", err)
	}
	runJobsService, err := gcp.NewRunJobsService(log, cfg.GCPProject, cfg.RunRegion)
	if err != nil {
		log.Fatal("Cloud Run Jobs init failed", "error", err)
	}

	uploadHandler := handlers.NewUploadHandler(log, cfg, videoRepo, bucketService, runJobsService)

	router := server.NewRouter(server.RouterConfig{UploadHandler: uploadHandler})

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Info("Starting upload API", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
