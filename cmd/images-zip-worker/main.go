package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hudai/ingest-backend/internal/app"
	"github.com/hudai/ingest-backend/internal/data/db"
	repos "github.com/hudai/ingest-backend/internal/data/repos/media"
	"github.com/hudai/ingest-backend/internal/domain"
	"github.com/hudai/ingest-backend/internal/pkg/logger"
	"github.com/hudai/ingest-backend/internal/platform/gcp"
	"github.com/hudai/ingest-backend/internal/services"
)

// The zip worker downloads a staged archive, ingests its images and
// always removes the staging object and the local copy before exiting.
func main() {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "production"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := app.LoadConfig(log)

	gcsURI := strings.TrimSpace(os.Getenv("INPUT_GCS_URI"))
	sourceType := strings.TrimSpace(os.Getenv("INPUT_SOURCE_TYPE"))
	datasetName := strings.TrimSpace(os.Getenv("INPUT_DATASET_NAME"))

	if gcsURI == "" {
		log.Fatal("Missing INPUT_GCS_URI")
	}
	if !domain.SourceTypes[sourceType] {
		log.Fatal("Invalid INPUT_SOURCE_TYPE", "source_type", sourceType)
	}
	if datasetName == "" {
		log.Fatal("Missing INPUT_DATASET_NAME")
	}

	localZip := filepath.Join(os.TempDir(), "input_images.zip")

	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Fatal("GCS init failed", "error", err)
	}

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	imageRepo := repos.NewImageRepo(postgresService.DB(), log)

	ingest := services.NewZipIngestService(cfg, log, imageRepo, bucketService)

	ctx := context.Background()
	stagingBucket, stagingObject, err := gcp.ParseURI(gcsURI)
	if err != nil {
		log.Fatal("Invalid INPUT_GCS_URI", "uri", gcsURI, "error", err)
	}
	if err := bucketService.DownloadToFile(ctx, stagingBucket, stagingObject, localZip); err != nil {
		log.Fatal("Could not download staging object", "uri", gcsURI, "error", err)
	}

	res, runErr := ingest.ProcessZip(ctx, localZip, sourceType, datasetName)

	if err := bucketService.DeleteObject(ctx, stagingBucket, stagingObject); err != nil {
		log.Warn("Could not delete staging object", "uri", gcsURI, "error", err)
	} else {
		log.Info("Deleted staging object", "uri", gcsURI)
	}
	if err := os.Remove(localZip); err != nil && !os.IsNotExist(err) {
		log.Warn("Could not remove local staging file", "path", localZip, "error", err)
	}

	if runErr != nil {
		log.Fatal("Zip ingestion failed", "status", res.Status, "error", runErr)
	}
	log.Info("Zip ingestion finished",
		"status", res.Status,
		"inserted", res.Inserted,
		"skipped_duplicates", res.SkippedDuplicates,
		"invalid", res.Invalid,
	)
}
