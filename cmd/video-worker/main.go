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
	"github.com/hudai/ingest-backend/internal/media"
	"github.com/hudai/ingest-backend/internal/pkg/logger"
	"github.com/hudai/ingest-backend/internal/platform/gcp"
	"github.com/hudai/ingest-backend/internal/services"
)

// The video worker runs as a Cloud Run Job execution: it downloads the
// staged upload, runs the ingestion pipeline once, and always removes
// both the staging object and the local copy before exiting.
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
	provider := strings.TrimSpace(os.Getenv("INPUT_PROVIDER"))
	if provider == "" {
		provider = "unknown"
	}
	originalFilename := strings.TrimSpace(os.Getenv("INPUT_ORIGINAL_FILENAME"))
	if originalFilename == "" {
		originalFilename = "uploaded_video.mp4"
	}

	if gcsURI == "" {
		log.Fatal("Missing INPUT_GCS_URI")
	}
	if !domain.SourceTypes[sourceType] {
		log.Fatal("Invalid INPUT_SOURCE_TYPE", "source_type", sourceType)
	}

	ext := media.NormalizeExt(originalFilename)
	if ext == "" {
		ext = ".mp4"
	}
	localVideo := filepath.Join(os.TempDir(), "input_video"+ext)

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
	pg := postgresService.DB()

	videoRepo := repos.NewVideoRepo(pg, log)
	imageRepo := repos.NewImageRepo(pg, log)
	lineageRepo := repos.NewLineageRepo(pg, log)

	ingest := services.NewVideoIngestService(cfg, log, videoRepo, imageRepo, lineageRepo, bucketService)

	ctx := context.Background()
	stagingBucket, stagingObject, err := gcp.ParseURI(gcsURI)
	if err != nil {
		log.Fatal("Invalid INPUT_GCS_URI", "uri", gcsURI, "error", err)
	}
	if err := bucketService.DownloadToFile(ctx, stagingBucket, stagingObject, localVideo); err != nil {
		log.Fatal("Could not download staging object", "uri", gcsURI, "error", err)
	}

	res, runErr := ingest.ProcessUpload(ctx, localVideo, originalFilename, sourceType, provider)

	// Staging cleanup happens on every exit path, success or failure.
	if err := bucketService.DeleteObject(ctx, stagingBucket, stagingObject); err != nil {
		log.Warn("Could not delete staging object", "uri", gcsURI, "error", err)
	} else {
		log.Info("Deleted staging object", "uri", gcsURI)
	}
	if err := os.Remove(localVideo); err != nil && !os.IsNotExist(err) {
		log.Warn("Could not remove local staging file", "path", localVideo, "error", err)
	}

	if runErr != nil {
		log.Fatal("Video ingestion failed", "status", res.Status, "error", runErr)
	}
	log.Info("Video ingestion finished", "status", res.Status, "message", res.Message, "nb_frames", res.NBFrames)
}
