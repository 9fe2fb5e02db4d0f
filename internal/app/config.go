package app

import (
	"github.com/hudai/ingest-backend/internal/pkg/logger"
	"github.com/hudai/ingest-backend/internal/utils"
)

// Config is the explicit configuration value object for one process.
// Everything is resolved from the environment once at startup and passed
// down; the sampler and the batch writers never read ambient state.
type Config struct {
	// GCP
	GCPProject string
	GCSBucket  string

	// Video sampling
	ExtractFrames    bool
	MinFPS           float64
	MaxFPS           float64
	MaxIntervalS     float64
	MotionThreshold  float64
	DownscaleWidth   int
	FrameJPEGQuality int

	// Analytical-store batching
	LineageChunkSize int
	ImagesChunkSize  int

	// Web
	Host string
	Port int

	// Cloud Run Jobs (async workers)
	RunRegion           string
	RunVideoJobName     string
	RunImagesZipJobName string

	// GCS staging prefixes (deleted by the workers after each run)
	TmpVideosPrefix string
	TmpZipsPrefix   string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		GCPProject: utils.GetEnv("GCP_PROJECT", "", log),
		GCSBucket:  utils.GetEnv("GCS_BUCKET", "", log),

		ExtractFrames:    utils.GetEnvAsBool("EXTRACT_FRAMES", true, log),
		MinFPS:           utils.GetEnvAsFloat("MIN_FPS", 0.5, log),
		MaxFPS:           utils.GetEnvAsFloat("MAX_FPS", 5.0, log),
		MaxIntervalS:     utils.GetEnvAsFloat("MAX_INTERVAL_S", 10.0, log),
		MotionThreshold:  utils.GetEnvAsFloat("MOTION_THRESHOLD", 12.0, log),
		DownscaleWidth:   utils.GetEnvAsInt("DOWNSCALE_WIDTH", 320, log),
		FrameJPEGQuality: utils.GetEnvAsInt("FRAME_JPEG_QUALITY", 92, log),

		LineageChunkSize: utils.GetEnvAsInt("LINEAGE_CHUNK_SIZE", 500, log),
		ImagesChunkSize:  utils.GetEnvAsInt("IMAGES_CHUNK_SIZE", 500, log),

		Host: utils.GetEnv("HOST", "127.0.0.1", log),
		Port: utils.GetEnvAsInt("PORT", 8000, log),

		RunRegion:           utils.GetEnv("RUN_REGION", "us-central1", log),
		RunVideoJobName:     utils.GetEnv("RUN_JOB_NAME", "hud-video-worker", log),
		RunImagesZipJobName: utils.GetEnv("RUN_IMAGES_ZIP_JOB_NAME", "hud-images-zip-worker", log),

		TmpVideosPrefix: utils.GetEnv("GCS_TMP_VIDEOS_PREFIX", "tmp/videos", log),
		TmpZipsPrefix:   utils.GetEnv("GCS_TMP_ZIPS_PREFIX", "tmp/zips", log),
	}
}
