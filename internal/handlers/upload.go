package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hudai/ingest-backend/internal/app"
	repos "github.com/hudai/ingest-backend/internal/data/repos/media"
	"github.com/hudai/ingest-backend/internal/domain"
	"github.com/hudai/ingest-backend/internal/media"
	"github.com/hudai/ingest-backend/internal/pkg/dbctx"
	"github.com/hudai/ingest-backend/internal/pkg/logger"
	"github.com/hudai/ingest-backend/internal/platform/gcp"
)

// UploadHandler accepts media uploads, stages them in the tmp/ bucket
// prefix and hands off to the asynchronous worker jobs. The heavy
// pipeline work never runs inside a request.
type UploadHandler struct {
	log       *logger.Logger
	cfg       app.Config
	videoRepo repos.VideoRepo
	bucket    gcp.BucketService
	runJobs   gcp.RunJobsService
}

func NewUploadHandler(
	log *logger.Logger,
	cfg app.Config,
	videoRepo repos.VideoRepo,
	bucket gcp.BucketService,
	runJobs gcp.RunJobsService,
) *UploadHandler {
	return &UploadHandler{
		log:       log.With("handler", "UploadHandler"),
		cfg:       cfg,
		videoRepo: videoRepo,
		bucket:    bucket,
		runJobs:   runJobs,
	}
}

// POST /api/upload-video
//
// Spools the upload to disk while hashing it, dedups against the
// analytical store before any durable write, stages the bytes under
// tmp/videos/ and triggers the video worker job.
func (h *UploadHandler) UploadVideo(c *gin.Context) {
	fileHeader, err := c.FormFile("video")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no video file received")
		return
	}

	sourceType := formValue(c, "source_type")
	provider := formValue(c, "provider")
	if provider == "" {
		provider = "unknown"
	}
	if !domain.SourceTypes[sourceType] {
		RespondError(c, http.StatusBadRequest, "invalid source_type, use public/captured/simulated")
		return
	}

	ext := media.NormalizeExt(fileHeader.Filename)
	if ext == "" {
		ext = ".mp4"
	}

	tmpPath, videoUID, err := spoolAndHash(fileHeader, "upload_*"+ext)
	if err != nil {
		h.log.Error("Failed to spool upload", "error", err)
		RespondError(c, http.StatusInternalServerError, "could not store upload")
		return
	}
	defer os.Remove(tmpPath)

	exists, err := h.videoRepo.Exists(dbctx.Context{Ctx: c.Request.Context()}, videoUID)
	if err != nil {
		// If the store cannot answer, do not upload: refusing beats
		// accidental duplication.
		h.log.Error("Video dedup check failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "could not verify duplicates")
		return
	}
	if exists {
		c.JSON(http.StatusConflict, UploadResponse{
			OK:        false,
			Duplicate: true,
			Message:   "duplicate: video already ingested",
		})
		return
	}

	object := fmt.Sprintf("%s/%s%s", h.cfg.TmpVideosPrefix, videoUID, ext)
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	gcsURI, err := h.bucket.UploadFile(c.Request.Context(), h.cfg.GCSBucket, object, tmpPath, contentType)
	if err != nil {
		h.log.Error("Staging upload failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "an error occurred during processing")
		return
	}

	_, err = h.runJobs.RunJob(c.Request.Context(), h.cfg.RunVideoJobName, map[string]string{
		"INPUT_GCS_URI":           gcsURI,
		"INPUT_SOURCE_TYPE":       sourceType,
		"INPUT_PROVIDER":          provider,
		"INPUT_ORIGINAL_FILENAME": fileHeader.Filename,
		"INPUT_VIDEO_UID":         videoUID,
	})
	if err != nil {
		h.log.Error("Could not start video worker job", "error", err)
		RespondError(c, http.StatusInternalServerError, "an error occurred during processing")
		return
	}

	RespondOK(c, "uploaded, processing started")
}

// POST /api/upload-images-zip
//
// Stages the archive under tmp/zips/ (named by its own content hash) and
// triggers the zip worker job, which unpacks and ingests members.
func (h *UploadHandler) UploadImagesZip(c *gin.Context) {
	fileHeader, err := c.FormFile("zipfile")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "no zip file received")
		return
	}

	sourceType := formValue(c, "source_type")
	datasetName := formValue(c, "dataset_name")
	provider := formValue(c, "provider")
	if provider == "" {
		provider = datasetName
	}
	if provider == "" {
		provider = "unknown"
	}
	if !domain.SourceTypes[sourceType] {
		RespondError(c, http.StatusBadRequest, "invalid source_type, use public/captured/simulated")
		return
	}
	if datasetName == "" {
		RespondError(c, http.StatusBadRequest, "dataset_name is required")
		return
	}

	tmpPath, zipSHA, err := spoolAndHash(fileHeader, "upload_zip_*.zip")
	if err != nil {
		h.log.Error("Failed to spool upload", "error", err)
		RespondError(c, http.StatusInternalServerError, "could not store upload")
		return
	}
	defer os.Remove(tmpPath)

	object := fmt.Sprintf("%s/%s.zip", h.cfg.TmpZipsPrefix, zipSHA)
	gcsURI, err := h.bucket.UploadFile(c.Request.Context(), h.cfg.GCSBucket, object, tmpPath, "application/zip")
	if err != nil {
		h.log.Error("Staging upload failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "an error occurred during processing")
		return
	}

	_, err = h.runJobs.RunJob(c.Request.Context(), h.cfg.RunImagesZipJobName, map[string]string{
		"INPUT_GCS_URI":           gcsURI,
		"INPUT_SOURCE_TYPE":       sourceType,
		"INPUT_DATASET_NAME":      datasetName,
		"INPUT_PROVIDER":          provider,
		"INPUT_ORIGINAL_FILENAME": fileHeader.Filename,
		"INPUT_ZIP_SHA":           zipSHA,
	})
	if err != nil {
		h.log.Error("Could not start zip worker job", "error", err)
		RespondError(c, http.StatusInternalServerError, "an error occurred during processing")
		return
	}

	RespondOK(c, "uploaded, unpack and ingest started")
}

func formValue(c *gin.Context, key string) string {
	return strings.TrimSpace(c.PostForm(key))
}

// spoolAndHash copies the multipart file to a temp file while computing
// its SHA-256, so large uploads never sit fully in memory.
func spoolAndHash(fh *multipart.FileHeader, pattern string) (path, digest string, err error) {
	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}

	h := sha256.New()
	if _, err := io.Copy(tmp, io.TeeReader(src, h)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", "", fmt.Errorf("spool upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", "", err
	}
	return tmp.Name(), hex.EncodeToString(h.Sum(nil)), nil
}
