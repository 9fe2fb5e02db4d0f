package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hudai/ingest-backend/internal/app"
	repos "github.com/hudai/ingest-backend/internal/data/repos/media"
	"github.com/hudai/ingest-backend/internal/domain"
	"github.com/hudai/ingest-backend/internal/media"
	"github.com/hudai/ingest-backend/internal/pkg/dbctx"
	"github.com/hudai/ingest-backend/internal/pkg/logger"
	"github.com/hudai/ingest-backend/internal/platform/gcp"
)

const frameExt = ".jpg"

// VideoIngestService runs the full video pipeline: identity, dedup,
// archive upload, adaptive frame sampling, then the ordered batch insert
// of video, image and lineage rows.
type VideoIngestService interface {
	ProcessUpload(ctx context.Context, localVideoPath, originalFilename, sourceType, provider string) (PipelineResult, error)
}

type videoIngestService struct {
	cfg         app.Config
	log         *logger.Logger
	videoRepo   repos.VideoRepo
	imageRepo   repos.ImageRepo
	lineageRepo repos.LineageRepo
	bucket      gcp.BucketService

	// seams for tests; production wiring uses the ffmpeg-backed defaults
	hashFile   func(path string) (string, error)
	probeVideo func(ctx context.Context, path string) (media.VideoMetadata, error)
	openStream func(ctx context.Context, path string, meta media.VideoMetadata) (media.FrameStream, error)
	now        func() time.Time
}

func NewVideoIngestService(
	cfg app.Config,
	log *logger.Logger,
	videoRepo repos.VideoRepo,
	imageRepo repos.ImageRepo,
	lineageRepo repos.LineageRepo,
	bucket gcp.BucketService,
) VideoIngestService {
	return &videoIngestService{
		cfg:         cfg,
		log:         log.With("service", "VideoIngestService"),
		videoRepo:   videoRepo,
		imageRepo:   imageRepo,
		lineageRepo: lineageRepo,
		bucket:      bucket,
		hashFile:    media.SHA256File,
		probeVideo:  media.ProbeVideo,
		openStream:  media.NewFFmpegFrameStream,
		now:         time.Now,
	}
}

func (s *videoIngestService) ProcessUpload(ctx context.Context, localVideoPath, originalFilename, sourceType, provider string) (PipelineResult, error) {
	sourceType = strings.TrimSpace(sourceType)
	provider = strings.TrimSpace(provider)
	if provider == "" {
		provider = "unknown"
	}

	if !domain.SourceTypes[sourceType] {
		return PipelineResult{Status: StatusRejected, Message: "invalid source_type, use public/captured/simulated"}, nil
	}
	ext := media.NormalizeExt(originalFilename)
	if !media.VideoExts[ext] {
		return PipelineResult{Status: StatusRejected, Message: fmt.Sprintf("unsupported video extension: %s", ext)}, nil
	}

	videoUID, err := s.hashFile(localVideoPath)
	if err != nil {
		return PipelineResult{Status: StatusError, Message: "could not hash input"}, err
	}
	log := s.log.With("video_uid", videoUID)

	dbc := dbctx.Context{Ctx: ctx}
	exists, err := s.videoRepo.Exists(dbc, videoUID)
	if err != nil {
		// An unanswered dedup probe is never "not a duplicate".
		return PipelineResult{Status: StatusError, Message: "could not verify duplicates"}, fmt.Errorf("video dedup check: %w", err)
	}
	if exists {
		log.Info("Video already ingested, skipping")
		return PipelineResult{Status: StatusDuplicate, Message: "video already ingested, nothing written"}, nil
	}

	ingestTS, jobTS := runClock(s.now())
	sourceName := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))

	videoObject := gcp.VideoObjectKey(sourceType, provider, jobTS, videoUID+ext)
	videoURI, err := s.bucket.UploadFile(ctx, s.cfg.GCSBucket, videoObject, localVideoPath, "")
	if err != nil {
		return PipelineResult{Status: StatusError, Message: "video upload failed"}, fmt.Errorf("upload video: %w", err)
	}
	log.Info("Uploaded video", "uri", videoURI)

	meta, probeErr := s.probeVideo(ctx, localVideoPath)
	if probeErr != nil {
		log.Warn("ffprobe failed, ingesting without metadata", "error", probeErr)
		meta = media.VideoMetadata{Codec: "unknown"}
	}

	var frames []media.ExtractedFrame
	if s.cfg.ExtractFrames && probeErr == nil {
		stream, err := s.openStream(ctx, localVideoPath, meta)
		if err != nil {
			log.Warn("Could not open frame stream, ingesting zero frames", "error", err)
		} else {
			frames = media.SampleFrames(stream, videoUID, media.SamplerConfig{
				MinFPS:          s.cfg.MinFPS,
				MaxFPS:          s.cfg.MaxFPS,
				MaxIntervalS:    s.cfg.MaxIntervalS,
				MotionThreshold: s.cfg.MotionThreshold,
				DownscaleWidth:  s.cfg.DownscaleWidth,
				JPEGQuality:     s.cfg.FrameJPEGQuality,
			})
			_ = stream.Close()
		}
	}
	log.Info("Sampled frames", "count", len(frames))

	// One extraction job token correlates every frame of this run.
	extractJobID := ingestTS

	imageRows := make([]*domain.Image, 0, len(frames))
	lineageRows := make([]*domain.FrameLineage, 0, len(frames))
	for _, fr := range frames {
		imgObject := gcp.ImageObjectKey(sourceType, provider, jobTS, fr.ImageUID+frameExt)
		imgURI, err := s.bucket.UploadBytes(ctx, s.cfg.GCSBucket, imgObject, fr.JPEGBytes, "image/jpeg")
		if err != nil {
			return PipelineResult{Status: StatusError, Message: "frame upload failed"}, fmt.Errorf("upload frame %d: %w", fr.FrameIdx, err)
		}

		imageRows = append(imageRows, &domain.Image{
			ImageUID:      fr.ImageUID,
			SourceType:    sourceType,
			SourceName:    sourceName,
			GCSURI:        imgURI,
			IngestTS:      ingestTS,
			Width:         fr.Width,
			Height:        fr.Height,
			Format:        "jpg",
			SHA256:        fr.SHA256,
			FileSizeBytes: fr.FileSizeBytes,
		})
		lineageRows = append(lineageRows, &domain.FrameLineage{
			ImageUID:     fr.ImageUID,
			VideoUID:     videoUID,
			FrameIdx:     fr.FrameIdx,
			TimestampMS:  fr.TimestampMS,
			ExtractJobID: extractJobID,
		})
	}

	// Fixed write order: parent row, then derived images, then lineage.
	if err := s.videoRepo.Insert(dbc, &domain.Video{
		VideoUID:   videoUID,
		GCSURI:     videoURI,
		DurationMS: meta.DurationMS,
		FPS:        meta.FPS,
		Codec:      meta.Codec,
		SourceType: sourceType,
		SourceName: sourceName,
		IngestTS:   ingestTS,
		NBFrames:   len(frames),
	}); err != nil {
		return PipelineResult{Status: StatusError, Message: "video record insert failed"}, fmt.Errorf("insert video row: %w", err)
	}
	if err := s.imageRepo.InsertChunked(dbc, imageRows, s.cfg.ImagesChunkSize); err != nil {
		return PipelineResult{Status: StatusError, Message: "image record insert failed"}, fmt.Errorf("insert image rows: %w", err)
	}
	if err := s.lineageRepo.InsertChunked(dbc, lineageRows, s.cfg.LineageChunkSize); err != nil {
		return PipelineResult{Status: StatusError, Message: "lineage record insert failed"}, fmt.Errorf("insert lineage rows: %w", err)
	}

	return PipelineResult{
		Status:   StatusOK,
		Message:  "video uploaded and processed",
		NBFrames: len(frames),
	}, nil
}
