package services

import (
	"context"
	"fmt"
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

// ZipIngestService ingests a zip archive of images: extension filter,
// batched dedup over pure content hashes, decode validation, upload and
// chunked insert. Zip-sourced images carry no lineage rows.
type ZipIngestService interface {
	ProcessZip(ctx context.Context, localZipPath, sourceType, datasetName string) (ZipIngestResult, error)
}

type zipIngestService struct {
	cfg       app.Config
	log       *logger.Logger
	imageRepo repos.ImageRepo
	bucket    gcp.BucketService

	collect func(zipPath string) ([]media.ZipCandidate, int, error)
	now     func() time.Time
}

func NewZipIngestService(
	cfg app.Config,
	log *logger.Logger,
	imageRepo repos.ImageRepo,
	bucket gcp.BucketService,
) ZipIngestService {
	return &zipIngestService{
		cfg:       cfg,
		log:       log.With("service", "ZipIngestService"),
		imageRepo: imageRepo,
		bucket:    bucket,
		collect:   media.CollectZipCandidates,
		now:       time.Now,
	}
}

func (s *zipIngestService) ProcessZip(ctx context.Context, localZipPath, sourceType, datasetName string) (ZipIngestResult, error) {
	sourceType = strings.TrimSpace(sourceType)
	datasetName = strings.TrimSpace(datasetName)

	if !domain.SourceTypes[sourceType] {
		return ZipIngestResult{Status: StatusRejected, Message: "invalid source_type, use public/captured/simulated"}, nil
	}
	if datasetName == "" {
		return ZipIngestResult{Status: StatusRejected, Message: "dataset_name is required"}, nil
	}

	ingestTS, jobTS := runClock(s.now())

	candidates, invalid, err := s.collect(localZipPath)
	if err != nil {
		return ZipIngestResult{Status: StatusError, Message: "could not read zip"}, err
	}
	if len(candidates) == 0 {
		return ZipIngestResult{
			Status:  StatusOK,
			Message: "zip contained no valid images",
			Invalid: invalid,
		}, nil
	}

	// Batched dedup over all candidate identities before any upload.
	dbc := dbctx.Context{Ctx: ctx}
	existing := make(map[string]bool, len(candidates))
	uids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		uids = append(uids, c.ImageUID)
	}
	probeChunk := s.cfg.ImagesChunkSize * 4
	if probeChunk < 1 {
		probeChunk = 1
	}
	if probeChunk > repos.DedupProbeLimit {
		probeChunk = repos.DedupProbeLimit
	}
	for _, chunk := range chunkStrings(uids, probeChunk) {
		found, err := s.imageRepo.ExistingUIDs(dbc, chunk)
		if err != nil {
			// Refuse to upload when the probe cannot be answered.
			return ZipIngestResult{Status: StatusError, Message: "could not verify duplicates"}, fmt.Errorf("image dedup check: %w", err)
		}
		for uid := range found {
			existing[uid] = true
		}
	}

	var (
		rows     []*domain.Image
		inserted int
		skipped  int
	)

	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if err := s.imageRepo.InsertChunked(dbc, rows, s.cfg.ImagesChunkSize); err != nil {
			return err
		}
		rows = rows[:0]
		return nil
	}

	for _, c := range candidates {
		if existing[c.ImageUID] {
			skipped++
			continue
		}

		width, height, err := media.DecodeImageDims(c.Data)
		if err != nil {
			invalid++
			continue
		}
		outExt := media.PickOutputExt(c.Ext)

		object := gcp.ImageObjectKey(sourceType, datasetName, jobTS, c.ImageUID+outExt)
		uri, err := s.bucket.UploadBytes(ctx, s.cfg.GCSBucket, object, c.Data, media.ContentTypeForExt(outExt))
		if err != nil {
			return ZipIngestResult{Status: StatusError, Message: "image upload failed"}, fmt.Errorf("upload image %s: %w", c.ImageUID, err)
		}

		rows = append(rows, &domain.Image{
			ImageUID:      c.ImageUID,
			SourceType:    sourceType,
			SourceName:    datasetName,
			GCSURI:        uri,
			IngestTS:      ingestTS,
			Width:         width,
			Height:        height,
			Format:        strings.TrimPrefix(outExt, "."),
			SHA256:        c.ImageUID, // pure content hash, identity and hash coincide
			FileSizeBytes: int64(len(c.Data)),
		})
		inserted++

		// Flush as we go so rows do not pile up for huge archives.
		if len(rows) >= s.cfg.ImagesChunkSize && s.cfg.ImagesChunkSize > 0 {
			if err := flush(); err != nil {
				return ZipIngestResult{Status: StatusError, Message: "image record insert failed"}, fmt.Errorf("insert image rows: %w", err)
			}
		}
	}

	if err := flush(); err != nil {
		return ZipIngestResult{Status: StatusError, Message: "image record insert failed"}, fmt.Errorf("insert image rows: %w", err)
	}

	s.log.Info("Zip ingested", "inserted", inserted, "skipped_duplicates", skipped, "invalid", invalid)
	return ZipIngestResult{
		Status:            StatusOK,
		Message:           "zip processed",
		Inserted:          inserted,
		SkippedDuplicates: skipped,
		Invalid:           invalid,
	}, nil
}

func chunkStrings(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]string{items}
	}
	var chunks [][]string
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
