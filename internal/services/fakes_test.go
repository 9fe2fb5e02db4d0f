package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/hudai/ingest-backend/internal/app"
	"github.com/hudai/ingest-backend/internal/domain"
	"github.com/hudai/ingest-backend/internal/pkg/dbctx"
	"github.com/hudai/ingest-backend/internal/pkg/logger"
)

// Shared in-memory doubles for the pipeline collaborators. An opLog is
// threaded through them so tests can assert cross-store write order.

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func testConfig() app.Config {
	return app.Config{
		GCSBucket:        "test-bucket",
		ExtractFrames:    true,
		MinFPS:           0.5,
		MaxFPS:           5,
		MaxIntervalS:     10,
		MotionThreshold:  12,
		DownscaleWidth:   32,
		FrameJPEGQuality: 90,
		LineageChunkSize: 500,
		ImagesChunkSize:  500,
	}
}

type opLog struct {
	ops []string
}

func (l *opLog) add(op string) { l.ops = append(l.ops, op) }

type fakeVideoRepo struct {
	log       *opLog
	existing  map[string]bool
	existsErr error
	inserted  []*domain.Video
}

func (f *fakeVideoRepo) Exists(_ dbctx.Context, videoUID string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[videoUID], nil
}

func (f *fakeVideoRepo) Insert(_ dbctx.Context, row *domain.Video) error {
	if f.log != nil {
		f.log.add("insert:video")
	}
	f.inserted = append(f.inserted, row)
	return nil
}

type fakeImageRepo struct {
	log        *opLog
	existing   map[string]bool
	probeErr   error
	insertErr  error
	probeCalls [][]string
	inserted   []*domain.Image
}

func (f *fakeImageRepo) ExistingUIDs(_ dbctx.Context, uids []string) (map[string]bool, error) {
	f.probeCalls = append(f.probeCalls, append([]string(nil), uids...))
	if f.probeErr != nil {
		return nil, f.probeErr
	}
	found := make(map[string]bool)
	for _, uid := range uids {
		if f.existing[uid] {
			found[uid] = true
		}
	}
	return found, nil
}

func (f *fakeImageRepo) InsertChunked(_ dbctx.Context, rows []*domain.Image, _ int) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	if f.log != nil {
		f.log.add("insert:images")
	}
	f.inserted = append(f.inserted, rows...)
	return nil
}

type fakeLineageRepo struct {
	log      *opLog
	inserted []*domain.FrameLineage
}

func (f *fakeLineageRepo) InsertChunked(_ dbctx.Context, rows []*domain.FrameLineage, _ int) error {
	if f.log != nil {
		f.log.add("insert:lineage")
	}
	f.inserted = append(f.inserted, rows...)
	return nil
}

type fakeUpload struct {
	Bucket      string
	Object      string
	ContentType string
	Size        int
}

type fakeBucket struct {
	log       *opLog
	uploadErr error
	uploads   []fakeUpload
}

func (f *fakeBucket) UploadFile(_ context.Context, bucket, object, _, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if f.log != nil {
		f.log.add("upload:" + object)
	}
	f.uploads = append(f.uploads, fakeUpload{Bucket: bucket, Object: object, ContentType: contentType})
	return fmt.Sprintf("gs://%s/%s", bucket, object), nil
}

func (f *fakeBucket) UploadBytes(_ context.Context, bucket, object string, data []byte, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if f.log != nil {
		f.log.add("upload:" + object)
	}
	f.uploads = append(f.uploads, fakeUpload{Bucket: bucket, Object: object, ContentType: contentType, Size: len(data)})
	return fmt.Sprintf("gs://%s/%s", bucket, object), nil
}

func (f *fakeBucket) DownloadToFile(context.Context, string, string, string) error {
	return nil
}

func (f *fakeBucket) DeleteObject(context.Context, string, string) error {
	return nil
}
