package services

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hudai/ingest-backend/internal/media"
)

func zipJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func buildZip(t *testing.T, entries map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create entry: %v", err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatalf("write entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}
	return path
}

type zipFixture struct {
	svc    *zipIngestService
	images *fakeImageRepo
	bucket *fakeBucket
}

func newZipFixture(t *testing.T) *zipFixture {
	t.Helper()
	images := &fakeImageRepo{existing: map[string]bool{}}
	bucket := &fakeBucket{}
	svc := NewZipIngestService(testConfig(), testLogger(t), images, bucket).(*zipIngestService)
	svc.now = func() time.Time { return testClock }
	return &zipFixture{svc: svc, images: images, bucket: bucket}
}

func TestProcessZipRejectsBadInput(t *testing.T) {
	fx := newZipFixture(t)

	res, err := fx.svc.ProcessZip(context.Background(), "/tmp/in.zip", "weird", "dataset")
	if err != nil || res.Status != StatusRejected {
		t.Fatalf("bad source type: want rejection, got %s err %v", res.Status, err)
	}

	res, err = fx.svc.ProcessZip(context.Background(), "/tmp/in.zip", "public", "   ")
	if err != nil || res.Status != StatusRejected {
		t.Fatalf("blank dataset: want rejection, got %s err %v", res.Status, err)
	}
}

// One valid image, one truncated image and one empty entry: the valid
// one lands, the other two count as invalid, nothing counts as skipped.
func TestProcessZipCounts(t *testing.T) {
	fx := newZipFixture(t)
	good := zipJPEG(t, 9, 6)
	truncated := append([]byte(nil), good[:len(good)/2]...)
	zipPath := buildZip(t, map[string][]byte{
		"imgs/good.jpg":      good,
		"imgs/truncated.jpg": truncated,
		"imgs/empty.jpg":     {},
		"imgs/notes.txt":     []byte("ignored entirely"),
	})

	res, err := fx.svc.ProcessZip(context.Background(), zipPath, "public", "scenes-v1")
	if err != nil {
		t.Fatalf("ProcessZip: %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("want %s, got %s (%s)", StatusOK, res.Status, res.Message)
	}
	if res.Inserted != 1 || res.SkippedDuplicates != 0 || res.Invalid != 2 {
		t.Fatalf("counts: inserted %d skipped %d invalid %d", res.Inserted, res.SkippedDuplicates, res.Invalid)
	}

	wantUID := media.SHA256Bytes(good)
	if len(fx.bucket.uploads) != 1 {
		t.Fatalf("want 1 upload, got %d", len(fx.bucket.uploads))
	}
	wantObject := "raw/images/public/scenes-v1/20250102T030405Z/" + wantUID + ".jpg"
	if got := fx.bucket.uploads[0].Object; got != wantObject {
		t.Fatalf("object key:\nwant %s\ngot  %s", wantObject, got)
	}
	if ct := fx.bucket.uploads[0].ContentType; ct != "image/jpeg" {
		t.Fatalf("content type: %s", ct)
	}

	if len(fx.images.inserted) != 1 {
		t.Fatalf("want 1 row, got %d", len(fx.images.inserted))
	}
	row := fx.images.inserted[0]
	if row.ImageUID != wantUID || row.SHA256 != wantUID {
		t.Fatalf("zip images must use the pure content hash as identity: %+v", row)
	}
	if row.Width != 9 || row.Height != 6 || row.Format != "jpg" {
		t.Fatalf("row metadata: %+v", row)
	}
	if row.SourceName != "scenes-v1" || row.IngestTS != "2025-01-02T03:04:05Z" {
		t.Fatalf("row provenance: %+v", row)
	}
}

func TestProcessZipSkipsDuplicates(t *testing.T) {
	fx := newZipFixture(t)
	good := zipJPEG(t, 4, 4)
	fx.images.existing[media.SHA256Bytes(good)] = true
	zipPath := buildZip(t, map[string][]byte{"a.jpg": good})

	res, err := fx.svc.ProcessZip(context.Background(), zipPath, "public", "ds")
	if err != nil {
		t.Fatalf("ProcessZip: %v", err)
	}
	if res.Inserted != 0 || res.SkippedDuplicates != 1 || res.Invalid != 0 {
		t.Fatalf("counts: %+v", res)
	}
	if len(fx.bucket.uploads) != 0 {
		t.Fatal("duplicates must not be re-uploaded")
	}
}

func TestProcessZipDedupFailureAborts(t *testing.T) {
	fx := newZipFixture(t)
	fx.images.probeErr = errors.New("store unreachable")
	zipPath := buildZip(t, map[string][]byte{"a.jpg": zipJPEG(t, 4, 4)})

	res, err := fx.svc.ProcessZip(context.Background(), zipPath, "public", "ds")
	if err == nil || res.Status != StatusError {
		t.Fatalf("want error status, got %s err %v", res.Status, err)
	}
	if len(fx.bucket.uploads) != 0 || len(fx.images.inserted) != 0 {
		t.Fatal("nothing may be written when dedup is unverifiable")
	}
}

func TestProcessZipUnreadableArchive(t *testing.T) {
	fx := newZipFixture(t)
	fx.svc.collect = func(string) ([]media.ZipCandidate, int, error) {
		return nil, 0, errors.New("not a zip")
	}

	res, err := fx.svc.ProcessZip(context.Background(), "/tmp/in.zip", "public", "ds")
	if err == nil || res.Status != StatusError {
		t.Fatalf("want error status, got %s err %v", res.Status, err)
	}
}

func TestProcessZipNoValidImages(t *testing.T) {
	fx := newZipFixture(t)
	zipPath := buildZip(t, map[string][]byte{
		"readme.txt": []byte("no images here"),
		"blank.jpg":  {},
	})

	res, err := fx.svc.ProcessZip(context.Background(), zipPath, "public", "ds")
	if err != nil {
		t.Fatalf("ProcessZip: %v", err)
	}
	if res.Status != StatusOK || res.Inserted != 0 || res.Invalid != 1 {
		t.Fatalf("want ok with 1 invalid, got %+v", res)
	}
	if len(fx.images.probeCalls) != 0 {
		t.Fatal("no candidates means no dedup probe")
	}
}

// With a tiny chunk size the dedup probe must split into several calls
// and inserts must flush incrementally, preserving archive order.
func TestProcessZipChunkedProbeAndFlush(t *testing.T) {
	fx := newZipFixture(t)
	fx.svc.cfg.ImagesChunkSize = 1

	entries := map[string][]byte{}
	for i := 1; i <= 5; i++ {
		entries[fmt.Sprintf("img-%d.jpg", i)] = zipJPEG(t, i, i)
	}
	zipPath := buildZip(t, entries)

	res, err := fx.svc.ProcessZip(context.Background(), zipPath, "public", "ds")
	if err != nil {
		t.Fatalf("ProcessZip: %v", err)
	}
	if res.Inserted != 5 {
		t.Fatalf("want 5 inserted, got %d", res.Inserted)
	}

	// probe chunk = 4*chunkSize, so 5 uids need 2 probe calls
	if len(fx.images.probeCalls) != 2 {
		t.Fatalf("want 2 probe calls, got %d", len(fx.images.probeCalls))
	}
	total := 0
	for _, call := range fx.images.probeCalls {
		total += len(call)
	}
	if total != 5 {
		t.Fatalf("probe calls must cover all 5 uids, got %d", total)
	}

	if len(fx.images.inserted) != 5 {
		t.Fatalf("want 5 rows, got %d", len(fx.images.inserted))
	}
	for i, row := range fx.images.inserted {
		if !strings.HasPrefix(row.GCSURI, "gs://test-bucket/raw/images/public/ds/") {
			t.Fatalf("row %d uri: %s", i, row.GCSURI)
		}
	}
}
