package media

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSHA256BytesDeterministic(t *testing.T) {
	data := []byte("the same bytes hash the same")
	a := SHA256Bytes(data)
	b := SHA256Bytes(data)
	if a != b {
		t.Fatalf("same content produced different digests: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("digest length: want 64 hex chars, got %d", len(a))
	}
}

func TestSHA256BytesBitFlip(t *testing.T) {
	data := []byte("the same bytes hash the same")
	flipped := append([]byte(nil), data...)
	flipped[0] ^= 0x01

	if SHA256Bytes(data) == SHA256Bytes(flipped) {
		t.Fatal("one-bit change did not change the digest")
	}
}

func TestSHA256FileMatchesBytes(t *testing.T) {
	data := []byte("file contents, hashed incrementally")
	path := filepath.Join(t.TempDir(), "blob.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	got, err := SHA256File(path)
	if err != nil {
		t.Fatalf("SHA256File: %v", err)
	}
	if want := SHA256Bytes(data); got != want {
		t.Fatalf("stream digest %s != buffer digest %s", got, want)
	}
}

func TestSHA256FileMissing(t *testing.T) {
	if _, err := SHA256File(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
