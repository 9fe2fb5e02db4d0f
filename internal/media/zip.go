package media

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// VideoExts are the upload extensions accepted for single videos.
var VideoExts = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".avi":  true,
	".m4v":  true,
	".webm": true,
}

// AllowedImageExts are the zip member extensions considered candidates.
var AllowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

var mimeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// NormalizeExt lowercases the extension of a filename, dot included.
func NormalizeExt(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

// ContentTypeForExt maps a normalized image extension to its MIME type.
func ContentTypeForExt(ext string) string {
	if ct, ok := mimeByExt[ext]; ok {
		return ct
	}
	return "application/octet-stream"
}

// PickOutputExt canonicalizes the archive extension of a decoded image:
// .jpeg becomes .jpg, anything outside the allowed set becomes .jpg.
func PickOutputExt(ext string) string {
	if AllowedImageExts[ext] {
		if ext == ".jpeg" {
			return ".jpg"
		}
		return ext
	}
	return ".jpg"
}

// ZipCandidate is a zip member that passed the extension filter, hashed
// over the bytes exactly as stored.
type ZipCandidate struct {
	ImageUID string
	Data     []byte
	Ext      string
}

// CollectZipCandidates reads the archive and returns every non-directory
// member with an allowed image extension, plus the count of entries that
// were unreadable or empty. Candidates are collected before any dedup
// check so the existence probe can be batched.
func CollectZipCandidates(zipPath string) ([]ZipCandidate, int, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open zip %s: %w", zipPath, err)
	}
	defer r.Close()

	var candidates []ZipCandidate
	invalid := 0

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ext := NormalizeExt(f.Name)
		if !AllowedImageExts[ext] {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			invalid++
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil || len(data) == 0 {
			invalid++
			continue
		}

		candidates = append(candidates, ZipCandidate{
			ImageUID: SHA256Bytes(data),
			Data:     data,
			Ext:      ext,
		})
	}

	return candidates, invalid, nil
}

// DecodeImageDims fully decodes the image to validate it and returns its
// dimensions. Header-only sniffing is not enough here: a member with a
// plausible header but corrupt body must count as invalid.
func DecodeImageDims(data []byte) (width, height int, err error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}
