package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"
)

// SamplerConfig holds the adaptive sampling thresholds. It is passed in
// explicitly per run; the sampler keeps no ambient state.
type SamplerConfig struct {
	MinFPS          float64 // baseline cadence: desired interval = 1000/MinFPS ms
	MaxFPS          float64 // rate ceiling: min interval = 1000/MaxFPS ms
	MaxIntervalS    float64 // staleness ceiling: force a save after this long
	MotionThreshold float64 // mean abs gray diff that triggers a save
	DownscaleWidth  int     // comparison-only downscale target width
	JPEGQuality     int     // encode quality for saved frames
}

// ExtractedFrame is one saved frame artifact.
//
// ImageUID is scoped to the parent video and timestamp, so identical
// pixels at different moments or in different videos never collide.
// SHA256 is the plain content hash of the encoded bytes, kept separately
// for metadata.
type ExtractedFrame struct {
	ImageUID      string
	TimestampMS   int64
	FrameIdx      int
	JPEGBytes     []byte
	Width         int
	Height        int
	SHA256        string
	FileSizeBytes int64
}

// SampleFrames walks the stream in decode order and keeps a variable-rate
// subset using a motion/time hybrid rule:
//
//   - never save two frames closer than 1000/MaxFPS ms;
//   - always save once 1000*MaxIntervalS ms have passed;
//   - otherwise save on motion, or at the 1000/MinFPS baseline cadence.
//
// The first decoded frame is always saved. Motion is measured between
// decode-order neighbours on downscaled grayscale buffers, not against
// the last saved frame. Saved frames are encoded at full resolution. A
// frame that fails to encode is skipped; its decode index is still
// consumed. The stream ending (or failing mid-read) terminates sampling
// with whatever was collected.
func SampleFrames(stream FrameStream, videoUID string, cfg SamplerConfig) []ExtractedFrame {
	minIntervalMS := int64(1000.0/cfg.MaxFPS + 0.5)
	desiredIntervalMS := int64(1000.0/cfg.MinFPS + 0.5)
	maxIntervalMS := int64(cfg.MaxIntervalS*1000.0 + 0.5)

	var (
		frames      []ExtractedFrame
		lastSavedTS int64
		haveSaved   bool
		lastGray    *image.Gray
	)

	for {
		frame, err := stream.Next()
		if err != nil {
			break
		}

		graySmall := downscaleGray(frame.Image, cfg.DownscaleWidth)
		motionScore := 0.0
		if lastGray != nil {
			motionScore = meanAbsDiff(graySmall, lastGray)
		}

		save := false
		if !haveSaved {
			save = true
		} else {
			elapsed := frame.TimestampMS - lastSavedTS
			if elapsed >= minIntervalMS {
				save = elapsed >= maxIntervalMS ||
					motionScore >= cfg.MotionThreshold ||
					elapsed >= desiredIntervalMS
			}
		}

		lastGray = graySmall

		if !save {
			continue
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: cfg.JPEGQuality}); err != nil {
			continue
		}
		data := buf.Bytes()

		b := frame.Image.Bounds()
		frames = append(frames, ExtractedFrame{
			ImageUID:      FrameIdentity(videoUID, frame.TimestampMS, data),
			TimestampMS:   frame.TimestampMS,
			FrameIdx:      frame.Index,
			JPEGBytes:     data,
			Width:         b.Dx(),
			Height:        b.Dy(),
			SHA256:        SHA256Bytes(data),
			FileSizeBytes: int64(len(data)),
		})

		lastSavedTS = frame.TimestampMS
		haveSaved = true
	}

	return frames
}

// FrameIdentity derives the context-scoped identity of a saved frame from
// the parent video identity, the timestamp and the encoded bytes.
func FrameIdentity(videoUID string, timestampMS int64, jpegBytes []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s:%d:", videoUID, timestampMS)
	h.Write(jpegBytes)
	return hex.EncodeToString(h.Sum(nil))
}

// downscaleGray produces the comparison representation: width capped at
// maxWidth (aspect preserved), single channel. Frames narrower than the
// cap are only grayscaled.
func downscaleGray(img image.Image, maxWidth int) *image.Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if maxWidth > 0 && w > maxWidth {
		scale := float64(maxWidth) / float64(w)
		nw := maxWidth
		nh := int(float64(h)*scale + 0.5)
		if nh < 1 {
			nh = 1
		}
		small := image.NewRGBA(image.Rect(0, 0, nw, nh))
		xdraw.ApproxBiLinear.Scale(small, small.Bounds(), img, b, xdraw.Src, nil)
		img = small
		b = small.Bounds()
		w, h = nw, nh
	}

	gray := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.Draw(gray, gray.Bounds(), img, b.Min, xdraw.Src)
	return gray
}

// meanAbsDiff is the motion score: mean absolute per-pixel intensity
// difference. Buffers of mismatched size score zero.
func meanAbsDiff(a, b *image.Gray) float64 {
	if a == nil || b == nil {
		return 0
	}
	if len(a.Pix) == 0 || len(a.Pix) != len(b.Pix) {
		return 0
	}
	total := 0
	for i := range a.Pix {
		d := int(a.Pix[i]) - int(b.Pix[i])
		if d < 0 {
			d = -d
		}
		total += d
	}
	return float64(total) / float64(len(a.Pix))
}
