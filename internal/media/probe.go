package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// VideoMetadata is what ffprobe reports about the primary video stream.
type VideoMetadata struct {
	DurationMS int64
	FPS        float64
	Codec      string
	Width      int
	Height     int
}

type ffprobeOutput struct {
	Streams []struct {
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeVideo shells out to ffprobe for duration, frame rate, codec and
// dimensions of the first video stream.
func ProbeVideo(ctx context.Context, videoPath string) (VideoMetadata, error) {
	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=codec_name,width,height,r_frame_rate,avg_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		videoPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return VideoMetadata{}, fmt.Errorf("ffprobe %s: %w (%s)", videoPath, err, strings.TrimSpace(stderr.String()))
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return VideoMetadata{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	meta := VideoMetadata{Codec: "unknown"}
	if d, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64); err == nil {
		meta.DurationMS = int64(d*1000.0 + 0.5)
	}
	if len(out.Streams) > 0 {
		s := out.Streams[0]
		if s.CodecName != "" {
			meta.Codec = s.CodecName
		}
		meta.Width = s.Width
		meta.Height = s.Height
		meta.FPS = ParseFrameRate(s.AvgFrameRate)
		if meta.FPS <= 0 {
			meta.FPS = ParseFrameRate(s.RFrameRate)
		}
	}
	return meta, nil
}

// ParseFrameRate parses ffprobe's rational "num/den" frame rate notation.
func ParseFrameRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	if !found {
		return 0
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
