package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
)

// Frame is one decoded video frame in decode order. TimestampMS is the
// frame's presentation offset within the video.
type Frame struct {
	Index       int
	TimestampMS int64
	Image       image.Image
}

// FrameStream yields frames in decode order. Next returns io.EOF when the
// stream is exhausted.
type FrameStream interface {
	Next() (*Frame, error)
	Close() error
}

const defaultAssumedFPS = 30.0

// ffmpegFrameStream decodes a video by piping raw RGB frames out of
// ffmpeg and slicing the pipe into fixed-size frames. Timestamps derive
// from the probed frame rate and the decode index.
type ffmpegFrameStream struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	stderr bytes.Buffer

	width  int
	height int
	fps    float64

	index  int
	buf    []byte
	closed bool
}

// NewFFmpegFrameStream starts an ffmpeg decode of videoPath. meta must
// carry the stream dimensions; a non-positive frame rate falls back to
// 30fps for timestamp derivation.
func NewFFmpegFrameStream(ctx context.Context, videoPath string, meta VideoMetadata) (FrameStream, error) {
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("cannot decode %s: unknown frame dimensions", videoPath)
	}
	fps := meta.FPS
	if fps <= 0 {
		fps = defaultAssumedFPS
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", videoPath,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	s := &ffmpegFrameStream{
		cmd:    cmd,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, 1<<20),
		width:  meta.Width,
		height: meta.Height,
		fps:    fps,
		buf:    make([]byte, meta.Width*meta.Height*3),
	}
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return s, nil
}

func (s *ffmpegFrameStream) Next() (*Frame, error) {
	if s.closed {
		return nil, io.EOF
	}
	if _, err := io.ReadFull(s.reader, s.buf); err != nil {
		// A short trailing read means the stream ended mid-frame; treat
		// both cases as end of stream.
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame %d: %w", s.index, err)
	}

	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	for src, dst := 0, 0; src < len(s.buf); src, dst = src+3, dst+4 {
		img.Pix[dst] = s.buf[src]
		img.Pix[dst+1] = s.buf[src+1]
		img.Pix[dst+2] = s.buf[src+2]
		img.Pix[dst+3] = 0xff
	}

	f := &Frame{
		Index:       s.index,
		TimestampMS: int64(float64(s.index)*1000.0/s.fps + 0.5),
		Image:       img,
	}
	s.index++
	return f, nil
}

func (s *ffmpegFrameStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	_ = s.stdout.Close()
	if err := s.cmd.Wait(); err != nil {
		// Closing the pipe early makes ffmpeg exit nonzero; not an error
		// for the caller.
		return nil
	}
	return nil
}
