// Package video wraps frame I/O behind ffmpeg subprocesses: decoding a
// stored or live video into JPEG frames, and cutting the incident clip.
package video

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Source yields consecutive JPEG-encoded frames from a video file.
// ReadFrame returns io.EOF when the stream ends.
type Source interface {
	ReadFrame() ([]byte, error)
	FPS() float64
	Close() error
}

// Opener opens a Source for a path. Indirection keeps the pipeline testable
// without ffmpeg installed.
type Opener func(path string) (Source, error)

// FFmpegSource decodes a video into an MJPEG pipe and splits it into
// individual JPEG frames.
type FFmpegSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	fps    float64
}

// Open probes the file and starts the decode pipe. Failing to open the
// source is the pipeline's only fatal error, so this returns errors rather
// than degrading.
func Open(path string) (Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("video: cannot open source %s: %w", path, err)
	}

	fps, err := probeFPS(path)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "3",
		"-",
	)
	cmd.Stderr = io.Discard
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("video: failed to create pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("video: failed to start ffmpeg: %w", err)
	}

	return &FFmpegSource{
		cmd:    cmd,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, 1<<20),
		fps:    fps,
	}, nil
}

// probeFPS reads the average frame rate with ffprobe. A broken probe falls
// back to 30 fps rather than failing the session.
func probeFPS(path string) (float64, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 30, nil
	}
	return parseFrameRate(strings.TrimSpace(string(out))), nil
}

// parseFrameRate handles ffprobe's rational notation ("30000/1001").
func parseFrameRate(s string) float64 {
	const fallback = 30
	if s == "" {
		return fallback
	}
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return fallback
		}
		return n / d
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// ReadFrame returns the next JPEG frame from the pipe.
func (s *FFmpegSource) ReadFrame() ([]byte, error) {
	var frame bytes.Buffer

	// Scan to the start-of-image marker.
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return nil, io.EOF
		}
		if b == jpegSOI[0] {
			next, err := s.reader.ReadByte()
			if err != nil {
				return nil, io.EOF
			}
			if next == jpegSOI[1] {
				frame.Write(jpegSOI)
				break
			}
			if err := s.reader.UnreadByte(); err != nil {
				return nil, fmt.Errorf("video: reader error: %w", err)
			}
		}
	}

	// Copy until the end-of-image marker.
	var prev byte
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			return nil, io.EOF
		}
		frame.WriteByte(b)
		if prev == jpegEOI[0] && b == jpegEOI[1] {
			return frame.Bytes(), nil
		}
		prev = b
	}
}

// FPS returns the probed frame rate.
func (s *FFmpegSource) FPS() float64 {
	return s.fps
}

// Close terminates the decode process.
func (s *FFmpegSource) Close() error {
	s.stdout.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}
