package video

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/google/uuid"
)

// ClipExtractor re-encodes the incident frame window into a standalone
// artifact. If the source ends early the clip is simply shorter; that is
// not an error.
type ClipExtractor struct {
	OutDir string
}

// Extract cuts frames [startFrame, endFrame] (inclusive) from the source at
// its native rate and resolution and returns the artifact path.
func (c ClipExtractor) Extract(ctx context.Context, srcPath string, startFrame, endFrame int, fps float64) (string, error) {
	if fps <= 0 {
		fps = 30
	}
	if endFrame < startFrame {
		endFrame = startFrame
	}
	if err := os.MkdirAll(c.OutDir, 0o755); err != nil {
		return "", fmt.Errorf("video: failed to create clip dir: %w", err)
	}

	outPath := filepath.Join(c.OutDir, fmt.Sprintf("incident_%s.mp4", uuid.New().String()))
	startSeconds := float64(startFrame) / fps
	frameCount := endFrame - startFrame + 1

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", fmt.Sprintf("%.3f", startSeconds),
		"-i", srcPath,
		"-frames:v", fmt.Sprintf("%d", frameCount),
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-an",
		"-y",
		outPath,
	)
	cmd.Stderr = nil
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("video: clip extraction failed: %w", err)
	}

	if info, err := os.Stat(outPath); err != nil || info.Size() == 0 {
		return "", fmt.Errorf("video: clip artifact missing or empty")
	}
	return outPath, nil
}
