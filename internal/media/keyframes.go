package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ExtractKeyframe extracts the single frame nearest timestamp into
// outPath. The caller treats an error as "drop this shot"; it is never
// fatal for the video. Extraction is deterministic for a given
// (video, timestamp) pair.
func (t *Toolkit) ExtractKeyframe(ctx context.Context, videoPath string, timestamp float64, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("creating frames directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.KeyframeTimeout)
	defer cancel()

	_, err := t.run(ctx, t.ffmpeg, maxStderrBytes,
		"-ss", fmt.Sprintf("%.3f", timestamp),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("extracting keyframe at %.2fs: %w", timestamp, err)
	}

	// ffmpeg can exit 0 without producing a frame when the seek lands
	// past the last decodable frame.
	info, statErr := os.Stat(outPath)
	if statErr != nil || info.Size() == 0 {
		os.Remove(outPath)
		return fmt.Errorf("no frame decoded at %.2fs", timestamp)
	}

	return nil
}
