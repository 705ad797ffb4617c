package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// audioSampleRate is the canonical rate the speech engine expects.
const audioSampleRate = 16000

// ExtractAudio demuxes and resamples the video's audio track to a mono
// 16 kHz PCM WAV at outPath. Failure here is fatal for the video: nothing
// downstream can transcribe without audio.
func (t *Toolkit) ExtractAudio(ctx context.Context, videoPath, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.AudioTimeout)
	defer cancel()

	_, err := t.run(ctx, t.ffmpeg, maxStderrBytes,
		"-i", videoPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", fmt.Sprintf("%d", audioSampleRate),
		"-ac", "1",
		"-y",
		outPath,
	)
	if err != nil {
		return fmt.Errorf("extracting audio from %s: %w", filepath.Base(videoPath), err)
	}

	if t.cfg.Logger != nil {
		t.cfg.Logger.Debug("audio extracted", "output", outPath)
	}
	return nil
}
