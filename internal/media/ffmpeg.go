// Package media is the ffmpeg/ffprobe boundary: container probing, audio
// extraction, scene-change detection and keyframe extraction. Everything
// here shells out to the ffmpeg binaries; no decoding happens in-process.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"time"
)

const maxStderrBytes = 8 * 1024 // tail of stderr kept for diagnostics

// Config holds the toolkit's configuration.
type Config struct {
	FFmpegPath  string // path to ffmpeg binary; empty = PATH lookup
	FFprobePath string // path to ffprobe binary; empty = PATH lookup

	ProbeTimeout    time.Duration
	AudioTimeout    time.Duration
	ShotsTimeout    time.Duration
	KeyframeTimeout time.Duration

	Logger *slog.Logger
}

// Toolkit wraps the resolved ffmpeg binaries. It is the single
// implementation of the media extraction contract used by the pipeline.
type Toolkit struct {
	cfg     Config
	ffmpeg  string
	ffprobe string
}

// NewToolkit resolves the ffmpeg and ffprobe binaries. A missing ffmpeg
// is an error here rather than at first use: nothing in the pipeline can
// run without it.
func NewToolkit(cfg Config) (*Toolkit, error) {
	ffmpeg, err := resolveBinary(cfg.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := resolveBinary(cfg.FFprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}

	if cfg.Logger != nil {
		cfg.Logger.Debug("media toolkit initialised", "ffmpeg", ffmpeg, "ffprobe", ffprobe)
	}
	return &Toolkit{cfg: cfg, ffmpeg: ffmpeg, ffprobe: ffprobe}, nil
}

func resolveBinary(preferred, name string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured %s %q not found", name, preferred)
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found on PATH", name)
	}
	return p, nil
}

// runResult carries the outcome of one subprocess invocation.
type runResult struct {
	stdout     []byte
	stderrTail string
	exitCode   int
	duration   time.Duration
}

// run executes bin with args under ctx, capturing stdout fully and only
// the tail of stderr (bounded by limit).
func (t *Toolkit) run(ctx context.Context, bin string, limit int, args ...string) (runResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, bin, args...)

	var stdout bytes.Buffer
	var stderrBuf bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: limit})

	err := cmd.Run()
	res := runResult{
		stdout:     stdout.Bytes(),
		stderrTail: stderrBuf.String(),
		duration:   time.Since(start),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			res.exitCode = exitErr.ExitCode()
		} else {
			res.exitCode = -1
		}
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s timed out after %s: %w", bin, res.duration.Round(time.Millisecond), ctx.Err())
		}
		return res, fmt.Errorf("%s exited %d: %s", bin, res.exitCode, truncate(res.stderrTail, 512))
	}
	return res, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		// Keep only the tail
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
