package media

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// ProbeResult holds the container metadata the pipeline cares about.
type ProbeResult struct {
	DurationS  float64
	FormatName string
}

// ffprobeOutput maps the subset of `ffprobe -print_format json` we read.
type ffprobeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

// Probe opens the container and reports its duration. Probe failures are
// non-fatal upstream: the orchestrator falls back to duration 0.
func (t *Toolkit) Probe(ctx context.Context, videoPath string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.ProbeTimeout)
	defer cancel()

	res, err := t.run(ctx, t.ffprobe, maxStderrBytes,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		videoPath,
	)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", videoPath, err)
	}

	var out ffprobeOutput
	if err := json.Unmarshal(res.stdout, &out); err != nil {
		return nil, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	if out.Format.Duration == "" {
		return nil, fmt.Errorf("ffprobe reported no duration for %s", videoPath)
	}

	duration, err := strconv.ParseFloat(out.Format.Duration, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing duration %q: %w", out.Format.Duration, err)
	}

	return &ProbeResult{
		DurationS:  duration,
		FormatName: out.Format.FormatName,
	}, nil
}
