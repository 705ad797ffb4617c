package media

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
)

// showinfo stderr lines can be numerous on cut-heavy videos; keep a much
// larger tail than the default so early boundaries are not lost.
const shotsStderrBytes = 1024 * 1024

// Interval is a detected shot's time span in seconds.
type Interval struct {
	StartS float64
	EndS   float64
}

var ptsTimeRe = regexp.MustCompile(`pts_time:\s*([0-9]+(?:\.[0-9]+)?)`)

// DetectShots partitions the video into content-change-based shots.
// threshold is on a 0-100 scale; lower values are more sensitive and
// yield more, shorter shots. durationS bounds the final interval; when it
// is unknown (<= 0) the open-ended tail segment is omitted, so a video
// with no detected cuts and no known duration yields zero shots, which is
// a valid outcome rather than an error.
func (t *Toolkit) DetectShots(ctx context.Context, videoPath string, threshold, durationS float64) ([]Interval, error) {
	score := threshold / 100.0
	if score <= 0 {
		score = 0.01
	}
	if score > 1 {
		score = 1
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.ShotsTimeout)
	defer cancel()

	res, err := t.run(ctx, t.ffmpeg, shotsStderrBytes,
		"-hide_banner",
		"-nostats",
		"-i", videoPath,
		"-vf", fmt.Sprintf("select='gt(scene,%.4f)',showinfo", score),
		"-f", "null",
		"-",
	)
	if err != nil {
		return nil, fmt.Errorf("detecting shots in %s: %w", videoPath, err)
	}

	boundaries := parseShowinfoTimes(res.stderrTail)
	intervals := buildIntervals(boundaries, durationS)

	if t.cfg.Logger != nil {
		t.cfg.Logger.Debug("shot detection complete",
			"boundaries", len(boundaries),
			"shots", len(intervals),
			"threshold", threshold,
		)
	}
	return intervals, nil
}

// parseShowinfoTimes extracts scene-change timestamps from showinfo
// filter output.
func parseShowinfoTimes(stderr string) []float64 {
	matches := ptsTimeRe.FindAllStringSubmatch(stderr, -1)
	var times []float64
	for _, m := range matches {
		ts, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		times = append(times, ts)
	}
	return times
}

// buildIntervals turns cut timestamps into an ordered, non-overlapping
// partition starting at 0. Boundaries outside (0, duration) are ignored
// when the duration is known.
func buildIntervals(boundaries []float64, durationS float64) []Interval {
	cuts := make([]float64, 0, len(boundaries))
	for _, b := range boundaries {
		if b <= 0 {
			continue
		}
		if durationS > 0 && b >= durationS {
			continue
		}
		cuts = append(cuts, b)
	}
	sort.Float64s(cuts)

	// Dedupe boundaries reported at (effectively) the same instant.
	deduped := cuts[:0]
	for _, c := range cuts {
		if len(deduped) > 0 && c-deduped[len(deduped)-1] < 0.001 {
			continue
		}
		deduped = append(deduped, c)
	}
	cuts = deduped

	var intervals []Interval
	prev := 0.0
	for _, c := range cuts {
		intervals = append(intervals, Interval{StartS: prev, EndS: c})
		prev = c
	}

	if durationS > prev {
		// Close the final segment with the probed duration. With no cuts
		// at all this makes the whole video a single shot.
		intervals = append(intervals, Interval{StartS: prev, EndS: durationS})
	}

	return intervals
}

// Midpoint returns the interval's temporal midpoint, where the
// representative keyframe is taken.
func (iv Interval) Midpoint() float64 {
	return (iv.StartS + iv.EndS) / 2
}
