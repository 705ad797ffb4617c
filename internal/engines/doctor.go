package engines

import (
	"context"
	"log/slog"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// Capabilities reports what the installed toolchain can do, combining
// binary lookups with the python engine module's own doctor command.
type Capabilities struct {
	FFmpeg    bool      `json:"ffmpeg"`
	FFprobe   bool      `json:"ffprobe"`
	Tesseract bool      `json:"tesseract"`
	Speech    bool      `json:"speech"`
	Caption   bool      `json:"caption"`
	ProbedAt  time.Time `json:"probed_at"`
}

// CanProcess reports whether the pipeline can run at all; OCR is the
// only stage that degrades when its tool is missing.
func (c Capabilities) CanProcess() bool {
	return c.FFmpeg && c.FFprobe && c.Speech
}

// doctorPayload is the engine module's `doctor --json --out` shape.
type doctorPayload struct {
	SchemaVersion  string `json:"schema_version"`
	PackageVersion string `json:"package_version"`
	Engines        struct {
		Speech  bool `json:"speech"`
		Caption bool `json:"caption"`
	} `json:"engines"`
}

// RunDoctor probes the environment: ffmpeg binaries on PATH, tesseract,
// and the python engine module. A failing python doctor marks the
// engines unavailable rather than failing the probe.
func (r *Runner) RunDoctor(ctx context.Context) (*Capabilities, error) {
	caps := &Capabilities{ProbedAt: time.Now()}

	if _, err := exec.LookPath("ffmpeg"); err == nil {
		caps.FFmpeg = true
	}
	if _, err := exec.LookPath("ffprobe"); err == nil {
		caps.FFprobe = true
	}
	if _, err := exec.LookPath("tesseract"); err == nil {
		caps.Tesseract = true
	}

	outPath := filepath.Join(r.cfg.ArtifactsBase, ".doctor.json")

	ctx, cancel := context.WithTimeout(ctx, r.cfg.DoctorTimeout)
	defer cancel()

	info, err := r.exec(ctx, outPath, "doctor", "--json", "--out", outPath)
	if err != nil || info.ExitCode != 0 {
		if r.cfg.Logger != nil {
			r.cfg.Logger.Warn("engine doctor probe failed, inference engines unavailable",
				"exit_code", info.ExitCode, "error", err)
		}
		return caps, nil
	}

	var payload doctorPayload
	if err := readOutputJSON(outPath, &payload); err != nil {
		if r.cfg.Logger != nil {
			r.cfg.Logger.Warn("cannot parse doctor output", "error", err)
		}
		return caps, nil
	}

	caps.Speech = payload.Engines.Speech
	caps.Caption = payload.Engines.Caption

	if r.cfg.Logger != nil {
		r.cfg.Logger.Info("doctor probe complete",
			"ffmpeg", caps.FFmpeg,
			"tesseract", caps.Tesseract,
			"speech", caps.Speech,
			"caption", caps.Caption,
		)
	}
	return caps, nil
}

const defaultDoctorTTL = 5 * time.Minute

// doctorRunner is the probe contract CachedDoctor wraps.
type doctorRunner interface {
	RunDoctor(ctx context.Context) (*Capabilities, error)
}

// CachedDoctor caches doctor probe results with a TTL so status queries
// do not spawn a subprocess per request.
type CachedDoctor struct {
	runner doctorRunner
	ttl    time.Duration
	logger *slog.Logger

	mu     sync.RWMutex
	cached *Capabilities
}

// NewCachedDoctor creates a caching wrapper around doctor probes.
func NewCachedDoctor(runner doctorRunner, logger *slog.Logger) *CachedDoctor {
	return &CachedDoctor{
		runner: runner,
		ttl:    defaultDoctorTTL,
		logger: logger,
	}
}

// Get returns cached capabilities if fresh, otherwise re-probes.
func (d *CachedDoctor) Get(ctx context.Context) (*Capabilities, error) {
	d.mu.RLock()
	if d.cached != nil && time.Since(d.cached.ProbedAt) < d.ttl {
		caps := d.cached
		d.mu.RUnlock()
		return caps, nil
	}
	d.mu.RUnlock()

	return d.Refresh(ctx)
}

// Peek returns the cached capabilities without probing, or nil.
func (d *CachedDoctor) Peek() *Capabilities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cached
}

// Refresh forces a new doctor probe regardless of cache freshness.
func (d *CachedDoctor) Refresh(ctx context.Context) (*Capabilities, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	caps, err := d.runner.RunDoctor(ctx)
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("doctor probe failed", "error", err)
		}
		// Return stale cache if available
		if d.cached != nil {
			return d.cached, nil
		}
		return nil, err
	}

	d.cached = caps
	return caps, nil
}
