// Package batch discovers videos under an input path and drives each one
// through the pipeline, isolating failures so one broken video never
// aborts the rest of the run.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/vidintel/vidintel/internal/catalog"
	"github.com/vidintel/vidintel/internal/pipeline"
)

// Processor runs one video end to end. pipeline.Orchestrator implements
// it; tests substitute fakes.
type Processor interface {
	Process(ctx context.Context, videoPath string) (*pipeline.Result, error)
}

// Driver coordinates one batch run and records outcomes in the catalog.
type Driver struct {
	proc   Processor
	repo   catalog.Repository // nil disables catalog recording
	logger *slog.Logger
}

func NewDriver(proc Processor, repo catalog.Repository, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Driver{proc: proc, repo: repo, logger: logger}
}

// Summary is the outcome of one batch run.
type Summary struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
}

// Discover lists the videos under inputPath. A file input is returned
// as-is and validated downstream; a directory is scanned one level deep
// for supported extensions, case-sensitively. An empty directory is a
// valid, empty batch.
func Discover(inputPath string) ([]string, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("cannot access input %s: %w", inputPath, err)
	}

	if !info.IsDir() {
		return []string{inputPath}, nil
	}

	entries, err := os.ReadDir(inputPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read input directory %s: %w", inputPath, err)
	}

	var videos []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if pipeline.SupportedExtension(e.Name()) {
			videos = append(videos, filepath.Join(inputPath, e.Name()))
		}
	}
	return videos, nil
}

// Run processes every discovered video in turn. Per-video failures are
// logged and recorded; only discovery errors or a cancelled context abort
// the batch.
func (d *Driver) Run(ctx context.Context, inputPath string) (*Summary, error) {
	videos, err := Discover(inputPath)
	if err != nil {
		return nil, err
	}

	sum := &Summary{RunID: catalog.NewID(), Total: len(videos)}
	d.createRun(ctx, sum.RunID, inputPath)

	if len(videos) == 0 {
		d.logger.Info("no videos found under input path", "input", inputPath)
		d.finishRun(ctx, sum, "")
		return sum, nil
	}

	d.logger.Info("batch started", "run_id", sum.RunID, "videos", len(videos))

	for _, video := range videos {
		if ctx.Err() != nil {
			d.finishRun(ctx, sum, "cancelled")
			return sum, fmt.Errorf("batch cancelled: %w", ctx.Err())
		}

		res, err := d.proc.Process(ctx, video)
		if err != nil {
			sum.Failed++
			d.logger.Error("video failed",
				"video", filepath.Base(video),
				"error", err,
			)
			d.recordFailure(ctx, sum.RunID, video, err)
			continue
		}

		sum.Succeeded++
		d.recordSuccess(ctx, sum.RunID, video, res)
	}

	d.finishRun(ctx, sum, "")
	d.logger.Info("batch complete",
		"run_id", sum.RunID,
		"total", sum.Total,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
	)
	return sum, nil
}

func (d *Driver) createRun(ctx context.Context, runID, inputPath string) {
	if d.repo == nil {
		return
	}
	err := d.repo.CreateRun(ctx, &catalog.Run{
		ID:        runID,
		InputPath: inputPath,
		Status:    catalog.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	})
	if err != nil {
		d.logger.Warn("cannot record run start", "error", err)
	}
}

func (d *Driver) finishRun(ctx context.Context, sum *Summary, errorMsg string) {
	if d.repo == nil {
		return
	}
	// A cancelled batch still gets its final status written.
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	status := catalog.RunStatusCompleted
	if errorMsg != "" {
		status = catalog.RunStatusFailed
	}
	err := d.repo.FinishRun(ctx, sum.RunID, status, errorMsg, sum.Total, sum.Succeeded, sum.Failed)
	if err != nil {
		d.logger.Warn("cannot record run finish", "error", err)
	}
}

func (d *Driver) recordSuccess(ctx context.Context, runID, video string, res *pipeline.Result) {
	if d.repo == nil {
		return
	}
	err := d.repo.CreateVideoResult(ctx, &catalog.VideoResult{
		ID:          catalog.NewID(),
		RunID:       runID,
		VideoID:     res.Record.VideoID,
		Path:        video,
		Status:      catalog.VideoStatusSucceeded,
		OutputPath:  res.OutputPath,
		DurationS:   res.Record.DurationS,
		Shots:       len(res.Record.Shots),
		Words:       len(res.Record.Transcript.Words),
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil {
		d.logger.Warn("cannot record video result", "video", filepath.Base(video), "error", err)
	}
}

func (d *Driver) recordFailure(ctx context.Context, runID, video string, procErr error) {
	if d.repo == nil {
		return
	}
	kind := ""
	var pf *pipeline.ProcessingFailure
	if errors.As(procErr, &pf) {
		kind = string(pf.Kind)
	}
	err := d.repo.CreateVideoResult(ctx, &catalog.VideoResult{
		ID:          catalog.NewID(),
		RunID:       runID,
		VideoID:     pipeline.VideoID(video),
		Path:        video,
		Status:      catalog.VideoStatusFailed,
		FailureKind: kind,
		Error:       procErr.Error(),
		ProcessedAt: time.Now().UTC(),
	})
	if err != nil {
		d.logger.Warn("cannot record video failure", "video", filepath.Base(video), "error", err)
	}
}
