package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const maxStderrBytes = 8 * 1024 // tail of stderr kept for diagnostics

// Config holds the engine runner's configuration.
type Config struct {
	PythonPath     string // path to python binary; empty = auto-detect
	ModuleName     string // default "vidintel_models"
	ArtifactsBase  string // base dir for engine output JSON files
	SpeechTimeout  time.Duration
	CaptionTimeout time.Duration
	DoctorTimeout  time.Duration
	Logger         *slog.Logger
}

// Runner executes the python engine module as subprocesses and parses
// its --out JSON contract. It implements SpeechEngine and CaptionEngine.
type Runner struct {
	cfg    Config
	python string // resolved python path
}

// NewRunner creates a Runner, resolving the python binary path.
func NewRunner(cfg Config) (*Runner, error) {
	python, err := resolvePython(cfg.PythonPath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate python: %w", err)
	}

	if err := os.MkdirAll(cfg.ArtifactsBase, 0755); err != nil {
		return nil, fmt.Errorf("cannot create artifacts dir: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("engine runner initialised",
			"python", python,
			"module", cfg.ModuleName,
			"artifacts_dir", cfg.ArtifactsBase,
		)
	}
	return &Runner{cfg: cfg, python: python}, nil
}

const (
	speechModelID  = "whisperx-large-v2"
	captionModelID = "blip2-opt-2.7b"
)

// Transcribe runs the speech engine on a 16 kHz mono WAV file.
func (r *Runner) Transcribe(ctx context.Context, audioPath, languageHint string) (*SpeechOutput, error) {
	outPath := r.artifactPath(audioPath, "speech.json")

	ctx, cancel := context.WithTimeout(ctx, r.cfg.SpeechTimeout)
	defer cancel()

	args := []string{"speech", "--audio", audioPath, "--out", outPath}
	if languageHint != "" {
		args = append(args, "--language", languageHint)
	}

	info, err := r.exec(ctx, outPath, args...)
	if err != nil {
		return nil, err
	}
	if info.ExitCode != 0 {
		return nil, fmt.Errorf("speech engine exited %d: %s", info.ExitCode, truncate(info.StderrTail, 512))
	}

	var out SpeechOutput
	if err := readOutputJSON(outPath, &out); err != nil {
		return nil, fmt.Errorf("speech output: %w", err)
	}
	if !out.RequiredFieldsPresent() {
		return nil, fmt.Errorf("speech output missing required metadata fields")
	}

	if r.cfg.Logger != nil {
		r.cfg.Logger.Info("speech engine completed",
			"language", out.Language,
			"segments", len(out.Segments),
			"aligned", out.Aligned,
			"duration_ms", info.Duration.Milliseconds(),
		)
	}
	return &out, nil
}

func (r *Runner) ModelID() string {
	return speechModelID
}

// CaptionRunner adapts the Runner to the CaptionEngine contract. It
// shares the python invocation machinery but reports its own model.
type CaptionRunner struct {
	*Runner
}

func (r *Runner) Captioner() *CaptionRunner {
	return &CaptionRunner{Runner: r}
}

// captionOutput is the caption engine's --out JSON shape.
type captionOutput struct {
	SchemaVersion string          `json:"schema_version"`
	ModelVersion  string          `json:"model_version"`
	Captions      []CaptionResult `json:"captions"`
}

// Caption generates numCaptions ranked captions for a keyframe image.
func (c *CaptionRunner) Caption(ctx context.Context, imagePath string, numCaptions int) ([]CaptionResult, error) {
	outPath := c.artifactPath(imagePath, "caption.json")

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CaptionTimeout)
	defer cancel()

	info, err := c.exec(ctx, outPath,
		"caption",
		"--image", imagePath,
		"--num-captions", fmt.Sprintf("%d", numCaptions),
		"--out", outPath,
	)
	if err != nil {
		return nil, err
	}
	if info.ExitCode != 0 {
		return nil, fmt.Errorf("caption engine exited %d: %s", info.ExitCode, truncate(info.StderrTail, 512))
	}

	var out captionOutput
	if err := readOutputJSON(outPath, &out); err != nil {
		return nil, fmt.Errorf("caption output: %w", err)
	}
	if out.SchemaVersion == "" || out.ModelVersion == "" {
		return nil, fmt.Errorf("caption output missing required metadata fields")
	}

	return out.Captions, nil
}

func (c *CaptionRunner) ModelID() string {
	return captionModelID
}

// artifactPath builds the --out path for an input file, namespaced under
// the artifacts base by the input's base name.
func (r *Runner) artifactPath(inputPath, suffix string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return filepath.Join(r.cfg.ArtifactsBase, base+"."+suffix)
}

// exec is the core subprocess execution helper.
func (r *Runner) exec(ctx context.Context, outPath string, args ...string) (RunInfo, error) {
	start := time.Now()

	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			return RunInfo{ExitCode: -1}, fmt.Errorf("cannot create output dir: %w", err)
		}
	}

	cmdArgs := append([]string{"-m", r.cfg.ModuleName}, args...)
	cmd := exec.CommandContext(ctx, r.python, cmdArgs...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})
	cmd.Stdout = io.Discard // engines write to --out, not stdout

	if r.cfg.Logger != nil {
		r.cfg.Logger.Debug("executing engine command", "args", cmdArgs)
	}

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
		if ctx.Err() != nil {
			return RunInfo{ExitCode: exitCode, StderrTail: stderrBuf.String(), Duration: elapsed},
				fmt.Errorf("engine command timed out after %s: %w", elapsed.Round(time.Millisecond), ctx.Err())
		}
	}

	return RunInfo{
		ExitCode:   exitCode,
		StderrTail: stderrBuf.String(),
		Duration:   elapsed,
	}, nil
}

func readOutputJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("cannot parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// resolvePython finds a usable python binary.
func resolvePython(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured python %q not found", preferred)
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no python binary found on PATH (tried python3, python)")
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
