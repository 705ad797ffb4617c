package engines

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

const tesseractModelID = "tesseract"

// Tesseract is the TextEngine implementation backed by the tesseract
// binary. Recognition runs per keyframe; a failed frame yields an error
// the caller records as empty text.
type Tesseract struct {
	path    string
	timeout time.Duration
	logger  *slog.Logger
}

// NewTesseract resolves the tesseract binary.
func NewTesseract(preferred string, timeout time.Duration, logger *slog.Logger) (*Tesseract, error) {
	name := preferred
	if name == "" {
		name = "tesseract"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return nil, fmt.Errorf("tesseract not found on PATH")
	}
	return &Tesseract{path: path, timeout: timeout, logger: logger}, nil
}

// Recognize extracts on-screen text from an image.
func (t *Tesseract) Recognize(ctx context.Context, imagePath, languages string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, t.path, imagePath, "stdout", "-l", languages)

	var stdout bytes.Buffer
	var stderrBuf bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("tesseract timed out: %w", ctx.Err())
		}
		return "", fmt.Errorf("tesseract failed: %s", truncate(stderrBuf.String(), 512))
	}

	text := strings.TrimSpace(stdout.String())
	if t.logger != nil && text != "" {
		t.logger.Debug("ocr extracted text", "chars", len(text), "languages", languages)
	}
	return text, nil
}

func (t *Tesseract) ModelID() string {
	return tesseractModelID
}
