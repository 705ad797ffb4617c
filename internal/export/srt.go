// Package export renders transcript segments as SubRip subtitle files,
// an optional sidecar next to the fused JSON record.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// Cue is one subtitle entry. Cues with empty text after cleaning are
// skipped and the remaining cues renumbered, so players never see blank
// entries.
type Cue struct {
	StartS float64
	EndS   float64
	Text   string
}

// GenerateSRT renders cues as a SubRip document. Input order is
// preserved; numbering is 1-based over the kept cues.
func GenerateSRT(cues []Cue) string {
	var b strings.Builder
	n := 0
	for _, cue := range cues {
		text := CleanCueText(cue.Text)
		if text == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			n, FormatTimestamp(cue.StartS), FormatTimestamp(cue.EndS), text)
	}
	return b.String()
}

// WriteSRT renders cues and writes the document to path.
func WriteSRT(path string, cues []Cue) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating subtitle directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateSRT(cues)), 0644); err != nil {
		return fmt.Errorf("writing subtitles: %w", err)
	}
	return nil
}

// FormatTimestamp renders seconds in SubRip HH:MM:SS,mmm form. Negative
// inputs clamp to zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int(math.Round(seconds * 1000))
	ms := totalMs % 1000
	totalSeconds := totalMs / 1000
	secs := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, ms)
}
