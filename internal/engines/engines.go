// Package engines provides subprocess-based access to the inference
// engines (speech transcription+alignment, image captioning, text
// recognition). The engines are opaque collaborators: each is invoked as
// an external command with a request/response contract, and the models
// behind them are swappable without touching the pipeline.
package engines

import (
	"context"
	"time"
)

// SpeechEngine transcribes a mono PCM stream and force-aligns words.
type SpeechEngine interface {
	// Transcribe runs transcription and alignment on the audio file.
	// languageHint may be empty for auto-detection.
	Transcribe(ctx context.Context, audioPath, languageHint string) (*SpeechOutput, error)
	ModelID() string
}

// CaptionEngine describes a still frame in natural language.
type CaptionEngine interface {
	Caption(ctx context.Context, imagePath string, numCaptions int) ([]CaptionResult, error)
	ModelID() string
}

// TextEngine recognizes on-screen text in a still frame.
type TextEngine interface {
	// Recognize returns the extracted text, possibly empty. languages is
	// a tesseract-style language set such as "eng" or "eng+nor".
	Recognize(ctx context.Context, imagePath, languages string) (string, error)
	ModelID() string
}

// SpeechOutput is the parsed result of one speech engine invocation.
type SpeechOutput struct {
	SchemaVersion string          `json:"schema_version"`
	ModelVersion  string          `json:"model_version"`
	Language      string          `json:"language"`
	Aligned       bool            `json:"aligned"`
	Segments      []SpeechSegment `json:"segments"`
}

// SpeechSegment is one transcribed span. Words are present only when
// forced alignment succeeded (Aligned is true on the output).
type SpeechSegment struct {
	Text   string       `json:"text"`
	StartS float64      `json:"start_s"`
	EndS   float64      `json:"end_s"`
	Words  []SpeechWord `json:"words,omitempty"`
}

// SpeechWord is a word-level alignment entry.
type SpeechWord struct {
	Word   string  `json:"word"`
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
}

// CaptionResult is one ranked caption. Confidence orders candidates; it
// is not a calibrated probability.
type CaptionResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// RequiredFieldsPresent checks the metadata invariants every engine
// output must satisfy.
func (o SpeechOutput) RequiredFieldsPresent() bool {
	return o.SchemaVersion != "" && o.ModelVersion != ""
}

// OCRLanguages maps a detected transcript language to the text engine's
// language set: Norwegian-family codes get bilingual recognition,
// everything else is recognized as English only.
func OCRLanguages(transcriptLanguage string) string {
	switch transcriptLanguage {
	case "no", "nn", "nb":
		return "eng+nor"
	default:
		return "eng"
	}
}

// RunInfo is diagnostic metadata for one engine subprocess invocation.
type RunInfo struct {
	ExitCode   int
	StderrTail string
	Duration   time.Duration
}
