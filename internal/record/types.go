// Package record defines the fused per-video output schema and the
// fusion step that assembles and validates it. The JSON layout is stable:
// downstream consumers parse these files long after the pipeline that
// wrote them is gone.
package record

import (
	"fmt"
	"math"
)

// SchemaVersion is stamped into every record's processing metadata.
const SchemaVersion = "0.1.0"

// Word is a single word with forced-alignment timestamps.
type Word struct {
	Word   string  `json:"word"`
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
}

// NewWord validates timestamps at construction.
func NewWord(text string, startS, endS float64) (Word, error) {
	if startS < 0 {
		return Word{}, fmt.Errorf("word %q: negative start %v", text, startS)
	}
	if endS < startS {
		return Word{}, fmt.Errorf("word %q: end %v before start %v", text, endS, startS)
	}
	return Word{Word: text, StartS: Round2(startS), EndS: Round2(endS)}, nil
}

// Transcript is the full transcript for one video.
type Transcript struct {
	Text  string `json:"text"`
	Words []Word `json:"words"`
}

// Caption is one natural-language description of a keyframe.
type Caption struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// NewCaption rejects out-of-range confidence rather than clamping it.
func NewCaption(text string, confidence float64) (Caption, error) {
	if confidence < 0 || confidence > 1 {
		return Caption{}, fmt.Errorf("caption %q: confidence %v outside [0,1]", text, confidence)
	}
	return Caption{Text: text, Confidence: confidence}, nil
}

// DetectedObject is a reserved extension point; the objects list is
// currently always empty but stays in the schema for forward compatibility.
type DetectedObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Shot is one detected scene interval with its keyframe-derived data.
type Shot struct {
	ShotID   string           `json:"shot_id"`
	StartS   float64          `json:"start_s"`
	EndS     float64          `json:"end_s"`
	Keyframe string           `json:"keyframe"`
	Captions []Caption        `json:"captions"`
	OCRText  string           `json:"ocr_text"`
	Objects  []DetectedObject `json:"objects"`
}

// NewShot validates the interval at construction; captions, OCR text and
// objects are attached by later stages.
func NewShot(index int, startS, endS float64, keyframe string) (Shot, error) {
	if startS < 0 {
		return Shot{}, fmt.Errorf("shot %d: negative start %v", index, startS)
	}
	if endS <= startS {
		return Shot{}, fmt.Errorf("shot %d: end %v not after start %v", index, endS, startS)
	}
	return Shot{
		ShotID:   FormatShotID(index),
		StartS:   Round2(startS),
		EndS:     Round2(endS),
		Keyframe: keyframe,
		Captions: []Caption{},
		Objects:  []DetectedObject{},
	}, nil
}

// FormatShotID formats a 1-based shot sequence number as sNNN.
func FormatShotID(index int) string {
	return fmt.Sprintf("s%03d", index)
}

// ProcessingMetadata records how and when a record was produced.
type ProcessingMetadata struct {
	CreatedAt string            `json:"created_at"`
	Models    map[string]string `json:"models"`
	Version   string            `json:"version"`
}

// VideoRecord is the root entity: one validated, immutable record per
// successfully processed video.
type VideoRecord struct {
	VideoID    string             `json:"video_id"`
	Filename   string             `json:"filename"`
	DurationS  float64            `json:"duration_s"`
	Language   string             `json:"language"`
	Transcript Transcript         `json:"transcript"`
	Shots      []Shot             `json:"shots"`
	Processing ProcessingMetadata `json:"processing"`
}

// Round2 rounds to two decimal places, matching the precision the
// pipeline uses for all timestamps and durations.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
