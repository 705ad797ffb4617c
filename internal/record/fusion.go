package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ValidationError is returned when fused data violates the schema
// invariants. It aborts the video; invalid data is never clamped or
// silently dropped at this boundary.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "record validation: " + e.Reason
}

const createdAtLayout = "2006-01-02T15:04:05.000000Z"

// Fuse assembles the validated VideoRecord from the outputs of all
// upstream stages. It is a pure transformation: the only side effect in
// this package is the final WriteJSON.
func Fuse(videoID, filename string, duration float64, transcript Transcript, shots []Shot, models map[string]string, language string) (*VideoRecord, error) {
	return fuseAt(videoID, filename, duration, transcript, shots, models, language, time.Now())
}

func fuseAt(videoID, filename string, duration float64, transcript Transcript, shots []Shot, models map[string]string, language string, now time.Time) (*VideoRecord, error) {
	if videoID == "" {
		return nil, &ValidationError{Reason: "video_id is empty"}
	}
	if err := validateShots(shots); err != nil {
		return nil, err
	}
	for _, w := range transcript.Words {
		if w.EndS < w.StartS {
			return nil, &ValidationError{Reason: fmt.Sprintf("word %q: end %v before start %v", w.Word, w.EndS, w.StartS)}
		}
	}

	if language == "" {
		language = "unknown"
	}
	if transcript.Words == nil {
		transcript.Words = []Word{}
	}
	if shots == nil {
		shots = []Shot{}
	}

	return &VideoRecord{
		VideoID:    videoID,
		Filename:   filename,
		DurationS:  Round2(duration),
		Language:   language,
		Transcript: transcript,
		Shots:      shots,
		Processing: ProcessingMetadata{
			CreatedAt: now.UTC().Format(createdAtLayout),
			Models:    models,
			Version:   SchemaVersion,
		},
	}, nil
}

func validateShots(shots []Shot) error {
	prevEnd := 0.0
	prevStart := -1.0
	for i, s := range shots {
		if s.ShotID == "" {
			return &ValidationError{Reason: fmt.Sprintf("shot %d: missing shot_id", i)}
		}
		if s.StartS < 0 {
			return &ValidationError{Reason: fmt.Sprintf("shot %s: negative start %v", s.ShotID, s.StartS)}
		}
		if s.EndS <= s.StartS {
			return &ValidationError{Reason: fmt.Sprintf("shot %s: end %v not after start %v", s.ShotID, s.EndS, s.StartS)}
		}
		if s.StartS < prevStart {
			return &ValidationError{Reason: fmt.Sprintf("shot %s: out of time order (start %v before previous %v)", s.ShotID, s.StartS, prevStart)}
		}
		// Shots are contiguous or non-overlapping; a hair of float slack
		// is allowed for rounded boundaries.
		if s.StartS < prevEnd-0.01 {
			return &ValidationError{Reason: fmt.Sprintf("shot %s: overlaps previous shot (start %v < previous end %v)", s.ShotID, s.StartS, prevEnd)}
		}
		for _, c := range s.Captions {
			if c.Confidence < 0 || c.Confidence > 1 {
				return &ValidationError{Reason: fmt.Sprintf("shot %s: caption confidence %v outside [0,1]", s.ShotID, c.Confidence)}
			}
		}
		for _, o := range s.Objects {
			if o.Confidence < 0 || o.Confidence > 1 {
				return &ValidationError{Reason: fmt.Sprintf("shot %s: object confidence %v outside [0,1]", s.ShotID, o.Confidence)}
			}
		}
		prevStart = s.StartS
		prevEnd = s.EndS
	}
	return nil
}

// WriteJSON serializes the record to path as one atomic write: the
// document is fully encoded, written to a temp file in the target
// directory, then renamed into place. A partial or corrupt JSON file is
// never observable.
func WriteJSON(rec *VideoRecord, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming record into place: %w", err)
	}
	return nil
}
