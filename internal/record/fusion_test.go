package record

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func testModels() map[string]string {
	return map[string]string{
		"asr":             "whisperx-large-v2",
		"caption":         "blip2-opt-2.7b",
		"object_detector": "none",
		"ocr":             "tesseract",
	}
}

func TestFuse_CreatedAtFormat(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC)
	rec, err := fuseAt("v1", "v1.mp4", 30.0, Transcript{}, nil, testModels(), "en", now)
	if err != nil {
		t.Fatalf("fuse: %v", err)
	}
	if rec.Processing.CreatedAt != "2026-03-14T09:26:53.589793Z" {
		t.Errorf("CreatedAt = %q", rec.Processing.CreatedAt)
	}
	if !strings.HasSuffix(rec.Processing.CreatedAt, "Z") {
		t.Error("CreatedAt must carry the Z suffix")
	}
	if rec.Processing.Version != SchemaVersion {
		t.Errorf("Version = %q, want %q", rec.Processing.Version, SchemaVersion)
	}
}

func TestFuse_RejectsOutOfRangeConfidence(t *testing.T) {
	shot, err := NewShot(1, 0, 10, "kf.jpg")
	if err != nil {
		t.Fatalf("NewShot: %v", err)
	}
	// Bypass NewCaption to simulate an engine handing back a raw value.
	shot.Captions = append(shot.Captions, Caption{Text: "a dog", Confidence: 1.5})

	_, err = Fuse("v1", "v1.mp4", 30, Transcript{}, []Shot{shot}, testModels(), "en")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !strings.Contains(verr.Reason, "confidence") {
		t.Errorf("reason %q should mention confidence", verr.Reason)
	}
}

func TestFuse_RejectsBadIntervals(t *testing.T) {
	mk := func(id string, start, end float64) Shot {
		return Shot{ShotID: id, StartS: start, EndS: end, Captions: []Caption{}, Objects: []DetectedObject{}}
	}

	tests := []struct {
		name  string
		shots []Shot
	}{
		{"end equals start", []Shot{mk("s001", 5, 5)}},
		{"end before start", []Shot{mk("s001", 5, 4)}},
		{"negative start", []Shot{mk("s001", -1, 4)}},
		{"out of order", []Shot{mk("s001", 10, 20), mk("s002", 0, 5)}},
		{"overlapping", []Shot{mk("s001", 0, 10), mk("s002", 5, 15)}},
		{"missing id", []Shot{mk("", 0, 10)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fuse("v1", "v1.mp4", 30, Transcript{}, tt.shots, testModels(), "en")
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}
}

func TestFuse_ContiguousShotsAccepted(t *testing.T) {
	s1, _ := NewShot(1, 0, 10, "a.jpg")
	s2, _ := NewShot(2, 10, 20, "b.jpg")

	rec, err := Fuse("v1", "v1.mp4", 30, Transcript{}, []Shot{s1, s2}, testModels(), "en")
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if len(rec.Shots) != 2 {
		t.Fatalf("got %d shots, want 2", len(rec.Shots))
	}
	if rec.Shots[0].ShotID != "s001" || rec.Shots[1].ShotID != "s002" {
		t.Errorf("shot ids = %q, %q", rec.Shots[0].ShotID, rec.Shots[1].ShotID)
	}
}

func TestFuse_ZeroShotsValid(t *testing.T) {
	rec, err := Fuse("v1", "v1.mp4", 12.5, Transcript{Text: "hello"}, nil, testModels(), "en")
	if err != nil {
		t.Fatalf("Fuse with zero shots: %v", err)
	}
	if rec.Shots == nil || len(rec.Shots) != 0 {
		t.Errorf("Shots = %#v, want empty non-nil slice", rec.Shots)
	}
	if rec.Transcript.Text != "hello" {
		t.Errorf("Transcript.Text = %q", rec.Transcript.Text)
	}
}

func TestFuse_DefaultsLanguageUnknown(t *testing.T) {
	rec, err := Fuse("v1", "v1.mp4", 0, Transcript{}, nil, testModels(), "")
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if rec.Language != "unknown" {
		t.Errorf("Language = %q, want unknown", rec.Language)
	}
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	word, _ := NewWord("god", 0.5, 0.9)
	shot, _ := NewShot(1, 0, 10, "v1/v1_s001.jpg")
	cap1, _ := NewCaption("a dog på stranden", 0.8)
	shot.Captions = append(shot.Captions, cap1)
	shot.OCRText = "SALG 50%"

	rec, err := Fuse("v1", "v1.mp4", 30, Transcript{Text: "god morgen", Words: []Word{word}}, []Shot{shot}, testModels(), "no")
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}

	path := filepath.Join(t.TempDir(), "nested", "v1.json")
	if err := WriteJSON(rec, path); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	// Non-ASCII must be preserved literally, not escaped.
	if !strings.Contains(string(data), "på stranden") {
		t.Error("non-ASCII text was escaped in output")
	}
	if !strings.Contains(string(data), "\n  \"video_id\"") {
		t.Error("output is not 2-space indented")
	}

	var parsed VideoRecord
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(rec, &parsed) {
		t.Errorf("round-trip mismatch:\n got %#v\nwant %#v", parsed, *rec)
	}
}

func TestWriteJSON_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	rec, err := Fuse("v1", "v1.mp4", 1, Transcript{}, nil, testModels(), "en")
	if err != nil {
		t.Fatalf("Fuse: %v", err)
	}
	if err := WriteJSON(rec, filepath.Join(dir, "v1.json")); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "v1.json" {
		names := []string{}
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v, want only v1.json", names)
	}
}
