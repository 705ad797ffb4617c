// Package pipeline drives one video through every processing stage and
// fuses the results into a single validated record. Stage failures are
// split into two tiers: fatal ones abort the video with a classified
// ProcessingFailure, degraded ones are logged and leave empty values in
// the output.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidintel/vidintel/internal/engines"
	"github.com/vidintel/vidintel/internal/export"
	"github.com/vidintel/vidintel/internal/gpu"
	"github.com/vidintel/vidintel/internal/media"
	"github.com/vidintel/vidintel/internal/record"
)

// MediaToolkit is the ffmpeg surface the orchestrator needs. media.Toolkit
// implements it; tests substitute fakes.
type MediaToolkit interface {
	Probe(ctx context.Context, videoPath string) (*media.ProbeResult, error)
	ExtractAudio(ctx context.Context, videoPath, outPath string) error
	DetectShots(ctx context.Context, videoPath string, threshold, durationS float64) ([]media.Interval, error)
	ExtractKeyframe(ctx context.Context, videoPath string, timestamp float64, outPath string) error
}

// Config holds the per-run processing options.
type Config struct {
	OutputDir      string // fused JSON records land here
	FramesDir      string // keyframes under {FramesDir}/{video_id}/
	TempDir        string // scratch audio under {TempDir}/
	Language       string // transcription hint; empty = auto-detect
	SceneThreshold float64
	NumCaptions    int
	SkipOCR        bool
	KeepFrames     bool
	KeepAudio      bool
	ExportSRT      bool // write a .srt sidecar next to the record
	Logger         *slog.Logger
}

// Orchestrator runs the full stage sequence for single videos.
type Orchestrator struct {
	cfg     Config
	media   MediaToolkit
	speech  engines.SpeechEngine
	caption engines.CaptionEngine
	ocr     engines.TextEngine // nil when unavailable; OCR degrades to empty
	arbiter *gpu.Arbiter
}

func New(cfg Config, mt MediaToolkit, speech engines.SpeechEngine, caption engines.CaptionEngine, ocr engines.TextEngine, arbiter *gpu.Arbiter) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		media:   mt,
		speech:  speech,
		caption: caption,
		ocr:     ocr,
		arbiter: arbiter,
	}
}

var supportedExtensions = map[string]bool{
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

// SupportedExtension reports whether path has a processable container
// extension. The check is case-sensitive, matching discovery.
func SupportedExtension(path string) bool {
	return supportedExtensions[filepath.Ext(path)]
}

// Result is the outcome of one successful video run.
type Result struct {
	Record     *record.VideoRecord
	OutputPath string
}

// VideoID derives the stable identifier from the file's base name.
func VideoID(videoPath string) string {
	base := filepath.Base(videoPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Process runs a single video through the full pipeline and writes its
// fused record. A returned error is always fatal for this video; degraded
// stages are logged and reflected as empty values in the record instead.
func (o *Orchestrator) Process(ctx context.Context, videoPath string) (*Result, error) {
	videoID := VideoID(videoPath)
	log := o.cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = log.With("video_id", videoID)

	if info, err := os.Stat(videoPath); err != nil {
		return nil, failure(KindInvalidInput, videoID, fmt.Errorf("cannot open %s: %w", videoPath, err))
	} else if info.IsDir() {
		return nil, failure(KindInvalidInput, videoID, fmt.Errorf("%s is a directory", videoPath))
	}
	if !SupportedExtension(videoPath) {
		return nil, failure(KindInvalidInput, videoID, fmt.Errorf("unsupported extension %q", filepath.Ext(videoPath)))
	}

	log.Info("processing started", "path", videoPath)

	// Container probe is best-effort; an unreadable header degrades to an
	// unknown duration rather than aborting.
	duration := 0.0
	if probe, err := o.media.Probe(ctx, videoPath); err != nil {
		log.Warn("probe failed, duration unknown", "error", err)
	} else {
		duration = probe.DurationS
	}

	// Cleanup is registered before extraction so a failed run never leaves
	// a partial scratch file behind.
	audioPath := filepath.Join(o.cfg.TempDir, videoID+".wav")
	framesDir := filepath.Join(o.cfg.FramesDir, videoID)
	defer o.cleanupScratch(audioPath, framesDir, log)

	if err := o.media.ExtractAudio(ctx, videoPath, audioPath); err != nil {
		return nil, failure(KindAudioExtractionFailed, videoID, err)
	}

	shots := o.extractShots(ctx, videoPath, videoID, duration, framesDir, log)

	transcript, speechOut, err := o.transcribe(ctx, videoID, audioPath, log)
	if err != nil {
		return nil, err
	}
	language := speechOut.Language

	if err := o.captionShots(ctx, shots, log); err != nil {
		// Per-frame caption failures degrade inside captionShots; the only
		// error out of it is a failed slot acquisition, which means the run
		// is shutting down.
		return nil, failure(KindCancelled, videoID, err)
	}

	ocrModel := o.recognizeText(ctx, shots, language, log)

	models := map[string]string{
		"asr":             o.speech.ModelID(),
		"caption":         o.caption.ModelID(),
		"object_detector": "none",
		"ocr":             ocrModel,
	}

	rec, err := record.Fuse(videoID, filepath.Base(videoPath), duration, transcript, shots, models, language)
	if err != nil {
		return nil, failure(KindFusionValidationFailed, videoID, err)
	}

	outPath := filepath.Join(o.cfg.OutputDir, videoID+".json")
	if err := record.WriteJSON(rec, outPath); err != nil {
		return nil, fmt.Errorf("writing record for %s: %w", videoID, err)
	}

	if o.cfg.ExportSRT {
		srtPath := filepath.Join(o.cfg.OutputDir, videoID+".srt")
		if err := export.WriteSRT(srtPath, segmentCues(speechOut.Segments)); err != nil {
			log.Warn("cannot write subtitle sidecar", "path", srtPath, "error", err)
		}
	}

	log.Info("processing complete",
		"output", outPath,
		"duration_s", rec.DurationS,
		"language", rec.Language,
		"shots", len(rec.Shots),
		"words", len(rec.Transcript.Words),
	)
	return &Result{Record: rec, OutputPath: outPath}, nil
}

// extractShots detects scene intervals and extracts one midpoint keyframe
// per shot. Detection failure yields zero shots; a failed keyframe drops
// that one shot and leaves a gap in the shot ID sequence.
func (o *Orchestrator) extractShots(ctx context.Context, videoPath, videoID string, duration float64, framesDir string, log *slog.Logger) []record.Shot {
	intervals, err := o.media.DetectShots(ctx, videoPath, o.cfg.SceneThreshold, duration)
	if err != nil {
		log.Warn("shot detection failed, continuing with zero shots", "error", err)
		return nil
	}

	var shots []record.Shot
	for i, iv := range intervals {
		index := i + 1 // IDs are fixed before extraction so drops leave gaps
		shotID := record.FormatShotID(index)
		framePath := filepath.Join(framesDir, fmt.Sprintf("%s_%s.jpg", videoID, shotID))

		if err := o.media.ExtractKeyframe(ctx, videoPath, iv.Midpoint(), framePath); err != nil {
			log.Warn("keyframe extraction failed, dropping shot",
				"shot_id", shotID, "midpoint_s", iv.Midpoint(), "error", err)
			continue
		}

		shot, err := record.NewShot(index, iv.StartS, iv.EndS, framePath)
		if err != nil {
			log.Warn("dropping shot with invalid interval", "shot_id", shotID, "error", err)
			continue
		}
		shots = append(shots, shot)
	}

	log.Info("shots extracted", "detected", len(intervals), "kept", len(shots))
	return shots
}

// transcribe runs the speech engine under the model slot and flattens its
// segments into the record transcript.
func (o *Orchestrator) transcribe(ctx context.Context, videoID, audioPath string, log *slog.Logger) (record.Transcript, *engines.SpeechOutput, error) {
	var out *engines.SpeechOutput
	err := o.arbiter.With(ctx, "speech", nil, func(ctx context.Context) error {
		var err error
		out, err = o.speech.Transcribe(ctx, audioPath, o.cfg.Language)
		return err
	})
	if err != nil {
		return record.Transcript{}, nil, failure(KindTranscriptionFailed, videoID, err)
	}

	var parts []string
	var words []record.Word
	for _, seg := range out.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
		for _, w := range seg.Words {
			word, err := record.NewWord(w.Word, w.StartS, w.EndS)
			if err != nil {
				log.Warn("dropping word with invalid timestamps", "error", err)
				continue
			}
			words = append(words, word)
		}
	}

	if !out.Aligned {
		log.Warn("forced alignment unavailable, word timestamps omitted")
		words = nil
	}

	return record.Transcript{
		Text:  strings.Join(parts, " "),
		Words: words,
	}, out, nil
}

// segmentCues maps speech segments to subtitle cues.
func segmentCues(segments []engines.SpeechSegment) []export.Cue {
	cues := make([]export.Cue, 0, len(segments))
	for _, seg := range segments {
		cues = append(cues, export.Cue{StartS: seg.StartS, EndS: seg.EndS, Text: seg.Text})
	}
	return cues
}

// captionShots attaches ranked captions to each shot's keyframe. A failed
// or empty frame keeps an empty caption list.
func (o *Orchestrator) captionShots(ctx context.Context, shots []record.Shot, log *slog.Logger) error {
	if len(shots) == 0 {
		return nil
	}

	return o.arbiter.With(ctx, "caption", nil, func(ctx context.Context) error {
		for i := range shots {
			results, err := o.caption.Caption(ctx, shots[i].Keyframe, o.cfg.NumCaptions)
			if err != nil {
				log.Warn("captioning failed for frame", "shot_id", shots[i].ShotID, "error", err)
				continue
			}
			for _, r := range results {
				c, err := record.NewCaption(r.Text, r.Confidence)
				if err != nil {
					log.Warn("dropping caption with invalid confidence",
						"shot_id", shots[i].ShotID, "error", err)
					continue
				}
				shots[i].Captions = append(shots[i].Captions, c)
			}
		}
		return nil
	})
}

// recognizeText runs OCR over each keyframe and returns the model ID to
// stamp in the record, "none" when OCR was skipped or unavailable.
func (o *Orchestrator) recognizeText(ctx context.Context, shots []record.Shot, language string, log *slog.Logger) string {
	if o.cfg.SkipOCR || o.ocr == nil {
		if !o.cfg.SkipOCR {
			log.Warn("text engine unavailable, skipping ocr")
		}
		return "none"
	}

	languages := engines.OCRLanguages(language)
	err := o.arbiter.With(ctx, "ocr", nil, func(ctx context.Context) error {
		for i := range shots {
			text, err := o.ocr.Recognize(ctx, shots[i].Keyframe, languages)
			if err != nil {
				log.Warn("ocr failed for frame", "shot_id", shots[i].ShotID, "error", err)
				continue
			}
			shots[i].OCRText = text
		}
		return nil
	})
	if err != nil {
		log.Warn("model slot unavailable, skipping ocr", "error", err)
	}
	return o.ocr.ModelID()
}

// cleanupScratch removes per-video scratch artifacts after processing,
// honoring the keep flags. Runs on every exit path; the record only
// references frame paths, their retention is the operator's choice.
func (o *Orchestrator) cleanupScratch(audioPath, framesDir string, log *slog.Logger) {
	if !o.cfg.KeepAudio {
		if err := os.Remove(audioPath); err != nil && !os.IsNotExist(err) {
			log.Warn("cannot remove scratch audio", "path", audioPath, "error", err)
		}
		// Remove the temp dir if this was its last occupant.
		os.Remove(o.cfg.TempDir)
	}
	if !o.cfg.KeepFrames {
		if err := os.RemoveAll(framesDir); err != nil {
			log.Warn("cannot remove frames directory", "path", framesDir, "error", err)
		}
	}
}
