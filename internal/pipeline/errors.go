package pipeline

import "fmt"

// FailureKind classifies the fatal failure modes of a single video run.
// Anything not covered here is a degraded-but-successful outcome and is
// recorded in the output with empty values instead of aborting.
type FailureKind string

const (
	KindInvalidInput           FailureKind = "invalid_input"
	KindAudioExtractionFailed  FailureKind = "audio_extraction_failed"
	KindTranscriptionFailed    FailureKind = "transcription_failed"
	KindFusionValidationFailed FailureKind = "fusion_validation_failed"

	// KindCancelled marks a video abandoned mid-flight by shutdown rather
	// than rejected by a processing stage.
	KindCancelled FailureKind = "cancelled"
)

// ProcessingFailure is a fatal per-video error. The batch driver logs it
// and moves to the next video; no partial output file is written.
type ProcessingFailure struct {
	Kind    FailureKind
	VideoID string
	Err     error
}

func (f *ProcessingFailure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.VideoID, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.VideoID, f.Kind, f.Err)
}

func (f *ProcessingFailure) Unwrap() error {
	return f.Err
}

func failure(kind FailureKind, videoID string, err error) *ProcessingFailure {
	return &ProcessingFailure{Kind: kind, VideoID: videoID, Err: err}
}
