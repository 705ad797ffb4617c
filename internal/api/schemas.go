package api

import (
	"encoding/json"
	"time"

	"github.com/vidintel/vidintel/internal/catalog"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type CapabilitiesResponse struct {
	FFmpeg      bool   `json:"ffmpeg"`
	FFprobe     bool   `json:"ffprobe"`
	Tesseract   bool   `json:"tesseract"`
	Speech      bool   `json:"speech"`
	Caption     bool   `json:"caption"`
	CanProcess  bool   `json:"can_process"`
	LastProbeAt string `json:"last_probe_at"`
}

type RunResponse struct {
	ID         string `json:"id"`
	InputPath  string `json:"input_path"`
	Status     string `json:"status"`
	Total      int    `json:"total"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
}

type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

type RunDetailResponse struct {
	RunResponse
	Videos []VideoResultResponse `json:"videos"`
}

type VideoResultResponse struct {
	ID          string  `json:"id"`
	RunID       string  `json:"run_id"`
	VideoID     string  `json:"video_id"`
	Path        string  `json:"path"`
	Status      string  `json:"status"`
	FailureKind string  `json:"failure_kind,omitempty"`
	Error       string  `json:"error,omitempty"`
	OutputPath  string  `json:"output_path,omitempty"`
	DurationS   float64 `json:"duration_s"`
	Shots       int     `json:"shots"`
	Words       int     `json:"words"`
	ProcessedAt string  `json:"processed_at"`
}

type VideosResponse struct {
	Videos []VideoResultResponse `json:"videos"`
}

// VideoDetailResponse includes the fused record document when the video
// succeeded and its output file is still readable.
type VideoDetailResponse struct {
	Result VideoResultResponse `json:"result"`
	Record json.RawMessage     `json:"record,omitempty"`
}

func RunToResponse(run *catalog.Run) RunResponse {
	resp := RunResponse{
		ID:        run.ID,
		InputPath: run.InputPath,
		Status:    run.Status,
		Total:     run.Total,
		Succeeded: run.Succeeded,
		Failed:    run.Failed,
		Error:     run.Error,
		StartedAt: run.StartedAt.Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		resp.FinishedAt = run.FinishedAt.Format(time.RFC3339)
	}
	return resp
}

func VideoResultToResponse(v *catalog.VideoResult) VideoResultResponse {
	return VideoResultResponse{
		ID:          v.ID,
		RunID:       v.RunID,
		VideoID:     v.VideoID,
		Path:        v.Path,
		Status:      v.Status,
		FailureKind: v.FailureKind,
		Error:       v.Error,
		OutputPath:  v.OutputPath,
		DurationS:   v.DurationS,
		Shots:       v.Shots,
		Words:       v.Words,
		ProcessedAt: v.ProcessedAt.Format(time.RFC3339),
	}
}
