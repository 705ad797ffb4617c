package api

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidintel/vidintel/internal/catalog"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))
	r.Get("/v1/capabilities", capabilitiesHandler(cfg))
	r.Get("/v1/runs", listRunsHandler(cfg))
	r.Get("/v1/runs/{id}", getRunHandler(cfg))
	r.Get("/v1/videos", listVideosHandler(cfg))
	r.Get("/v1/videos/{id}", getVideoHandler(cfg))

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func capabilitiesHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Doctor == nil {
			WriteError(w, http.StatusServiceUnavailable, "doctor not configured", "UNAVAILABLE")
			return
		}

		caps, err := cfg.Doctor.Get(r.Context())
		if err != nil {
			WriteError(w, http.StatusServiceUnavailable, "capability probe failed", "UNAVAILABLE")
			return
		}

		WriteJSON(w, http.StatusOK, CapabilitiesResponse{
			FFmpeg:      caps.FFmpeg,
			FFprobe:     caps.FFprobe,
			Tesseract:   caps.Tesseract,
			Speech:      caps.Speech,
			Caption:     caps.Caption,
			CanProcess:  caps.CanProcess(),
			LastProbeAt: caps.ProbedAt.Format(time.RFC3339),
		})
	}
}

func listRunsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := cfg.Repository.ListRuns(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list runs", "INTERNAL_ERROR")
			return
		}

		resp := RunsResponse{Runs: make([]RunResponse, len(runs))}
		for i, run := range runs {
			resp.Runs[i] = RunToResponse(run)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getRunHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			WriteError(w, http.StatusBadRequest, "run id required", "BAD_REQUEST")
			return
		}

		run, err := cfg.Repository.GetRun(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if run == nil {
			WriteError(w, http.StatusNotFound, "run not found", "NOT_FOUND")
			return
		}

		videos, err := cfg.Repository.ListVideoResultsByRun(r.Context(), id)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		resp := RunDetailResponse{
			RunResponse: RunToResponse(run),
			Videos:      make([]VideoResultResponse, len(videos)),
		}
		for i, v := range videos {
			resp.Videos[i] = VideoResultToResponse(v)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := cfg.Repository.ListVideoResults(r.Context(), 50)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list videos", "INTERNAL_ERROR")
			return
		}

		resp := VideosResponse{Videos: make([]VideoResultResponse, len(videos))}
		for i, v := range videos {
			resp.Videos[i] = VideoResultToResponse(v)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videoID := chi.URLParam(r, "id")
		if videoID == "" {
			WriteError(w, http.StatusBadRequest, "video id required", "BAD_REQUEST")
			return
		}

		result, err := cfg.Repository.LatestVideoResult(r.Context(), videoID)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}
		if result == nil {
			WriteError(w, http.StatusNotFound, "video not found", "NOT_FOUND")
			return
		}

		resp := VideoDetailResponse{Result: VideoResultToResponse(result)}
		if result.Status == catalog.VideoStatusSucceeded && result.OutputPath != "" {
			if data, err := os.ReadFile(result.OutputPath); err == nil && json.Valid(data) {
				resp.Record = data
			} else if cfg.Logger != nil {
				cfg.Logger.Warn("record file unreadable", "video_id", videoID, "path", result.OutputPath)
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
