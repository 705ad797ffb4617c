package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vidintel/vidintel/internal/catalog"
	"github.com/vidintel/vidintel/internal/db"
)

func testServerConfig(t *testing.T) (ServerConfig, catalog.Repository) {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("db.New: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := catalog.NewRepository(database.Conn())
	return ServerConfig{
		Port:       0,
		Version:    "0.1.0",
		Repository: repo,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		StartTime:  time.Now(),
	}, repo
}

func seedRun(t *testing.T, repo catalog.Repository) *catalog.Run {
	t.Helper()
	run := &catalog.Run{
		ID:        catalog.NewID(),
		InputPath: "/videos",
		Status:    catalog.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := repo.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	return run
}

func doRequest(t *testing.T, cfg ServerConfig, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(cfg)
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	cfg, _ := testServerConfig(t)

	rec := doRequest(t, cfg, http.MethodGet, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "0.1.0" {
		t.Errorf("health = %+v", resp)
	}

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestListRuns(t *testing.T) {
	cfg, repo := testServerConfig(t)
	seedRun(t, repo)
	seedRun(t, repo)

	rec := doRequest(t, cfg, http.MethodGet, "/v1/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp RunsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Runs) != 2 {
		t.Errorf("runs = %d, want 2", len(resp.Runs))
	}
}

func TestGetRun_WithVideos(t *testing.T) {
	cfg, repo := testServerConfig(t)
	run := seedRun(t, repo)

	res := &catalog.VideoResult{
		ID:          catalog.NewID(),
		RunID:       run.ID,
		VideoID:     "clip",
		Path:        "/videos/clip.mp4",
		Status:      catalog.VideoStatusSucceeded,
		Shots:       2,
		ProcessedAt: time.Now().UTC(),
	}
	if err := repo.CreateVideoResult(context.Background(), res); err != nil {
		t.Fatalf("CreateVideoResult: %v", err)
	}

	rec := doRequest(t, cfg, http.MethodGet, "/v1/runs/"+run.ID)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp RunDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != run.ID || len(resp.Videos) != 1 || resp.Videos[0].VideoID != "clip" {
		t.Errorf("run detail = %+v", resp)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	cfg, _ := testServerConfig(t)

	rec := doRequest(t, cfg, http.MethodGet, "/v1/runs/nonexistent")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "NOT_FOUND" {
		t.Errorf("code = %q, want NOT_FOUND", resp.Code)
	}
}

func TestGetVideo_IncludesRecord(t *testing.T) {
	cfg, repo := testServerConfig(t)
	run := seedRun(t, repo)

	recordPath := filepath.Join(t.TempDir(), "clip.json")
	doc := `{"video_id":"clip","filename":"clip.mp4","duration_s":5,"shots":[]}`
	if err := os.WriteFile(recordPath, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	res := &catalog.VideoResult{
		ID:          catalog.NewID(),
		RunID:       run.ID,
		VideoID:     "clip",
		Path:        "/videos/clip.mp4",
		Status:      catalog.VideoStatusSucceeded,
		OutputPath:  recordPath,
		ProcessedAt: time.Now().UTC(),
	}
	if err := repo.CreateVideoResult(context.Background(), res); err != nil {
		t.Fatalf("CreateVideoResult: %v", err)
	}

	rec := doRequest(t, cfg, http.MethodGet, "/v1/videos/clip")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp VideoDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Result.VideoID != "clip" {
		t.Errorf("result = %+v", resp.Result)
	}
	if len(resp.Record) == 0 {
		t.Fatal("record document not inlined")
	}

	var inline map[string]any
	if err := json.Unmarshal(resp.Record, &inline); err != nil {
		t.Fatalf("record not valid JSON: %v", err)
	}
	if inline["video_id"] != "clip" {
		t.Errorf("inline record = %v", inline)
	}
}

func TestGetVideo_FailedVideoHasNoRecord(t *testing.T) {
	cfg, repo := testServerConfig(t)
	run := seedRun(t, repo)

	res := &catalog.VideoResult{
		ID:          catalog.NewID(),
		RunID:       run.ID,
		VideoID:     "broken",
		Path:        "/videos/broken.mp4",
		Status:      catalog.VideoStatusFailed,
		FailureKind: "transcription_failed",
		Error:       "engine exited 1",
		ProcessedAt: time.Now().UTC(),
	}
	if err := repo.CreateVideoResult(context.Background(), res); err != nil {
		t.Fatalf("CreateVideoResult: %v", err)
	}

	rec := doRequest(t, cfg, http.MethodGet, "/v1/videos/broken")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp VideoDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Result.FailureKind != "transcription_failed" {
		t.Errorf("failure_kind = %q", resp.Result.FailureKind)
	}
	if len(resp.Record) != 0 {
		t.Errorf("record should be empty for failed video, got %s", resp.Record)
	}
}

func TestGetVideo_NotFound(t *testing.T) {
	cfg, _ := testServerConfig(t)

	rec := doRequest(t, cfg, http.MethodGet, "/v1/videos/ghost")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCapabilities_NotConfigured(t *testing.T) {
	cfg, _ := testServerConfig(t)

	rec := doRequest(t, cfg, http.MethodGet, "/v1/capabilities")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
