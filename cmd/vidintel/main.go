package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/vidintel/vidintel/internal/api"
	"github.com/vidintel/vidintel/internal/batch"
	"github.com/vidintel/vidintel/internal/catalog"
	"github.com/vidintel/vidintel/internal/config"
	"github.com/vidintel/vidintel/internal/db"
	"github.com/vidintel/vidintel/internal/engines"
	"github.com/vidintel/vidintel/internal/gpu"
	"github.com/vidintel/vidintel/internal/logging"
	"github.com/vidintel/vidintel/internal/media"
	"github.com/vidintel/vidintel/internal/pipeline"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal error: %v", err)
	}
}

func run() error {
	startTime := time.Now()

	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var (
		input       = flag.String("input", "", "video file or directory to process")
		serve       = flag.Bool("serve", false, "serve the results API instead of processing")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "directory for fused JSON records")
	flag.StringVar(&cfg.FramesDir, "frames-dir", cfg.FramesDir, "directory for extracted keyframes")
	flag.StringVar(&cfg.Language, "language", cfg.Language, "transcription language hint (empty = auto-detect)")
	flag.Float64Var(&cfg.SceneThreshold, "scene-threshold", cfg.SceneThreshold, "shot detection sensitivity, lower = more shots")
	flag.IntVar(&cfg.NumCaptions, "num-captions", cfg.NumCaptions, "captions generated per keyframe")
	flag.BoolVar(&cfg.SkipOCR, "skip-ocr", cfg.SkipOCR, "skip on-screen text recognition")
	flag.BoolVar(&cfg.KeepFrames, "keep-frames", cfg.KeepFrames, "keep extracted keyframes after processing")
	flag.BoolVar(&cfg.KeepAudio, "keep-audio", cfg.KeepAudio, "keep extracted audio after processing")
	flag.BoolVar(&cfg.ExportSRT, "export-srt", cfg.ExportSRT, "write a .srt subtitle sidecar per video")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	flag.IntVar(&cfg.Port, "port", cfg.Port, "results API port (with -serve)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vidintel %s (built %s, commit %s)\n", config.Version, config.BuildTime, config.GitCommit)
		return nil
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if !*serve && *input == "" {
		return fmt.Errorf("-input is required (or use -serve)")
	}

	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("starting vidintel", "version", config.Version, "data_dir", logging.SanitizePath(cfg.DataDir))

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	database, err := db.New(cfg.DBPath(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize catalog database: %w", err)
	}
	defer database.Close()

	repo := catalog.NewRepository(database.Conn())

	engineCfg := engines.Config{
		PythonPath:     cfg.EnginePython,
		ModuleName:     cfg.EngineModule,
		ArtifactsBase:  filepath.Join(cfg.DataDir, "artifacts"),
		SpeechTimeout:  cfg.TimeoutSpeech,
		CaptionTimeout: cfg.TimeoutCaption,
		DoctorTimeout:  cfg.TimeoutDoctor,
		Logger:         logging.WithComponent(logger, "engines"),
	}

	var runner *engines.Runner
	var doctor *engines.CachedDoctor

	runner, err = engines.NewRunner(engineCfg)
	if err != nil {
		logger.Warn("engine runner unavailable", "error", err)
	} else {
		doctor = engines.NewCachedDoctor(runner, logger)
	}

	if *serve {
		return serveAPI(cfg, repo, doctor, logger, startTime)
	}

	return runBatch(cfg, *input, repo, runner, doctor, logger)
}

func runBatch(cfg *config.Config, input string, repo catalog.Repository, runner *engines.Runner, doctor *engines.CachedDoctor, logger *slog.Logger) error {
	if runner == nil || doctor == nil {
		return fmt.Errorf("inference engines unavailable, cannot process videos")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	probeCtx, probeCancel := context.WithTimeout(ctx, cfg.TimeoutDoctor)
	caps, err := doctor.Refresh(probeCtx)
	probeCancel()
	if err != nil {
		return fmt.Errorf("capability probe failed: %w", err)
	}
	if !caps.CanProcess() {
		return fmt.Errorf("environment cannot process videos (ffmpeg=%v ffprobe=%v speech=%v)",
			caps.FFmpeg, caps.FFprobe, caps.Speech)
	}

	toolkit, err := media.NewToolkit(media.Config{
		ProbeTimeout:    cfg.TimeoutProbe,
		AudioTimeout:    cfg.TimeoutAudio,
		ShotsTimeout:    cfg.TimeoutShots,
		KeyframeTimeout: cfg.TimeoutKeyframe,
		Logger:          logging.WithComponent(logger, "media"),
	})
	if err != nil {
		return fmt.Errorf("media toolkit: %w", err)
	}

	// Missing tesseract degrades to skipping OCR instead of refusing to run.
	var ocr engines.TextEngine
	if !cfg.SkipOCR {
		if !caps.Tesseract {
			logger.Warn("tesseract not found, ocr disabled for this run")
		} else {
			t, err := engines.NewTesseract("", cfg.TimeoutOCR, logging.WithComponent(logger, "ocr"))
			if err != nil {
				logger.Warn("tesseract unavailable, ocr disabled for this run", "error", err)
			} else {
				ocr = t
			}
		}
	}

	orch := pipeline.New(pipeline.Config{
		OutputDir:      cfg.OutputDir,
		FramesDir:      cfg.FramesDir,
		TempDir:        cfg.TempDir(),
		Language:       cfg.Language,
		SceneThreshold: cfg.SceneThreshold,
		NumCaptions:    cfg.NumCaptions,
		SkipOCR:        cfg.SkipOCR,
		KeepFrames:     cfg.KeepFrames,
		KeepAudio:      cfg.KeepAudio,
		ExportSRT:      cfg.ExportSRT,
		Logger:         logging.WithComponent(logger, "pipeline"),
	}, toolkit, runner, runner.Captioner(), ocr, gpu.NewArbiter(logger))

	driver := batch.NewDriver(orch, repo, logging.WithComponent(logger, "batch"))

	sum, err := driver.Run(ctx, input)
	if err != nil {
		return err
	}
	if sum.Total > 0 && sum.Succeeded == 0 {
		return fmt.Errorf("all %d videos failed", sum.Total)
	}
	return nil
}

func serveAPI(cfg *config.Config, repo catalog.Repository, doctor *engines.CachedDoctor, logger *slog.Logger, startTime time.Time) error {
	server := api.NewServer(api.ServerConfig{
		Port:       cfg.Port,
		Version:    config.Version,
		Repository: repo,
		Doctor:     doctor,
		Logger:     logging.WithComponent(logger, "api"),
		StartTime:  startTime,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
