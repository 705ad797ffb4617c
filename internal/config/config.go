// Package config provides configuration management for vidintel.
// Configuration is resolved from defaults, then an optional .env file,
// then VIDINTEL_* environment variables; CLI flags are applied on top
// by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	// Default values
	DefaultLogLevel       = "info"
	DefaultOutputDir      = "outputs/json"
	DefaultFramesDir      = "outputs/frames"
	DefaultDataDir        = ".vidintel"
	DefaultPort           = 8791
	DefaultSceneThreshold = 27.0
	DefaultNumCaptions    = 1
	DefaultEngineModule   = "vidintel_models"

	// Subprocess timeout defaults, in seconds
	DefaultTimeoutProbe    = 30
	DefaultTimeoutAudio    = 300
	DefaultTimeoutShots    = 600
	DefaultTimeoutKeyframe = 60
	DefaultTimeoutSpeech   = 1800
	DefaultTimeoutCaption  = 900
	DefaultTimeoutOCR      = 60
	DefaultTimeoutDoctor   = 30

	// Environment variable names
	EnvLogLevel     = "VIDINTEL_LOG_LEVEL"
	EnvOutputDir    = "VIDINTEL_OUTPUT_DIR"
	EnvFramesDir    = "VIDINTEL_FRAMES_DIR"
	EnvDataDir      = "VIDINTEL_DATA_DIR"
	EnvPort         = "VIDINTEL_PORT"
	EnvEnginePython = "VIDINTEL_ENGINE_PYTHON"
	EnvEngineModule = "VIDINTEL_ENGINE_MODULE"

	// Database filename
	DBFilename = "vidintel.db"
)

// Config holds the resolved application configuration.
type Config struct {
	LogLevel  string
	OutputDir string
	FramesDir string
	DataDir   string
	Port      int

	// Per-video processing options
	Language       string  // ASR language hint; empty = auto-detect
	SceneThreshold float64 // lower = more sensitive = more shots
	NumCaptions    int
	SkipOCR        bool
	KeepFrames     bool
	KeepAudio      bool
	ExportSRT      bool

	// External engine invocation
	EnginePython string // path to python binary; empty = auto-detect
	EngineModule string

	// Subprocess timeouts
	TimeoutProbe    time.Duration
	TimeoutAudio    time.Duration
	TimeoutShots    time.Duration
	TimeoutKeyframe time.Duration
	TimeoutSpeech   time.Duration
	TimeoutCaption  time.Duration
	TimeoutOCR      time.Duration
	TimeoutDoctor   time.Duration
}

// New creates a Config with defaults and environment variable overrides.
func New() (*Config, error) {
	// A .env file is optional; absence is not an error.
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:       DefaultLogLevel,
		OutputDir:      DefaultOutputDir,
		FramesDir:      DefaultFramesDir,
		DataDir:        defaultDataDir(),
		Port:           DefaultPort,
		SceneThreshold: DefaultSceneThreshold,
		NumCaptions:    DefaultNumCaptions,
		EngineModule:   DefaultEngineModule,

		TimeoutProbe:    DefaultTimeoutProbe * time.Second,
		TimeoutAudio:    DefaultTimeoutAudio * time.Second,
		TimeoutShots:    DefaultTimeoutShots * time.Second,
		TimeoutKeyframe: DefaultTimeoutKeyframe * time.Second,
		TimeoutSpeech:   DefaultTimeoutSpeech * time.Second,
		TimeoutCaption:  DefaultTimeoutCaption * time.Second,
		TimeoutOCR:      DefaultTimeoutOCR * time.Second,
		TimeoutDoctor:   DefaultTimeoutDoctor * time.Second,
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.LogLevel = ll
	}
	if od := os.Getenv(EnvOutputDir); od != "" {
		cfg.OutputDir = od
	}
	if fd := os.Getenv(EnvFramesDir); fd != "" {
		cfg.FramesDir = fd
	}
	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.DataDir = dd
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.Port = port
	}

	cfg.EnginePython = os.Getenv(EnvEnginePython)
	if em := os.Getenv(EnvEngineModule); em != "" {
		cfg.EngineModule = em
	}

	return cfg, nil
}

// Validate checks option ranges after flag overrides have been applied.
func (c *Config) Validate() error {
	if c.SceneThreshold <= 0 {
		return fmt.Errorf("scene threshold must be positive, got %v", c.SceneThreshold)
	}
	if c.NumCaptions < 1 {
		return fmt.Errorf("caption count must be at least 1, got %d", c.NumCaptions)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	return nil
}

// DBPath returns the full path to the SQLite catalog file.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFilename)
}

// TempDir returns the scratch directory for extracted audio,
// a sibling of the output directory.
func (c *Config) TempDir() string {
	return filepath.Join(filepath.Dir(c.OutputDir), "temp")
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
