// Package config loads runtime settings from the environment.
//
// A .env file in the working directory is read first when present; variables
// already set in the environment win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ironsheep/planogram-mcp/internal/detection"
	"github.com/ironsheep/planogram-mcp/internal/imaging"
	"github.com/ironsheep/planogram-mcp/internal/planogram"
)

// Transports understood by the command.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds every setting the server reads at startup.
type Config struct {
	LogLevel  string
	Transport string
	HTTPAddr  string

	DataDir     string
	DatabaseURL string

	InferenceURL        string
	InferenceHealthURL  string
	ConfidenceThreshold float64
	IOUThreshold        float64
	OCRLanguage         string

	Levels        int
	SlotsPerLevel int
	SlotWidth     float64
	SlotHeight    float64
	GridSize      float64

	ImageCacheSize int
}

// Debug reports whether debug logging was requested.
func (c *Config) Debug() bool { return c.LogLevel == "debug" }

// Load reads .env (if any) and the environment. A malformed number is an
// error naming the variable.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (*Config, error) {
	c := &Config{
		LogLevel:           getEnv("PLANOGRAM_MCP_LOG_LEVEL", "info"),
		Transport:          getEnv("PLANOGRAM_MCP_TRANSPORT", TransportStdio),
		HTTPAddr:           getEnv("PLANOGRAM_MCP_HTTP_ADDR", ":8080"),
		DataDir:            getEnv("PLANOGRAM_MCP_DATA_DIR", "./data/planograms"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		InferenceURL:       os.Getenv("INFERENCE_URL"),
		InferenceHealthURL: os.Getenv("INFERENCE_HEALTH_URL"),
		OCRLanguage:        getEnv("OCR_LANGUAGE", "eng"),
	}

	var err error
	if c.ConfidenceThreshold, err = getFloat("DETECTION_CONFIDENCE_THRESHOLD", detection.DefaultConfidenceThreshold); err != nil {
		return nil, err
	}
	if c.IOUThreshold, err = getFloat("DETECTION_IOU_THRESHOLD", detection.DefaultIOUThreshold); err != nil {
		return nil, err
	}
	if c.Levels, err = getInt("PLANOGRAM_LEVELS", planogram.DefaultLevels); err != nil {
		return nil, err
	}
	if c.SlotsPerLevel, err = getInt("PLANOGRAM_SLOTS_PER_LEVEL", planogram.DefaultSlotsPerLevel); err != nil {
		return nil, err
	}
	if c.SlotWidth, err = getFloat("PLANOGRAM_SLOT_WIDTH", planogram.DefaultSlotWidth); err != nil {
		return nil, err
	}
	if c.SlotHeight, err = getFloat("PLANOGRAM_SLOT_HEIGHT", planogram.DefaultSlotHeight); err != nil {
		return nil, err
	}
	if c.GridSize, err = getFloat("PLANOGRAM_GRID_SIZE", planogram.DefaultGridSize); err != nil {
		return nil, err
	}
	if c.ImageCacheSize, err = getInt("IMAGE_CACHE_SIZE", imaging.DefaultCacheSize); err != nil {
		return nil, err
	}

	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return nil, fmt.Errorf("PLANOGRAM_MCP_TRANSPORT: unknown transport %q", c.Transport)
	}
	return c, nil
}

// DetectionOptions returns postprocessor options for the configured
// thresholds. Slot geometry is filled in per planogram.
func (c *Config) DetectionOptions() detection.Options {
	return detection.Options{
		ConfidenceThreshold: c.ConfidenceThreshold,
		IOUThreshold:        c.IOUThreshold,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getFloat(key string, defaultVal float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
