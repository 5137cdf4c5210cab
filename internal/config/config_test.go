package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{
		"PLANOGRAM_MCP_LOG_LEVEL", "PLANOGRAM_MCP_TRANSPORT", "PLANOGRAM_MCP_HTTP_ADDR",
		"PLANOGRAM_MCP_DATA_DIR", "DATABASE_URL", "INFERENCE_URL",
		"DETECTION_CONFIDENCE_THRESHOLD", "DETECTION_IOU_THRESHOLD",
		"PLANOGRAM_LEVELS", "PLANOGRAM_SLOTS_PER_LEVEL",
		"PLANOGRAM_SLOT_WIDTH", "PLANOGRAM_SLOT_HEIGHT", "PLANOGRAM_GRID_SIZE", "OCR_LANGUAGE",
		"INFERENCE_HEALTH_URL", "IMAGE_CACHE_SIZE",
	} {
		t.Setenv(key, "")
	}

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}

	if c.LogLevel != "info" || c.Debug() {
		t.Errorf("LogLevel: got %q, want info", c.LogLevel)
	}
	if c.Transport != TransportStdio {
		t.Errorf("Transport: got %q, want stdio", c.Transport)
	}
	if c.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr: got %q, want :8080", c.HTTPAddr)
	}
	if c.DataDir != "./data/planograms" {
		t.Errorf("DataDir: got %q", c.DataDir)
	}
	if c.DatabaseURL != "" || c.InferenceURL != "" {
		t.Errorf("URLs: got %q / %q, want empty", c.DatabaseURL, c.InferenceURL)
	}
	if c.ConfidenceThreshold != 0.6 || c.IOUThreshold != 0.4 {
		t.Errorf("thresholds: got %v / %v, want 0.6 / 0.4", c.ConfidenceThreshold, c.IOUThreshold)
	}
	if c.Levels != 5 || c.SlotsPerLevel != 12 {
		t.Errorf("grid: got %d x %d, want 5 x 12", c.Levels, c.SlotsPerLevel)
	}
	if c.SlotWidth != 60 || c.SlotHeight != 80 || c.GridSize != 20 {
		t.Errorf("slot: got %v x %v grid %v", c.SlotWidth, c.SlotHeight, c.GridSize)
	}
	if c.OCRLanguage != "eng" {
		t.Errorf("OCRLanguage: got %q, want eng", c.OCRLanguage)
	}
	if c.InferenceHealthURL != "" {
		t.Errorf("InferenceHealthURL: got %q, want empty", c.InferenceHealthURL)
	}
	if c.ImageCacheSize != 16 {
		t.Errorf("ImageCacheSize: got %d, want 16", c.ImageCacheSize)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("PLANOGRAM_MCP_LOG_LEVEL", "debug")
	t.Setenv("PLANOGRAM_MCP_TRANSPORT", "http")
	t.Setenv("DATABASE_URL", "postgres://localhost/planograms")
	t.Setenv("DETECTION_CONFIDENCE_THRESHOLD", "0.75")
	t.Setenv("PLANOGRAM_LEVELS", "3")
	t.Setenv("PLANOGRAM_SLOT_WIDTH", "45.5")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if !c.Debug() {
		t.Error("Debug: got false, want true")
	}
	if c.Transport != TransportHTTP {
		t.Errorf("Transport: got %q, want http", c.Transport)
	}
	if c.DatabaseURL != "postgres://localhost/planograms" {
		t.Errorf("DatabaseURL: got %q", c.DatabaseURL)
	}
	if c.ConfidenceThreshold != 0.75 {
		t.Errorf("ConfidenceThreshold: got %v, want 0.75", c.ConfidenceThreshold)
	}
	if c.Levels != 3 {
		t.Errorf("Levels: got %d, want 3", c.Levels)
	}
	if c.SlotWidth != 45.5 {
		t.Errorf("SlotWidth: got %v, want 45.5", c.SlotWidth)
	}

	opts := c.DetectionOptions()
	if opts.ConfidenceThreshold != 0.75 || opts.IOUThreshold != c.IOUThreshold {
		t.Errorf("DetectionOptions: got %+v", opts)
	}
}

func TestFromEnv_Malformed(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"DETECTION_IOU_THRESHOLD", "high"},
		{"PLANOGRAM_SLOTS_PER_LEVEL", "12.5"},
		{"PLANOGRAM_GRID_SIZE", "twenty"},
		{"IMAGE_CACHE_SIZE", "lots"},
		{"PLANOGRAM_MCP_TRANSPORT", "grpc"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := FromEnv()
			if err == nil {
				t.Fatalf("FromEnv with %s=%q should fail", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q should name %s", err, tt.key)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("OCR_LANGUAGE=deu\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Chdir(dir)

	// godotenv does not override variables that are already set.
	t.Setenv("OCR_LANGUAGE", "")
	os.Unsetenv("OCR_LANGUAGE")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.OCRLanguage != "deu" {
		t.Errorf("OCRLanguage: got %q, want deu", c.OCRLanguage)
	}
}

func TestLoad_NoDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load(); err != nil {
		t.Errorf("Load without .env: got %v, want nil", err)
	}
}
