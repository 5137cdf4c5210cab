package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ironsheep/planogram-mcp/internal/config"
	"github.com/ironsheep/planogram-mcp/internal/detection"
	"github.com/ironsheep/planogram-mcp/internal/ocr"
	"github.com/ironsheep/planogram-mcp/internal/server"
	"github.com/ironsheep/planogram-mcp/internal/store"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	forceHTTP := false

	// Handle --version, --help and --http
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("planogram-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		case "--http":
			forceHTTP = true
		default:
			fmt.Fprintf(os.Stderr, "unknown option %q (try --help)\n", os.Args[1])
			os.Exit(2)
		}
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}
	if forceHTTP {
		cfg.Transport = config.TransportHTTP
	}
	if cfg.Debug() {
		log.Printf("Planogram MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		log.Fatalf("Storage error: %v", err)
	}
	defer closeRepo()

	detectors, defaultDetector := buildDetectors(cfg)

	srv := server.New(server.Options{
		Repository:      repo,
		Detectors:       detectors,
		DefaultDetector: defaultDetector,
		Labeler:         ocr.NewLabeler(cfg.OCRLanguage),
		Detection:       cfg.DetectionOptions(),
		Layout: server.Layout{
			Levels:        cfg.Levels,
			SlotsPerLevel: cfg.SlotsPerLevel,
			SlotWidth:     cfg.SlotWidth,
			SlotHeight:    cfg.SlotHeight,
			GridSize:      cfg.GridSize,
		},
		ImageCacheSize: cfg.ImageCacheSize,
		Debug:          cfg.Debug(),
	})

	if cfg.Transport == config.TransportHTTP {
		err = srv.ListenAndServe(cfg.HTTPAddr)
	} else {
		err = srv.Run()
	}
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// openRepository uses PostgreSQL when DATABASE_URL is set and a directory of
// JSON files otherwise.
func openRepository(cfg *config.Config) (store.Repository, func(), error) {
	if cfg.DatabaseURL == "" {
		repo, err := store.NewFileRepository(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Debug() {
			log.Printf("Storing planograms in %s", cfg.DataDir)
		}
		return repo, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Debug() {
		log.Printf("Storing planograms in PostgreSQL")
	}
	return store.NewPostgresRepository(db), func() { db.Close() }, nil
}

// buildDetectors registers the simulated and edge detectors, plus the remote
// model when INFERENCE_URL is set. The remote model becomes the default when
// it answers its health check.
func buildDetectors(cfg *config.Config) (map[string]detection.Detector, string) {
	detectors := map[string]detection.Detector{
		"simulated": detection.NewSimulatedDetector(time.Now().UnixNano()),
		"edge":      detection.NewEdgeDetector(),
	}
	if cfg.InferenceURL == "" {
		return detectors, "simulated"
	}

	remote := detection.NewRemoteDetector(cfg.InferenceURL)
	remote.HealthURL = cfg.InferenceHealthURL
	detectors["remote"] = remote

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := remote.CheckHealth(ctx); err != nil {
		log.Printf("Inference service unavailable, defaulting to simulated detector: %v", err)
		return detectors, "simulated"
	}
	return detectors, "remote"
}

func printHelp() {
	fmt.Println("planogram-mcp - MCP server for planogram compliance")
	fmt.Println()
	fmt.Println("Usage: planogram-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println("  --http           Serve the HTTP API instead of stdio")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Println("  PLANOGRAM_MCP_LOG_LEVEL=debug          Enable debug logging")
	fmt.Println("  PLANOGRAM_MCP_TRANSPORT=stdio|http     Transport (default stdio)")
	fmt.Println("  PLANOGRAM_MCP_HTTP_ADDR=:8080          HTTP listen address")
	fmt.Println("  PLANOGRAM_MCP_DATA_DIR=./data/planograms  File storage directory")
	fmt.Println("  DATABASE_URL=postgres://...            Store planograms in PostgreSQL")
	fmt.Println("  INFERENCE_URL=http://host/predict      Remote detection model")
	fmt.Println("  INFERENCE_HEALTH_URL=http://host/health  Model health check (default /health on the model host)")
	fmt.Println("  DETECTION_CONFIDENCE_THRESHOLD=0.6     Minimum detection confidence")
	fmt.Println("  DETECTION_IOU_THRESHOLD=0.4            Duplicate suppression overlap")
	fmt.Println("  PLANOGRAM_LEVELS=5, PLANOGRAM_SLOTS_PER_LEVEL=12")
	fmt.Println("  PLANOGRAM_SLOT_WIDTH=60, PLANOGRAM_SLOT_HEIGHT=80, PLANOGRAM_GRID_SIZE=20")
	fmt.Println("  OCR_LANGUAGE=eng                       Tesseract language for label OCR")
	fmt.Println("  IMAGE_CACHE_SIZE=16                    Decoded photos kept in memory")
	fmt.Println()
	fmt.Println("Over stdio the server speaks MCP on stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
