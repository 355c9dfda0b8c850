// Package main is the medscribe CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/hyperjump/medscribe/internal/archive"
	"github.com/hyperjump/medscribe/internal/audio"
	"github.com/hyperjump/medscribe/internal/config"
	"github.com/hyperjump/medscribe/internal/extract"
	"github.com/hyperjump/medscribe/internal/ingest"
	"github.com/hyperjump/medscribe/internal/server"
	"github.com/hyperjump/medscribe/internal/services"
	"github.com/hyperjump/medscribe/internal/session"
	"github.com/hyperjump/medscribe/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/medscribe/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development). When no file exists at
// all, defaults are used and the returned path is empty.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return config.Default(), "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "transcribe":
		runTranscribe()
	case "ocr":
		runOCR()
	case "diagnose":
		runDiagnose()
	case "export":
		runExport()
	case "reports":
		runReports()
	case "config":
		runConfig()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("medscribe version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and credentials and builds the logger shared by every command.
func setup(configPath string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load env file: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolved, logger := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	sessions := session.NewManager(cfg.Sessions.TTL, cfg.Sessions.CleanupInterval, session.WithLogger(logger))
	srv := server.NewServer(cfg, server.Deps{
		Sessions:  sessions,
		Ingestor:  components.Ingestor,
		Diagnoser: components.Diagnoser,
		Chatter:   components.Chatter,
		Archive:   components.Archive,
	}, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

// Components holds initialized services.
type Components struct {
	Transcriber *services.Transcriber
	OCR         *services.OCR
	Diagnoser   *services.Diagnoser
	Chatter     *services.Chatter
	Ingestor    *ingest.Ingestor
	Archive     *archive.Archive
}

func (c *Components) Close() {
	if c.Archive != nil {
		_ = c.Archive.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	svcOpts := []services.Option{services.WithLogger(logger)}
	c := &Components{
		Transcriber: services.NewTranscriber(cfg.Services.Transcription, cfg.Uploads.Audio, svcOpts...),
		OCR:         services.NewOCR(cfg.Services.OCR, cfg.Uploads.Images, svcOpts...),
		Diagnoser:   services.NewDiagnoser(cfg.Services.Diagnosis, svcOpts...),
		Chatter:     services.NewChatter(cfg.Services.Chat, svcOpts...),
	}

	ingestOpts := []ingest.Option{ingest.WithLogger(logger)}
	if cfg.Features.ChunkedAudioEnabled() {
		splitter := audio.NewSplitter(
			cfg.Audio.ChunkThresholdBytes(),
			cfg.Audio.SegmentDuration(),
			audio.WithFFmpeg(cfg.Audio.FFmpegPath),
			audio.WithLogger(logger),
		)
		if !splitter.FFmpegAvailable() {
			logger.Warn("ffmpeg not found; only WAV recordings can be split", zap.String("ffmpeg_path", cfg.Audio.FFmpegPath))
		}
		ingestOpts = append(ingestOpts, ingest.WithSplitter(splitter))
	}
	c.Ingestor = ingest.New(c.Transcriber, c.OCR, extract.NewExtractor(), cfg.Uploads, ingestOpts...)

	if cfg.Archive.Enabled {
		a, err := archive.Open(cfg.Archive, archive.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize archive: %w", err)
		}
		c.Archive = a
	}
	return c, nil
}

func runConfig() {
	if len(os.Args) < 3 || os.Args[2] != "init" {
		fmt.Println("Usage: medscribe config init [--config path] [--force]")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path to write")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(os.Args[3:])

	if err := writeDefaultConfig(*configPath, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Config init failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote default config to %s\n", *configPath)
}

// writeDefaultConfig saves the default configuration, refusing to replace an
// existing file unless force is set.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	return config.Save(path, config.Default())
}

// statusResponse is the shape of GET /api/v1/status response.
type statusResponse struct {
	Sessions        int             `json:"sessions"`
	Features        map[string]bool `json:"features"`
	ArchivedReports *int64          `json:"archived_reports,omitempty"`
	DiskUsageBytes  *int64          `json:"archive_disk_usage_bytes,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	status, err := statusViaHTTP(*serverURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		writeStatusText(os.Stdout, status)
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func writeStatusText(w io.Writer, status *statusResponse) {
	fmt.Fprintf(w, "sessions:           %d   # live in-memory sessions\n", status.Sessions)
	if status.ArchivedReports != nil {
		fmt.Fprintf(w, "archived_reports:   %d\n", *status.ArchivedReports)
	}
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # archive database + index on disk\n", *status.DiskUsageBytes)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# features")
	for _, name := range []string{"chat", "chunked_audio", "review", "archive"} {
		fmt.Fprintf(w, "%-19s %t\n", name+":", status.Features[name])
	}
}

func statusViaHTTP(serverURL string) (*statusResponse, error) {
	resp, err := http.Get(serverURL + "/api/v1/status")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var s statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &s, nil
}

func printUsage() {
	fmt.Print(`medscribe - clinical documentation assistant

Usage:
  medscribe <command> [flags]

Commands:
  server       Start the HTTP API server
  transcribe   Transcribe audio recordings
  ocr          Extract text from scanned documents and images
  diagnose     Generate a diagnosis report from source files
  export       Convert a report text file to .txt or .docx
  reports      List or search archived reports (list|search)
  config init  Write a default config file
  status       Show server status
  version      Show version
  help         Show this help

Common flags:
  --config     config file path (default /usr/local/etc/medscribe/config.yaml)
  --output     text or json, for transcribe/ocr/reports

Credentials are read from the environment (or the configured env_file):
  OPENAI_API_KEY       transcription, diagnosis, chat
  OPENROUTER_API_KEY   OCR
`)
}
