package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/medscribe/internal/archive"
	"github.com/hyperjump/medscribe/internal/cli"
	"github.com/hyperjump/medscribe/internal/config"
	"github.com/hyperjump/medscribe/internal/export"
	"github.com/hyperjump/medscribe/internal/extract"
	"github.com/hyperjump/medscribe/internal/ingest"
	"github.com/hyperjump/medscribe/internal/registry"
	"github.com/hyperjump/medscribe/internal/services"
	"go.uber.org/zap"
)

// argsReorder moves any flags (and their values) that appear after the file
// arguments to the front so that flag.Parse() sees them. Go's flag package stops
// at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// readUploads loads files from disk in argument order.
func readUploads(paths []string) ([]ingest.Upload, error) {
	uploads := make([]ingest.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		uploads = append(uploads, ingest.Upload{
			Filename:    filepath.Base(p),
			ContentType: http.DetectContentType(data),
			Data:        data,
		})
	}
	return uploads, nil
}

// splitByKind separates audio recordings from documents and images.
func splitByKind(uploads []ingest.Upload, audioExts []string) (recordings, documents []ingest.Upload) {
	for _, up := range uploads {
		if config.AllowedExtension(audioExts, filepath.Ext(up.Filename)) {
			recordings = append(recordings, up)
		} else {
			documents = append(documents, up)
		}
	}
	return recordings, documents
}

// parseFieldList splits a comma separated field list, dropping blanks.
func parseFieldList(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// writeReportFile writes report to path in the format implied by its extension.
// A transcript is only included in .docx output.
func writeReportFile(path, report, transcript string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		data, err = export.ReportDocx(report, transcript)
	case ".txt", ".md":
		data = export.ReportText(report)
	default:
		return fmt.Errorf("unsupported output %q (use .txt or .docx)", filepath.Ext(path))
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func outputFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	return format
}

func runTranscribe() {
	fs := flag.NewFlagSet("transcribe", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: medscribe transcribe [flags] <audio-file>...")
		os.Exit(1)
	}
	format := outputFormat(*output)

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	uploads, err := readUploads(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, cancel := signalContext()
	defer cancel()
	reg := registry.New()
	outcomes, err := components.Ingestor.Audio(ctx, reg, uploads)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Transcription failed: %v\n", err)
		os.Exit(1)
	}
	finishIngest(cli.NewIngestReport(outcomes, reg.ListAll()), format)
}

func runOCR() {
	fs := flag.NewFlagSet("ocr", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	mode := fs.String("mode", string(services.ModeFull), "full or structured")
	fields := fs.String("fields", "", "comma separated fields for structured mode")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: medscribe ocr [flags] <image-or-document>...")
		os.Exit(1)
	}
	format := outputFormat(*output)
	m, ok := services.ParseMode(*mode)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown OCR mode %q; use full or structured\n", *mode)
		os.Exit(1)
	}

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	uploads, err := readUploads(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, cancel := signalContext()
	defer cancel()
	reg := registry.New()
	outcomes, err := components.Ingestor.Documents(ctx, reg, uploads, ingest.DocumentOptions{Mode: m, Fields: parseFieldList(*fields)})
	if err != nil {
		fmt.Fprintf(os.Stderr, "OCR failed: %v\n", err)
		os.Exit(1)
	}
	finishIngest(cli.NewIngestReport(outcomes, reg.ListAll()), format)
}

func finishIngest(report *cli.IngestReport, format cli.OutputFormat) {
	if err := cli.WriteIngestReport(os.Stdout, report, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	if report.Succeeded == 0 {
		os.Exit(1)
	}
}

// runDiagnose ingests every file, confirms all sources as-is and generates a
// report in one pass.
func runDiagnose() {
	fs := flag.NewFlagSet("diagnose", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	out := fs.String("out", "", "write the report to a .txt or .docx file instead of stdout")
	withTranscript := fs.Bool("transcript", false, "append the audio transcript to .docx output")
	save := fs.Bool("archive", false, "store the report in the archive")
	title := fs.String("title", "", "archive title (default: first report line)")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fmt.Println("Usage: medscribe diagnose [flags] <file>...")
		os.Exit(1)
	}

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()
	if *save && components.Archive == nil {
		fmt.Fprintln(os.Stderr, "Archive is disabled; set archive.enabled in the config")
		os.Exit(1)
	}

	uploads, err := readUploads(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, cancel := signalContext()
	defer cancel()

	reg := registry.New()
	recordings, documents := splitByKind(uploads, cfg.Uploads.Audio)
	var outcomes []ingest.Outcome
	if len(recordings) > 0 {
		o, err := components.Ingestor.Audio(ctx, reg, recordings)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Transcription failed: %v\n", err)
			os.Exit(1)
		}
		outcomes = append(outcomes, o...)
	}
	if len(documents) > 0 {
		o, err := components.Ingestor.Documents(ctx, reg, documents, ingest.DocumentOptions{})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Document extraction failed: %v\n", err)
			os.Exit(1)
		}
		outcomes = append(outcomes, o...)
	}
	for _, o := range outcomes {
		if o.Error != "" {
			fmt.Fprintf(os.Stderr, "skipped %s: %s\n", o.Filename, o.Error)
		}
	}
	if reg.Len() == 0 {
		fmt.Fprintln(os.Stderr, "No sources could be read")
		os.Exit(1)
	}
	reg.BulkConfirm()
	logger.Info("sources confirmed", zap.Any("summary", reg.Summary()))

	res := components.Diagnoser.Generate(ctx, reg.CombinedText())
	if !res.OK() {
		fmt.Fprintf(os.Stderr, "Diagnosis failed: %v\n", res.Err())
		os.Exit(1)
	}

	if *out == "" {
		fmt.Println(res.Text)
	} else {
		transcript := ""
		if *withTranscript {
			transcript = export.Transcript(reg.ListConfirmed())
		}
		if err := writeReportFile(*out, res.Text, transcript); err != nil {
			fmt.Fprintf(os.Stderr, "Write failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Report written to %s\n", *out)
	}

	if *save {
		summary := reg.Summary()
		saved, err := components.Archive.Save(ctx, archive.Entry{
			Title:  *title,
			Report: res.Text,
			Metadata: map[string]interface{}{
				"confirmed_sources": summary.Confirmed,
				"total_words":       summary.TotalWords,
				"by_type":           summary.ByType,
			},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Archive failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Archived as %s\n", saved.ID)
	}
}

func runExport() {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	out := fs.String("out", "", "output file (.txt or .docx); default medical_report_<timestamp>.docx")
	transcriptPath := fs.String("transcript", "", "text file appended as the consultation transcript (.docx only)")
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() != 1 {
		fmt.Println("Usage: medscribe export [flags] <report.txt|report.md|report.docx>")
		os.Exit(1)
	}
	extractor := extract.NewExtractor()
	report, err := extractor.Extract(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
		os.Exit(1)
	}
	transcript := ""
	if *transcriptPath != "" {
		if transcript, err = extractor.Extract(*transcriptPath); err != nil {
			fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
			os.Exit(1)
		}
	}
	path := *out
	if path == "" {
		path = export.Filename(export.FormatReportDocx, time.Now())
	}
	if err := writeReportFile(path, report, transcript); err != nil {
		fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Report written to %s\n", path)
}

func runReports() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: medscribe reports <list|search> [flags] [query]")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("reports", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text or json")
	limit := fs.Int("limit", 20, "number of reports")
	fuzzy := fs.Bool("fuzzy", false, "tolerate typos in search terms")
	_ = fs.Parse(argsReorder(os.Args[3:]))
	format := outputFormat(*output)

	cfg, _, logger := setup(*configPath, false)
	defer logger.Sync()
	if !cfg.Archive.Enabled {
		fmt.Fprintln(os.Stderr, "Archive is disabled; set archive.enabled in the config")
		os.Exit(1)
	}
	a, err := archive.Open(cfg.Archive, archive.WithLogger(logger))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open archive: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()
	ctx := context.Background()

	switch sub {
	case "list":
		reports, err := a.List(ctx, 0, *limit)
		if err == nil {
			err = cli.WriteReports(os.Stdout, reports, format)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
	case "search":
		query := strings.TrimSpace(strings.Join(fs.Args(), " "))
		res, err := a.Search(ctx, query, *limit, *fuzzy)
		if err == nil {
			err = cli.WriteSearchResult(os.Stdout, res, format)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("Unknown reports subcommand: %s\n", sub)
		os.Exit(1)
	}
}
