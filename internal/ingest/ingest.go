// Package ingest turns uploaded files into registry sources through the
// transcription, OCR and text-layer extractors.
package ingest

import (
	"context"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/audio"
	"github.com/hyperjump/medscribe/internal/config"
	"github.com/hyperjump/medscribe/internal/extract"
	"github.com/hyperjump/medscribe/internal/fileid"
	"github.com/hyperjump/medscribe/internal/models"
	"github.com/hyperjump/medscribe/internal/registry"
	"github.com/hyperjump/medscribe/internal/services"
	"github.com/hyperjump/medscribe/pkg/utils"
)

// Transcriber is the speech-to-text adapter.
type Transcriber interface {
	Ready() error
	Transcribe(ctx context.Context, filename string, data []byte) services.Result
}

// OCR is the vision text-extraction adapter.
type OCR interface {
	Ready() error
	Extract(ctx context.Context, filename string, data []byte, prompt string) services.Result
	StructuredFields(ctx context.Context, filename string, data []byte, fields []string) services.Result
}

// Splitter cuts oversized recordings into segments.
type Splitter interface {
	Split(ctx context.Context, filename string, data []byte) ([]audio.Segment, error)
}

// Upload is one file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Outcome reports what happened to one uploaded file or audio segment.
type Outcome struct {
	Filename   string          `json:"filename"`
	ChunkIndex *int            `json:"chunk_index,omitempty"`
	SourceID   int             `json:"source_id,omitempty"`
	Status     services.Status `json:"status"`
	WordCount  int             `json:"word_count,omitempty"`
	Kind       apperr.Kind     `json:"kind,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// DocumentOptions selects how images are read.
type DocumentOptions struct {
	Mode   services.Mode
	Fields []string
}

// Metadata keys attached to sources.
const (
	MetaSizeKB        = "size_kb"
	MetaContentType   = "content_type"
	MetaContentSHA256 = "content_sha256"
	MetaExtraction    = "extraction"
	MetaMode          = "mode"
	MetaChunkIndex    = "chunk_index"
	MetaChunkCount    = "chunk_count"
	MetaSegmentStart  = "segment_start_seconds"
	MetaOriginalFile  = "original_filename"

	extractionVision    = "vision-ocr"
	extractionTextLayer = "text-layer"
)

// Ingestor glues uploads to adapters and a session registry.
type Ingestor struct {
	transcriber Transcriber
	ocr         OCR
	splitter    Splitter
	extractor   *extract.Extractor
	uploads     config.UploadsConfig
	logger      *zap.Logger
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingestor) { in.logger = l }
}

// WithSplitter enables splitting of oversized audio. Without it every recording
// is sent whole.
func WithSplitter(s Splitter) Option {
	return func(in *Ingestor) { in.splitter = s }
}

// New returns an Ingestor. The upload allow-lists decide which adapter handles a file.
func New(tr Transcriber, ocr OCR, extractor *extract.Extractor, uploads config.UploadsConfig, opts ...Option) *Ingestor {
	in := &Ingestor{transcriber: tr, ocr: ocr, extractor: extractor, uploads: uploads}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = utils.OrNop(in.logger)
	if in.extractor == nil {
		in.extractor = extract.NewExtractor()
	}
	return in
}

// Audio transcribes each recording and adds one pending source per transcript.
// Oversized recordings become one source per segment. A missing credential fails
// the whole batch before any file is attempted; every other failure is reported
// in that file's outcome and the batch continues.
func (in *Ingestor) Audio(ctx context.Context, reg *registry.Registry, uploads []Upload) ([]Outcome, error) {
	if len(uploads) == 0 {
		return nil, apperr.Validation("no audio files provided")
	}
	if err := in.transcriber.Ready(); err != nil {
		return nil, err
	}

	var outcomes []Outcome
	for _, up := range uploads {
		if err := in.validate(up, in.uploads.Audio, "audio"); err != nil {
			outcomes = append(outcomes, failure(up.Filename, nil, err))
			continue
		}
		segments := []audio.Segment{{Index: 0, Count: 1, Name: up.Filename, Data: up.Data}}
		if in.splitter != nil {
			var err error
			segments, err = in.splitter.Split(ctx, up.Filename, up.Data)
			if err != nil {
				outcomes = append(outcomes, failure(up.Filename, nil, err))
				continue
			}
		}
		for _, seg := range segments {
			outcomes = append(outcomes, in.transcribeSegment(ctx, reg, up, seg))
		}
	}
	return outcomes, nil
}

func (in *Ingestor) transcribeSegment(ctx context.Context, reg *registry.Registry, up Upload, seg audio.Segment) Outcome {
	var chunk *int
	if seg.Count > 1 {
		idx := seg.Index
		chunk = &idx
	}
	res := in.transcriber.Transcribe(ctx, seg.Name, seg.Data)
	if !res.OK() {
		return failure(seg.Name, chunk, res.Err())
	}

	meta := baseMetadata(up, seg.Data)
	if seg.Count > 1 {
		meta[MetaChunkIndex] = seg.Index
		meta[MetaChunkCount] = seg.Count
		meta[MetaSegmentStart] = int(seg.Start.Seconds())
		meta[MetaOriginalFile] = up.Filename
	}
	return in.add(reg, models.SourceAudio, seg.Name, chunk, res.Text, meta)
}

// Documents reads each file: images through vision OCR, text-layer formats
// locally. Both become ocr sources.
func (in *Ingestor) Documents(ctx context.Context, reg *registry.Registry, uploads []Upload, opts DocumentOptions) ([]Outcome, error) {
	if len(uploads) == 0 {
		return nil, apperr.Validation("no documents provided")
	}
	if opts.Mode == "" {
		opts.Mode = services.ModeFull
	}
	if opts.Mode == services.ModeStructured && len(opts.Fields) == 0 {
		return nil, apperr.Validation("structured mode needs at least one field")
	}
	for _, up := range uploads {
		if config.AllowedExtension(in.uploads.Images, filepath.Ext(up.Filename)) {
			if err := in.ocr.Ready(); err != nil {
				return nil, err
			}
			break
		}
	}

	outcomes := make([]Outcome, 0, len(uploads))
	for _, up := range uploads {
		ext := filepath.Ext(up.Filename)
		switch {
		case config.AllowedExtension(in.uploads.Images, ext):
			outcomes = append(outcomes, in.ocrImage(ctx, reg, up, opts))
		case config.AllowedExtension(in.uploads.Documents, ext):
			outcomes = append(outcomes, in.readTextLayer(reg, up))
		default:
			outcomes = append(outcomes, failure(up.Filename, nil, apperr.Validation("unsupported document type %q", strings.ToLower(ext))))
		}
	}
	return outcomes, nil
}

func (in *Ingestor) ocrImage(ctx context.Context, reg *registry.Registry, up Upload, opts DocumentOptions) Outcome {
	if len(up.Data) == 0 {
		return failure(up.Filename, nil, apperr.Validation("empty file"))
	}
	var res services.Result
	if opts.Mode == services.ModeStructured {
		res = in.ocr.StructuredFields(ctx, up.Filename, up.Data, opts.Fields)
	} else {
		res = in.ocr.Extract(ctx, up.Filename, up.Data, "")
	}
	if !res.OK() {
		return failure(up.Filename, nil, res.Err())
	}
	meta := baseMetadata(up, up.Data)
	meta[MetaExtraction] = extractionVision
	meta[MetaMode] = string(opts.Mode)
	return in.add(reg, models.SourceOCR, up.Filename, nil, res.Text, meta)
}

func (in *Ingestor) readTextLayer(reg *registry.Registry, up Upload) Outcome {
	if len(up.Data) == 0 {
		return failure(up.Filename, nil, apperr.Validation("empty file"))
	}
	text, err := in.extractor.ExtractBytes(up.Data, strings.ToLower(filepath.Ext(up.Filename)))
	if err != nil {
		return failure(up.Filename, nil, err)
	}
	if !extract.HasTextLayer(text) {
		return failure(up.Filename, nil, apperr.New(apperr.KindEmpty, "no text layer found; upload page images for OCR instead", nil))
	}
	meta := baseMetadata(up, up.Data)
	meta[MetaExtraction] = extractionTextLayer
	return in.add(reg, models.SourceOCR, up.Filename, nil, text, meta)
}

// Manual adds a typed note as a pending source.
func (in *Ingestor) Manual(reg *registry.Registry, filename, text string) (Outcome, error) {
	if strings.TrimSpace(text) == "" {
		return Outcome{}, apperr.Validation("note text is empty")
	}
	if strings.TrimSpace(filename) == "" {
		filename = "manual note"
	}
	out := in.add(reg, models.SourceManual, filename, nil, text, map[string]interface{}{})
	return out, nil
}

func (in *Ingestor) validate(up Upload, allowed []string, kind string) error {
	ext := strings.ToLower(filepath.Ext(up.Filename))
	if !config.AllowedExtension(allowed, ext) {
		return apperr.Validation("unsupported %s format %q", kind, ext)
	}
	if len(up.Data) == 0 {
		return apperr.Validation("empty file")
	}
	return nil
}

func (in *Ingestor) add(reg *registry.Registry, typ models.SourceType, filename string, chunk *int, text string, meta map[string]interface{}) Outcome {
	id, ok := reg.Add(typ, filename, text, meta)
	if !ok {
		return failure(filename, chunk, apperr.New(apperr.KindEmpty, "no text extracted", nil))
	}
	src, _ := reg.Get(id)
	in.logger.Info("source added",
		zap.Int("source_id", id),
		zap.String("type", string(typ)),
		zap.String("filename", filename),
		zap.Int("words", src.WordCount))
	return Outcome{
		Filename:   filename,
		ChunkIndex: chunk,
		SourceID:   id,
		Status:     services.StatusSuccess,
		WordCount:  src.WordCount,
	}
}

func baseMetadata(up Upload, data []byte) map[string]interface{} {
	return map[string]interface{}{
		MetaSizeKB:        utils.SizeKB(int64(len(data))),
		MetaContentType:   fileid.ContentType(up.Filename, up.ContentType, data),
		MetaContentSHA256: fileid.Digest(data),
	}
}

func failure(filename string, chunk *int, err error) Outcome {
	return Outcome{
		Filename:   filename,
		ChunkIndex: chunk,
		Status:     services.StatusFailed,
		Kind:       apperr.KindOf(err),
		Error:      err.Error(),
	}
}

// Counts returns how many outcomes succeeded and failed.
func Counts(outcomes []Outcome) (ok, failed int) {
	for _, o := range outcomes {
		if o.Status == services.StatusSuccess {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
