// Package audio splits recordings that exceed the transcription upload limit into
// fixed-duration segments.
package audio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/pkg/utils"
)

// Segment is one piece of a recording.
type Segment struct {
	Index int
	Count int
	Start time.Duration
	Name  string
	Data  []byte
}

// Splitter decides whether a recording needs splitting and performs the split.
type Splitter struct {
	threshold int64
	segment   time.Duration
	ffmpeg    string
	logger    *zap.Logger
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithFFmpeg sets the ffmpeg binary used for non-WAV containers. An empty path
// disables ffmpeg.
func WithFFmpeg(path string) Option {
	return func(s *Splitter) { s.ffmpeg = path }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Splitter) { s.logger = l }
}

// NewSplitter returns a splitter for files larger than threshold bytes, cutting
// them into segments of the given duration.
func NewSplitter(threshold int64, segment time.Duration, opts ...Option) *Splitter {
	s := &Splitter{threshold: threshold, segment: segment, ffmpeg: "ffmpeg"}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// NeedsSplit reports whether a file of size bytes exceeds the threshold.
func (s *Splitter) NeedsSplit(size int) bool {
	return s.threshold > 0 && int64(size) > s.threshold
}

// Split returns the segments of a recording. Files under the threshold come back
// as a single segment with Count 1.
func (s *Splitter) Split(ctx context.Context, filename string, data []byte) ([]Segment, error) {
	if !s.NeedsSplit(len(data)) {
		return []Segment{{Index: 0, Count: 1, Name: filename, Data: data}}, nil
	}
	if s.segment <= 0 {
		return nil, apperr.Config("audio segment duration must be positive")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	var (
		parts [][]byte
		err   error
	)
	if ext == ".wav" {
		parts, err = splitWAV(data, s.segment)
		if errors.Is(err, errNotPCM) {
			parts, err = s.splitFFmpeg(ctx, ext, data)
		}
	} else {
		parts, err = s.splitFFmpeg(ctx, ext, data)
	}
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	segments := make([]Segment, len(parts))
	for i, p := range parts {
		segments[i] = Segment{
			Index: i,
			Count: len(parts),
			Start: time.Duration(i) * s.segment,
			Name:  fmt.Sprintf("%s_part%d%s", base, i+1, ext),
			Data:  p,
		}
	}
	s.logger.Info("split audio",
		zap.String("filename", filename),
		zap.Int("size_bytes", len(data)),
		zap.Int("segments", len(segments)))
	return segments, nil
}
