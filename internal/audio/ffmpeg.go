package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
)

// FFmpegAvailable reports whether the configured ffmpeg binary can be found.
func (s *Splitter) FFmpegAvailable() bool {
	_, ok := s.ffmpegPath()
	return ok
}

func (s *Splitter) ffmpegPath() (string, bool) {
	if strings.TrimSpace(s.ffmpeg) == "" {
		return "", false
	}
	p, err := exec.LookPath(s.ffmpeg)
	if err != nil {
		return "", false
	}
	return p, true
}

// splitFFmpeg stream-copies the input into fixed-length segments with ffmpeg's
// segment muxer.
func (s *Splitter) splitFFmpeg(ctx context.Context, ext string, data []byte) ([][]byte, error) {
	bin, ok := s.ffmpegPath()
	if !ok {
		return nil, apperr.Validation("audio exceeds %.0f MB and ffmpeg is not available to split it",
			float64(s.threshold)/(1024*1024))
	}

	dir, err := os.MkdirTemp("", "medscribe-audio-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input"+ext)
	if err := os.WriteFile(in, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write audio: %w", err)
	}
	pattern := filepath.Join(dir, "part%03d"+ext)
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", in,
		"-f", "segment",
		"-segment_time", strconv.Itoa(int(s.segment.Seconds())),
		"-reset_timestamps", "1",
		"-c", "copy",
		pattern,
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		s.logger.Warn("ffmpeg failed", zap.Error(err), zap.String("stderr", strings.TrimSpace(stderr.String())))
		return nil, apperr.New(apperr.KindEncoding, "ffmpeg could not split audio", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, "part*"+ext))
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}
	sort.Strings(matches)
	parts := make([][]byte, 0, len(matches))
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("failed to read segment: %w", err)
		}
		parts = append(parts, b)
	}
	if len(parts) == 0 {
		return nil, apperr.New(apperr.KindEncoding, "ffmpeg produced no segments", nil)
	}
	return parts, nil
}
