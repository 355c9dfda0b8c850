package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/hyperjump/medscribe/internal/apperr"
)

// makeWAV builds a mono 8-bit WAV at the given sample rate. Low rates keep long
// recordings small in tests.
func makeWAV(t *testing.T, format uint16, sampleRate int, d time.Duration) []byte {
	t.Helper()
	n := int(int64(sampleRate) * int64(d) / int64(time.Second))
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], format)
	binary.LittleEndian.PutUint16(fmtChunk[2:], 1)
	binary.LittleEndian.PutUint32(fmtChunk[4:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(fmtChunk[8:], uint32(sampleRate))
	binary.LittleEndian.PutUint16(fmtChunk[12:], 1)
	binary.LittleEndian.PutUint16(fmtChunk[14:], 8)
	return encodeWAV(fmtChunk, data)
}

func TestSplit_underThreshold(t *testing.T) {
	s := NewSplitter(1<<20, 10*time.Minute)
	data := makeWAV(t, wavFormatPCM, 100, time.Minute)
	segs, err := s.Split(context.Background(), "short.wav", data)
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 1 || segs[0].Count != 1 || segs[0].Name != "short.wav" || !bytes.Equal(segs[0].Data, data) {
		t.Errorf("segments = %+v", segs)
	}
}

func TestSplit_twentyFiveMinuteWAV(t *testing.T) {
	data := makeWAV(t, wavFormatPCM, 100, 25*time.Minute)
	s := NewSplitter(100_000, 10*time.Minute, WithFFmpeg(""))
	if !s.NeedsSplit(len(data)) {
		t.Fatalf("%d bytes should exceed the threshold", len(data))
	}
	segs, err := s.Split(context.Background(), "consult.wav", data)
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 3 {
		t.Fatalf("segments = %d, want 3", len(segs))
	}
	wantDur := []time.Duration{10 * time.Minute, 10 * time.Minute, 5 * time.Minute}
	wantNames := []string{"consult_part1.wav", "consult_part2.wav", "consult_part3.wav"}
	var joined []byte
	for i, seg := range segs {
		if seg.Index != i || seg.Count != 3 || seg.Name != wantNames[i] {
			t.Errorf("segment %d = index %d count %d name %s", i, seg.Index, seg.Count, seg.Name)
		}
		if seg.Start != time.Duration(i)*10*time.Minute {
			t.Errorf("segment %d start = %v", i, seg.Start)
		}
		d, err := Duration(seg.Data)
		if err != nil {
			t.Fatalf("segment %d is not a valid wav: %v", i, err)
		}
		if d != wantDur[i] {
			t.Errorf("segment %d duration = %v, want %v", i, d, wantDur[i])
		}
		info, _ := parseWAV(seg.Data)
		joined = append(joined, info.data...)
	}
	orig, _ := parseWAV(data)
	if !bytes.Equal(joined, orig.data) {
		t.Error("segments must cover the original samples exactly once")
	}
}

func TestSplit_frameAlignment(t *testing.T) {
	fmtChunk := make([]byte, 16)
	binary.LittleEndian.PutUint16(fmtChunk[0:], wavFormatPCM)
	binary.LittleEndian.PutUint16(fmtChunk[2:], 2)
	binary.LittleEndian.PutUint32(fmtChunk[4:], 3)
	binary.LittleEndian.PutUint32(fmtChunk[8:], 12)
	binary.LittleEndian.PutUint16(fmtChunk[12:], 8)
	binary.LittleEndian.PutUint16(fmtChunk[14:], 16)
	data := encodeWAV(fmtChunk, make([]byte, 400))

	// 12 bytes/s for 7s is 84 bytes, rounded down to 80 for 8-byte frames
	parts, err := splitWAV(data, 7*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range parts {
		info, err := parseWAV(p)
		if err != nil {
			t.Fatal(err)
		}
		if len(info.data)%8 != 0 {
			t.Errorf("part %d has %d bytes, not frame aligned", i, len(info.data))
		}
	}
	if len(parts) != 5 {
		t.Errorf("parts = %d, want 5", len(parts))
	}
}

func TestSplit_withoutFFmpeg(t *testing.T) {
	s := NewSplitter(10, time.Minute, WithFFmpeg(""))
	if s.FFmpegAvailable() {
		t.Fatal("ffmpeg should be disabled")
	}
	_, err := s.Split(context.Background(), "long.mp3", make([]byte, 100))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("oversized mp3 without ffmpeg: %v", err)
	}

	adpcm := makeWAV(t, 2, 100, time.Minute)
	if _, err := s.Split(context.Background(), "adpcm.wav", adpcm); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("compressed wav without ffmpeg: %v", err)
	}
}

func TestParseWAV_errors(t *testing.T) {
	tests := map[string][]byte{
		"not riff":  []byte("ID3\x03\x00\x00\x00\x00\x00\x00\x00\x00"),
		"no chunks": []byte("RIFF\x04\x00\x00\x00WAVE"),
		"short fmt": append([]byte("RIFF\x10\x00\x00\x00WAVEfmt \x04\x00\x00\x00"), 1, 0, 1, 0),
		"truncated": []byte("RIFF\x10\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00"),
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := parseWAV(b); !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("parseWAV = %v, want validation error", err)
			}
		})
	}
}

func TestParseWAV_streamedDataSize(t *testing.T) {
	data := makeWAV(t, wavFormatPCM, 100, 10*time.Second)
	// zero the data chunk size as streaming recorders do
	binary.LittleEndian.PutUint32(data[40:44], 0)
	d, err := Duration(data)
	if err != nil {
		t.Fatal(err)
	}
	if d != 10*time.Second {
		t.Errorf("duration = %v", d)
	}
}
