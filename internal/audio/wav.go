package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"

	"github.com/hyperjump/medscribe/internal/apperr"
)

var errNotPCM = errors.New("wav is not linear pcm")

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

type wavInfo struct {
	fmtChunk   []byte
	byteRate   int
	blockAlign int
	data       []byte
}

func parseWAV(b []byte) (*wavInfo, error) {
	if len(b) < 12 || string(b[0:4]) != "RIFF" || string(b[8:12]) != "WAVE" {
		return nil, apperr.Validation("not a RIFF/WAVE file")
	}
	info := &wavInfo{}
	off := 12
	for off+8 <= len(b) {
		id := string(b[off : off+4])
		size := int(binary.LittleEndian.Uint32(b[off+4 : off+8]))
		body := off + 8
		end := body + size
		if id == "data" && (size == 0 || end > len(b)) {
			// streamed recordings leave the size unset or wrong
			end = len(b)
		}
		if end > len(b) {
			return nil, apperr.Validation("truncated %q chunk", id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, apperr.Validation("short fmt chunk")
			}
			info.fmtChunk = b[body:end]
			format := binary.LittleEndian.Uint16(info.fmtChunk[0:2])
			if format != wavFormatPCM && format != wavFormatFloat && format != wavFormatExtensible {
				return nil, errNotPCM
			}
			info.byteRate = int(binary.LittleEndian.Uint32(info.fmtChunk[8:12]))
			info.blockAlign = int(binary.LittleEndian.Uint16(info.fmtChunk[12:14]))
		case "data":
			info.data = b[body:end]
		}
		off = end + (end-body)%2
	}
	if info.fmtChunk == nil || info.data == nil {
		return nil, apperr.Validation("wav missing fmt or data chunk")
	}
	if info.byteRate <= 0 || info.blockAlign <= 0 {
		return nil, apperr.Validation("wav has invalid byte rate")
	}
	return info, nil
}

// Duration returns the play length of a PCM WAV file.
func Duration(b []byte) (time.Duration, error) {
	info, err := parseWAV(b)
	if err != nil {
		return 0, err
	}
	return time.Duration(len(info.data)) * time.Second / time.Duration(info.byteRate), nil
}

// splitWAV cuts the data chunk on frame boundaries and wraps each piece in its own
// WAV header.
func splitWAV(b []byte, segment time.Duration) ([][]byte, error) {
	info, err := parseWAV(b)
	if err != nil {
		return nil, err
	}
	per := int(int64(info.byteRate) * int64(segment) / int64(time.Second))
	per -= per % info.blockAlign
	if per <= 0 {
		return nil, apperr.Validation("segment shorter than one audio frame")
	}
	var parts [][]byte
	for start := 0; start < len(info.data); start += per {
		end := min(start+per, len(info.data))
		parts = append(parts, encodeWAV(info.fmtChunk, info.data[start:end]))
	}
	return parts, nil
}

func encodeWAV(fmtChunk, data []byte) []byte {
	pad := len(data) % 2
	var buf bytes.Buffer
	buf.Grow(12 + 8 + len(fmtChunk) + 8 + len(data) + pad)
	riffSize := 4 + 8 + len(fmtChunk) + 8 + len(data) + pad
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(riffSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(fmtChunk)))
	buf.Write(fmtChunk)
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
	if pad == 1 {
		buf.WriteByte(0)
	}
	return buf.Bytes()
}
