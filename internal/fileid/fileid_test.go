package fileid

import (
	"strings"
	"testing"
)

func TestDigest(t *testing.T) {
	if Digest([]byte("scan bytes")) != Digest([]byte("scan bytes")) {
		t.Error("same content should give the same digest")
	}
	if Digest([]byte("other bytes")) == Digest([]byte("scan bytes")) {
		t.Error("different content should give different digests")
	}
}

func TestDigest_knownValue(t *testing.T) {
	// sha256("")
	if got := Digest(nil); got != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Errorf("Digest(nil) = %s", got)
	}
}

func TestContentType(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		declared string
		data     []byte
		want     string
	}{
		{"declared wins", "a.bin", "audio/mpeg", nil, "audio/mpeg"},
		{"octet-stream ignored", "scan.png", "application/octet-stream", nil, "image/png"},
		{"extension", "notes.txt", "", nil, "text/plain"},
		{"sniffed", "noext", "", []byte("%PDF-1.7\n"), "application/pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContentType(tt.filename, tt.declared, tt.data); !strings.HasPrefix(got, tt.want) {
				t.Errorf("ContentType = %q, want %q", got, tt.want)
			}
		})
	}
}
