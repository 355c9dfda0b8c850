package storage

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDiskUsageBytes(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "reports.db")
	if err := os.WriteFile(db, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	index := filepath.Join(dir, "reports.bleve", "store")
	if err := os.MkdirAll(index, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(index, "a"), []byte("ab"), 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		paths []string
		want  int64
	}{
		{"file", []string{db}, 5},
		{"directory", []string{filepath.Join(dir, "reports.bleve")}, 2},
		{"both", []string{db, filepath.Join(dir, "reports.bleve")}, 7},
		{"missing and empty", []string{filepath.Join(dir, "nope"), ""}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiskUsageBytes(tt.paths...)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("DiskUsageBytes = %d, want %d", got, tt.want)
			}
		})
	}
}
