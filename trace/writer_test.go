package trace

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestWriterPlainRecordFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.txt")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteRecord(1500, map[string]uint64{"main": 40}); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), data)
	}
	if lines[0] != "---1500" {
		t.Errorf("delimiter line = %q, want %q", lines[0], "---1500")
	}
	if lines[1] != "main|40" {
		t.Errorf("scope line = %q, want %q", lines[1], "main|40")
	}
}

func TestWriterGzipRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.gz")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.WriteRecord(0, map[string]uint64{"A": 100}); err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gz.Close()

	scan := bufio.NewScanner(gz)
	var lines []string
	for scan.Scan() {
		lines = append(lines, scan.Text())
	}
	if len(lines) != 2 || lines[0] != "---0" || lines[1] != "A|100" {
		t.Errorf("decompressed lines = %v, want [---0 A|100]", lines)
	}
}

func TestWriterMultipleRecordsAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.txt")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	_ = w.WriteRecord(0, map[string]uint64{"A": 1})
	_ = w.WriteRecord(100, map[string]uint64{"A": 2})
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Count(string(data), "---") != 2 {
		t.Errorf("expected 2 record delimiters, got content: %q", data)
	}
}

func TestNewWriterRejectsUnopenablePath(t *testing.T) {
	_, err := NewWriter(filepath.Join(t.TempDir(), "nosuchdir", "trace.txt"))
	if err == nil {
		t.Error("NewWriter into a nonexistent directory succeeded, want error")
	}
}
