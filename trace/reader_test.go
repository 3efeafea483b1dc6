package trace

import (
	"path/filepath"
	"testing"
)

func writeRecords(t *testing.T, path string, records []Record) {
	t.Helper()
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	for _, r := range records {
		if err := w.WriteRecord(r.Micros, r.Extents); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestReadAllPlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.txt")
	want := []Record{
		{Micros: 0, Extents: map[string]uint64{"A": 10}},
		{Micros: 105000, Extents: map[string]uint64{"A": 10, "B": 5}},
	}
	writeRecords(t, path, want)

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("got %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Micros != want[i].Micros {
			t.Errorf("record %d: Micros = %d, want %d", i, got[i].Micros, want[i].Micros)
		}
		for scope, bytes := range want[i].Extents {
			if got[i].Extents[scope] != bytes {
				t.Errorf("record %d: Extents[%q] = %d, want %d", i, scope, got[i].Extents[scope], bytes)
			}
		}
	}
}

func TestReadAllGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.gz")
	writeRecords(t, path, []Record{{Micros: 42, Extents: map[string]uint64{"only": 99}}})

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 1 || got[0].Extents["only"] != 99 {
		t.Errorf("ReadAll(gzip) = %+v, want one record with only=99", got)
	}
}

func TestReadAllEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	writeRecords(t, path, nil)

	got, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadAll(empty) = %+v, want no records", got)
	}
}

func TestReadAllMissingFile(t *testing.T) {
	if _, err := ReadAll(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("ReadAll(missing file) = nil error, want error")
	}
}
