package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Record is one parsed "---<micros>" block: a timestamp and the
// scope->bytes-live snapshot that followed it.
type Record struct {
	Micros  int64
	Extents map[string]uint64
}

// ReadAll parses every complete record in path, transparently
// decompressing if path ends in ".gz". It is used by `memscopectl
// scopes` and by `memscopectl watch`, which calls it again on every
// refresh.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: cannot open %q: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("trace: cannot decompress %q: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}
	return parseRecords(r)
}

// parseRecords scans lines of the form written by Writer.WriteRecord: a
// "---<micros>" delimiter starting each record, followed by
// "<scope>|<bytes>" lines until the next delimiter or end of input. The
// final record is included even if the file ends without another
// delimiter after it.
func parseRecords(r io.Reader) ([]Record, error) {
	var records []Record
	var cur *Record

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "---") {
			if cur != nil {
				records = append(records, *cur)
			}
			micros, err := strconv.ParseInt(line[3:], 10, 64)
			if err != nil {
				cur = nil
				continue
			}
			cur = &Record{Micros: micros, Extents: make(map[string]uint64)}
			continue
		}
		if cur == nil {
			continue
		}
		scope, bytesStr, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(bytesStr, 10, 64)
		if err != nil {
			continue
		}
		cur.Extents[scope] = n
	}
	if err := scanner.Err(); err != nil {
		return records, err
	}
	if cur != nil {
		records = append(records, *cur)
	}
	return records, nil
}
