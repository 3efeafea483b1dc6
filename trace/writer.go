// Package trace implements the append-only, optionally gzip-compressed
// output stream the sampler writes timeline records to, and the small
// diagnostic logger built on the same abstraction.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Writer is a write-only stream that transparently gzips its output
// when constructed with a path ending in ".gz". It owns the underlying
// file handle and releases it on Close.
type Writer struct {
	file    *os.File
	gz      *gzip.Writer
	buf     *bufio.Writer
	out     io.Writer
	closers []io.Closer
}

// NewWriter opens path for writing (truncating any existing file) and
// returns a Writer. If path ends in ".gz" the stream is wrapped in a
// streaming gzip compressor.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("trace: cannot open output file %q: %w", path, err)
	}

	w := &Writer{file: f}
	var out io.Writer = f
	w.closers = append(w.closers, f)

	if strings.HasSuffix(path, ".gz") {
		gz := gzip.NewWriter(f)
		w.gz = gz
		out = gz
		w.closers = append([]io.Closer{gz}, w.closers...)
	}

	buf := bufio.NewWriter(out)
	w.buf = buf
	w.out = buf
	return w, nil
}

// Write implements io.Writer, passing bytes through the (optional)
// gzip layer and the buffered writer beneath it.
func (w *Writer) Write(p []byte) (int, error) {
	return w.out.Write(p)
}

// WriteRecord appends one trace record: a "---<micros>\n" delimiter
// followed by one "<scope>|<bytes>\n" line per entry in extents, in
// unspecified order.
func (w *Writer) WriteRecord(micros int64, extents map[string]uint64) error {
	if _, err := fmt.Fprintf(w, "---%d\n", micros); err != nil {
		return err
	}
	for scope, bytes := range extents {
		if _, err := fmt.Fprintf(w, "%s|%d\n", scope, bytes); err != nil {
			return err
		}
	}
	return nil
}

// Flush pushes buffered bytes through any gzip layer and to the
// underlying file without closing it.
func (w *Writer) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.gz != nil {
		return w.gz.Flush()
	}
	return nil
}

// Close flushes and releases the writer's resources, outermost first:
// the gzip layer (if any), then the file.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	for _, c := range w.closers {
		if err := c.Close(); err != nil {
			return err
		}
	}
	return nil
}
