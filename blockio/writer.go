package blockio

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"tpchjoin/errs"
	"tpchjoin/pagecodec"
	"tpchjoin/stats"
)

// TableWriter streams pages sequentially into a table file, opened in
// truncating mode at construction per §4.3.
type TableWriter struct {
	file   *os.File
	stats  *stats.Statistics
	locked bool
}

// NewTableWriter creates (or truncates) path for sequential writing
// and takes a best-effort exclusive advisory lock on it.
func NewTableWriter(path string, st *stats.Statistics) (*TableWriter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, errs.ErrIO)
	}

	locked := true
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		locked = false
	}

	return &TableWriter{file: f, stats: st, locked: locked}, nil
}

// WriteBlock writes page's compacted, live bytes (header plus the live
// heap and slot directory, with the in-memory gap squeezed out) to the
// file — not the full physical page, per §4.3. An empty page is
// silently refused and reports ok=false with no error.
func (w *TableWriter) WriteBlock(page *pagecodec.Page) (bool, error) {
	if pagecodec.IsEmpty(page) {
		return false, nil
	}

	wire := pagecodec.CompactForWrite(page)
	if _, err := w.file.Write(wire); err != nil {
		return false, fmt.Errorf("write block: %w", errs.ErrIO)
	}

	if w.stats != nil {
		w.stats.AddBlockWrite()
	}
	return true, nil
}

// Close releases the exclusive lock (if held) and closes the
// underlying file descriptor.
func (w *TableWriter) Close() error {
	if w.locked {
		unix.Flock(int(w.file.Fd()), unix.LOCK_UN)
	}
	return w.file.Close()
}
