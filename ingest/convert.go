// Package ingest implements C5: turning a pipe-delimited TBL-style
// text file into a paged .dat table file. It is grounded in the
// original implementation's convertTBLToBlocks
// (original_source/include/table.h), generalized from eight per-table
// conversion functions into one driven by the schema registry.
package ingest

import (
	"bufio"
	"fmt"
	"os"

	"tpchjoin/blockio"
	"tpchjoin/errs"
	"tpchjoin/logging"
	"tpchjoin/pagecodec"
	"tpchjoin/schema"
	"tpchjoin/stats"
)

// Convert reads inputText line by line, parses each non-empty line as
// a tag-shaped record, and packs the records into pages written to
// outputDat. A line that fails to parse is logged and skipped, per
// §4.5. A record that still does not fit a freshly flushed page is
// errs.ErrRecordTooLarge (fatal).
func Convert(log *logging.Logger, inputText, outputDat, tag string, pageSize int, st *stats.Statistics) error {
	if log == nil {
		log = logging.Nop()
	}
	if _, ok := schema.Fields(tag); !ok {
		return fmt.Errorf("unknown table tag %q: %w", tag, errs.ErrSchemaMismatch)
	}

	in, err := os.Open(inputText)
	if err != nil {
		return fmt.Errorf("open %s: %w", inputText, errs.ErrIO)
	}
	defer in.Close()

	writer, err := blockio.NewTableWriter(outputDat, st)
	if err != nil {
		return err
	}
	defer writer.Close()

	page := pagecodec.NewPage(pageSize)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}

		rec, err := schema.ParseLine(tag, line)
		if err != nil {
			log.Warnw("skipping unparseable line", "line", lineNo, "error", err)
			continue
		}

		if pagecodec.Append(page, rec) {
			continue
		}

		if _, err := writer.WriteBlock(page); err != nil {
			return err
		}
		pagecodec.Clear(page)

		if !pagecodec.Append(page, rec) {
			return fmt.Errorf("line %d for tag %q: %w", lineNo, tag, errs.ErrRecordTooLarge)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", inputText, errs.ErrIO)
	}

	if !pagecodec.IsEmpty(page) {
		if _, err := writer.WriteBlock(page); err != nil {
			return err
		}
	}
	return nil
}
