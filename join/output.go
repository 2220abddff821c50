// Package join implements the three two-table equi-join executors
// (C6 BNLJ, C7 Hash, C9 Sort-Merge) and the C11 multi-table left-deep
// driver built on top of them. The package shares one emit helper
// across all three, since spec.md §4.6/§4.7/§4.9 give them identical
// flush-and-retry output discipline.
package join

import (
	"fmt"

	"tpchjoin/blockio"
	"tpchjoin/errs"
	"tpchjoin/pagecodec"
	"tpchjoin/stats"
	"tpchjoin/types"
)

// outputBuffer wraps one working output page and the writer it
// eventually flushes to, implementing the "append; on rejection flush
// and retry once; second rejection is fatal" protocol every executor
// shares.
type outputBuffer struct {
	page   *pagecodec.Page
	writer *blockio.TableWriter
	stats  *stats.Statistics
}

func newOutputBuffer(writer *blockio.TableWriter, pageSize int, st *stats.Statistics) *outputBuffer {
	return &outputBuffer{page: pagecodec.NewPage(pageSize), writer: writer, stats: st}
}

// emit appends rec to the working page, flushing and retrying once on
// rejection. A second rejection is errs.ErrRecordTooLarge.
func (o *outputBuffer) emit(rec types.Record) error {
	if pagecodec.Append(o.page, rec) {
		if o.stats != nil {
			o.stats.AddOutputRecords(1)
		}
		return nil
	}

	if _, err := o.writer.WriteBlock(o.page); err != nil {
		return err
	}
	pagecodec.Clear(o.page)

	if !pagecodec.Append(o.page, rec) {
		return fmt.Errorf("merged record: %w", errs.ErrRecordTooLarge)
	}
	if o.stats != nil {
		o.stats.AddOutputRecords(1)
	}
	return nil
}

// flush writes the working page if it holds any live records.
func (o *outputBuffer) flush() error {
	if pagecodec.IsEmpty(o.page) {
		return nil
	}
	_, err := o.writer.WriteBlock(o.page)
	return err
}
