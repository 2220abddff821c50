package join

import (
	"fmt"

	"tpchjoin/blockio"
	"tpchjoin/bufferpool"
	"tpchjoin/errs"
	"tpchjoin/logging"
	"tpchjoin/pagecodec"
	"tpchjoin/schema"
	"tpchjoin/stats"
	"tpchjoin/types"
)

// TwoTableInput names one side of a two-table join: the path to its
// paged .dat file, its table tag, and the join key field name.
type TwoTableInput struct {
	Path string
	Tag  string
	Key  string
}

// BNLJParams is the C6 executor's configuration: buffer size M (pages)
// and block size B (bytes per page), per §4.6's pre-condition M ≥ 2.
type BNLJParams struct {
	BufferSize int
	BlockSize  int
}

// keyFunc extracts an integer join key from a record, returning an
// error on failure that bnljCore logs before skipping the record. BNLJ's tag-based entry point and C11's multi-table
// driver (which must key off a field offset within an already-merged
// intermediate record, not a single schema tag) both reduce to this.
type keyFunc func(types.Record) (int, error)

// BNLJ runs the block-nested-loops equi-join of outer against inner,
// writing merged records (outer fields ‖ inner fields) to outputPath.
// It allocates a buffer pool of BufferSize pages, reserving the last
// as the inner-scan page and the rest as the outer block window, per
// §4.6.
func BNLJ(log *logging.Logger, outer, inner TwoTableInput, outputPath string, params BNLJParams, st *stats.Statistics) error {
	if log == nil {
		log = logging.Nop()
	}
	outerKey := func(r types.Record) (int, error) { return schema.ExtractIntKey(r, outer.Tag, outer.Key) }
	innerKey := func(r types.Record) (int, error) { return schema.ExtractIntKey(r, inner.Tag, inner.Key) }
	return timeIt(st, func() error {
		return bnljCore(log, outer.Path, outerKey, inner.Path, innerKey, outputPath, params, st)
	})
}

// timeIt runs fn inside st.Time when st is non-nil, and bare otherwise
// — every executor's top-level entry point uses this to satisfy
// §4.10's "elapsed_seconds set by each executor around its top-level
// call" without a nil-receiver panic on the stats-optional call sites
// tests use.
func timeIt(st *stats.Statistics, fn func() error) error {
	if st == nil {
		return fn()
	}
	return st.Time(fn)
}

// bnljCore is BNLJ's engine, generalized over how each side's join key
// is extracted so the multi-table driver can key an accumulated
// intermediate record by raw field offset instead of by schema tag.
func bnljCore(log *logging.Logger, outerPath string, outerKey keyFunc, innerPath string, innerKey keyFunc, outputPath string, params BNLJParams, st *stats.Statistics) error {
	if params.BufferSize < 2 {
		return fmt.Errorf("BNLJ buffer size %d: %w", params.BufferSize, errs.ErrOutOfRange)
	}

	outerReader, err := blockio.NewTableReader(outerPath, params.BlockSize, st)
	if err != nil {
		return err
	}
	defer outerReader.Close()

	innerReader, err := blockio.NewTableReader(innerPath, params.BlockSize, st)
	if err != nil {
		return err
	}
	defer innerReader.Close()

	writer, err := blockio.NewTableWriter(outputPath, st)
	if err != nil {
		return err
	}
	defer writer.Close()

	pool := bufferpool.New(params.BufferSize, params.BlockSize)
	out := newOutputBuffer(writer, params.BlockSize, st)
	outerWindow := params.BufferSize - 1
	innerSlot, err := pool.Get(outerWindow)
	if err != nil {
		return err
	}

	for {
		outerRecords, loaded, err := loadOuterWindow(outerReader, pool, outerWindow)
		if err != nil {
			return err
		}
		if loaded == 0 {
			break
		}

		if err := innerReader.Reset(); err != nil {
			return err
		}

		for {
			innerPage, ok, err := innerReader.ReadBlock()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			copy(innerSlot.Data, innerPage.Data)
			innerRecords, err := pagecodec.All(innerSlot)
			if err != nil {
				return err
			}

			for _, o := range outerRecords {
				ko, err := outerKey(o)
				if err != nil {
					log.Warnw("skipping outer record: key extraction failed", "error", err)
					continue
				}
				for _, in := range innerRecords {
					ki, err := innerKey(in)
					if err != nil {
						log.Warnw("skipping inner record: key extraction failed", "error", err)
						continue
					}
					if ko != ki {
						continue
					}
					if err := out.emit(types.Merge(o, in)); err != nil {
						return err
					}
				}
			}
		}
	}

	if err := out.flush(); err != nil {
		return err
	}
	if st != nil {
		st.MemoryUsageBytes = int64(params.BufferSize) * int64(params.BlockSize)
	}
	return nil
}

// loadOuterWindow fills up to windowSize pool slots from r, decoding
// every page it reads into a flat record vector, and returns how many
// pages it actually loaded (0 at EOF).
func loadOuterWindow(r *blockio.TableReader, pool *bufferpool.Pool, windowSize int) ([]types.Record, int, error) {
	var records []types.Record
	loaded := 0
	for i := 0; i < windowSize; i++ {
		slot, err := pool.Get(i)
		if err != nil {
			return nil, 0, err
		}
		page, ok, err := r.ReadBlock()
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			break
		}
		copy(slot.Data, page.Data)
		recs, err := pagecodec.All(slot)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, recs...)
		loaded++
	}
	return records, loaded, nil
}
