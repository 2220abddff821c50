package join

import (
	"fmt"
	"os"

	"tpchjoin/blockio"
	"tpchjoin/extsort"
	"tpchjoin/logging"
	"tpchjoin/pagecodec"
	"tpchjoin/schema"
	"tpchjoin/stats"
	"tpchjoin/types"
)

// SortMergeParams configures the C9 executor: BufferSize is the
// external sorter's memory M (pages per run); BlockSize is the
// per-page byte size shared by both sort passes and the merge step.
type SortMergeParams struct {
	BufferSize int
	BlockSize  int
}

// SortMerge sorts outer and inner by their respective join keys via
// C8 into "<output>.sorted_outer"/"<output>.sorted_inner", then runs a
// merge join over the two sorted streams, fanning out every matching
// key's inner records against every matching outer record — grounded
// in the teacher's merge-join duplicate-key handling
// (storage_engine/joins.go's leftStart/rightStart ranges), adapted
// from in-memory row slices to the paged-file streaming model. Both
// sorted temp files are deleted on success, left in place on fatal
// error, per §6.
func SortMerge(log *logging.Logger, outer, inner TwoTableInput, outputPath string, params SortMergeParams, st *stats.Statistics) error {
	if log == nil {
		log = logging.Nop()
	}
	return timeIt(st, func() error {
		return sortMergeCore(log, outer, inner, outputPath, params, st)
	})
}

// sortMergeCore is SortMerge's engine, factored out so SortMerge can
// wrap both sort passes and the merge step in a single st.Time call.
func sortMergeCore(log *logging.Logger, outer, inner TwoTableInput, outputPath string, params SortMergeParams, st *stats.Statistics) error {
	sortedOuter := outputPath + ".sorted_outer"
	sortedInner := outputPath + ".sorted_inner"

	sortParams := extsort.Params{BufferSize: params.BufferSize, BlockSize: params.BlockSize}
	if err := extsort.Sort(outer.Path, sortedOuter, outer.Tag, outer.Key, sortParams, st); err != nil {
		return err
	}
	if err := extsort.Sort(inner.Path, sortedInner, inner.Tag, inner.Key, sortParams, st); err != nil {
		return err
	}

	if err := mergeJoinStep(log, sortedOuter, sortedInner, outer, inner, outputPath, params, st); err != nil {
		return err
	}

	os.Remove(sortedOuter)
	os.Remove(sortedInner)
	return nil
}

// mergeJoinStep streams the two sorted files with one decoded record
// buffered per side. When keys tie, it materializes every inner
// record sharing that key, then re-walks the matching outer run
// against that materialized set before advancing past it — the
// fan-out §4.9 describes.
func mergeJoinStep(log *logging.Logger, sortedOuterPath, sortedInnerPath string, outer, inner TwoTableInput, outputPath string, params SortMergeParams, st *stats.Statistics) error {
	outerReader, err := blockio.NewTableReader(sortedOuterPath, params.BlockSize, st)
	if err != nil {
		return err
	}
	defer outerReader.Close()

	innerReader, err := blockio.NewTableReader(sortedInnerPath, params.BlockSize, st)
	if err != nil {
		return err
	}
	defer innerReader.Close()

	writer, err := blockio.NewTableWriter(outputPath, st)
	if err != nil {
		return err
	}
	defer writer.Close()

	out := newOutputBuffer(writer, params.BlockSize, st)

	outerCur := newMergeCursor(outerReader, outer.Tag, outer.Key)
	innerCur := newMergeCursor(innerReader, inner.Tag, inner.Key)

	if err := outerCur.fill(); err != nil {
		return err
	}
	if err := innerCur.fill(); err != nil {
		return err
	}

	for outerCur.hasRecord() && innerCur.hasRecord() {
		ko, err := outerCur.key(log)
		if err != nil {
			if err := outerCur.advance(); err != nil {
				return err
			}
			continue
		}
		ki, err := innerCur.key(log)
		if err != nil {
			if err := innerCur.advance(); err != nil {
				return err
			}
			continue
		}

		switch {
		case ko < ki:
			if err := outerCur.advance(); err != nil {
				return err
			}
		case ko > ki:
			if err := innerCur.advance(); err != nil {
				return err
			}
		default:
			innerGroup, err := innerCur.collectGroup(ki, log)
			if err != nil {
				return err
			}
			for outerCur.hasRecord() {
				k, err := outerCur.key(log)
				if err != nil || k != ko {
					break
				}
				for _, m := range innerGroup {
					if err := out.emit(types.Merge(outerCur.record(), m)); err != nil {
						return err
					}
				}
				if err := outerCur.advance(); err != nil {
					return err
				}
			}
		}
	}

	return out.flush()
}

// mergeCursor is the sort-merge join's read side: one buffered decoded
// record per page, advancing page by page exactly like extsort's
// runCursor, but kept local to join since this package already
// depends on extsort and a second copy avoids exporting extsort's
// internals.
type mergeCursor struct {
	reader  *blockio.TableReader
	tag     string
	keyName string

	current []types.Record
	pos     int
	done    bool
}

func newMergeCursor(reader *blockio.TableReader, tag, keyName string) *mergeCursor {
	return &mergeCursor{reader: reader, tag: tag, keyName: keyName}
}

func (c *mergeCursor) fill() error {
	for {
		page, ok, err := c.reader.ReadBlock()
		if err != nil {
			return err
		}
		if !ok {
			c.done = true
			return nil
		}
		recs, err := pagecodec.All(page)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			continue
		}
		c.current = recs
		c.pos = 0
		return nil
	}
}

func (c *mergeCursor) hasRecord() bool {
	return !c.done
}

func (c *mergeCursor) record() types.Record {
	return c.current[c.pos]
}

func (c *mergeCursor) key(log *logging.Logger) (int, error) {
	k, err := schema.ExtractIntKey(c.current[c.pos], c.tag, c.keyName)
	if err != nil {
		log.Warnw("skipping record in sort-merge join: key extraction failed", "error", err)
		return 0, fmt.Errorf("key extraction: %w", err)
	}
	return k, nil
}

func (c *mergeCursor) advance() error {
	c.pos++
	if c.pos < len(c.current) {
		return nil
	}
	return c.fill()
}

// collectGroup gathers every record (starting at the cursor's current
// position) whose key equals target, advancing past them.
func (c *mergeCursor) collectGroup(target int, log *logging.Logger) ([]types.Record, error) {
	var group []types.Record
	for c.hasRecord() {
		k, err := c.key(log)
		if err != nil {
			if err := c.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if k != target {
			break
		}
		group = append(group, c.record())
		if err := c.advance(); err != nil {
			return nil, err
		}
	}
	return group, nil
}
