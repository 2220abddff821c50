// Package extsort implements C8: two-phase external sort over a
// paged table file, keyed by an integer join-key field. It is
// grounded in the original implementation's run-generation/merge split
// (described in spec.md §4.8) and in the teacher's merge-join helpers
// (storage_engine/joins.go's duplicate-key fan-out pattern), adapted
// from in-memory row maps to on-disk paged runs.
package extsort

import (
	"fmt"
	"os"
	"sort"

	"tpchjoin/blockio"
	"tpchjoin/errs"
	"tpchjoin/pagecodec"
	"tpchjoin/schema"
	"tpchjoin/stats"
	"tpchjoin/types"
)

// Params configures the sorter: BufferSize is the number of pages read
// per run-generation pass (memory M, in pages); BlockSize is the
// per-page byte size.
type Params struct {
	BufferSize int
	BlockSize  int
}

// keyedRecord pairs a decoded record with its pre-extracted integer
// sort key, so the run-generation sort comparator never re-parses
// text.
type keyedRecord struct {
	key int
	rec types.Record
}

// Sort reads inputPath (tagged tag, keyed by keyName), and writes a
// single file to outputPath holding every input record in ascending
// key order, stable on ties. A record whose key cannot be extracted is
// dropped during run generation and does not appear in the output. It
// runs phase 1 (run generation) followed
// by phase 2 (pairwise merge), per §4.8, and removes every intermediate
// run file it created along the way.
func Sort(inputPath, outputPath, tag, keyName string, params Params, st *stats.Statistics) error {
	runs, err := generateRuns(inputPath, outputPath, tag, keyName, params, st)
	if err != nil {
		cleanupRuns(runs)
		return err
	}
	if len(runs) == 0 {
		// Empty input: produce an empty output file.
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("create %s: %w", outputPath, errs.ErrIO)
		}
		return f.Close()
	}

	final, err := mergeRunsPairwise(outputPath, runs, tag, keyName, params, st)
	if err != nil {
		cleanupRuns(runs)
		return err
	}

	if final != outputPath {
		if err := os.Rename(final, outputPath); err != nil {
			return fmt.Errorf("rename %s to %s: %w", final, outputPath, errs.ErrIO)
		}
	}
	return nil
}

func cleanupRuns(runs []string) {
	for _, r := range runs {
		os.Remove(r)
	}
}

// generateRuns implements phase 1: read up to BufferSize pages,
// decode+key+stable-sort them in memory, and write the sorted vector
// out as one run file.
func generateRuns(inputPath, outputPath, tag, keyName string, params Params, st *stats.Statistics) ([]string, error) {
	reader, err := blockio.NewTableReader(inputPath, params.BlockSize, st)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var runs []string
	runNum := 0
	for {
		var batch []keyedRecord
		pagesRead := 0
		for pagesRead < params.BufferSize {
			page, ok, err := reader.ReadBlock()
			if err != nil {
				return runs, err
			}
			if !ok {
				break
			}
			recs, err := pagecodec.All(page)
			if err != nil {
				return runs, err
			}
			for _, rec := range recs {
				key, err := schema.ExtractIntKey(rec, tag, keyName)
				if err != nil {
					continue
				}
				batch = append(batch, keyedRecord{key: key, rec: rec})
			}
			pagesRead++
		}
		if pagesRead == 0 {
			break
		}

		sort.SliceStable(batch, func(i, j int) bool { return batch[i].key < batch[j].key })

		runPath := fmt.Sprintf("%s.run%d", outputPath, runNum)
		if err := writeRun(runPath, batch, params.BlockSize, st); err != nil {
			return runs, err
		}
		runs = append(runs, runPath)
		runNum++

		if pagesRead < params.BufferSize {
			break // that read hit EOF mid-batch
		}
	}
	return runs, nil
}

func writeRun(path string, batch []keyedRecord, blockSize int, st *stats.Statistics) error {
	writer, err := blockio.NewTableWriter(path, st)
	if err != nil {
		return err
	}
	defer writer.Close()

	page := pagecodec.NewPage(blockSize)
	for _, kr := range batch {
		if pagecodec.Append(page, kr.rec) {
			continue
		}
		if _, err := writer.WriteBlock(page); err != nil {
			return err
		}
		pagecodec.Clear(page)
		if !pagecodec.Append(page, kr.rec) {
			return fmt.Errorf("sort run record: %w", errs.ErrRecordTooLarge)
		}
	}
	if !pagecodec.IsEmpty(page) {
		if _, err := writer.WriteBlock(page); err != nil {
			return err
		}
	}
	return nil
}

// mergeRunsPairwise implements phase 2: pop runs in pairs, merge each
// pair into a new file, delete the pair, and push the merged file
// back onto the queue, per §4.8. The default merge strategy is
// two-way; SortKWay (kway.go) is the spec's explicitly-permitted
// alternative.
func mergeRunsPairwise(outputPath string, runs []string, tag, keyName string, params Params, st *stats.Statistics) (string, error) {
	queue := append([]string{}, runs...)
	mergedNum := 0

	for len(queue) > 1 {
		var next []string
		for i := 0; i+1 < len(queue); i += 2 {
			mergedPath := fmt.Sprintf("%s.merged%d", outputPath, mergedNum)
			mergedNum++
			if err := mergeTwoWay(queue[i], queue[i+1], mergedPath, tag, keyName, params, st); err != nil {
				return "", err
			}
			os.Remove(queue[i])
			os.Remove(queue[i+1])
			next = append(next, mergedPath)
		}
		if len(queue)%2 == 1 {
			next = append(next, queue[len(queue)-1])
		}
		queue = next
	}
	return queue[0], nil
}

// mergeTwoWay merges two sorted run files into dest, maintaining one
// decoded page's worth of readahead per side and writing the
// smaller-keyed record, preferring the left on ties for stability.
func mergeTwoWay(leftPath, rightPath, dest, tag, keyName string, params Params, st *stats.Statistics) error {
	left, err := newRunCursor(leftPath, params.BlockSize, tag, keyName, st)
	if err != nil {
		return err
	}
	defer left.Close()

	right, err := newRunCursor(rightPath, params.BlockSize, tag, keyName, st)
	if err != nil {
		return err
	}
	defer right.Close()

	writer, err := blockio.NewTableWriter(dest, st)
	if err != nil {
		return err
	}
	defer writer.Close()

	out := newOutputCursor(writer, params.BlockSize)
	for left.hasMore() && right.hasMore() {
		if left.key() <= right.key() {
			if err := out.emit(left.record()); err != nil {
				return err
			}
			if err := left.advance(); err != nil {
				return err
			}
		} else {
			if err := out.emit(right.record()); err != nil {
				return err
			}
			if err := right.advance(); err != nil {
				return err
			}
		}
	}
	for left.hasMore() {
		if err := out.emit(left.record()); err != nil {
			return err
		}
		if err := left.advance(); err != nil {
			return err
		}
	}
	for right.hasMore() {
		if err := out.emit(right.record()); err != nil {
			return err
		}
		if err := right.advance(); err != nil {
			return err
		}
	}
	return out.flush()
}
