package join

import (
	"fmt"

	"tpchjoin/blockio"
	"tpchjoin/errs"
	"tpchjoin/logging"
	"tpchjoin/pagecodec"
	"tpchjoin/schema"
	"tpchjoin/stats"
	"tpchjoin/types"
)

// HashJoinParams configures the C7 executor: BlockSize is the page
// size used to stream both the build and probe files. MaxBuildEntries,
// if positive, caps the build side's in-memory row count — exceeding
// it raises errs.ErrBuildTooLarge rather than growing unbounded, per
// §4.7's "OOM on build is BuildTooLarge". Zero means no cap.
type HashJoinParams struct {
	BlockSize       int
	MaxBuildEntries int
}

// estimatedBucketOverhead is the per-bucket-entry memory estimate used
// for MemoryUsageBytes, standing in for Go's map-bucket and slice
// header overhead (§4.10: "|hash| · (key+bucket overhead) + 2B").
const estimatedBucketOverhead = 64

// HashJoin builds an in-memory hash table over build, then streams
// probe against it, emitting build_fields ‖ probe_fields for every
// match (build on the left), per §4.7. Duplicate build keys are
// preserved — a key appearing k times produces a bucket of length k.
func HashJoin(log *logging.Logger, build, probe TwoTableInput, outputPath string, params HashJoinParams, st *stats.Statistics) error {
	if log == nil {
		log = logging.Nop()
	}
	return timeIt(st, func() error {
		return hashJoinCore(log, build, probe, outputPath, params, st)
	})
}

// hashJoinCore is HashJoin's engine, factored out so HashJoin can wrap
// the whole build-then-probe pass in a single st.Time call.
func hashJoinCore(log *logging.Logger, build, probe TwoTableInput, outputPath string, params HashJoinParams, st *stats.Statistics) error {
	buildReader, err := blockio.NewTableReader(build.Path, params.BlockSize, st)
	if err != nil {
		return err
	}
	defer buildReader.Close()

	table := make(map[int][]types.Record)
	entries := 0
	for {
		page, ok, err := buildReader.ReadBlock()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		recs, err := pagecodec.All(page)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			key, err := schema.ExtractIntKey(rec, build.Tag, build.Key)
			if err != nil {
				log.Warnw("skipping build record: key extraction failed", "error", err)
				continue
			}
			table[key] = append(table[key], rec)
			entries++
			if err := buildTooLargeGuard(entries, params.MaxBuildEntries); err != nil {
				return err
			}
		}
	}

	probeReader, err := blockio.NewTableReader(probe.Path, params.BlockSize, st)
	if err != nil {
		return err
	}
	defer probeReader.Close()

	writer, err := blockio.NewTableWriter(outputPath, st)
	if err != nil {
		return err
	}
	defer writer.Close()

	out := newOutputBuffer(writer, params.BlockSize, st)
	for {
		page, ok, err := probeReader.ReadBlock()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		recs, err := pagecodec.All(page)
		if err != nil {
			return err
		}
		for _, probeRec := range recs {
			key, err := schema.ExtractIntKey(probeRec, probe.Tag, probe.Key)
			if err != nil {
				log.Warnw("skipping probe record: key extraction failed", "error", err)
				continue
			}
			for _, buildRec := range table[key] {
				if err := out.emit(types.Merge(buildRec, probeRec)); err != nil {
					return err
				}
			}
		}
	}

	if err := out.flush(); err != nil {
		return err
	}
	if st != nil {
		st.MemoryUsageBytes = int64(entries)*estimatedBucketOverhead + 2*int64(params.BlockSize)
	}
	return nil
}

// buildTooLargeGuard is a hook point a caller can wire a memory
// ceiling through without changing the Build phase's streaming shape:
// it fails with errs.ErrBuildTooLarge once entries exceeds a positive
// limit (HashJoinParams.MaxBuildEntries). HashJoin imposes no ceiling
// of its own; with limit 0 the build is unbounded.
func buildTooLargeGuard(entries, limit int) error {
	if limit > 0 && entries > limit {
		return fmt.Errorf("hash build holds %d entries, limit %d: %w", entries, limit, errs.ErrBuildTooLarge)
	}
	return nil
}
