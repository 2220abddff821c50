package join

import (
	"fmt"
	"os"

	"tpchjoin/errs"
	"tpchjoin/logging"
	"tpchjoin/schema"
	"tpchjoin/stats"
	"tpchjoin/types"
)

// TableRef names one table in a multi-table join plan: its paged
// .dat file and the schema tag that describes it.
type TableRef struct {
	Path string
	Tag  string
}

// JoinCondition is one pairwise equi-join step in a left-deep plan,
// grounded in the original implementation's JoinCondition
// (original_source/include/multi_table_join.h): LeftIdx/RightIdx index
// into Plan.Tables, and exactly one of them must already be part of
// the accumulated intermediate result when this condition is
// executed — the other names the table being joined in at this step.
type JoinCondition struct {
	LeftIdx    int
	LeftField  string
	RightIdx   int
	RightField string
}

// Plan is a C11 multi-table left-deep join: an ordered table list and
// the pairwise conditions (in caller-given, non-reordered execution
// order) chaining them together.
type Plan struct {
	Tables     []TableRef
	Conditions []JoinCondition
	BufferSize int
	BlockSize  int
}

// Run executes plan as a sequence of pairwise BNLJ steps, each one
// folding one more table into a running intermediate file, per
// SPEC_FULL §4.11. Every condition must reference exactly one table
// index already folded in (starting with Plan.Tables[0]) and one not
// yet folded in; this is what makes the plan left-deep rather than an
// arbitrary join graph. Intermediate files are named
// "<outputPath>.step<n>" and deleted on success; on fatal error they
// are left in place for diagnosis, per §6.
func Run(log *logging.Logger, plan Plan, outputPath string, st *stats.Statistics) (string, error) {
	if log == nil {
		log = logging.Nop()
	}
	var final string
	err := timeIt(st, func() error {
		var runErr error
		final, runErr = runCore(log, plan, outputPath, st)
		return runErr
	})
	return final, err
}

// runCore is Run's engine, factored out so Run can wrap its entire
// left-deep step sequence in a single st.Time call rather than timing
// each bnljCore step individually, which would double-count once a
// plan folds in more than one table.
func runCore(log *logging.Logger, plan Plan, outputPath string, st *stats.Statistics) (string, error) {
	if len(plan.Tables) < 2 {
		return "", fmt.Errorf("multi-table join needs at least 2 tables, got %d: %w", len(plan.Tables), errs.ErrSchemaMismatch)
	}

	folded := map[int]bool{0: true}
	fieldOffset := map[int]int{0: 0}
	currentPath := plan.Tables[0].Path
	currentFieldCount, err := fieldCount(plan.Tables[0].Tag)
	if err != nil {
		return "", err
	}

	var intermediates []string
	params := BNLJParams{BufferSize: plan.BufferSize, BlockSize: plan.BlockSize}

	for stepIdx, cond := range plan.Conditions {
		accIdx, accField, newIdx, newField, err := resolveStep(cond, folded)
		if err != nil {
			return "", err
		}

		newTable := plan.Tables[newIdx]
		if _, err := fieldIndex(newTable.Tag, newField); err != nil {
			return "", err
		}

		outerLocalIdx, err := fieldIndex(plan.Tables[accIdx].Tag, accField)
		if err != nil {
			return "", err
		}
		outerAbsIdx := fieldOffset[accIdx] + outerLocalIdx

		stepOutput := fmt.Sprintf("%s.step%d", outputPath, stepIdx)

		outerKey := func(r types.Record) (int, error) { return extractAt(r, outerAbsIdx) }
		innerKey := func(r types.Record) (int, error) { return schema.ExtractIntKey(r, newTable.Tag, newField) }

		if err := bnljCore(log, currentPath, outerKey, newTable.Path, innerKey, stepOutput, params, st); err != nil {
			return "", err
		}

		if stepIdx > 0 {
			intermediates = append(intermediates, currentPath)
		}
		currentPath = stepOutput
		intermediates = append(intermediates, stepOutput)

		newFieldCount, err := fieldCount(newTable.Tag)
		if err != nil {
			return "", err
		}
		fieldOffset[newIdx] = currentFieldCount
		currentFieldCount += newFieldCount
		folded[newIdx] = true
	}

	// The final step's output is the plan's result; don't delete it
	// along with the other intermediates.
	final := currentPath
	for _, p := range intermediates {
		if p != final {
			os.Remove(p)
		}
	}
	return final, nil
}

// resolveStep figures out, for one JoinCondition, which side is
// already part of the accumulated intermediate (accIdx/accField) and
// which side is the table being folded in this step (newIdx/newField).
func resolveStep(cond JoinCondition, folded map[int]bool) (accIdx int, accField string, newIdx int, newField string, err error) {
	leftFolded, rightFolded := folded[cond.LeftIdx], folded[cond.RightIdx]
	switch {
	case leftFolded && !rightFolded:
		return cond.LeftIdx, cond.LeftField, cond.RightIdx, cond.RightField, nil
	case rightFolded && !leftFolded:
		return cond.RightIdx, cond.RightField, cond.LeftIdx, cond.LeftField, nil
	default:
		return 0, "", 0, "", fmt.Errorf(
			"join condition (left=%d, right=%d) is not left-deep: exactly one side must already be folded in: %w",
			cond.LeftIdx, cond.RightIdx, errs.ErrSchemaMismatch)
	}
}

func fieldCount(tag string) (int, error) {
	td, ok := schema.Fields(tag)
	if !ok {
		return 0, fmt.Errorf("unknown table tag %q: %w", tag, errs.ErrSchemaMismatch)
	}
	return len(td.Fields), nil
}

func fieldIndex(tag, field string) (int, error) {
	td, ok := schema.Fields(tag)
	if !ok {
		return 0, fmt.Errorf("unknown table tag %q: %w", tag, errs.ErrSchemaMismatch)
	}
	idx := td.IndexOf(field)
	if idx < 0 {
		return 0, fmt.Errorf("field %q not declared on tag %q: %w", field, tag, errs.ErrSchemaMismatch)
	}
	return idx, nil
}

// extractAt parses the field at an absolute index within an
// already-merged intermediate record as a base-10 integer, stripping
// the Supplier# alias the same way schema.ExtractIntKey does — the
// accumulated record carries no per-field Kind tag, so any field
// value with that literal prefix is treated as integral.
func extractAt(r types.Record, idx int) (int, error) {
	raw := r.Field(idx)
	return schema.ParseBareIntKey(raw)
}
