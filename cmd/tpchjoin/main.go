// Command tpchjoin is the join engine's CLI surface: one cobra command
// tree consolidating the teacher's and the original C++ source's
// several near-duplicate entry points (root main.go,
// B+Tree-Implementation/main.go, Query-Parser/main.go, the original's
// several runXxx demo paths in main.cpp) into the single
// convert/join/hash-join/sort-merge-join/compare-all/multi-join
// surface SPEC_FULL §6 calls for.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tpchjoin/ingest"
	"tpchjoin/join"
	"tpchjoin/logging"
	"tpchjoin/stats"
)

var (
	logLevel  string
	logFormat string
)

func main() {
	root := &cobra.Command{
		Use:   "tpchjoin",
		Short: "block-oriented relational join engine",
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")

	root.AddCommand(
		convertCmd(),
		joinCmd(),
		hashJoinCmd(),
		sortMergeJoinCmd(),
		compareAllCmd(),
		multiJoinCmd(),
	)

	if err := root.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *logging.Logger {
	log, err := logging.New(logLevel, logFormat)
	if err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return log
}

func report(st *stats.Statistics) {
	color.New(color.FgGreen).Println(st.String())
}

func convertCmd() *cobra.Command {
	var inputFile, outputFile, tag string
	var blockSize int

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "convert a pipe-delimited text table into a paged .dat file",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			var st stats.Statistics
			if err := ingest.Convert(log, inputFile, outputFile, tag, blockSize, &st); err != nil {
				return err
			}
			report(&st)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputFile, "input-file", "", "path to the pipe-delimited source text")
	cmd.Flags().StringVar(&outputFile, "output-file", "", "path to write the paged .dat table")
	cmd.Flags().StringVar(&tag, "type", "", "table tag (PART, PARTSUPP, SUPPLIER, CUSTOMER, ORDERS, LINEITEM, NATION, REGION)")
	cmd.Flags().IntVar(&blockSize, "block-size", 4096, "page size in bytes")
	cmd.MarkFlagRequired("input-file")
	cmd.MarkFlagRequired("output-file")
	cmd.MarkFlagRequired("type")
	return cmd
}

func twoTableFlags(cmd *cobra.Command, outerPath, innerPath, outerType, innerType, joinKey, output *string, bufferSize, blockSize *int) {
	cmd.Flags().StringVar(outerPath, "outer-table", "", "path to the outer table's .dat file")
	cmd.Flags().StringVar(innerPath, "inner-table", "", "path to the inner table's .dat file")
	cmd.Flags().StringVar(outerType, "outer-type", "", "outer table's schema tag")
	cmd.Flags().StringVar(innerType, "inner-type", "", "inner table's schema tag")
	cmd.Flags().StringVar(joinKey, "join-key", "", "join key field name, shared by both sides")
	cmd.Flags().StringVar(output, "output", "", "path to write the joined .dat file")
	cmd.Flags().IntVar(bufferSize, "buffer-size", 10, "buffer pool size in pages")
	cmd.Flags().IntVar(blockSize, "block-size", 4096, "page size in bytes")
	for _, name := range []string{"outer-table", "inner-table", "outer-type", "inner-type", "join-key", "output"} {
		cmd.MarkFlagRequired(name)
	}
}

func joinCmd() *cobra.Command {
	var outerPath, innerPath, outerType, innerType, joinKey, output string
	var bufferSize, blockSize int

	cmd := &cobra.Command{
		Use:   "join",
		Short: "block nested loops join (BNLJ) of two tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			outer := join.TwoTableInput{Path: outerPath, Tag: outerType, Key: joinKey}
			inner := join.TwoTableInput{Path: innerPath, Tag: innerType, Key: joinKey}
			params := join.BNLJParams{BufferSize: bufferSize, BlockSize: blockSize}

			var st stats.Statistics
			if err := join.BNLJ(log, outer, inner, output, params, &st); err != nil {
				return err
			}
			report(&st)
			return nil
		},
	}
	twoTableFlags(cmd, &outerPath, &innerPath, &outerType, &innerType, &joinKey, &output, &bufferSize, &blockSize)
	return cmd
}

func hashJoinCmd() *cobra.Command {
	var buildPath, probePath, buildType, probeType, joinKey, output string
	var blockSize, maxBuildEntries int

	cmd := &cobra.Command{
		Use:   "hash-join",
		Short: "in-memory hash join of two tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			build := join.TwoTableInput{Path: buildPath, Tag: buildType, Key: joinKey}
			probe := join.TwoTableInput{Path: probePath, Tag: probeType, Key: joinKey}
			params := join.HashJoinParams{BlockSize: blockSize, MaxBuildEntries: maxBuildEntries}

			var st stats.Statistics
			if err := join.HashJoin(log, build, probe, output, params, &st); err != nil {
				return err
			}
			report(&st)
			return nil
		},
	}

	cmd.Flags().StringVar(&buildPath, "build-table", "", "path to the build side's .dat file")
	cmd.Flags().StringVar(&probePath, "probe-table", "", "path to the probe side's .dat file")
	cmd.Flags().StringVar(&buildType, "build-type", "", "build table's schema tag")
	cmd.Flags().StringVar(&probeType, "probe-type", "", "probe table's schema tag")
	cmd.Flags().StringVar(&joinKey, "join-key", "", "join key field name, shared by both sides")
	cmd.Flags().StringVar(&output, "output", "", "path to write the joined .dat file")
	cmd.Flags().IntVar(&blockSize, "block-size", 4096, "page size in bytes")
	cmd.Flags().IntVar(&maxBuildEntries, "max-build-entries", 0, "cap on build-side row count (0 = unbounded)")
	for _, name := range []string{"build-table", "probe-table", "build-type", "probe-type", "join-key", "output"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

func sortMergeJoinCmd() *cobra.Command {
	var outerPath, innerPath, outerType, innerType, joinKey, output string
	var bufferSize, blockSize int

	cmd := &cobra.Command{
		Use:   "sort-merge-join",
		Short: "external sort-merge join of two tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			outer := join.TwoTableInput{Path: outerPath, Tag: outerType, Key: joinKey}
			inner := join.TwoTableInput{Path: innerPath, Tag: innerType, Key: joinKey}
			params := join.SortMergeParams{BufferSize: bufferSize, BlockSize: blockSize}

			var st stats.Statistics
			if err := join.SortMerge(log, outer, inner, output, params, &st); err != nil {
				return err
			}
			report(&st)
			return nil
		},
	}
	twoTableFlags(cmd, &outerPath, &innerPath, &outerType, &innerType, &joinKey, &output, &bufferSize, &blockSize)
	return cmd
}

// compareAllCmd runs BNLJ, HashJoin, and SortMerge over the same
// two-table input and reports each one's statistics, so a caller can
// sanity-check property 4 (algorithm equivalence) by eye without
// writing three separate invocations.
func compareAllCmd() *cobra.Command {
	var outerPath, innerPath, outerType, innerType, joinKey, output string
	var bufferSize, blockSize int

	cmd := &cobra.Command{
		Use:   "compare-all",
		Short: "run BNLJ, hash join, and sort-merge join over the same inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			outer := join.TwoTableInput{Path: outerPath, Tag: outerType, Key: joinKey}
			inner := join.TwoTableInput{Path: innerPath, Tag: innerType, Key: joinKey}

			var bnljStats, hashStats, sortStats stats.Statistics

			bnljParams := join.BNLJParams{BufferSize: bufferSize, BlockSize: blockSize}
			if err := join.BNLJ(log, outer, inner, output+".bnlj", bnljParams, &bnljStats); err != nil {
				return fmt.Errorf("bnlj: %w", err)
			}
			hashParams := join.HashJoinParams{BlockSize: blockSize}
			if err := join.HashJoin(log, outer, inner, output+".hashjoin", hashParams, &hashStats); err != nil {
				return fmt.Errorf("hash-join: %w", err)
			}
			sortParams := join.SortMergeParams{BufferSize: bufferSize, BlockSize: blockSize}
			if err := join.SortMerge(log, outer, inner, output+".sortmerge", sortParams, &sortStats); err != nil {
				return fmt.Errorf("sort-merge-join: %w", err)
			}

			bold := color.New(color.Bold)
			bold.Println("bnlj:       ")
			report(&bnljStats)
			bold.Println("hash-join:  ")
			report(&hashStats)
			bold.Println("sort-merge: ")
			report(&sortStats)
			return nil
		},
	}
	twoTableFlags(cmd, &outerPath, &innerPath, &outerType, &innerType, &joinKey, &output, &bufferSize, &blockSize)
	return cmd
}

// multiJoinPlanFile is the on-disk shape of a --plan JSON file for the
// multi-join subcommand, per SPEC_FULL §6's supplement.
type multiJoinPlanFile struct {
	Tables []struct {
		Path string `json:"path"`
		Tag  string `json:"tag"`
	} `json:"tables"`
	Conditions []struct {
		LeftIdx    int    `json:"left_idx"`
		LeftField  string `json:"left_field"`
		RightIdx   int    `json:"right_idx"`
		RightField string `json:"right_field"`
	} `json:"conditions"`
}

func multiJoinCmd() *cobra.Command {
	var planPath, output string
	var bufferSize, blockSize int

	cmd := &cobra.Command{
		Use:   "multi-join",
		Short: "left-deep multi-table join driven by a JSON plan file",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			defer log.Sync()

			raw, err := os.ReadFile(planPath)
			if err != nil {
				return fmt.Errorf("read plan %s: %w", planPath, err)
			}
			var planFile multiJoinPlanFile
			if err := json.Unmarshal(raw, &planFile); err != nil {
				return fmt.Errorf("parse plan %s: %w", planPath, err)
			}

			plan := join.Plan{BufferSize: bufferSize, BlockSize: blockSize}
			for _, t := range planFile.Tables {
				plan.Tables = append(plan.Tables, join.TableRef{Path: t.Path, Tag: t.Tag})
			}
			for _, c := range planFile.Conditions {
				plan.Conditions = append(plan.Conditions, join.JoinCondition{
					LeftIdx: c.LeftIdx, LeftField: c.LeftField,
					RightIdx: c.RightIdx, RightField: c.RightField,
				})
			}

			var st stats.Statistics
			finalPath, err := join.Run(log, plan, output, &st)
			if err != nil {
				return err
			}
			if finalPath != output {
				if err := os.Rename(finalPath, output); err != nil {
					return fmt.Errorf("rename %s to %s: %w", finalPath, output, err)
				}
			}
			report(&st)
			return nil
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "path to the JSON multi-table join plan")
	cmd.Flags().StringVar(&output, "output", "", "path to write the final joined .dat file")
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 10, "buffer pool size in pages, per left-deep step")
	cmd.Flags().IntVar(&blockSize, "block-size", 4096, "page size in bytes")
	cmd.MarkFlagRequired("plan")
	cmd.MarkFlagRequired("output")
	return cmd
}
