package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dhamidi/javasyn/format"
	"github.com/dhamidi/javasyn/java/scanner"
	"github.com/spf13/cobra"
)

type scanFlags struct {
	include []string
	exclude []string
	jobs    int
}

func (f *scanFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "glob patterns of files to analyze (overrides config)")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "glob patterns of files to skip (overrides config)")
	cmd.Flags().IntVarP(&f.jobs, "jobs", "j", 0, "parallel analyses (0 = GOMAXPROCS)")
}

// apply merges the flags that were set on cmd into the scan config.
func (f *scanFlags) apply(cmd *cobra.Command, a *app) (*scanner.Filter, int, error) {
	include, exclude, jobs := a.cfg.Scan.Include, a.cfg.Scan.Exclude, a.cfg.Scan.Jobs
	if cmd.Flags().Changed("include") {
		include = f.include
	}
	if cmd.Flags().Changed("exclude") {
		exclude = f.exclude
	}
	if cmd.Flags().Changed("jobs") {
		jobs = f.jobs
	}
	filter, err := scanner.NewFilter(include, exclude)
	if err != nil {
		return nil, 0, err
	}
	return filter, jobs, nil
}

func newScanCmd(a *app) *cobra.Command {
	var flags scanFlags
	var outputFormat string

	cmd := &cobra.Command{
		Use:   "scan <dir|zip>...",
		Short: "Analyze every Java file in directories and zip/jar archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				outputFormat = a.cfg.Output.Format
			}
			filter, jobs, err := flags.apply(cmd, a)
			if err != nil {
				return err
			}
			encoder, err := format.New(outputFormat, a.stdout, a.color())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runScan(ctx, a, args, filter, jobs, encoder, outputFormat == "text")
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, json, msgpack)")

	return cmd
}

func runScan(ctx context.Context, a *app, paths []string, filter *scanner.Filter, jobs int, encoder format.Encoder, withSummary bool) error {
	results, err := scanner.AnalyzePaths(ctx, paths, filter, jobs)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	failed := 0
	for _, fr := range results {
		if fr.Failed() {
			failed++
		}
		if err := encoder.Encode(format.Document{File: fr.Path, Result: fr.Result}); err != nil {
			return fmt.Errorf("encode %s: %w", fr.Path, err)
		}
	}

	if withSummary {
		fmt.Fprintf(a.stdout, "\nScanned %d files: %d with errors\n", len(results), failed)
	}
	if failed > 0 {
		return errDiagnostics
	}
	return nil
}
