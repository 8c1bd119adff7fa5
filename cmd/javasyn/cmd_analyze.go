package main

import (
	"fmt"

	"github.com/dhamidi/javasyn/format"
	"github.com/dhamidi/javasyn/metrics"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var outputFormat string
	var fail bool
	var summary bool

	cmd := &cobra.Command{
		Use:   "analyze [file|-]",
		Short: "Analyze a source file and report diagnostics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("format") {
				outputFormat = a.cfg.Output.Format
			}

			name, source, err := a.readSource(args)
			if err != nil {
				return err
			}

			var encoder format.Encoder
			if summary && outputFormat == "text" {
				encoder = format.NewTextEncoder(a.stdout, format.WithColor(a.color()), format.WithSummary())
			} else if encoder, err = format.New(outputFormat, a.stdout, a.color()); err != nil {
				return err
			}

			result := metrics.Analyze(metrics.SurfaceCLI, source)
			if err := encoder.Encode(format.Document{File: name, Result: result}); err != nil {
				return fmt.Errorf("encode result: %w", err)
			}

			if fail && !result.Success {
				return errDiagnostics
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, json, msgpack)")
	cmd.Flags().BoolVar(&fail, "fail", true, "exit with status 1 when diagnostics are reported")
	cmd.Flags().BoolVar(&summary, "summary", false, "list only the first errors in text output")

	return cmd
}
