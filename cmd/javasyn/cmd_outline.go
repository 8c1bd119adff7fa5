package main

import (
	"github.com/dhamidi/javasyn/format"
	"github.com/dhamidi/javasyn/metrics"
	"github.com/spf13/cobra"
)

func newOutlineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "outline [file|-]",
		Short: "Print the class and method outline of a source file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, source, err := a.readSource(args)
			if err != nil {
				return err
			}
			result := metrics.Analyze(metrics.SurfaceCLI, source)
			return format.WriteOutline(a.stdout, result.Outline)
		},
	}
}
