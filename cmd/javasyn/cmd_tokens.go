package main

import (
	"github.com/dhamidi/javasyn/format"
	"github.com/dhamidi/javasyn/java/syntax"
	"github.com/spf13/cobra"
)

func newTokensCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tokens [file|-]",
		Short: "Print the token stream of a source file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, source, err := a.readSource(args)
			if err != nil {
				return err
			}
			return format.WriteTokens(a.stdout, syntax.Tokenize(source))
		},
	}
}
