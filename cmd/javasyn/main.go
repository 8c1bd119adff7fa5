package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dhamidi/javasyn/config"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
)

const version = "0.1.0"

// errDiagnostics makes the process exit with status 1 without printing
// anything beyond the report itself.
var errDiagnostics = errors.New("diagnostics reported")

// app carries the global flags and the loaded configuration to every
// subcommand.
type app struct {
	configPath string
	verbose    int
	noColor    bool

	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	commonlog.Configure(a.verbose, nil)

	var err error
	if a.configPath != "" {
		a.cfg, err = config.Load(a.configPath)
	} else {
		a.cfg, err = config.LoadOptional(config.DefaultFile)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return nil
}

func (a *app) color() bool {
	return a.cfg.Output.Color && !a.noColor
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "javasyn",
		Short:             "Tokenize and syntax-check Java-like source",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().CountVarP(&a.verbose, "verbose", "v", "increase log verbosity")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newAnalyzeCmd(a))
	rootCmd.AddCommand(newTokensCmd(a))
	rootCmd.AddCommand(newOutlineCmd(a))
	rootCmd.AddCommand(newScanCmd(a))
	rootCmd.AddCommand(newWatchCmd(a))
	rootCmd.AddCommand(newUICmd(a))
	rootCmd.AddCommand(newLSPCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))

	return rootCmd
}

func main() {
	a := &app{stdin: os.Stdin, stdout: os.Stdout}
	if err := newRootCmd(a).Execute(); err != nil {
		if !errors.Is(err, errDiagnostics) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
