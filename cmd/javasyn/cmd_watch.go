package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/dhamidi/javasyn/format"
	"github.com/dhamidi/javasyn/watch"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
)

func newWatchCmd(a *app) *cobra.Command {
	var flags scanFlags
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Re-analyze Java files as they change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("debounce") {
				debounce = a.cfg.Watch.Debounce.Duration
			}
			filter, _, err := flags.apply(cmd, a)
			if err != nil {
				return err
			}

			log := commonlog.GetLogger("javasyn.watch")
			encoder := format.NewTextEncoder(a.stdout, format.WithColor(a.color()))
			w, err := watch.New(args[0], filter, debounce, func(events []watch.Event) {
				if err := printEvents(a.stdout, encoder, events); err != nil {
					log.Error("print watch results", "error", err.Error())
				}
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			fmt.Fprintf(a.stdout, "Watching %s (press Ctrl-C to stop)\n", args[0])
			return w.Run(ctx)
		},
	}

	flags.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", 300*time.Millisecond, "delay before re-analyzing changed files")

	return cmd
}

// printEvents writes one report per changed file and keeps going after
// a failed write.
func printEvents(w io.Writer, encoder format.Encoder, events []watch.Event) error {
	var errs []error
	for _, e := range events {
		var err error
		if e.Removed {
			_, err = fmt.Fprintf(w, "%s: removed\n", e.Path)
		} else {
			err = encoder.Encode(format.Document{File: e.Path, Result: e.Result})
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.Path, err))
		}
	}
	return errors.Join(errs...)
}
