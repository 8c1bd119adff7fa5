package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dhamidi/javasyn/java/scanner"
	"github.com/dhamidi/javasyn/ui"
	"github.com/spf13/cobra"
)

func newUICmd(a *app) *cobra.Command {
	var flags scanFlags
	var addr, scanRoot string

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the web UI server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = a.cfg.UI.Addr
			}
			if !cmd.Flags().Changed("scan-root") {
				scanRoot = a.cfg.UI.ScanRoot
			}
			filter, jobs, err := flags.apply(cmd, a)
			if err != nil {
				return err
			}

			server, err := ui.NewServer(ui.Options{
				RateLimit:      a.cfg.UI.RateLimit,
				Burst:          a.cfg.UI.Burst,
				MaxSourceBytes: a.cfg.UI.MaxSourceBytes,
				ScanRoot:       scanRoot,
				Scanner:        scanner.New(filter, jobs),
			})
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			displayAddr := addr
			if strings.HasPrefix(addr, ":") {
				displayAddr = "localhost" + addr
			}
			fmt.Fprintf(a.stdout, "Starting server at http://%s\n", displayAddr)
			return http.ListenAndServe(addr, server)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVarP(&addr, "addr", "a", "localhost:8080", "address to listen on")
	cmd.Flags().StringVar(&scanRoot, "scan-root", ".", "directory that scans submitted through the UI are confined to")

	return cmd
}
