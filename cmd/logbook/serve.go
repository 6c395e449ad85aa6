package main

import (
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/logbook/internal/importer"
	"github.com/mesh-intelligence/logbook/internal/metrics"
	"github.com/mesh-intelligence/logbook/internal/server"
)

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the logbook over HTTP",
		Long: `Serves the logbook as a JSON API with a server-sent event stream of
changes at /events and Prometheus metrics at /metrics. Changes made by
other logbook processes are picked up and announced. Stops on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			addr := a.settings.Listen
			if listen != "" {
				addr = listen
			}

			m := metrics.New()
			sub := m.Watch(a.bus)
			defer sub.Unsubscribe()

			comp := a.composer()
			defer comp.Close()
			comp.Mount()

			h := server.New(server.Deps{
				Observer: a.obs,
				Importer: importer.New(a.store, a.log),
				Composer: comp,
				Draft:    a.draftSlot(),
				Bus:      a.bus,
				Metrics:  m,
				Logger:   a.log,
			})

			ctx := cmd.Context()
			if err := a.watch(ctx); err != nil {
				return sysError(fmt.Errorf("watch: %w", err))
			}

			out := cmd.OutOrStdout()
			err = server.Serve(ctx, addr, h, a.log, func(addr net.Addr) {
				a.log.Info("listening", zap.Stringer("addr", addr))
				fmt.Fprintf(out, "Listening on http://%s\n", addr)
			})
			if err != nil {
				return sysError(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default: from config)")
	return cmd
}
