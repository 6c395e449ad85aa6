package main

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/logbook/internal/bus"
	"github.com/mesh-intelligence/logbook/pkg/types"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print a line for every change to the logbook",
		Long: `Follows the data directory and prints one line per change, whether it
was made by this process or by another logbook process. Stops on interrupt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			var mu sync.Mutex
			sub := a.bus.Subscribe(func(ev bus.Event) {
				mu.Lock()
				defer mu.Unlock()
				if flags.jsonMode {
					_ = printJSON(cmd, changeLine{
						Key:    ev.Key,
						Source: ev.Source.String(),
						At:     types.FormatTime(ev.At),
						Logs:   len(a.obs.Logs()),
					})
					return
				}
				if ev.Key == a.store.Key() {
					fmt.Fprintf(out, "%s change: %s (%d logs)\n", ev.Source, ev.Key, len(a.obs.Logs()))
					return
				}
				fmt.Fprintf(out, "%s change: %s\n", ev.Source, ev.Key)
			})
			defer sub.Unsubscribe()

			if err := a.watch(ctx); err != nil {
				return sysError(fmt.Errorf("watch: %w", err))
			}
			if !flags.jsonMode {
				fmt.Fprintf(out, "Watching %s (%d logs). Press Ctrl-C to stop.\n", a.settings.DataDir, len(a.obs.Logs()))
			}
			<-ctx.Done()
			return nil
		},
	}
}

type changeLine struct {
	Key    string `json:"key"`
	Source string `json:"source"`
	At     string `json:"at"`
	Logs   int    `json:"logs"`
}
