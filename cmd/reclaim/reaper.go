package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/osidra/reclaim/internal/domain/services"
)

func newReaperCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "reaper",
		Short: "Run the retention reaper until interrupted",
		Long: "Periodically purges active manifests whose retention window has " +
			"lapsed. Runs in the foreground; stop with Ctrl-C.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withInternalDeps(cmd.Context(), func(d *internalDeps) error {
				if interval <= 0 {
					interval = d.Config.Engine.ReaperInterval
				}
				log := slog.New(slog.NewTextHandler(os.Stderr, nil))
				reaper := services.NewReaper(d.service, interval, log)

				fmt.Printf("Reaper running every %s (Ctrl-C to stop)\n", interval)
				err := reaper.Run(cmd.Context())
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 0, "Scan interval (default from config)")

	return cmd
}
