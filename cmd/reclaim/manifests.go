package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/osidra/reclaim/internal/domain/entities"
)

type manifestsFlags struct {
	rootType string
	state    string
	limit    int
	offset   int
}

func newManifestsCmd() *cobra.Command {
	var flags manifestsFlags

	cmd := &cobra.Command{
		Use:   "manifests",
		Short: "List soft-deleted subtrees (the recycle bin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				filter := entities.ManifestFilter{
					RootType: flags.rootType,
					State:    entities.ManifestState(flags.state),
					Limit:    flags.limit,
					Offset:   flags.offset,
				}
				manifests, err := d.ManifestHandler.HandleList(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if len(manifests) == 0 {
					fmt.Println("No manifests found.")
					return nil
				}
				for _, m := range manifests {
					fmt.Printf("%s  %-22s  %d snapshot(s)  deleted %s  expires %s\n",
						m.DeletionKey,
						m.RootRef(),
						len(m.SnapshotKeys),
						m.CreatedAt.Format(time.RFC3339),
						m.ExpiresAt.Format(time.RFC3339),
					)
					if m.Reason != "" {
						fmt.Printf("    reason: %s\n", m.Reason)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&flags.rootType, "type", "t", "", "Filter by root entity type")
	cmd.Flags().StringVarP(&flags.state, "state", "s", string(entities.ManifestActive), "Filter by manifest state")
	cmd.Flags().IntVar(&flags.limit, "limit", 50, "Maximum manifests to list")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "Listing offset for pagination")

	return cmd
}
