package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osidra/reclaim/internal/domain/entities"
)

type deleteFlags struct {
	reason string
	actor  string
}

func newDeleteCmd() *cobra.Command {
	var flags deleteFlags

	cmd := &cobra.Command{
		Use:   "delete <type> <id>",
		Short: "Safe-delete a record and everything that cascades from it",
		Long: "Expands the cascade subtree under the given root, validates that no " +
			"external record blocks it, then snapshots and deletes every member " +
			"atomically. Prints the deletion key needed for restore or purge.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				key, err := d.DeletionHandler.HandleDelete(cmd.Context(), args[0], args[1], flags.reason, flags.actor)

				var blocked *entities.DeletionBlockedError
				if errors.As(err, &blocked) {
					fmt.Printf("Deletion of %s blocked by %d external reference(s):\n", blocked.Root, len(blocked.Blockers))
					for _, b := range blocked.Blockers {
						fmt.Printf("  %s -> %s (via %s.%s, %s)\n",
							b.Referencing(), b.Referenced(),
							b.Edge.SourceType, b.Edge.Field, b.Edge.OnDelete)
					}
					return err
				}
				if err != nil {
					return err
				}

				fmt.Printf("Deleted %s/%s\n", args[0], args[1])
				fmt.Printf("Deletion key: %s\n", key)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&flags.reason, "reason", "r", "", "Reason for the deletion")
	cmd.Flags().StringVarP(&flags.actor, "actor", "a", "", "Who is performing the deletion")

	return cmd
}
