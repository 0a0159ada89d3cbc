package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPurgeCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "purge <deletion-key>",
		Short: "Permanently discard a soft-deleted subtree",
		Long:  "Deletes the manifest and every snapshot it owns. Irreversible.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("purge is irreversible; re-run with --force")
			}
			return withDeps(cmd.Context(), func(d *Deps) error {
				if err := d.DeletionHandler.HandlePurge(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Printf("Purged %s\n", args[0])
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Confirm the permanent purge")

	return cmd
}
