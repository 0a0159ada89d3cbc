package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <deletion-key>",
		Short: "Restore a soft-deleted subtree with its original identities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd.Context(), func(d *Deps) error {
				root, err := d.DeletionHandler.HandleRestore(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				fmt.Printf("Restored %s\n", root)
				return nil
			})
		},
	}
}
