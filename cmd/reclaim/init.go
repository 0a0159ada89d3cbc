package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/osidra/reclaim/internal/infrastructure/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config and starter schema to .reclaim/",
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}

			configFile := filepath.Join(cwd, config.DefaultConfigDir, config.DefaultConfigFile)
			if _, err := os.Stat(configFile); err == nil {
				return fmt.Errorf("already initialized: %s exists", configFile)
			}

			if err := config.Default().Save(cwd); err != nil {
				return err
			}
			if err := config.SaveSchema(cwd, config.StarterSchema()); err != nil {
				return err
			}

			fmt.Printf("Initialized %s\n", filepath.Join(cwd, config.DefaultConfigDir))
			fmt.Println("Edit schema.yaml to describe your entity types and relation edges.")
			return nil
		},
	}
}
