package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"linedoc/internal/config"

	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration",
		Long:  "Shows values resolved from the environment, dotenv files and the YAML config file. Secrets are masked.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get [key]",
		Short: "Get a config value (e.g. DOWNLOAD_DIR)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.ToUpper(args[0])
			val, ok := config.Snapshot(source)[key]
			if !ok {
				return fmt.Errorf("%s is not set", key)
			}
			fmt.Println(val)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all resolved config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := map[string]any{
				"environment": source.Environment(),
				"env_file":    source.EnvFile(),
				"values":      config.Snapshot(source),
			}
			data, _ := json.MarshalIndent(out, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	return cmd
}
