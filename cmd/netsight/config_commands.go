package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"netsight/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"data directory", cfg.Paths.DataDir},
				{"log directory", cfg.Paths.LogDir},
				{"database", cfg.DatabasePath()},
				{"lookup api base url", cfg.WiGLE.BaseURL},
				{"lookup api credential", maskCredential(cfg.WiGLE.Credential)},
				{"coordinate epsilon", fmt.Sprintf("%g", cfg.Merge.CoordinateEpsilon)},
				{"queue claim limit", fmt.Sprintf("%d", cfg.Queue.DefaultLimit)},
				{"stale claim minutes", fmt.Sprintf("%d", cfg.Queue.StaleClaimMinutes)},
				{"log format", cfg.Logging.Format},
				{"log level", cfg.Logging.Level},
			}
			table := renderTable([]string{"Setting", "Value"}, rows,
				[]columnAlignment{alignLeft, alignLeft})
			fmt.Fprint(out, table)
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if _, err := os.Stat(target); err == nil {
				if !overwrite {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				}
				if err := os.Remove(target); err != nil {
					return fmt.Errorf("replace existing config: %w", err)
				}
			} else if !os.IsNotExist(err) {
				return fmt.Errorf("check config path: %w", err)
			}

			if err := config.WriteSample(target); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set wigle.credential (or export WIGLE_API_CREDENTIAL) before processing the queue.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func maskCredential(credential string) string {
	if credential == "" {
		return "(not set)"
	}
	if len(credential) <= 4 {
		return "****"
	}
	return credential[:4] + strings.Repeat("*", 8)
}
