package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"netsight/internal/config"
	"netsight/internal/merge"
	"netsight/internal/observation"
	"netsight/internal/store"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var sourceFlag string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Reconcile staged authoritative data into the canonical tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			source, ok := observation.ParseSource(sourceFlag)
			if !ok {
				return fmt.Errorf("unknown source %q", sourceFlag)
			}

			return ctx.withStore(func(cfg *config.Config, s *store.Store, logger *slog.Logger) error {
				// Only one mutating run at a time per data directory.
				// Dry runs read a consistent snapshot and need no lock.
				if !dryRun {
					lock := flock.New(filepath.Join(cfg.Paths.DataDir, "merge.lock"))
					locked, err := lock.TryLock()
					if err != nil {
						return fmt.Errorf("acquire merge lock: %w", err)
					}
					if !locked {
						return fmt.Errorf("another merge run holds %s", lock.Path())
					}
					defer func() { _ = lock.Unlock() }()
				}

				engine := merge.NewEngine(s, cfg, logger)
				report, err := engine.Run(cmd.Context(), merge.Options{
					Source: source,
					DryRun: dryRun,
				})
				if err != nil {
					return err
				}

				printer := message.NewPrinter(language.English)
				out := cmd.OutOrStdout()
				if report.DryRun {
					fmt.Fprintln(out, "Dry run; nothing was written")
				} else {
					fmt.Fprintf(out, "Merge batch %s\n", report.BatchID)
				}
				printer.Fprintf(out, "  networks enriched:  %d\n", report.NetworksEnriched)
				printer.Fprintf(out, "  observations added: %d\n", report.ObservationsAdded)
				printer.Fprintf(out, "  duplicates skipped: %d\n", report.DuplicatesSkipped)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sourceFlag, "source", string(observation.SourceAPI), "Source label for the run")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	return cmd
}
