package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"netsight/internal/config"
	"netsight/internal/ingest"
	"netsight/internal/ingest/backup"
	"netsight/internal/ingest/kml"
	"netsight/internal/store"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "ingest [flags] FILE...",
		Short: "Ingest capture files into the observation store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store, logger *slog.Logger) error {
				adapter, err := ingest.SelectAdapter(format, kml.New(), backup.New())
				if err != nil {
					return err
				}

				gateway := ingest.NewGateway(s, logger)
				stats, err := gateway.IngestFiles(cmd.Context(), adapter, args)
				if err != nil {
					return err
				}

				printer := message.NewPrinter(language.English)
				out := cmd.OutOrStdout()
				printer.Fprintf(out, "Processed %d records from %d file(s)\n", stats.Total, len(args))
				printer.Fprintf(out, "  inserted:   %d\n", stats.Inserted)
				printer.Fprintf(out, "  duplicates: %d\n", stats.Duplicates)
				if stats.Skipped > 0 {
					printer.Fprintf(out, "  skipped:    %d\n", stats.Skipped)
				}
				fmt.Fprintf(out, "  duplicate rate: %.1f%%\n", stats.DuplicateRate())
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "backup", "Capture format (kml or backup)")
	return cmd
}
