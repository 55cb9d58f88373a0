package main

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"netsight/internal/config"
	"netsight/internal/store"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store contents summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store, logger *slog.Logger) error {
				summary, err := s.Summarize(cmd.Context())
				if err != nil {
					return err
				}

				printer := message.NewPrinter(language.English)
				rows := [][]string{
					{"networks", printer.Sprintf("%d", summary.Networks)},
					{"networks enriched", printer.Sprintf("%d", summary.EnrichedNetworks)},
					{"observations", printer.Sprintf("%d", summary.Observations)},
				}

				sources := make([]string, 0, len(summary.ObservationsBySrc))
				for source := range summary.ObservationsBySrc {
					sources = append(sources, source)
				}
				sort.Strings(sources)
				for _, source := range sources {
					rows = append(rows, []string{
						"  from " + source,
						printer.Sprintf("%d", summary.ObservationsBySrc[source]),
					})
				}

				rows = append(rows,
					[]string{"staged api networks", strconv.Itoa(summary.StagedAPINetworks)},
					[]string{"staged api observations", printer.Sprintf("%d", summary.APIObservations)},
				)

				table := renderTable([]string{"Metric", "Count"}, rows,
					[]columnAlignment{alignLeft, alignRight})
				fmt.Fprint(cmd.OutOrStdout(), table)
				fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n", s.Path())
				return nil
			})
		},
	}
}
