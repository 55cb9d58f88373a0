package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"netsight/internal/config"
	"netsight/internal/enrich"
	"netsight/internal/ingest"
	"netsight/internal/merge"
	"netsight/internal/queue"
	"netsight/internal/services"
	"netsight/internal/services/wigle"
	"netsight/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the enrichment queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueProcessCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueReclaimCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var priority int

	cmd := &cobra.Command{
		Use:   "add BSSID...",
		Short: "Queue entities for enrichment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store, logger *slog.Logger) error {
				q := queue.New(s, logger)
				out := cmd.OutOrStdout()
				for _, bssid := range args {
					id, created, err := q.Enqueue(cmd.Context(), bssid, priority)
					if err != nil {
						return err
					}
					if created {
						fmt.Fprintf(out, "Queued %s as item %d\n", store.NormalizeBSSID(bssid), id)
					} else {
						fmt.Fprintf(out, "%s already queued as item %d\n", store.NormalizeBSSID(bssid), id)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Delivery priority (higher first)")
	return cmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statusFlag string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			var status queue.Status
			if statusFlag != "" {
				parsed, err := queue.ParseStatus(statusFlag)
				if err != nil {
					return err
				}
				status = parsed
			}

			return ctx.withStore(func(cfg *config.Config, s *store.Store, logger *slog.Logger) error {
				q := queue.New(s, logger)
				items, err := q.List(cmd.Context(), status, limit)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := make([][]string, 0, len(items))
				for _, item := range items {
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						item.BSSID,
						strconv.Itoa(item.Priority),
						string(item.Status),
						item.EnqueuedAt.Format(time.RFC3339),
						item.ErrorMessage,
					})
				}
				table := renderTable(
					[]string{"ID", "BSSID", "Priority", "Status", "Enqueued", "Error"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&statusFlag, "status", "", "Filter by status")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum items to list (0 for all)")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store, logger *slog.Logger) error {
				q := queue.New(s, logger)
				stats, err := q.CountByStatus(cmd.Context())
				if err != nil {
					return err
				}
				if stats.Total() == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}

				rows := [][]string{
					{"pending", strconv.Itoa(stats.Pending)},
					{"processing", strconv.Itoa(stats.Processing)},
					{"completed", strconv.Itoa(stats.Completed)},
					{"failed", strconv.Itoa(stats.Failed)},
					{"total", strconv.Itoa(stats.Total())},
				}
				table := renderTable([]string{"Status", "Count"}, rows,
					[]columnAlignment{alignLeft, alignRight})
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func newQueueProcessCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process pending enrichment requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store, logger *slog.Logger) error {
				if cfg.WiGLE.Credential == "" {
					return services.Wrap(services.ErrConfiguration, "enrich", "process queue", "",
						fmt.Errorf("lookup api credential is not configured"))
				}

				if limit <= 0 {
					limit = cfg.Queue.DefaultLimit
				}

				client := wigle.NewClient(cfg.WiGLE.Credential,
					wigle.WithBaseURL(cfg.WiGLE.BaseURL),
					wigle.WithHTTPClient(&http.Client{
						Timeout: time.Duration(cfg.WiGLE.TimeoutSeconds) * time.Second,
					}))
				processor := enrich.NewProcessor(
					queue.New(s, logger),
					ingest.NewGateway(s, logger),
					merge.NewEngine(s, cfg, logger),
					client,
					logger,
				)

				summary, err := processor.ProcessQueue(cmd.Context(), limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Claimed %d item(s): %d succeeded, %d failed\n",
					summary.Claimed, summary.Succeeded, summary.Failed)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum items to claim (default from config)")
	return cmd
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [ID...]",
		Short: "Return failed items to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("invalid item id %q", arg)
				}
				ids = append(ids, id)
			}

			return ctx.withStore(func(cfg *config.Config, s *store.Store, logger *slog.Logger) error {
				q := queue.New(s, logger)
				count, err := q.RetryFailed(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Returned %d item(s) to pending\n", count)
				return nil
			})
		},
	}
}

func newQueueReclaimCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reclaim",
		Short: "Return stale processing claims to pending",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, s *store.Store, logger *slog.Logger) error {
				q := queue.New(s, logger)
				window := time.Duration(cfg.Queue.StaleClaimMinutes) * time.Minute
				count, err := q.ReclaimStale(cmd.Context(), window)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reclaimed %d stale claim(s)\n", count)
				return nil
			})
		},
	}
}
