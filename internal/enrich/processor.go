// Package enrich drains the enrichment queue: each claimed item is resolved
// against the lookup API, its detail staged, and a scoped reconciliation run
// folds the result into the canonical tables. Item failures are isolated so
// one bad lookup never stalls the batch.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"netsight/internal/ingest"
	"netsight/internal/logging"
	"netsight/internal/merge"
	"netsight/internal/observation"
	"netsight/internal/queue"
	"netsight/internal/services"
	"netsight/internal/services/wigle"
)

// Fetcher resolves one entity against the lookup API.
type Fetcher interface {
	FetchNetworkDetail(ctx context.Context, bssid string) (*wigle.NetworkDetail, error)
}

// Summary reports one processing pass.
type Summary struct {
	Claimed   int
	Succeeded int
	Failed    int
}

// Processor drives enrichment passes.
type Processor struct {
	queue   *queue.Queue
	gateway *ingest.Gateway
	engine  *merge.Engine
	fetcher Fetcher
	logger  *slog.Logger
}

// NewProcessor wires the pipeline stages together.
func NewProcessor(q *queue.Queue, gateway *ingest.Gateway, engine *merge.Engine, fetcher Fetcher, logger *slog.Logger) *Processor {
	return &Processor{
		queue:   q,
		gateway: gateway,
		engine:  engine,
		fetcher: fetcher,
		logger:  logging.WithComponent(logger, "enrich"),
	}
}

// ProcessQueue claims up to limit pending items and works through them in
// delivery order. Every claimed item ends up completed or failed; a
// cancelled context stops the pass after the current item and fails the
// rest back with the cancellation message. Item resolution uses a detached
// context so terminal states are recorded even after cancellation, and
// Failed counts only items whose state actually changed.
func (p *Processor) ProcessQueue(ctx context.Context, limit int) (Summary, error) {
	items, err := p.queue.ClaimBatch(ctx, limit)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Claimed: len(items)}
	if len(items) == 0 {
		return summary, nil
	}

	resolveCtx := context.WithoutCancel(ctx)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			for _, rest := range items[i:] {
				if markErr := p.queue.MarkFailed(resolveCtx, rest.ID, "processing cancelled"); markErr != nil {
					p.logger.Warn("failed to record cancellation",
						"id", rest.ID, "bssid", rest.BSSID, "error", markErr)
					continue
				}
				summary.Failed++
			}
			return summary, err
		}

		if err := p.processItem(ctx, item); err != nil {
			p.logger.Warn("enrichment failed",
				"id", item.ID, "bssid", item.BSSID, "error", err)
			if markErr := p.queue.MarkFailed(resolveCtx, item.ID, err.Error()); markErr != nil {
				return summary, markErr
			}
			summary.Failed++
			continue
		}
		if err := p.queue.MarkCompleted(resolveCtx, item.ID); err != nil {
			return summary, err
		}
		summary.Succeeded++
	}

	p.logger.Info("enrichment pass finished",
		"claimed", summary.Claimed,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
	)
	return summary, nil
}

func (p *Processor) processItem(ctx context.Context, item queue.Item) error {
	detail, err := p.fetcher.FetchNetworkDetail(ctx, item.BSSID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("entity unknown to lookup api: %w", err)
		}
		return err
	}

	if _, err := p.gateway.StageAPIDetail(ctx, detail); err != nil {
		return err
	}

	_, err = p.engine.Run(ctx, merge.Options{
		Source: observation.SourceAPI,
		BSSID:  item.BSSID,
	})
	return err
}
