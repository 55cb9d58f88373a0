package ingest

import (
	"context"
	"fmt"

	"netsight/internal/observation"
)

// Adapter parses one capture format into normalized observations. Adapters
// never touch the store; the gateway owns persistence.
type Adapter interface {
	Name() string
	Parse(ctx context.Context, path string) ([]observation.Observation, error)
}

// SelectAdapter resolves a format name to its adapter.
func SelectAdapter(format string, adapters ...Adapter) (Adapter, error) {
	for _, adapter := range adapters {
		if adapter.Name() == format {
			return adapter, nil
		}
	}
	return nil, fmt.Errorf("unknown ingest format %q", format)
}

// IngestFile parses a capture file with the adapter and persists the result
// as one batch.
func (g *Gateway) IngestFile(ctx context.Context, adapter Adapter, path string) (BatchStats, error) {
	records, err := adapter.Parse(ctx, path)
	if err != nil {
		return BatchStats{}, err
	}
	g.logger.Info("parsed capture file", "format", adapter.Name(), "path", path, "records", len(records))
	return g.InsertBatch(ctx, records)
}

// IngestFiles processes several capture files, one batch per file, and
// returns the combined tally. A parse or store failure stops the run; stats
// for batches already committed are returned alongside the error.
func (g *Gateway) IngestFiles(ctx context.Context, adapter Adapter, paths []string) (BatchStats, error) {
	var combined BatchStats
	for _, path := range paths {
		stats, err := g.IngestFile(ctx, adapter, path)
		if err != nil {
			return combined, err
		}
		combined.add(stats)
	}
	return combined, nil
}
