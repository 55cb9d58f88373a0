package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"netsight/internal/ingest"
	"netsight/internal/merge"
	"netsight/internal/observation"
	"netsight/internal/queue"
	"netsight/internal/services"
	"netsight/internal/services/wigle"
	"netsight/internal/store"
	"netsight/internal/testsupport"
)

type stubFetcher struct {
	details map[string]*wigle.NetworkDetail
	errs    map[string]error
	calls   []string
}

func (f *stubFetcher) FetchNetworkDetail(ctx context.Context, bssid string) (*wigle.NetworkDetail, error) {
	f.calls = append(f.calls, bssid)
	if err, ok := f.errs[bssid]; ok {
		return nil, err
	}
	if detail, ok := f.details[bssid]; ok {
		return detail, nil
	}
	return nil, services.Wrap(services.ErrNotFound, "wigle", "fetch detail", bssid, errors.New("no record"))
}

func detailFor(bssid string) *wigle.NetworkDetail {
	return &wigle.NetworkDetail{
		BSSID:      bssid,
		SSID:       "stub-net",
		Encryption: "WPA2",
		Observations: []observation.Observation{
			{
				BSSID:      bssid,
				Lat:        40.7,
				Lon:        -74.0,
				ObservedAt: 1640000000000,
				Source:     observation.SourceAPI,
			},
		},
	}
}

func newProcessor(t *testing.T, fetcher Fetcher) (*Processor, *queue.Queue, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	s := testsupport.MustOpenStore(t, cfg)
	q := queue.New(s, nil)
	gateway := ingest.NewGateway(s, nil)
	engine := merge.NewEngine(s, cfg, nil)
	return NewProcessor(q, gateway, engine, fetcher, nil), q, s
}

func TestProcessQueueHappyPath(t *testing.T) {
	fetcher := &stubFetcher{details: map[string]*wigle.NetworkDetail{
		"AA:BB:CC:DD:EE:FF": detailFor("AA:BB:CC:DD:EE:FF"),
	}}
	processor, q, s := newProcessor(t, fetcher)
	ctx := context.Background()

	if _, _, err := q.Enqueue(ctx, "aa:bb:cc:dd:ee:ff", 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	summary, err := processor.ProcessQueue(ctx, 10)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if summary.Claimed != 1 || summary.Succeeded != 1 || summary.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(fetcher.calls) != 1 || fetcher.calls[0] != "AA:BB:CC:DD:EE:FF" {
		t.Fatalf("unexpected fetch calls: %v", fetcher.calls)
	}

	stats, err := q.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if stats.Completed != 1 {
		t.Fatalf("item should be completed: %+v", stats)
	}

	// The staged detail made it all the way to the canonical tables.
	network, err := s.GetNetwork(ctx, "AA:BB:CC:DD:EE:FF")
	if err != nil {
		t.Fatalf("GetNetwork: %v", err)
	}
	if network == nil {
		t.Fatal("expected canonical network row after enrichment")
	}
	var folded int
	if err := s.QueryRow(ctx,
		`SELECT COUNT(*) FROM observations WHERE source = 'wigle_api'`).Scan(&folded); err != nil {
		t.Fatalf("count folded: %v", err)
	}
	if folded != 1 {
		t.Fatalf("expected 1 folded sighting, got %d", folded)
	}
}

func TestProcessQueueIsolatesFailures(t *testing.T) {
	fetcher := &stubFetcher{
		details: map[string]*wigle.NetworkDetail{
			"00:00:00:00:00:02": detailFor("00:00:00:00:00:02"),
		},
		errs: map[string]error{
			"00:00:00:00:00:01": services.Wrap(services.ErrExternalAPI, "wigle", "fetch detail", "00:00:00:00:00:01", errors.New("status 502")),
		},
	}
	processor, q, _ := newProcessor(t, fetcher)
	ctx := context.Background()

	// Higher priority so the failing item is claimed first.
	if _, _, err := q.Enqueue(ctx, "00:00:00:00:00:01", 10); err != nil {
		t.Fatalf("enqueue failing: %v", err)
	}
	if _, _, err := q.Enqueue(ctx, "00:00:00:00:00:02", 0); err != nil {
		t.Fatalf("enqueue healthy: %v", err)
	}

	summary, err := processor.ProcessQueue(ctx, 10)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if summary.Claimed != 2 || summary.Succeeded != 1 || summary.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	failed, err := q.List(ctx, queue.StatusFailed, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(failed) != 1 || failed[0].BSSID != "00:00:00:00:00:01" {
		t.Fatalf("unexpected failed items: %+v", failed)
	}
	if !strings.Contains(failed[0].ErrorMessage, "502") {
		t.Fatalf("failure message should carry the cause: %q", failed[0].ErrorMessage)
	}
}

func TestProcessQueueUnknownEntityFails(t *testing.T) {
	processor, q, _ := newProcessor(t, &stubFetcher{})
	ctx := context.Background()

	if _, _, err := q.Enqueue(ctx, "00:00:00:00:00:09", 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	summary, err := processor.ProcessQueue(ctx, 10)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("unknown entity should fail the item: %+v", summary)
	}
}

type cancellingFetcher struct {
	cancel context.CancelFunc
}

func (f *cancellingFetcher) FetchNetworkDetail(ctx context.Context, bssid string) (*wigle.NetworkDetail, error) {
	f.cancel()
	return nil, ctx.Err()
}

func TestProcessQueueCancellationResolvesClaims(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fetcher := &cancellingFetcher{cancel: cancel}
	processor, q, _ := newProcessor(t, fetcher)

	if _, _, err := q.Enqueue(context.Background(), "00:00:00:00:00:01", 10); err != nil {
		t.Fatalf("enqueue first: %v", err)
	}
	if _, _, err := q.Enqueue(context.Background(), "00:00:00:00:00:02", 0); err != nil {
		t.Fatalf("enqueue second: %v", err)
	}

	summary, err := processor.ProcessQueue(ctx, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if summary.Claimed != 2 || summary.Succeeded != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	// No claim may be left stranded in processing, and the reported Failed
	// count must match what was actually recorded.
	stats, statErr := q.CountByStatus(context.Background())
	if statErr != nil {
		t.Fatalf("CountByStatus: %v", statErr)
	}
	if stats.Processing != 0 {
		t.Fatalf("cancellation stranded %d item(s) in processing", stats.Processing)
	}
	if stats.Failed != summary.Failed {
		t.Fatalf("summary reports %d failed but queue holds %d", summary.Failed, stats.Failed)
	}
	if stats.Failed != 2 {
		t.Fatalf("both claimed items should be failed, got %+v", stats)
	}

	failed, listErr := q.List(context.Background(), queue.StatusFailed, 0)
	if listErr != nil {
		t.Fatalf("List failed: %v", listErr)
	}
	for _, item := range failed {
		if item.ErrorMessage == "" {
			t.Fatalf("failed item %d has no error message", item.ID)
		}
	}
}

func TestProcessQueueEmpty(t *testing.T) {
	processor, _, _ := newProcessor(t, &stubFetcher{})
	summary, err := processor.ProcessQueue(context.Background(), 10)
	if err != nil {
		t.Fatalf("ProcessQueue: %v", err)
	}
	if summary.Claimed != 0 {
		t.Fatalf("empty queue should claim nothing: %+v", summary)
	}
}
