// Package queue implements the enrichment work queue. Items move through a
// small state machine: pending, processing, then completed or failed. Claims
// are transactional so concurrent workers never process the same item, and
// stale claims can be returned to pending after a lease window.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"netsight/internal/logging"
	"netsight/internal/services"
	"netsight/internal/store"
)

// Queue manages enrichment requests stored alongside the observation data.
type Queue struct {
	store  *store.Store
	logger *slog.Logger
}

// New constructs a queue over the store session.
func New(s *store.Store, logger *slog.Logger) *Queue {
	return &Queue{
		store:  s,
		logger: logging.WithComponent(logger, "queue"),
	}
}

// Enqueue adds an enrichment request for an entity. An entity with an
// undelivered request (pending or processing) is not enqueued twice; the
// existing item's id is returned with created false.
func (q *Queue) Enqueue(ctx context.Context, bssid string, priority int) (id int64, created bool, err error) {
	normalized := store.NormalizeBSSID(bssid)
	if normalized == "" {
		return 0, false, services.Wrap(services.ErrValidation, "queue", "enqueue", "", errors.New("empty bssid"))
	}

	tx, err := q.store.Begin(ctx)
	if err != nil {
		return 0, false, services.Wrap(services.ErrTransient, "queue", "enqueue", normalized, err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM enrichment_queue
		WHERE bssid = ? AND status IN (?, ?)
		ORDER BY id LIMIT 1`,
		normalized, StatusPending, StatusProcessing).Scan(&existing)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, false, services.Wrap(services.ErrTransient, "queue", "enqueue", normalized, err)
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO enrichment_queue (bssid, priority, status, enqueued_at)
		VALUES (?, ?, ?, ?)`,
		normalized, priority, StatusPending, store.Now())
	if err != nil {
		return 0, false, services.Wrap(services.ErrTransient, "queue", "enqueue", normalized, err)
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, false, services.Wrap(services.ErrTransient, "queue", "enqueue", normalized, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, services.Wrap(services.ErrTransient, "queue", "enqueue", normalized, err)
	}

	q.logger.Info("enrichment request enqueued", "id", id, "bssid", normalized, "priority", priority)
	return id, true, nil
}

// ClaimBatch atomically moves up to limit pending items to processing and
// returns them in delivery order: highest priority first, oldest first
// within a priority. Items claimed here are invisible to other claimers
// until resolved or reclaimed.
func (q *Queue) ClaimBatch(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		return nil, nil
	}

	tx, err := q.store.Begin(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "claim batch", "", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, bssid, priority, status, enqueued_at, claimed_at, completed_at, error_message
		FROM enrichment_queue
		WHERE status = ?
		ORDER BY priority DESC, enqueued_at ASC, id ASC
		LIMIT ?`,
		StatusPending, limit)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "claim batch", "", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "claim batch", "", err)
	}
	if len(items) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	args := make([]any, 0, len(items)+3)
	args = append(args, StatusProcessing, store.Timestamp(now), StatusPending)
	for _, item := range items {
		args = append(args, item.ID)
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE enrichment_queue SET status = ?, claimed_at = ?
		WHERE status = ? AND id IN (`+store.MakePlaceholders(len(items))+`)`,
		args...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "claim batch", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "claim batch", "", err)
	}
	if int(affected) != len(items) {
		return nil, services.Wrap(services.ErrTransient, "queue", "claim batch", "",
			fmt.Errorf("claimed %d of %d selected items", affected, len(items)))
	}
	if err := tx.Commit(); err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "claim batch", "", err)
	}

	for i := range items {
		items[i].Status = StatusProcessing
		claimed := now
		items[i].ClaimedAt = &claimed
	}
	q.logger.Debug("claimed queue items", "count", len(items))
	return items, nil
}

// MarkCompleted resolves a processing item as done.
func (q *Queue) MarkCompleted(ctx context.Context, id int64) error {
	return q.resolve(ctx, id, StatusCompleted, "")
}

// MarkFailed resolves a processing item with an error message for later
// inspection and retry.
func (q *Queue) MarkFailed(ctx context.Context, id int64, message string) error {
	return q.resolve(ctx, id, StatusFailed, message)
}

func (q *Queue) resolve(ctx context.Context, id int64, to Status, message string) error {
	tx, err := q.store.Begin(ctx)
	if err != nil {
		return services.Wrap(services.ErrTransient, "queue", "resolve item", fmt.Sprint(id), err)
	}
	defer func() { _ = tx.Rollback() }()

	var current Status
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM enrichment_queue WHERE id = ?`, id).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return services.Wrap(services.ErrNotFound, "queue", "resolve item", fmt.Sprint(id), nil)
	case err != nil:
		return services.Wrap(services.ErrTransient, "queue", "resolve item", fmt.Sprint(id), err)
	}
	if !CanTransition(current, to) {
		return services.Wrap(services.ErrValidation, "queue", "resolve item", fmt.Sprint(id),
			fmt.Errorf("cannot move item from %s to %s", current, to))
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE enrichment_queue
		SET status = ?, completed_at = ?, error_message = ?
		WHERE id = ? AND status = ?`,
		to, store.Now(), store.NullableString(message), id, current)
	if err != nil {
		return services.Wrap(services.ErrTransient, "queue", "resolve item", fmt.Sprint(id), err)
	}
	if err := tx.Commit(); err != nil {
		return services.Wrap(services.ErrTransient, "queue", "resolve item", fmt.Sprint(id), err)
	}
	return nil
}

// ReclaimStale returns processing items whose claim is older than the cutoff
// to pending. Claim and resolution timestamps are cleared so the item is
// indistinguishable from a fresh enqueue apart from its original position.
func (q *Queue) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := store.Timestamp(time.Now().Add(-olderThan))
	res, err := q.store.Exec(ctx,
		`UPDATE enrichment_queue
		SET status = ?, claimed_at = NULL, completed_at = NULL, error_message = NULL
		WHERE status = ? AND claimed_at < ?`,
		StatusPending, StatusProcessing, cutoff)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "queue", "reclaim stale", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "queue", "reclaim stale", "", err)
	}
	if affected > 0 {
		q.logger.Warn("reclaimed stale claims", "count", affected)
	}
	return int(affected), nil
}

// RetryFailed returns failed items to pending. With no ids every failed item
// is retried; with ids only those items, and a non-failed id is an error.
func (q *Queue) RetryFailed(ctx context.Context, ids ...int64) (int, error) {
	if len(ids) == 0 {
		res, err := q.store.Exec(ctx,
			`UPDATE enrichment_queue
			SET status = ?, claimed_at = NULL, completed_at = NULL, error_message = NULL
			WHERE status = ?`,
			StatusPending, StatusFailed)
		if err != nil {
			return 0, services.Wrap(services.ErrTransient, "queue", "retry failed", "", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, services.Wrap(services.ErrTransient, "queue", "retry failed", "", err)
		}
		return int(affected), nil
	}

	args := []any{StatusPending, StatusFailed}
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := q.store.Exec(ctx,
		`UPDATE enrichment_queue
		SET status = ?, claimed_at = NULL, completed_at = NULL, error_message = NULL
		WHERE status = ? AND id IN (`+store.MakePlaceholders(len(ids))+`)`,
		args...)
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "queue", "retry failed", "", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrTransient, "queue", "retry failed", "", err)
	}
	if int(affected) != len(ids) {
		return int(affected), services.Wrap(services.ErrValidation, "queue", "retry failed", "",
			fmt.Errorf("retried %d of %d items; the rest are not failed", affected, len(ids)))
	}
	return int(affected), nil
}

// List returns items filtered by status, newest first. A zero status lists
// everything.
func (q *Queue) List(ctx context.Context, status Status, limit int) ([]Item, error) {
	query := `SELECT id, bssid, priority, status, enqueued_at, claimed_at, completed_at, error_message
		FROM enrichment_queue`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY enqueued_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.store.Query(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "list items", "", err)
	}
	items, err := scanItems(rows)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "queue", "list items", "", err)
	}
	return items, nil
}

// CountByStatus tallies the queue.
func (q *Queue) CountByStatus(ctx context.Context) (Stats, error) {
	rows, err := q.store.Query(ctx,
		`SELECT status, COUNT(*) FROM enrichment_queue GROUP BY status`)
	if err != nil {
		return Stats{}, services.Wrap(services.ErrTransient, "queue", "count items", "", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, services.Wrap(services.ErrTransient, "queue", "count items", "", err)
		}
		switch status {
		case StatusPending:
			stats.Pending = count
		case StatusProcessing:
			stats.Processing = count
		case StatusCompleted:
			stats.Completed = count
		case StatusFailed:
			stats.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return Stats{}, services.Wrap(services.ErrTransient, "queue", "count items", "", err)
	}
	return stats, nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var (
			item        Item
			enqueuedAt  string
			claimedAt   sql.NullString
			completedAt sql.NullString
			message     sql.NullString
		)
		if err := rows.Scan(&item.ID, &item.BSSID, &item.Priority, &item.Status,
			&enqueuedAt, &claimedAt, &completedAt, &message); err != nil {
			return nil, err
		}
		item.EnqueuedAt = parseTimestamp(enqueuedAt)
		if claimedAt.Valid {
			ts := parseTimestamp(claimedAt.String)
			item.ClaimedAt = &ts
		}
		if completedAt.Valid {
			ts := parseTimestamp(completedAt.String)
			item.CompletedAt = &ts
		}
		item.ErrorMessage = message.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func parseTimestamp(value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
