package queue

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of one queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// allowedTransitions encodes the item lifecycle. Claiming moves pending to
// processing; a worker resolves processing to completed or failed; reclaim
// returns a stale claim to pending; retry returns a failed item to pending.
// Completed is terminal.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusPending},
	StatusFailed:     {StatusPending},
	StatusCompleted:  {},
}

// CanTransition reports whether moving an item from one status to another is
// legal.
func CanTransition(from, to Status) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ParseStatus validates a status string from user input.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return Status(value), nil
	}
	return "", fmt.Errorf("unknown queue status %q", value)
}

// Item is one enrichment request.
type Item struct {
	ID           int64
	BSSID        string
	Priority     int
	Status       Status
	EnqueuedAt   time.Time
	ClaimedAt    *time.Time
	CompletedAt  *time.Time
	ErrorMessage string
}

// Stats counts items per status.
type Stats struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
}

// Total sums all states.
func (s Stats) Total() int {
	return s.Pending + s.Processing + s.Completed + s.Failed
}
