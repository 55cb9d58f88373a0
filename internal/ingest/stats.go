package ingest

import "fmt"

// BatchStats reports the outcome of one batch insertion.
type BatchStats struct {
	Total      int
	Inserted   int
	Duplicates int
	Skipped    int
}

// DuplicateRate returns the percentage of duplicates in the batch, 0 for an
// empty batch.
func (s BatchStats) DuplicateRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Duplicates) / float64(s.Total) * 100
}

func (s BatchStats) String() string {
	return fmt.Sprintf("%d inserted, %d duplicates, %d skipped (%.1f%% duplicate rate) out of %d total",
		s.Inserted, s.Duplicates, s.Skipped, s.DuplicateRate(), s.Total)
}

func (s *BatchStats) add(other BatchStats) {
	s.Total += other.Total
	s.Inserted += other.Inserted
	s.Duplicates += other.Duplicates
	s.Skipped += other.Skipped
}
