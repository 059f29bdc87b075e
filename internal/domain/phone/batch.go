package phone

import (
	"time"
)

// BatchSummary aggregates per-record verdicts for one upload.
type BatchSummary struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Invalid int `json:"invalid"`
	Errored int `json:"errored"`
}

// BatchResult is the ordered outcome of one bulk upload. Record order
// matches input row order. The result is transient: it lives only for
// the response and, optionally, a short export window.
type BatchResult struct {
	BatchID   string       `json:"batch_id"`
	Records   []Record     `json:"records"`
	Summary   BatchSummary `json:"summary"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewBatchResult assembles a result and computes its summary.
func NewBatchResult(batchID string, records []Record) *BatchResult {
	return &BatchResult{
		BatchID:   batchID,
		Records:   records,
		Summary:   Summarize(records),
		CreatedAt: time.Now().UTC(),
	}
}

// Summarize counts verdicts across records. A record is valid when
// both the parser and any consulted provider accepted it; errored
// records are counted independently, so a record can be both valid
// and errored (one provider enriched it, the other failed).
func Summarize(records []Record) BatchSummary {
	summary := BatchSummary{Total: len(records)}
	for i := range records {
		if records[i].IsValid() {
			summary.Valid++
		} else {
			summary.Invalid++
		}
		if records[i].HasErrors() {
			summary.Errored++
		}
	}
	return summary
}
