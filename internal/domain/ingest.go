package domain

import "time"

// RunOptions tunes a single ingestion run.
type RunOptions struct {
	// IndexFromSource indexes documents built from the fetched records
	// instead of the persisted rows, decoupling index latency from the
	// relational write path.
	IndexFromSource bool
}

// IngestSummary is the per-run accounting of one ingestion pipeline pass.
// Every fetched record lands in exactly one of Invalid, Created, Duplicates,
// or Failed.
type IngestSummary struct {
	StartedAt   time.Time `json:"started_at"`
	Fetched     int       `json:"fetched"`
	Invalid     int       `json:"invalid"`
	Created     int       `json:"created"`
	Duplicates  int       `json:"duplicates"`
	Failed      int       `json:"failed"`
	Indexed     int       `json:"indexed"`
	IndexFailed int       `json:"index_failed"`
	ElapsedMs   int64     `json:"elapsed_ms"`
}
