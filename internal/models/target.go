package models

import "time"

// Target is a single unit of capture work. Immutable once constructed by the
// batch loader or CLI.
type Target struct {
	// ID is the KB number when one could be determined, otherwise an
	// arbitrary label such as "ROW12".
	ID string `json:"id"`

	// SourceURL is the URL as provided (possibly a /target/ redirect wrapper).
	SourceURL string `json:"source_url"`

	// DirectURL is the decoded direct URL when the wrapper was unwrapped,
	// otherwise equal to SourceURL.
	DirectURL string `json:"direct_url"`

	// Row is the 1-based input row the target came from, 0 for CLI targets.
	Row int `json:"row,omitempty"`
}

// TargetStatus is the per-target outcome recorded in the batch log.
type TargetStatus string

const (
	StatusOK          TargetStatus = "OK"
	StatusThinContent TargetStatus = "WARN_THIN_CONTENT"
	StatusFailed      TargetStatus = "FAIL"
)

// ResultRecord is the append-only per-target outcome written at batch end.
type ResultRecord struct {
	ID        string        `json:"id" badgerhold:"key"`
	RunID     string        `json:"run_id" badgerhold:"index"`
	TargetID  string        `json:"target_id"`
	Row       int           `json:"row,omitempty"`
	InputURL  string        `json:"input_url"`
	UsedURL   string        `json:"used_url"`
	FinalURL  string        `json:"final_url"`
	Title     string        `json:"title"`
	OutFiles  []string      `json:"out_files,omitempty"`
	Status    TargetStatus  `json:"status" badgerhold:"index"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
}
