package classifier

import "time"

// Audit describes one classifier call for offline review.
type Audit struct {
	RunID     string
	Provider  string
	Inputs    []Input
	Results   []Result
	Err       string
	StartedAt time.Time
	Duration  time.Duration
}
