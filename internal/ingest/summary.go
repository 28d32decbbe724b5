package ingest

import "github.com/google/uuid"

// Status is the result of processing one feature.
type Status string

// Feature outcomes.
const (
	StatusInserted  Status = "inserted"
	StatusDuplicate Status = "duplicate"
	StatusFailed    Status = "failed"
)

// Outcome records what happened to one feature.
type Outcome struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
	// Linked is true when a state was matched to a country row.
	Linked bool `json:"linked,omitempty"`
}

// Summary aggregates the outcomes of one ingestion run.
//
// Attempted counts every feature in the document, whatever its outcome. It is
// the integer the ingest_countries / ingest_states contract returns; use
// Inserted for rows actually written.
type Summary struct {
	RunID      uuid.UUID `json:"run_id"`
	Kind       Kind      `json:"kind"`
	Attempted  int       `json:"attempted"`
	Inserted   int       `json:"inserted"`
	Duplicates int       `json:"duplicates"`
	Failed     int       `json:"failed"`
	// Unlinked counts inserted states whose country could not be resolved.
	Unlinked int       `json:"unlinked,omitempty"`
	Failures []Outcome `json:"failures,omitempty"`
}

func (s *Summary) add(o Outcome) {
	s.Attempted++
	switch o.Status {
	case StatusInserted:
		s.Inserted++
		if s.Kind == KindState && !o.Linked {
			s.Unlinked++
		}
	case StatusDuplicate:
		s.Duplicates++
	case StatusFailed:
		s.Failed++
		s.Failures = append(s.Failures, o)
	}
}
