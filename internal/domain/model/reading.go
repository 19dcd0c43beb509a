// Package model contains domain models passed between layers.
package model

import "time"

// Status classifies a derived rate.
type Status string

// Rate statuses.
const (
	StatusNormal  Status = "normal"
	StatusSlow    Status = "slow"
	StatusUnknown Status = "unknown"
)

// Source records how a reading entered the log.
type Source string

// Reading sources.
const (
	SourceCapture Source = "capture"
	SourceManual  Source = "manual"
)

// Reading is one OCR-derived or manually entered log entry.
type Reading struct {
	ID          string     `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	IsRelevant  bool       `json:"isRelevant"`
	Fields      Fields     `json:"fields"`
	DerivedRate *int64     `json:"derivedRate"`
	Status      Status     `json:"status"`
	ImageRef    string     `json:"imageRef,omitempty"`
	Summary     string     `json:"summary"`
	Source      Source     `json:"source"`
	CorrectedAt *time.Time `json:"correctedAt,omitempty"`
}

// Clone returns a copy that shares no mutable state with r.
func (r Reading) Clone() Reading {
	out := r
	out.Fields = r.Fields.Clone()
	if r.DerivedRate != nil {
		rate := *r.DerivedRate
		out.DerivedRate = &rate
	}
	if r.CorrectedAt != nil {
		at := *r.CorrectedAt
		out.CorrectedAt = &at
	}
	return out
}
