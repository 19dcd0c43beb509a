// Package feedsim drives a running server with a synthetic counter feed and
// checks the rates it derives.
package feedsim

import "time"

// Config holds configuration for a simulated feed.
type Config struct {
	BaseURL         string        // Base URL of the service
	Readings        int           // Number of readings to submit
	Interval        time.Duration // Gap between simulated photos
	MeanRate        int64         // Units per minute on a normal step
	SlowEvery       int           // Every n-th step runs below the threshold; 0 disables
	IrrelevantEvery int           // Every n-th entry is a not-relevant photo; 0 disables
	Window          time.Duration // Rate window configured on the server
	Workers         int           // Concurrent verification requests
	Timeout         time.Duration // HTTP request timeout
	Seed            uint64        // Seed for the step generator
	Start           time.Time     // Timestamp of the first reading; zero means back-dated from now
	OutputFile      string        // Output file for the submitted feed
	LogFile         string        // Log file for run output
	Verbose         bool          // Enable verbose logging
}

// Planned is one reading the simulator intends to submit.
type Planned struct {
	Index      int       `json:"index"`
	Timestamp  time.Time `json:"timestamp"`
	IsRelevant bool      `json:"isRelevant"`
	Value      int64     `json:"value"`
	Summary    string    `json:"summary"`
}

// manualRequest mirrors POST /api/readings.
type manualRequest struct {
	Timestamp  string         `json:"timestamp"`
	IsRelevant bool           `json:"isRelevant"`
	Fields     map[string]any `json:"fields"`
	Summary    string         `json:"summary"`
}

// Reading is the subset of a server reading the simulator checks.
type Reading struct {
	ID          string         `json:"id"`
	Timestamp   time.Time      `json:"timestamp"`
	IsRelevant  bool           `json:"isRelevant"`
	Fields      map[string]any `json:"fields"`
	DerivedRate *int64         `json:"derivedRate"`
	Status      string         `json:"status"`
	CorrectedAt *time.Time     `json:"correctedAt"`
}

// Schema is the subset of GET /api/schema the simulator needs.
type Schema struct {
	Name            string `json:"name"`
	RateField       string `json:"rateField"`
	NormalThreshold int64  `json:"normalThreshold"`
}

// Submitted pairs a planned reading with the server's answer.
type Submitted struct {
	Planned Planned
	Reading Reading
}

// Stats holds run statistics
type Stats struct {
	ReadingsPlanned   int
	ReadingsSubmitted int
	ReadingsFailed    int
	ReadingsVerified  int
	Mismatches        int
	Normal            int
	Slow              int
	Unknown           int
	CorrectionChecked bool
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
