// Package electiondata loads the static election datasets and renders them
// into the briefing that prefixes every conversation.
package electiondata

import (
	"encoding/json"
	"time"
)

// Dataset names, as derived from the file names without extension.
const (
	DatasetComplete          = "bihar-election-complete"
	DatasetConstituencies    = "bihar-constituencies-master"
	DatasetPartyPerformance  = "bihar-party-performance"
	DatasetAlliance          = "bihar-alliance-performance"
	DatasetTurnout           = "bihar-turnout-analysis"
	DatasetWinners           = "bihar-winner-analysis"
	DatasetSeatAnalysis      = "bihar-seat-analysis"
	DatasetElectors          = "bihar-elector-details"
	DatasetConstituencyTable = "bihar-constituencies-summary"
)

// Snapshot is an immutable view of the loaded datasets. JSON documents are
// kept raw and decoded on demand; CSV files are kept as header-keyed rows.
type Snapshot struct {
	JSON      map[string]json.RawMessage
	Tables    map[string][]map[string]string
	DataTypes []string
	LoadedAt  time.Time

	// Sample is set on the placeholder snapshot used when nothing loaded.
	Sample *SampleElection
}

// SampleElection is the placeholder used when no dataset could be read.
type SampleElection struct {
	Name    string
	Date    string
	Type    string
	Message string
}

// DefaultSnapshot is returned by the loader when no file loads.
func DefaultSnapshot() *Snapshot {
	return &Snapshot{
		DataTypes: []string{"Default"},
		Sample: &SampleElection{
			Name:    "Sample Election",
			Date:    "2024-11-05",
			Type:    "General Election",
			Message: "No external election data loaded. Using default sample data.",
		},
	}
}

// Empty reports whether s carries nothing worth rendering.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.JSON) == 0 && len(s.Tables) == 0 && s.Sample == nil)
}

// Len returns the number of datasets held.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.JSON) + len(s.Tables)
}
