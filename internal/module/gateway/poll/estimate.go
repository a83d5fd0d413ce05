package poll

import "strings"

// Estimate pairs a model id fragment with its expected poll count.
type Estimate struct {
	Match    string
	Attempts int
}

// EstimateTable resolves expected attempts by ordered substring match.
type EstimateTable struct {
	entries []Estimate
	def     int
}

// NewEstimateTable builds a table. Earlier entries win, so list specific ids first.
func NewEstimateTable(def int, entries ...Estimate) *EstimateTable {
	return &EstimateTable{entries: entries, def: def}
}

// For returns the expected attempts for modelID.
func (t *EstimateTable) For(modelID string) int {
	for _, e := range t.entries {
		if modelID == e.Match {
			return e.Attempts
		}
	}
	for _, e := range t.entries {
		if strings.Contains(modelID, e.Match) {
			return e.Attempts
		}
	}
	return t.def
}
