package cleaning

import "github.com/KaramelBytes/datapro-cli/internal/table"

// Summary describes the effect of a cleaning run.
type Summary struct {
	RowsBefore int            `json:"rows_before"`
	RowsAfter  int            `json:"rows_after"`
	Columns    int            `json:"columns"`
	Missing    map[string]int `json:"missing_values"`
	Steps      []string       `json:"steps"`
}

// Summarize compares the input and output of Clean.
func Summarize(before, after *table.Table, cfg Config) *Summary {
	steps := cfg.Steps()
	if steps == nil {
		steps = []string{}
	}
	return &Summary{
		RowsBefore: before.NumRows(),
		RowsAfter:  after.NumRows(),
		Columns:    after.NumCols(),
		Missing:    after.MissingCounts(),
		Steps:      steps,
	}
}
