package model

import "time"

// Winner identifies the outcome of a comparison.
type Winner string

const (
	WinnerA   Winner = "item_a"
	WinnerB   Winner = "item_b"
	WinnerTie Winner = "tie"
)

// Contribution is one entry of a score breakdown: how much a single build
// affix contributed to the total. Duplicate rolls of the same affix are
// summed into one entry.
type Contribution struct {
	AffixID string  `json:"affix_id"`
	Amount  float64 `json:"amount"`
	// Rolls is the number of resolved affix entries that contributed.
	Rolls int `json:"rolls"`
}

// ScoreResult is the output of scoring one snapshot against one build.
// Identical inputs always produce an identical total and an identically
// ordered breakdown.
type ScoreResult struct {
	Total float64 `json:"total"`
	// Breakdown is ordered by build weight priority rank, ties broken by
	// affix id ascending.
	Breakdown []Contribution `json:"breakdown"`
	// Disqualified is set when a required affix is absent. The total is then
	// pinned to the disqualification floor.
	Disqualified bool `json:"disqualified"`
	// MissingRequired lists the required affix ids that were absent.
	MissingRequired []string `json:"missing_required,omitempty"`
}

// ComparisonResult is the final output of comparing two snapshots under one
// build. Constructed fresh per comparison, never mutated.
type ComparisonResult struct {
	ID        string    `json:"id"`
	BuildName string    `json:"build_name"`
	CreatedAt time.Time `json:"created_at"`

	ItemA *ItemSnapshot `json:"item_a"`
	ItemB *ItemSnapshot `json:"item_b"`

	ScoreA ScoreResult `json:"score_a"`
	ScoreB ScoreResult `json:"score_b"`

	// Delta is ScoreA.Total - ScoreB.Total, zero when either side is
	// disqualified.
	Delta  float64 `json:"delta"`
	Winner Winner  `json:"winner"`
}
