// Package compare ranks two item snapshots under one build.
package compare

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/d4tools/loothound/internal/model"
	"github.com/d4tools/loothound/internal/score"
)

// Compare scores both snapshots and determines the winner. Totals within
// epsilon of each other are a tie, so float noise never decides a
// comparison. A disqualified snapshot always loses to a qualified one; two
// disqualified snapshots tie at the floor.
func Compare(a, b *model.ItemSnapshot, build *model.Build, epsilon float64) model.ComparisonResult {
	sa := score.Score(a, build)
	sb := score.Score(b, build)

	res := model.ComparisonResult{
		ID:        uuid.NewString(),
		BuildName: build.Name,
		CreatedAt: time.Now().UTC(),
		ItemA:     a,
		ItemB:     b,
		ScoreA:    sa,
		ScoreB:    sb,
	}

	switch {
	case sa.Disqualified && sb.Disqualified:
		res.Winner = model.WinnerTie
	case sa.Disqualified:
		res.Winner = model.WinnerB
	case sb.Disqualified:
		res.Winner = model.WinnerA
	default:
		res.Delta = sa.Total - sb.Total
		switch {
		case res.Delta > epsilon:
			res.Winner = model.WinnerA
		case res.Delta < -epsilon:
			res.Winner = model.WinnerB
		default:
			res.Winner = model.WinnerTie
		}
	}

	if math.IsNaN(res.Delta) {
		res.Delta = 0
	}
	return res
}
