// Package reward computes chore payouts in integer minor currency units.
//
// Non-joined chores pay every participant the full pool. Joined chores split
// the pool by effort percentage. Either way the amount is then scaled by the
// quality coefficient and rounded half-up once. Coefficients are not
// normalised across participants: two excellent ratings on a joined chore
// pay out more than the pool.
package reward

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// BaseReward is the unrounded amount a participant would earn at quality
// good. customEffort overrides the equal share for joined chores and may
// exceed 100.
func BaseReward(total int64, participantCount int, joined bool, customEffort *float64) decimal.Decimal {
	pool := decimal.NewFromInt(total)
	if !joined {
		return pool
	}

	var effort decimal.Decimal
	if customEffort != nil {
		effort = decimal.NewFromFloat(*customEffort)
	} else {
		if participantCount <= 0 {
			return decimal.Zero
		}
		effort = hundred.Div(decimal.NewFromInt(int64(participantCount)))
	}
	return pool.Mul(effort).Div(hundred)
}

// DisplayedReward applies the quality coefficient to base and rounds
// half-up to whole minor units.
func DisplayedReward(base decimal.Decimal, q Quality) int64 {
	return round(base.Mul(Coefficient(q)))
}

// EarnedReward is the amount credited for one participant rating.
func EarnedReward(total int64, effortPercent float64, q Quality, joined bool) int64 {
	amount := decimal.NewFromInt(total)
	if joined {
		amount = amount.Mul(decimal.NewFromFloat(effortPercent)).Div(hundred)
	}
	return round(amount.Mul(Coefficient(q)))
}

// PreviewRow is what the rating controls show for one participant.
type PreviewRow struct {
	ChildID       int64             `json:"child_id"`
	EffortPercent float64           `json:"effort_percent"`
	Base          int64             `json:"base"`
	ByQuality     map[Quality]int64 `json:"by_quality"`
}

// Preview computes the displayed reward of every participant at every
// quality. For non-joined chores efforts only supplies the participant ids.
func Preview(total int64, efforts Efforts, joined bool) []PreviewRow {
	rows := make([]PreviewRow, 0, len(efforts))
	for _, s := range efforts {
		effort := s.Percent
		if !joined {
			effort = 100
		}
		base := BaseReward(total, len(efforts), joined, &effort)
		row := PreviewRow{
			ChildID:       s.ChildID,
			EffortPercent: effort,
			Base:          round(base),
			ByQuality:     make(map[Quality]int64, len(Qualities)),
		}
		for _, q := range Qualities {
			row.ByQuality[q] = DisplayedReward(base, q)
		}
		rows = append(rows, row)
	}
	return rows
}

// round rounds half away from zero, which is half-up for the non-negative
// amounts handled here.
func round(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}
