package reward

import "math"

// DefaultTolerance is how far an effort total may drift from 100 and still
// be accepted for a joined rating.
const DefaultTolerance = 0.1

// Share is one participant's effort percentage on a joined chore.
type Share struct {
	ChildID int64   `json:"child_id"`
	Percent float64 `json:"percent"`
}

// Efforts is an ordered effort distribution. Order carries no meaning but
// is preserved by every operation in this package.
type Efforts []Share

// Total sums the percentages in order.
func (e Efforts) Total() float64 {
	var sum float64
	for _, s := range e {
		sum += s.Percent
	}
	return sum
}

// Get returns the percentage for childID.
func (e Efforts) Get(childID int64) (float64, bool) {
	for _, s := range e {
		if s.ChildID == childID {
			return s.Percent, true
		}
	}
	return 0, false
}

func (e Efforts) IDs() []int64 {
	ids := make([]int64, 0, len(e))
	for _, s := range e {
		ids = append(ids, s.ChildID)
	}
	return ids
}

// Map indexes the percentages by child id.
func (e Efforts) Map() map[int64]float64 {
	m := make(map[int64]float64, len(e))
	for _, s := range e {
		m[s.ChildID] = s.Percent
	}
	return m
}

// Redistribute sets changedID to newValue and rescales every other share so
// the distribution totals 100 again. Other shares keep their relative ratios;
// if they are all zero the remainder is split equally. With no other
// participants the changed share is simply set. newValue is clamped to
// [0, 100] when there are others to absorb the difference.
func Redistribute(efforts Efforts, changedID int64, newValue float64) Efforts {
	var othersTotal float64
	others := 0
	found := false
	for _, s := range efforts {
		if s.ChildID == changedID {
			found = true
			continue
		}
		othersTotal += s.Percent
		others++
	}

	if others > 0 {
		newValue = math.Max(0, math.Min(100, newValue))
	}
	remaining := 100 - newValue

	out := make(Efforts, 0, len(efforts)+1)
	for _, s := range efforts {
		switch {
		case s.ChildID == changedID:
			s.Percent = newValue
		case othersTotal > 0:
			s.Percent = s.Percent / othersTotal * remaining
		default:
			s.Percent = remaining / float64(others)
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, Share{ChildID: changedID, Percent: newValue})
	}
	return out
}

// ValidateTotal reports whether the distribution totals 100 within tolerance.
// An empty distribution is never valid.
func ValidateTotal(efforts Efforts, tolerance float64) bool {
	if len(efforts) == 0 {
		return false
	}
	return math.Abs(efforts.Total()-100) <= tolerance
}

// InitializeEqual gives every participant the same share. The last share
// absorbs the floating point remainder so Total is exactly 100.
func InitializeEqual(ids []int64) Efforts {
	if len(ids) == 0 {
		return Efforts{}
	}
	share := 100 / float64(len(ids))
	out := make(Efforts, 0, len(ids))
	var sum float64
	for _, id := range ids[:len(ids)-1] {
		out = append(out, Share{ChildID: id, Percent: share})
		sum += share
	}
	return append(out, Share{ChildID: ids[len(ids)-1], Percent: 100 - sum})
}
