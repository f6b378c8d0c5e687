package reward

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedistribute_TwoParticipants(t *testing.T) {
	out := Redistribute(Efforts{{1, 50}, {2, 50}}, 1, 70)

	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].ChildID)
	assert.InDelta(t, 70, out[0].Percent, 1e-9)
	assert.InDelta(t, 30, out[1].Percent, 1e-9)
}

func TestRedistribute_KeepsRatios(t *testing.T) {
	out := Redistribute(Efforts{{1, 20}, {2, 30}, {3, 50}}, 1, 60)

	// The other two held 30:50 and share the remaining 40.
	assert.InDelta(t, 60, out[0].Percent, 1e-9)
	assert.InDelta(t, 15, out[1].Percent, 1e-9)
	assert.InDelta(t, 25, out[2].Percent, 1e-9)
}

func TestRedistribute_OthersAllZero(t *testing.T) {
	out := Redistribute(Efforts{{1, 100}, {2, 0}, {3, 0}}, 1, 40)

	assert.InDelta(t, 40, out[0].Percent, 1e-9)
	assert.InDelta(t, 30, out[1].Percent, 1e-9)
	assert.InDelta(t, 30, out[2].Percent, 1e-9)
}

func TestRedistribute_SingleParticipant(t *testing.T) {
	out := Redistribute(Efforts{{1, 100}}, 1, 70)

	require.Len(t, out, 1)
	assert.Equal(t, 70.0, out[0].Percent)
}

func TestRedistribute_Extremes(t *testing.T) {
	all := Redistribute(Efforts{{1, 50}, {2, 25}, {3, 25}}, 1, 100)
	assert.InDelta(t, 0, all[1].Percent, 1e-9)
	assert.InDelta(t, 0, all[2].Percent, 1e-9)

	none := Redistribute(Efforts{{1, 50}, {2, 25}, {3, 25}}, 1, 0)
	assert.InDelta(t, 0, none[0].Percent, 1e-9)
	assert.InDelta(t, 50, none[1].Percent, 1e-9)
	assert.InDelta(t, 50, none[2].Percent, 1e-9)
}

func TestRedistribute_ClampsWithOthers(t *testing.T) {
	out := Redistribute(Efforts{{1, 50}, {2, 50}}, 1, 130)

	assert.InDelta(t, 100, out[0].Percent, 1e-9)
	assert.InDelta(t, 0, out[1].Percent, 1e-9)
}

func TestRedistribute_DoesNotMutateInput(t *testing.T) {
	in := Efforts{{1, 50}, {2, 50}}
	Redistribute(in, 2, 10)

	assert.Equal(t, Efforts{{1, 50}, {2, 50}}, in)
}

func TestRedistribute_AlwaysTotalsHundred(t *testing.T) {
	starts := []Efforts{
		{{1, 50}, {2, 50}},
		{{1, 33.3}, {2, 33.3}, {3, 33.4}},
		{{1, 10}, {2, 0}, {3, 90}},
		{{1, 0}, {2, 0}, {3, 0}, {4, 0}},
		InitializeEqual([]int64{1, 2, 3, 4, 5, 6, 7}),
	}
	for i, start := range starts {
		for _, id := range start.IDs() {
			for v := 0.0; v <= 100; v += 7.5 {
				out := Redistribute(start, id, v)
				assert.True(t, ValidateTotal(out, 1e-9),
					"case %d: changing %d to %v gave total %v", i, id, v, out.Total())
			}
		}
	}
}

func TestValidateTotal(t *testing.T) {
	assert.True(t, ValidateTotal(Efforts{{1, 50}, {2, 50}}, DefaultTolerance))
	assert.False(t, ValidateTotal(Efforts{{1, 40}, {2, 50}}, DefaultTolerance))
	assert.False(t, ValidateTotal(Efforts{}, DefaultTolerance))
	assert.False(t, ValidateTotal(nil, DefaultTolerance))
	assert.True(t, ValidateTotal(Efforts{{1, 33.33}, {2, 33.33}, {3, 33.33}}, DefaultTolerance))
	assert.False(t, ValidateTotal(Efforts{{1, 33}, {2, 33}, {3, 33}}, DefaultTolerance))
}

func TestInitializeEqual_ExactTotal(t *testing.T) {
	for n := 1; n <= 50; n++ {
		ids := make([]int64, n)
		for i := range ids {
			ids[i] = int64(i + 1)
		}
		t.Run(fmt.Sprintf("n=%d", n), func(t *testing.T) {
			e := InitializeEqual(ids)
			require.Len(t, e, n)
			assert.Equal(t, 100.0, e.Total())
			assert.Equal(t, ids, e.IDs())
		})
	}
}

func TestInitializeEqual_Empty(t *testing.T) {
	assert.Empty(t, InitializeEqual(nil))
}

func TestEffortsGet(t *testing.T) {
	e := Efforts{{1, 60}, {2, 40}}

	v, ok := e.Get(2)
	assert.True(t, ok)
	assert.Equal(t, 40.0, v)

	_, ok = e.Get(3)
	assert.False(t, ok)
}
