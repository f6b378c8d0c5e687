package reward

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEarnedReward_NonJoined(t *testing.T) {
	tests := []struct {
		quality Quality
		want    int64
	}{
		{Good, 1000},
		{Bad, 500},
		{Excellent, 1250},
		{Failed, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.quality), func(t *testing.T) {
			assert.Equal(t, tt.want, EarnedReward(1000, 100, tt.quality, false))
		})
	}
}

func TestEarnedReward_NonJoinedIgnoresEffort(t *testing.T) {
	// Every participant of a non-joined chore earns the full pool.
	assert.Equal(t, int64(1000), EarnedReward(1000, 25, Good, false))
}

func TestEarnedReward_Joined(t *testing.T) {
	assert.Equal(t, int64(500), EarnedReward(1000, 50, Good, true))
	assert.Equal(t, int64(625), EarnedReward(1000, 50, Excellent, true))
	assert.Equal(t, int64(250), EarnedReward(1000, 50, Bad, true))
	assert.Equal(t, int64(0), EarnedReward(1000, 50, Failed, true))
}

func TestEarnedReward_RoundsHalfUp(t *testing.T) {
	// 333 * 0.5 = 166.5
	assert.Equal(t, int64(167), EarnedReward(333, 100, Bad, false))
	// 1000 * 33.333...% = 333.33 -> 333
	assert.Equal(t, int64(333), EarnedReward(1000, 100.0/3, Good, true))
	// 999 * 12.5% * 1.25 = 156.09375 -> 156
	assert.Equal(t, int64(156), EarnedReward(999, 12.5, Excellent, true))
}

func TestEarnedReward_ExcellentCanExceedPool(t *testing.T) {
	a := EarnedReward(1000, 50, Excellent, true)
	b := EarnedReward(1000, 50, Excellent, true)
	assert.Equal(t, int64(1250), a+b, "two excellent ratings pay 125% of the pool")
}

func TestEarnedReward_EffortAboveHundred(t *testing.T) {
	assert.Equal(t, int64(1500), EarnedReward(1000, 150, Good, true))
}

func TestBaseReward(t *testing.T) {
	custom := 150.0

	assert.True(t, BaseReward(1000, 3, false, nil).Equal(decimal.NewFromInt(1000)), "non-joined pays the full pool")
	assert.True(t, BaseReward(1000, 2, true, nil).Equal(decimal.NewFromInt(500)))
	assert.Equal(t, int64(333), DisplayedReward(BaseReward(1000, 3, true, nil), Good))
	assert.True(t, BaseReward(1000, 2, true, &custom).Equal(decimal.NewFromInt(1500)))
	assert.True(t, BaseReward(1000, 0, true, nil).IsZero(), "no participants means no share")
}

func TestDisplayedReward(t *testing.T) {
	base := decimal.NewFromInt(333)

	assert.Equal(t, int64(0), DisplayedReward(base, Failed))
	assert.Equal(t, int64(167), DisplayedReward(base, Bad))
	assert.Equal(t, int64(333), DisplayedReward(base, Good))
	assert.Equal(t, int64(416), DisplayedReward(base, Excellent)) // 416.25
}

func TestDisplayedRewardMatchesEarned(t *testing.T) {
	for _, effort := range []float64{10, 25, 33.3, 50, 66.7, 120} {
		for _, q := range Qualities {
			base := BaseReward(777, 2, true, &effort)
			assert.Equal(t, EarnedReward(777, effort, q, true), DisplayedReward(base, q),
				"effort=%v quality=%s", effort, q)
		}
	}
}

func TestPreview(t *testing.T) {
	rows := Preview(1000, Efforts{{ChildID: 1, Percent: 60}, {ChildID: 2, Percent: 40}}, true)
	require.Len(t, rows, 2)

	assert.Equal(t, int64(1), rows[0].ChildID)
	assert.Equal(t, int64(600), rows[0].Base)
	assert.Equal(t, int64(750), rows[0].ByQuality[Excellent])
	assert.Equal(t, int64(200), rows[1].ByQuality[Bad])
	assert.Equal(t, int64(0), rows[1].ByQuality[Failed])
}

func TestPreview_NonJoined(t *testing.T) {
	rows := Preview(400, InitializeEqual([]int64{1, 2}), false)
	require.Len(t, rows, 2)

	for _, row := range rows {
		assert.Equal(t, 100.0, row.EffortPercent)
		assert.Equal(t, int64(400), row.Base)
		assert.Equal(t, int64(500), row.ByQuality[Excellent])
	}
}

func TestParseQuality(t *testing.T) {
	q, err := ParseQuality(" Excellent ")
	require.NoError(t, err)
	assert.Equal(t, Excellent, q)

	_, err = ParseQuality("perfect")
	assert.Error(t, err)
	assert.True(t, Coefficient("perfect").IsZero())
}
