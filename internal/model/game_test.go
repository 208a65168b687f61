package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompletionOf_FullDetail(t *testing.T) {
	g := Game{
		Detail: AchievementDetail{
			Kind: DetailFull,
			Achievements: []Achievement{
				{APIName: "ACH_1", Achieved: true},
				{APIName: "ACH_2", Achieved: false},
				{APIName: "ACH_3", Achieved: true},
			},
		},
	}

	c := CompletionOf(g)
	assert.Equal(t, 3, c.Total)
	assert.Equal(t, 2, c.Achieved)
	assert.Empty(t, c.Error)
}

func TestCompletionOf_LegacyStats(t *testing.T) {
	g := Game{
		Detail: AchievementDetail{
			Kind:   DetailLegacy,
			Legacy: &LegacyStats{Achieved: 7, Total: 12},
		},
	}

	c := CompletionOf(g)
	assert.Equal(t, 12, c.Total)
	assert.Equal(t, 7, c.Achieved)
	assert.Empty(t, c.Error)
}

func TestCompletionOf_FullTakesPrecedenceOverLegacy(t *testing.T) {
	// Progressive enrichment: a record can carry stale legacy counters next
	// to a freshly fetched list; the list wins.
	g := Game{
		Detail: AchievementDetail{
			Kind:         DetailFull,
			Legacy:       &LegacyStats{Achieved: 99, Total: 99},
			Achievements: []Achievement{{APIName: "ACH_1", Achieved: true}},
		},
	}

	c := CompletionOf(g)
	assert.Equal(t, 1, c.Total)
	assert.Equal(t, 1, c.Achieved)
}

func TestCompletionOf_ErrorMarker(t *testing.T) {
	g := Game{
		Detail: AchievementDetail{Kind: DetailFailed, Error: "Stats inaccessible"},
	}

	c := CompletionOf(g)
	assert.Equal(t, 0, c.Total)
	assert.Equal(t, 0, c.Achieved)
	assert.Equal(t, "Stats inaccessible", c.Error)
}

func TestCompletionOf_Absent(t *testing.T) {
	c := CompletionOf(Game{})
	assert.Equal(t, Completion{}, c)
}

func TestCompletionOf_AchievedNeverExceedsTotal(t *testing.T) {
	games := []Game{
		{},
		{Detail: AchievementDetail{Kind: DetailLegacy, Legacy: &LegacyStats{Achieved: 3, Total: 10}}},
		{Detail: AchievementDetail{Kind: DetailFailed, Error: "nope"}},
		{Detail: AchievementDetail{Kind: DetailFull, Achievements: []Achievement{
			{Achieved: true}, {Achieved: true}, {Achieved: false},
		}}},
		{Detail: AchievementDetail{Kind: DetailLegacy}},
	}

	for _, g := range games {
		c := CompletionOf(g)
		assert.LessOrEqual(t, c.Achieved, c.Total)
	}
}
