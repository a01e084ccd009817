package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestMonths(t *testing.T) {
	tests := []struct {
		name        string
		tags        []string
		wantMonths  []int
		wantUnknown []string
	}{
		{
			name:       "winter plus migration union",
			tags:       []string{TagWinter, TagMigration},
			wantMonths: []int{1, 2, 3, 4, 5, 9, 10, 11, 12},
		},
		{
			name:       "breeding",
			tags:       []string{TagBreeding},
			wantMonths: []int{4, 5, 6, 7},
		},
		{
			name:       "no tags defaults to year-round",
			tags:       nil,
			wantMonths: allMonths,
		},
		{
			name:       "year-round tag",
			tags:       []string{TagYearRound},
			wantMonths: allMonths,
		},
		{
			name:        "unknown tag alone falls back to year-round",
			tags:        []string{"monsoon"},
			wantMonths:  allMonths,
			wantUnknown: []string{"monsoon"},
		},
		{
			name:        "unknown tag alongside recognized one",
			tags:        []string{"monsoon", TagWinter},
			wantMonths:  []int{1, 2, 12},
			wantUnknown: []string{"monsoon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			months, unknown := BestMonths(tt.tags)
			assert.Equal(t, tt.wantMonths, months)
			assert.Equal(t, tt.wantUnknown, unknown)
			require.NotEmpty(t, months, "best months must never be empty")
		})
	}
}

func TestFilterByMonth(t *testing.T) {
	scores := []SpeciesScore{
		{SpeciesCode: "a", BestMonths: []int{1, 2, 3}},
		{SpeciesCode: "b", BestMonths: allMonths},
		{SpeciesCode: "c", BestMonths: []int{6, 7}},
		{SpeciesCode: "d", BestMonths: []int{3}},
	}

	march := FilterByMonth(scores, 3)
	require.Len(t, march, 3)
	// Stable filter: original relative order preserved, no re-rank.
	assert.Equal(t, "a", march[0].SpeciesCode)
	assert.Equal(t, "b", march[1].SpeciesCode)
	assert.Equal(t, "d", march[2].SpeciesCode)

	july := FilterByMonth(scores, 7)
	require.Len(t, july, 2)
	assert.Equal(t, "b", july[0].SpeciesCode)
	assert.Equal(t, "c", july[1].SpeciesCode)

	assert.Len(t, FilterByMonth(scores, 0), len(scores), "out-of-range month filters nothing")
	assert.Len(t, FilterByMonth(scores, 13), len(scores))
}
