package conf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Fetch: FetchSettings{
			Region:          "US-NC-063",
			AdjacentRegions: []string{"US-NC-135", "US-NC-183"},
			Years:           5,
			SamplesPerYear:  12,
			RateLimitMS:     500,
			TimeoutSeconds:  30,
		},
		Scoring: ScoringSettings{
			ObserverWeight:       0.7,
			HabitatWeight:        0.3,
			ConfidenceSaturation: 25,
		},
		Server: ServerSettings{Port: 8000},
	}
}

func TestValidateSettings_Valid(t *testing.T) {
	require.NoError(t, ValidateSettings(validSettings()))
}

func TestValidateSettings_RegionCodes(t *testing.T) {
	tests := []struct {
		name    string
		region  string
		wantErr bool
	}{
		{"county code", "US-NC-063", false},
		{"state code", "US-NC", false},
		{"country code", "US", false},
		{"empty", "", true},
		{"lowercase", "us-nc-063", true},
		{"garbage", "durham", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			s.Fetch.Region = tt.region
			err := ValidateSettings(s)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateSettings_BadAdjacentRegion(t *testing.T) {
	s := validSettings()
	s.Fetch.AdjacentRegions = []string{"US-NC-135", "orange county"}
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettings_ScoringWeights(t *testing.T) {
	s := validSettings()
	s.Scoring.ObserverWeight = 0
	s.Scoring.HabitatWeight = 0
	err := ValidateSettings(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights")

	s = validSettings()
	s.Scoring.ObserverWeight = -0.5
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettings_ServerPort(t *testing.T) {
	s := validSettings()
	s.Server.Port = 0
	assert.Error(t, ValidateSettings(s))

	s.Server.Port = 70000
	assert.Error(t, ValidateSettings(s))
}

func TestValidateSettings_CollectsAllErrors(t *testing.T) {
	s := validSettings()
	s.Fetch.Region = ""
	s.Server.Port = 0

	err := ValidateSettings(s)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
}

func TestScoringConfigMapping(t *testing.T) {
	s := validSettings()
	s.Scoring.MinAdjacentRegions = 4
	s.Scoring.MinAdjacentObservations = 30
	s.Scoring.MinEffortMass = 0.05
	s.Scoring.Effort = EffortSignalSettings{ChecklistWeight: 0.6, DurationWeight: 0.2, DistanceWeight: 0.2}
	s.Scoring.ExcludedSpecies = []string{"lotduc"}

	cfg := s.ScoringConfig()
	assert.InDelta(t, 0.7, cfg.ObserverWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.HabitatWeight, 1e-9)
	assert.Equal(t, 4, cfg.MinAdjacentRegions)
	assert.Equal(t, 30, cfg.MinAdjacentObservations)
	assert.Equal(t, 25, cfg.ConfidenceSaturationCount)
	assert.InDelta(t, 0.05, cfg.MinEffortMass, 1e-9)
	assert.InDelta(t, 0.6, cfg.ChecklistSignalWeight, 1e-9)
	assert.Equal(t, []string{"lotduc"}, cfg.ExcludedSpecies)

	// The mapping copies the denylist; mutating settings afterwards must
	// not reach the engine config.
	s.Scoring.ExcludedSpecies[0] = "changed"
	assert.Equal(t, []string{"lotduc"}, cfg.ExcludedSpecies)
}
