package conf

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// regionCodePattern matches eBird region codes such as US, US-NC and US-NC-063.
var regionCodePattern = regexp.MustCompile(`^[A-Z]{2}(-[A-Z0-9]{1,3})*$`)

// ValidationError collects all validation failures in a settings tree.
type ValidationError struct {
	Errors []string
}

func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the settings tree and returns a ValidationError
// listing every problem found.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateFetchSettings(&settings.Fetch); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateScoringSettings(&settings.Scoring); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateServerSettings(&settings.Server); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateFetchSettings(fetch *FetchSettings) error {
	if fetch.Region == "" {
		return errors.New("fetch region must not be empty")
	}
	if !regionCodePattern.MatchString(fetch.Region) {
		return fmt.Errorf("fetch region %q is not a valid region code", fetch.Region)
	}
	for _, code := range fetch.AdjacentRegions {
		if !regionCodePattern.MatchString(code) {
			return fmt.Errorf("adjacent region %q is not a valid region code", code)
		}
	}
	if fetch.Years < 1 {
		return fmt.Errorf("fetch years must be at least 1, got %d", fetch.Years)
	}
	if fetch.SamplesPerYear < 1 {
		return fmt.Errorf("fetch samples per year must be at least 1, got %d", fetch.SamplesPerYear)
	}
	if fetch.RateLimitMS < 0 {
		return fmt.Errorf("fetch rate limit must not be negative, got %d", fetch.RateLimitMS)
	}
	if fetch.TimeoutSeconds < 1 {
		return fmt.Errorf("fetch timeout must be at least 1 second, got %d", fetch.TimeoutSeconds)
	}
	return nil
}

func validateScoringSettings(scoring *ScoringSettings) error {
	if scoring.ObserverWeight < 0 {
		return fmt.Errorf("observer weight must not be negative, got %g", scoring.ObserverWeight)
	}
	if scoring.HabitatWeight < 0 {
		return fmt.Errorf("habitat weight must not be negative, got %g", scoring.HabitatWeight)
	}
	if scoring.ObserverWeight+scoring.HabitatWeight <= 0 {
		return errors.New("observer and habitat weights must not both be zero")
	}
	if scoring.ConfidenceSaturation < 1 {
		return fmt.Errorf("confidence saturation must be at least 1, got %d", scoring.ConfidenceSaturation)
	}
	if scoring.MinEffortMass < 0 {
		return fmt.Errorf("minimum effort mass must not be negative, got %g", scoring.MinEffortMass)
	}
	return nil
}

func validateServerSettings(server *ServerSettings) error {
	if server.Port < 1 || server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", server.Port)
	}
	return nil
}
