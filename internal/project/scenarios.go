package project

import (
	"errors"
	"fmt"
	"os"

	"github.com/piwi3910/LaserCost/internal/costing"
)

// SaveScenarios writes a list of what-if scenarios to a JSON file.
func SaveScenarios(path string, scenarios []costing.Scenario) error {
	return writeJSON(path, scenarios)
}

// LoadScenarios reads what-if scenarios from a JSON file.
// If the file does not exist, returns an empty list.
func LoadScenarios(path string) ([]costing.Scenario, error) {
	var scenarios []costing.Scenario
	if err := readJSON(path, &scenarios); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []costing.Scenario{}, nil
		}
		return nil, err
	}
	for i, s := range scenarios {
		if s.Allocation == "" {
			continue
		}
		if err := s.Allocation.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i, err)
		}
	}
	if scenarios == nil {
		scenarios = []costing.Scenario{}
	}
	return scenarios, nil
}
