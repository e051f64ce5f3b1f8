package project

import (
	"errors"
	"os"

	"github.com/piwi3910/LaserCost/internal/model"
)

// ErrUnnamedMachine is returned when an imported machine profile has no name.
var ErrUnnamedMachine = errors.New("machine profile has no name")

// SaveMachine writes a single machine profile to path (for sharing).
func SaveMachine(path string, m model.MachineProfile) error {
	return writeJSON(path, m)
}

// LoadMachine reads a machine profile from path.
// If the file does not exist, it returns DefaultMachineProfile with no error.
func LoadMachine(path string) (model.MachineProfile, error) {
	var m model.MachineProfile
	if err := readJSON(path, &m); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.DefaultMachineProfile(), nil
		}
		return model.MachineProfile{}, err
	}
	return m, nil
}

// ImportMachine reads a machine profile that must exist and carry a name.
func ImportMachine(path string) (model.MachineProfile, error) {
	var m model.MachineProfile
	if err := readJSON(path, &m); err != nil {
		return model.MachineProfile{}, err
	}
	if m.Name == "" {
		return model.MachineProfile{}, ErrUnnamedMachine
	}
	return m, nil
}

// SaveMachines saves a list of machine profiles to a JSON file.
func SaveMachines(path string, machines []model.MachineProfile) error {
	return writeJSON(path, machines)
}

// LoadMachines loads machine profiles from a JSON file.
// Returns an empty slice if the file does not exist.
func LoadMachines(path string) ([]model.MachineProfile, error) {
	var machines []model.MachineProfile
	if err := readJSON(path, &machines); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.MachineProfile{}, nil
		}
		return nil, err
	}
	if machines == nil {
		machines = []model.MachineProfile{}
	}
	return machines, nil
}

// FindMachine returns the profile with the given name, if any.
func FindMachine(machines []model.MachineProfile, name string) (model.MachineProfile, bool) {
	for _, m := range machines {
		if m.Name == name {
			return m, true
		}
	}
	return model.MachineProfile{}, false
}
