// Package roster reads employee rosters from YAML files.
package roster

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/UnknownOlympus/mnemosyne/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrEmptyRoster is returned when a roster file lists no employees.
var ErrEmptyRoster = errors.New("roster has no employees")

// Entry is a single roster line as written in the file.
type Entry struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
}

type file struct {
	Employees []Entry `yaml:"employees"`
}

// Load reads the roster at path and returns its employees as unsaved models.
// Surrounding whitespace is trimmed from every field.
func Load(path string) ([]models.Employee, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	return Parse(data)
}

// Parse decodes roster YAML.
func Parse(data []byte) ([]models.Employee, error) {
	var roster file
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to decode roster: %w", err)
	}

	if len(roster.Employees) == 0 {
		return nil, ErrEmptyRoster
	}

	employees := make([]models.Employee, 0, len(roster.Employees))
	for i, entry := range roster.Employees {
		employee := models.NewEmployee(
			strings.TrimSpace(entry.FirstName),
			strings.TrimSpace(entry.LastName),
			strings.TrimSpace(entry.Email),
		)
		if employee.FirstName == "" || employee.LastName == "" {
			return nil, fmt.Errorf("roster entry %d: first and last name are required", i+1)
		}
		employees = append(employees, employee)
	}

	return employees, nil
}
