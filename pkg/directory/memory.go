package directory

import (
	"context"
	"fmt"
	"maps"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/protocol"
)

// MemoryDirectory keeps employees in memory. It backs local runs, where the
// roster is seeded from a YAML file, and tests.
type MemoryDirectory struct {
	mu        sync.RWMutex
	employees map[string]*models.EmployeeProfile
	statuses  map[string]models.LifecycleStatus
}

func NewMemoryDirectory(profiles ...*models.EmployeeProfile) *MemoryDirectory {
	d := &MemoryDirectory{
		employees: make(map[string]*models.EmployeeProfile, len(profiles)),
		statuses:  make(map[string]models.LifecycleStatus, len(profiles)),
	}

	for _, profile := range profiles {
		d.Put(profile)
	}

	return d
}

type rosterFile struct {
	Employees []*models.EmployeeProfile `yaml:"employees"`
}

// LoadYAML builds a directory from a file of the form
//
//	employees:
//	  - id: emp-1
//	    email: ada@example.com
//	    department: Engineering
func LoadYAML(path string) (*MemoryDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read employee roster %s: %w", path, err)
	}

	var roster rosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse employee roster %s: %w", path, err)
	}

	for i, profile := range roster.Employees {
		if profile == nil || profile.ID == "" {
			return nil, fmt.Errorf("employee roster %s: entry %d has no id", path, i)
		}
	}

	return NewMemoryDirectory(roster.Employees...), nil
}

// Put adds or replaces an employee. New employees start out ACTIVE.
func (d *MemoryDirectory) Put(profile *models.EmployeeProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()

	copied := *profile
	copied.Meta = maps.Clone(profile.Meta)
	d.employees[profile.ID] = &copied

	if _, ok := d.statuses[profile.ID]; !ok {
		d.statuses[profile.ID] = models.LifecycleStatusActive
	}
}

func (d *MemoryDirectory) GetProfile(_ context.Context, employeeID string) (*models.EmployeeProfile, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	profile, ok := d.employees[employeeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", protocol.ErrEmployeeNotFound, employeeID)
	}

	copied := *profile
	copied.Meta = maps.Clone(profile.Meta)

	return &copied, nil
}

func (d *MemoryDirectory) SetLifecycleStatus(_ context.Context, employeeID string, status models.LifecycleStatus) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.employees[employeeID]; !ok {
		return fmt.Errorf("%w: %s", protocol.ErrEmployeeNotFound, employeeID)
	}

	d.statuses[employeeID] = status

	return nil
}

// LifecycleStatus returns the status last recorded for the employee.
func (d *MemoryDirectory) LifecycleStatus(employeeID string) (models.LifecycleStatus, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status, ok := d.statuses[employeeID]

	return status, ok
}
