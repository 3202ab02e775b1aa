package models

import "time"

// LifecycleStatus is the employee-record status the engine keeps in sync
// with the workflows it runs.
type LifecycleStatus string

const (
	LifecycleStatusActive      LifecycleStatus = "ACTIVE"
	LifecycleStatusOnboarding  LifecycleStatus = "ONBOARDING"
	LifecycleStatusOffboarding LifecycleStatus = "OFFBOARDING"
	LifecycleStatusOffboarded  LifecycleStatus = "OFFBOARDED"
)

// LifecycleStatusFor returns the employee status that a running workflow of the given kind implies.
func LifecycleStatusFor(kind WorkflowKind) LifecycleStatus {
	if kind == WorkflowKindOffboarding {
		return LifecycleStatusOffboarding
	}

	return LifecycleStatusOnboarding
}

// LifecycleStatusAfter returns the employee status once a workflow of the given kind has completed.
func LifecycleStatusAfter(kind WorkflowKind) LifecycleStatus {
	if kind == WorkflowKindOffboarding {
		return LifecycleStatusOffboarded
	}

	return LifecycleStatusActive
}

// EmployeeProfile is the snapshot of an employee record used for rule matching
// and automation. Meta carries custom attributes defined by the organisation.
type EmployeeProfile struct {
	ID             string         `json:"id"               yaml:"id"`
	Email          string         `json:"email"            yaml:"email"`
	FirstName      string         `json:"first_name"       yaml:"first_name"`
	LastName       string         `json:"last_name"        yaml:"last_name"`
	Department     string         `json:"department"       yaml:"department"`
	JobTitle       string         `json:"job_title"        yaml:"job_title"`
	Location       string         `json:"location"         yaml:"location"`
	EmploymentType string         `json:"employment_type"  yaml:"employment_type"`
	ManagerEmail   string         `json:"manager_email"    yaml:"manager_email"`
	StartDate      *time.Time     `json:"start_date"       yaml:"start_date"`
	Meta           map[string]any `json:"meta,omitempty"   yaml:"meta"`
}

// Field returns the value of a direct profile field by its JSON name. Known
// string fields are present even when empty; only an unset start date and
// unknown names are absent.
func (p *EmployeeProfile) Field(key string) (any, bool) {
	var value string

	switch key {
	case "id":
		value = p.ID
	case "email":
		value = p.Email
	case "first_name":
		value = p.FirstName
	case "last_name":
		value = p.LastName
	case "department":
		value = p.Department
	case "job_title":
		value = p.JobTitle
	case "location":
		value = p.Location
	case "employment_type":
		value = p.EmploymentType
	case "manager_email":
		value = p.ManagerEmail
	case "start_date":
		if p.StartDate == nil {
			return nil, false
		}

		return p.StartDate.Format(time.DateOnly), true
	default:
		return nil, false
	}

	return value, true
}

// Lookup resolves a condition key against the direct fields first and the
// custom attributes second.
func (p *EmployeeProfile) Lookup(key string) (any, bool) {
	if v, ok := p.Field(key); ok {
		return v, true
	}

	v, ok := p.Meta[key]
	if !ok || v == nil {
		return nil, false
	}

	return v, true
}

// FullName joins first and last name.
func (p *EmployeeProfile) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	default:
		return p.FirstName + " " + p.LastName
	}
}
