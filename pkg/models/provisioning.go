package models

import "time"

// App is a SaaS application employees can be provisioned into.
type App struct {
	ID          string    `json:"id"          validate:"required"`
	Name        string    `json:"name"        validate:"required"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProvisioningRule grants an app to every employee whose profile matches Condition.
// Condition maps a profile field or custom attribute to the expected value.
type ProvisioningRule struct {
	ID        string         `json:"id"`
	AppID     string         `json:"app_id"    validate:"required"`
	Condition map[string]any `json:"condition"`
	IsActive  bool           `json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
