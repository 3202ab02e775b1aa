package models

// TransferScope names a Workspace application whose data can be handed over
// to another account before a departing account is removed.
type TransferScope string

const (
	TransferScopeDrive        TransferScope = "drive"
	TransferScopeCalendar     TransferScope = "calendar"
	TransferScopeLookerStudio TransferScope = "looker_studio"
)

func (s TransferScope) IsValid() bool {
	switch s {
	case TransferScopeDrive, TransferScopeCalendar, TransferScopeLookerStudio:
		return true
	}

	return false
}

// WorkspaceConfig holds the identity-provider instructions of an offboarding workflow.
type WorkspaceConfig struct {
	DeleteAccount    bool            `json:"delete_account"`
	TransferToEmail  string          `json:"transfer_to_email,omitempty"  validate:"omitempty,email"`
	TransferScopes   []TransferScope `json:"transfer_scopes,omitempty"    validate:"dive,oneof=drive calendar looker_studio"`
	AliasTargetEmail string          `json:"alias_target_email,omitempty" validate:"omitempty,email"`
}

// IsEmpty reports whether the configuration asks for nothing.
func (c *WorkspaceConfig) IsEmpty() bool {
	return c == nil || (!c.DeleteAccount && c.TransferToEmail == "" && c.AliasTargetEmail == "")
}
