package models

// Automation handler references bound to AUTOMATED tasks.
const (
	HandlerCreateAccount     = "workspace.create_account"
	HandlerSuspendAccount    = "workspace.suspend_account"
	HandlerSignOutDevices    = "workspace.sign_out_devices"
	HandlerDeleteAccount     = "workspace.delete_account"
	HandlerTransferOwnership = "workspace.transfer_ownership"
	HandlerCreateAlias       = "workspace.create_alias"
	HandlerProvisionApp      = "apps.provision"
	HandlerRevokeAllApps     = "apps.revoke_all"
)

// accountSteps ranks the handlers that act on the departing account itself.
// Data leaves the account before it is deleted, and the alias can only claim
// the address once the account is gone.
var accountSteps = map[string]int{
	HandlerTransferOwnership: 1,
	HandlerDeleteAccount:     2,
	HandlerCreateAlias:       3,
}

// Task parameter keys.
const (
	ParamToEmail = "to_email"
	ParamScopes  = "scopes"
	ParamAppID   = "app_id"
	ParamAppName = "app_name"
)
