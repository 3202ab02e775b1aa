// Package workspace connects the engine to the Workspace admin bridge, the
// service that performs account and application changes on our behalf.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/hrdash/lifecycle/pkg/httpclient"
	"github.com/hrdash/lifecycle/pkg/models"
)

// OAuth2Config holds the client credentials the bridge is called with.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

func (c OAuth2Config) IsZero() bool {
	return c.TokenURL == "" && c.ClientID == "" && c.ClientSecret == ""
}

// HTTPClient returns a client that attaches and refreshes access tokens
// obtained with the client credentials grant.
func (c OAuth2Config) HTTPClient(ctx context.Context) *http.Client {
	cfg := &clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}

	return cfg.Client(ctx)
}

// Bridge implements protocol.IdentityProvider and protocol.AppProvisioner on
// top of the bridge's REST API. Every call is idempotent: re-creating an
// existing account or removing a missing one counts as success.
type Bridge struct {
	client *httpclient.Client
	logger *slog.Logger
}

func NewBridge(client *httpclient.Client, logger *slog.Logger) *Bridge {
	return &Bridge{
		client: client,
		logger: logger.With("module", "workspace_bridge"),
	}
}

type accountRequest struct {
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Department   string `json:"department,omitempty"`
	JobTitle     string `json:"job_title,omitempty"`
	ManagerEmail string `json:"manager_email,omitempty"`
}

func newAccountRequest(profile *models.EmployeeProfile) accountRequest {
	return accountRequest{
		Email:        profile.Email,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		Department:   profile.Department,
		JobTitle:     profile.JobTitle,
		ManagerEmail: profile.ManagerEmail,
	}
}

func (b *Bridge) CreateAccount(ctx context.Context, profile *models.EmployeeProfile) error {
	err := b.client.Do(ctx, http.MethodPost, "/users", newAccountRequest(profile), nil)
	if httpclient.IsStatus(err, http.StatusConflict) {
		b.logger.InfoContext(ctx, "account already exists", "email", profile.Email)

		return nil
	}

	return b.wrap("create account", profile.Email, err)
}

func (b *Bridge) SuspendAccount(ctx context.Context, email string) error {
	return b.wrap("suspend account", email, b.client.Do(ctx, http.MethodPost, userPath(email, "suspend"), nil, nil))
}

func (b *Bridge) SignOut(ctx context.Context, email string) error {
	return b.wrap("sign out", email, b.client.Do(ctx, http.MethodPost, userPath(email, "sign-out"), nil, nil))
}

func (b *Bridge) DeleteAccount(ctx context.Context, email string) error {
	err := b.client.Do(ctx, http.MethodDelete, userPath(email, ""), nil, nil)
	if httpclient.IsStatus(err, http.StatusNotFound) {
		b.logger.InfoContext(ctx, "account already deleted", "email", email)

		return nil
	}

	return b.wrap("delete account", email, err)
}

type transferRequest struct {
	ToEmail string                 `json:"to_email"`
	Scopes  []models.TransferScope `json:"scopes"`
}

func (b *Bridge) TransferOwnership(ctx context.Context, fromEmail, toEmail string, scopes []models.TransferScope) error {
	err := b.client.Do(ctx, http.MethodPost, userPath(fromEmail, "transfers"),
		transferRequest{ToEmail: toEmail, Scopes: scopes}, nil)

	return b.wrap("transfer data", fromEmail, err)
}

type aliasRequest struct {
	Alias string `json:"alias"`
}

func (b *Bridge) CreateAlias(ctx context.Context, fromEmail, toEmail string) error {
	err := b.client.Do(ctx, http.MethodPost, userPath(toEmail, "aliases"), aliasRequest{Alias: fromEmail}, nil)
	if httpclient.IsStatus(err, http.StatusConflict) {
		return nil
	}

	return b.wrap("create alias", fromEmail, err)
}

func (b *Bridge) ProvisionAccess(ctx context.Context, appID string, profile *models.EmployeeProfile) error {
	path := "/apps/" + url.PathEscape(appID) + "/grants"

	err := b.client.Do(ctx, http.MethodPost, path, newAccountRequest(profile), nil)
	if httpclient.IsStatus(err, http.StatusConflict) {
		return nil
	}

	return b.wrap("grant "+appID, profile.Email, err)
}

func (b *Bridge) RevokeAll(ctx context.Context, email string) error {
	return b.wrap("revoke applications", email, b.client.Do(ctx, http.MethodDelete, userPath(email, "grants"), nil, nil))
}

func (b *Bridge) wrap(action, email string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s for %s: %w", action, email, err)
}

func userPath(email, action string) string {
	path := "/users/" + url.PathEscape(email)
	if action != "" {
		path += "/" + action
	}

	return path
}
