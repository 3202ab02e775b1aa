package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/hrdash/lifecycle/pkg/models"
	"github.com/hrdash/lifecycle/pkg/protocol"
)

// BreakerConfig tunes the circuit breakers placed in front of external systems.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open.
	MaxRequests uint32
	// Interval after which closed-state counts are cleared.
	Interval time.Duration
	// Timeout before an open breaker turns half-open.
	Timeout time.Duration
	// ConsecutiveFailures that trip the breaker.
	ConsecutiveFailures uint32
}

// DefaultBreakerConfig returns the settings used by the binaries.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

func guarded(cb *gobreaker.CircuitBreaker, call func() error) error {
	_, err := cb.Execute(func() (interface{}, error) {
		return nil, call()
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %s is failing, try again later", ErrUnavailable, cb.Name())
	}

	return err
}

type breakerIdentityProvider struct {
	next protocol.IdentityProvider
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerIdentityProvider wraps an IdentityProvider with a circuit breaker.
func NewBreakerIdentityProvider(next protocol.IdentityProvider, cfg BreakerConfig) protocol.IdentityProvider {
	return &breakerIdentityProvider{next: next, cb: newBreaker("identity-provider", cfg)}
}

func (b *breakerIdentityProvider) CreateAccount(ctx context.Context, profile *models.EmployeeProfile) error {
	return guarded(b.cb, func() error { return b.next.CreateAccount(ctx, profile) })
}

func (b *breakerIdentityProvider) SuspendAccount(ctx context.Context, email string) error {
	return guarded(b.cb, func() error { return b.next.SuspendAccount(ctx, email) })
}

func (b *breakerIdentityProvider) SignOut(ctx context.Context, email string) error {
	return guarded(b.cb, func() error { return b.next.SignOut(ctx, email) })
}

func (b *breakerIdentityProvider) DeleteAccount(ctx context.Context, email string) error {
	return guarded(b.cb, func() error { return b.next.DeleteAccount(ctx, email) })
}

func (b *breakerIdentityProvider) TransferOwnership(ctx context.Context, fromEmail, toEmail string, scopes []models.TransferScope) error {
	return guarded(b.cb, func() error { return b.next.TransferOwnership(ctx, fromEmail, toEmail, scopes) })
}

func (b *breakerIdentityProvider) CreateAlias(ctx context.Context, fromEmail, toEmail string) error {
	return guarded(b.cb, func() error { return b.next.CreateAlias(ctx, fromEmail, toEmail) })
}

type breakerAppProvisioner struct {
	next protocol.AppProvisioner
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerAppProvisioner wraps an AppProvisioner with a circuit breaker.
func NewBreakerAppProvisioner(next protocol.AppProvisioner, cfg BreakerConfig) protocol.AppProvisioner {
	return &breakerAppProvisioner{next: next, cb: newBreaker("app-provisioner", cfg)}
}

func (b *breakerAppProvisioner) ProvisionAccess(ctx context.Context, appID string, profile *models.EmployeeProfile) error {
	return guarded(b.cb, func() error { return b.next.ProvisionAccess(ctx, appID, profile) })
}

func (b *breakerAppProvisioner) RevokeAll(ctx context.Context, email string) error {
	return guarded(b.cb, func() error { return b.next.RevokeAll(ctx, email) })
}
