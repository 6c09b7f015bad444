package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
	"github.com/justinmcgrath168/saas-dental-platform/internal/store"
)

// Assembler verifies credentials and joins user + organization + tenant +
// granted permissions into a Principal.
type Assembler struct {
	store  store.Datastore
	hasher PasswordHasher
	now    func() time.Time
}

// NewAssembler builds an assembler over the datastore and hashing
// capability.
func NewAssembler(ds store.Datastore, hasher PasswordHasher) *Assembler {
	return &Assembler{store: ds, hasher: hasher, now: time.Now}
}

// Authenticate verifies an email/password pair and assembles the
// Principal. An inactive account is rejected before any token could be
// issued. The last-login stamp is best-effort: a failure to stamp never
// blocks authentication.
func (a *Assembler) Authenticate(ctx context.Context, email, password string) (*Principal, error) {
	user, err := a.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return nil, autherr.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.Password == nil {
		// Identity-provider-only account; no local credential to verify.
		return nil, autherr.ErrInvalidCredentials
	}
	if err := a.hasher.Compare(*user.Password, password); err != nil {
		return nil, autherr.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, autherr.ErrAccountDeactivated
	}

	if err := a.store.UpdateLastLogin(ctx, user.ID, a.now()); err != nil {
		zap.L().Warn("Failed to stamp last login",
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	return buildPrincipal(user), nil
}

// SignInWithProvider assembles a Principal for a user the external
// identity provider has already verified. Only the verified email is
// trusted; unknown emails are rejected rather than provisioned.
func (a *Assembler) SignInWithProvider(ctx context.Context, email, displayName string) (*Principal, error) {
	user, err := a.store.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return nil, autherr.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, autherr.ErrAccountDeactivated
	}

	if err := a.store.UpdateLastLogin(ctx, user.ID, a.now()); err != nil {
		zap.L().Warn("Failed to stamp last login",
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	return buildPrincipal(user), nil
}

// Refresh re-derives the Principal from the datastore. Token renewal must
// go through here rather than copying claims forward, so permission or
// role changes made mid-session take effect within one refresh cycle.
func (a *Assembler) Refresh(ctx context.Context, userID string) (*Principal, error) {
	user, err := a.store.FindUserWithPermissions(ctx, userID)
	if err != nil {
		if errors.Is(err, autherr.ErrNotFound) {
			return nil, autherr.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, autherr.ErrAccountDeactivated
	}
	return buildPrincipal(user), nil
}

func buildPrincipal(user *model.User) *Principal {
	return &Principal{
		UserID:           user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Role:             user.Role,
		OrganizationID:   user.OrganizationID,
		OrganizationName: user.Organization.Name,
		OrganizationType: user.Organization.Type,
		TenantID:         user.Organization.TenantID,
		TenantName:       user.Organization.Tenant.Name,
		TenantSubdomain:  user.Organization.Tenant.Subdomain,
		Permissions:      user.GrantedPermissionCodes(),
	}
}
