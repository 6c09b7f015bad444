// Package store exposes the Datastore capability the authorization core is
// written against. Components receive a Datastore explicitly at
// construction; nothing in the core reaches for a global connection.
package store

import (
	"context"
	"time"

	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

// UserFilter narrows ListUsers. The zero value matches everything.
type UserFilter struct {
	OrganizationID string
	Role           string
	Search         string
	IsActive       *bool
	Page           int
	Limit          int
}

/// TenantSignup is the input to the atomic signup transaction: tenant,
// initial subscription, default organization with its main location, and
// the tenant-admin user with a seeded permission set.
type TenantSignup struct {
	Name             string
	Subdomain        string
	LogoURL          *string
	PrimaryColor     *string
	OrganizationType model.OrgType
	PlanType         model.PlanType
	AdminName        string
	AdminEmail       string
	// AdminPasswordHash is the already-hashed credential; the store never
	// sees a plaintext password.
	AdminPasswordHash string
	// PermissionCodes seeds the admin's grant set.
	PermissionCodes []string
}

// SignupResult reports the records created by CreateTenantSignup.
type SignupResult struct {
	Tenant       model.Tenant
	Organization model.Organization
	Location     model.Location
	Admin        model.User
}

// SubscriptionInput describes a subscription to activate or record for a
// tenant.
type SubscriptionInput struct {
	TenantID         string
	PlanType         model.PlanType
	StartDate        time.Time
	EndDate          *time.Time
	IsActive         bool
	AutoRenew        bool
	PaymentMethod    *string
	PaymentReference *string
}

// NewUser describes a user to create together with its location and
/// permission associations. Creation is atomic: either the user and all its
// rows exist, or none do.
type NewUser struct {
	Name              string
	Email             string
	PasswordHash      *string
	Role              model.UserRole
	OrganizationID    string
	IsActive          bool
	LocationIDs       []string
	PrimaryLocationID string
	PermissionCodes   []string
}

// UserUpdate carries the mutable user fields; nil means leave unchanged.
type UserUpdate struct {
	Name              *string
	Email             *string
	PasswordHash      *string
	Role              *model.UserRole
	IsActive          *bool
	LocationIDs       []string
	PrimaryLocationID string
	PermissionCodes   []string
	ReplacePerms      bool
}

// Datastore is the persistence capability consumed by the authorization
// core. Implementations must make the documented operations atomic.
type Datastore interface {
	// Tenants
	FindTenantBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error)
	FindTenantByID(ctx context.Context, id string) (*model.Tenant, error)
	ListTenants(ctx context.Context, search string, page, limit int) ([]model.Tenant, int64, error)
	UpdateTenant(ctx context.Context, id string, name *string, logoURL *string, primaryColor *string) (*model.Tenant, error)

	// Signup. Atomic: tenant + subscription + organization + main location
	// + admin user + admin grants commit together or not at all.
	CreateTenantSignup(ctx context.Context, signup TenantSignup) (*SignupResult, error)

	// Subscriptions. ActivateSubscription atomically deactivates (and
	// stamps an end date on) any prior active subscription for the tenant
	// before creating the new row.
	FindActiveSubscription(ctx context.Context, tenantID string) (*model.Subscription, error)
	ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error)
	ActivateSubscription(ctx context.Context, in SubscriptionInput) (*model.Subscription, error)
	CancelSubscription(ctx context.Context, tenantID, subscriptionID string) (*model.Subscription, error)

	// Users
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	FindUserWithPermissions(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]model.User, int64, error)
	CreateUserWithAssociations(ctx context.Context, in NewUser) (*model.User, error)
	UpdateUser(ctx context.Context, id string, update UserUpdate) (*model.User, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// Permissions
	ListPermissionsByCode(ctx context.Context, codes []string) ([]model.Permission, error)
	SeedPermissions(ctx context.Context, catalog map[string]string) error

	// Organizations
	FindOrganizationByID(ctx context.Context, id string) (*model.Organization, error)
	ListOrganizations(ctx context.Context, tenantID string) ([]model.Organization, error)
	CreateOrganization(ctx context.Context, org model.Organization) (*model.Organization, error)
	UpdateOrganization(ctx context.Context, org model.Organization) (*model.Organization, error)

	// Locations
	FindLocationByID(ctx context.Context, id string) (*model.Location, error)
	ListLocations(ctx context.Context, organizationID string) ([]model.Location, error)
	CreateLocation(ctx context.Context, loc model.Location) (*model.Location, error)
	UpdateLocation(ctx context.Context, loc model.Location) (*model.Location, error)
}
