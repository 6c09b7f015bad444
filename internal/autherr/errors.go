// Package autherr defines the error taxonomy for the authorization core.
// Every sentinel here is decided before any business mutation begins, so
// callers can map them to redirects or HTTP statuses without worrying about
// partial state. Datastore failures are wrapped separately and never folded
// into these sentinels.
package autherr

import "errors"

var (
	// ErrTenantNotFound signals an unresolvable subdomain. Recovered by
	// redirecting to the root context, never surfaced to the end user.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrAccountDeactivated signals authentication on an inactive user.
	// Blocks token issuance.
	ErrAccountDeactivated = errors.New("account is deactivated")

	// ErrInvalidCredentials signals a failed email/password verification.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrPermissionDenied signals a failed authorization check for an
	// otherwise valid principal.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInsufficientPrivilege signals a role assignment that would
	// escalate beyond the acting user's own privilege.
	ErrInsufficientPrivilege = errors.New("cannot assign a role with higher privileges than your own")

	// ErrCrossTenantMismatch signals a principal whose tenant does not
	// match the resolved request tenant.
	ErrCrossTenantMismatch = errors.New("session is not valid for this tenant")

	// ErrSubscriptionInactive signals a tenant with no active, unexpired
	// subscription.
	ErrSubscriptionInactive = errors.New("tenant subscription is inactive")

	// ErrDuplicateResource signals an email or subdomain already in use.
	ErrDuplicateResource = errors.New("resource already exists")

	// ErrNotFound signals a missing record referenced by an otherwise
	// valid request.
	ErrNotFound = errors.New("record not found")
)
