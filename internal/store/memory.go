package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/justinmcgrath168/saas-dental-platform/internal/autherr"
	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
)

// MemoryStore is an in-memory Datastore used by tests and local tooling.
// A single mutex stands in for the database's transaction boundary, which
// keeps the atomicity guarantees of the interface intact.
type MemoryStore struct {
	mu sync.Mutex

	tenants       map[string]model.Tenant
	subscriptions map[string]model.Subscription
	organizations map[string]model.Organization
	locations     map[string]model.Location
	users         map[string]model.User
	userLocations map[string]model.UserLocation
	userPerms     map[string]model.UserPermission
	permissions   map[string]model.Permission // keyed by code

	// Now is swappable so gate-boundary tests can pin the clock.
	Now func() time.Time
}

// NewMemoryStore returns an empty store seeded with the given permission
// catalog.
func NewMemoryStore(catalog map[string]string) *MemoryStore {
	s := &MemoryStore{
		tenants:       make(map[string]model.Tenant),
		subscriptions: make(map[string]model.Subscription),
		organizations: make(map[string]model.Organization),
		locations:     make(map[string]model.Location),
		users:         make(map[string]model.User),
		userLocations: make(map[string]model.UserLocation),
		userPerms:     make(map[string]model.UserPermission),
		permissions:   make(map[string]model.Permission),
		Now:           time.Now,
	}
	_ = s.SeedPermissions(context.Background(), catalog)
	return s
}

func (s *MemoryStore) FindTenantBySubdomain(ctx context.Context, subdomain string) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub := strings.ToLower(subdomain)
	for _, t := range s.tenants {
		if t.Subdomain == sub {
			out := t
			return &out, nil
		}
	}
	return nil, autherr.ErrNotFound
}

func (s *MemoryStore) FindTenantByID(ctx context.Context, id string) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, autherr.ErrNotFound
	}
	out := t
	return &out, nil
}

func (s *MemoryStore) ListTenants(ctx context.Context, search string, page, limit int) ([]model.Tenant, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.Tenant
	needle := strings.ToLower(search)
	for _, t := range s.tenants {
		if search == "" ||
			strings.Contains(strings.ToLower(t.Name), needle) ||
			strings.Contains(t.Subdomain, needle) {
			all = append(all, t)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.Tenant{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *MemoryStore) UpdateTenant(ctx context.Context, id string, name *string, logoURL *string, primaryColor *string) (*model.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, autherr.ErrNotFound
	}
	if name != nil {
		t.Name = *name
	}
	if logoURL != nil {
		t.LogoURL = logoURL
	}
	if primaryColor != nil {
		t.PrimaryColor = primaryColor
	}
	t.UpdatedAt = s.Now()
	s.tenants[id] = t
	out := t
	return &out, nil
}

func (s *MemoryStore) CreateTenantSignup(ctx context.Context, signup TenantSignup) (*SignupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := strings.ToLower(signup.Subdomain)
	for _, t := range s.tenants {
		if t.Subdomain == sub {
			return nil, autherr.ErrDuplicateResource
		}
	}
	for _, u := range s.users {
		if u.Email == signup.AdminEmail {
			return nil, autherr.ErrDuplicateResource
		}
	}

	now := s.Now()
	tenant := model.Tenant{
		ID:           uuid.New().String(),
		Name:         signup.Name,
		Subdomain:    sub,
		LogoURL:      signup.LogoURL,
		PrimaryColor: signup.PrimaryColor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.tenants[tenant.ID] = tenant

	subsc := model.Subscription{
		ID:        uuid.New().String(),
		TenantID:  tenant.ID,
		PlanType:  signup.PlanType,
		StartDate: now,
		IsActive:  true,
		AutoRenew: signup.PlanType != model.PlanFree,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if signup.PlanType == model.PlanFree {
		end := now.AddDate(0, 0, 30)
		subsc.EndDate = &end
	}
	s.subscriptions[subsc.ID] = subsc

	org := model.Organization{
		ID:        uuid.New().String(),
		TenantID:  tenant.ID,
		Name:      signup.Name,
		Type:      signup.OrganizationType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.organizations[org.ID] = org

	loc := model.Location{
		ID:             uuid.New().String(),
		OrganizationID: org.ID,
		Name:           "Main Office",
		IsMain:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.locations[loc.ID] = loc

	hash := signup.AdminPasswordHash
	admin := model.User{
		ID:             uuid.New().String(),
		Name:           signup.AdminName,
		Email:          signup.AdminEmail,
		Password:       &hash,
		Role:           model.RoleTenantAdmin,
		OrganizationID: org.ID,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.users[admin.ID] = admin

	ul := model.UserLocation{
		ID:         uuid.New().String(),
		UserID:     admin.ID,
		LocationID: loc.ID,
		IsPrimary:  true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.userLocations[ul.ID] = ul

	if err := s.grantLocked(admin.ID, signup.PermissionCodes); err != nil {
		return nil, err
	}

	return &SignupResult{Tenant: tenant, Organization: org, Location: loc, Admin: admin}, nil
}

func (s *MemoryStore) grantLocked(userID string, codes []string) error {
	now := s.Now()
	for _, code := range codes {
		perm, ok := s.permissions[code]
		if !ok {
			return fmt.Errorf("unknown permission code in grant set")
		}
		up := model.UserPermission{
			ID:           uuid.New().String(),
			UserID:       userID,
			PermissionID: perm.ID,
			Granted:      true,
			Permission:   perm,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		s.userPerms[up.ID] = up
	}
	return nil
}

func (s *MemoryStore) FindActiveSubscription(ctx context.Context, tenantID string) (*model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *model.Subscription
	for _, sub := range s.subscriptions {
		if sub.TenantID == tenantID && sub.IsActive {
			if found == nil || sub.StartDate.After(found.StartDate) {
				cp := sub
				found = &cp
			}
		}
	}
	if found == nil {
		return nil, autherr.ErrNotFound
	}
	return found, nil
}

func (s *MemoryStore) ListSubscriptions(ctx context.Context, tenantID string) ([]model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var subs []model.Subscription
	for _, sub := range s.subscriptions {
		if sub.TenantID == tenantID {
			subs = append(subs, sub)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].StartDate.After(subs[j].StartDate) })
	return subs, nil
}

func (s *MemoryStore) ActivateSubscription(ctx context.Context, in SubscriptionInput) (*model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[in.TenantID]; !ok {
		return nil, autherr.ErrNotFound
	}
	now := s.Now()
	if in.IsActive {
		for id, sub := range s.subscriptions {
			if sub.TenantID == in.TenantID && sub.IsActive {
				sub.IsActive = false
				end := in.StartDate
				sub.EndDate = &end
				sub.UpdatedAt = now
				s.subscriptions[id] = sub
			}
		}
	}
	sub := model.Subscription{
		ID:               uuid.New().String(),
		TenantID:         in.TenantID,
		PlanType:         in.PlanType,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		IsActive:         in.IsActive,
		AutoRenew:        in.AutoRenew,
		PaymentMethod:    in.PaymentMethod,
		PaymentReference: in.PaymentReference,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.subscriptions[sub.ID] = sub
	out := sub
	return &out, nil
}

func (s *MemoryStore) CancelSubscription(ctx context.Context, tenantID, subscriptionID string) (*model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[subscriptionID]
	if !ok || sub.TenantID != tenantID {
		return nil, autherr.ErrNotFound
	}
	now := s.Now()
	sub.IsActive = false
	sub.AutoRenew = false
	sub.EndDate = &now
	sub.UpdatedAt = now
	s.subscriptions[subscriptionID] = sub
	out := sub
	return &out, nil
}

func (s *MemoryStore) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Email == email {
			return s.assembleUserLocked(id), nil
		}
	}
	return nil, autherr.ErrNotFound
}

func (s *MemoryStore) FindUserWithPermissions(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return nil, autherr.ErrNotFound
	}
	return s.assembleUserLocked(id), nil
}

// assembleUserLocked mirrors the gorm preloads: organization with tenant,
// location rows with locations, permission rows with permissions.
func (s *MemoryStore) assembleUserLocked(id string) *model.User {
	u := s.users[id]
	if org, ok := s.organizations[u.OrganizationID]; ok {
		if tenant, ok := s.tenants[org.TenantID]; ok {
			org.Tenant = tenant
		}
		u.Organization = org
	}
	for _, ul := range s.userLocations {
		if ul.UserID == id {
			if loc, ok := s.locations[ul.LocationID]; ok {
				ul.Location = loc
			}
			u.Locations = append(u.Locations, ul)
		}
	}
	for _, up := range s.userPerms {
		if up.UserID == id {
			u.Permissions = append(u.Permissions, up)
		}
	}
	sort.Slice(u.Permissions, func(i, j int) bool {
		return u.Permissions[i].Permission.Code < u.Permissions[j].Permission.Code
	})
	return &u
}

func (s *MemoryStore) ListUsers(ctx context.Context, filter UserFilter) ([]model.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []model.User
	needle := strings.ToLower(filter.Search)
	for id, u := range s.users {
		if filter.OrganizationID != "" && u.OrganizationID != filter.OrganizationID {
			continue
		}
		if filter.Role != "" && string(u.Role) != filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" &&
			!strings.Contains(strings.ToLower(u.Name), needle) &&
			!strings.Contains(strings.ToLower(u.Email), needle) {
			continue
		}
		all = append(all, *s.assembleUserLocked(id))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	start := (page - 1) * limit
	if start >= len(all) {
		return []model.User{}, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (s *MemoryStore) CreateUserWithAssociations(ctx context.Context, in NewUser) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == in.Email {
			return nil, autherr.ErrDuplicateResource
		}
	}
	if err := s.checkLocationsLocked(in.OrganizationID, in.LocationIDs); err != nil {
		return nil, err
	}
	for _, code := range in.PermissionCodes {
		if _, ok := s.permissions[code]; !ok {
			return nil, fmt.Errorf("unknown permission code in grant set")
		}
	}

	now := s.Now()
	user := model.User{
		ID:             uuid.New().String(),
		Name:           in.Name,
		Email:          in.Email,
		Password:       in.PasswordHash,
		Role:           in.Role,
		OrganizationID: in.OrganizationID,
		IsActive:       in.IsActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.users[user.ID] = user
	s.setLocationsLocked(user.ID, in.LocationIDs, in.PrimaryLocationID)
	if err := s.grantLocked(user.ID, in.PermissionCodes); err != nil {
		return nil, err
	}
	return s.assembleUserLocked(user.ID), nil
}

func (s *MemoryStore) checkLocationsLocked(organizationID string, locationIDs []string) error {
	for _, id := range locationIDs {
		loc, ok := s.locations[id]
		if !ok || loc.OrganizationID != organizationID {
			return fmt.Errorf("one or more locations don't belong to the organization")
		}
	}
	return nil
}

func (s *MemoryStore) setLocationsLocked(userID string, locationIDs []string, primaryLocationID string) {
	now := s.Now()
	for _, locID := range locationIDs {
		ul := model.UserLocation{
			ID:         uuid.New().String(),
			UserID:     userID,
			LocationID: locID,
			IsPrimary:  locID == primaryLocationID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		s.userLocations[ul.ID] = ul
	}
}

func (s *MemoryStore) UpdateUser(ctx context.Context, id string, update UserUpdate) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, autherr.ErrNotFound
	}
	if update.LocationIDs != nil {
		if err := s.checkLocationsLocked(u.OrganizationID, update.LocationIDs); err != nil {
			return nil, err
		}
	}
	if update.Email != nil && *update.Email != u.Email {
		for uid, other := range s.users {
			if uid != id && other.Email == *update.Email {
				return nil, autherr.ErrDuplicateResource
			}
		}
		u.Email = *update.Email
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.PasswordHash != nil {
		u.Password = update.PasswordHash
	}
	if update.Role != nil {
		u.Role = *update.Role
	}
	if update.IsActive != nil {
		u.IsActive = *update.IsActive
	}
	u.UpdatedAt = s.Now()
	s.users[id] = u

	if update.LocationIDs != nil {
		for ulID, ul := range s.userLocations {
			if ul.UserID == id {
				delete(s.userLocations, ulID)
			}
		}
		s.setLocationsLocked(id, update.LocationIDs, update.PrimaryLocationID)
	}

	if update.ReplacePerms {
		for _, code := range update.PermissionCodes {
			if _, ok := s.permissions[code]; !ok {
				return nil, fmt.Errorf("unknown permission code in grant set")
			}
		}
		for upID, up := range s.userPerms {
			if up.UserID == id {
				delete(s.userPerms, upID)
			}
		}
		if err := s.grantLocked(id, update.PermissionCodes); err != nil {
			return nil, err
		}
	}
	return s.assembleUserLocked(id), nil
}

func (s *MemoryStore) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return autherr.ErrNotFound
	}
	u.LastLogin = &at
	s.users[userID] = u
	return nil
}

func (s *MemoryStore) ListPermissionsByCode(ctx context.Context, codes []string) ([]model.Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var perms []model.Permission
	for _, code := range codes {
		if p, ok := s.permissions[code]; ok {
			perms = append(perms, p)
		}
	}
	return perms, nil
}

func (s *MemoryStore) SeedPermissions(ctx context.Context, catalog map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	for code, desc := range catalog {
		if _, ok := s.permissions[code]; ok {
			continue
		}
		module := code
		if i := strings.IndexByte(code, ':'); i >= 0 {
			module = code[:i]
		}
		s.permissions[code] = model.Permission{
			ID:          uuid.New().String(),
			Code:        code,
			Name:        desc,
			Description: desc,
			Module:      module,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return nil
}

func (s *MemoryStore) FindOrganizationByID(ctx context.Context, id string) (*model.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.organizations[id]
	if !ok {
		return nil, autherr.ErrNotFound
	}
	if tenant, ok := s.tenants[org.TenantID]; ok {
		org.Tenant = tenant
	}
	out := org
	return &out, nil
}

func (s *MemoryStore) ListOrganizations(ctx context.Context, tenantID string) ([]model.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var orgs []model.Organization
	for _, org := range s.organizations {
		if org.TenantID == tenantID {
			orgs = append(orgs, org)
		}
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].CreatedAt.Before(orgs[j].CreatedAt) })
	return orgs, nil
}

func (s *MemoryStore) CreateOrganization(ctx context.Context, org model.Organization) (*model.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	now := s.Now()
	org.CreatedAt = now
	org.UpdatedAt = now
	s.organizations[org.ID] = org
	out := org
	return &out, nil
}

func (s *MemoryStore) UpdateOrganization(ctx context.Context, org model.Organization) (*model.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.organizations[org.ID]
	if !ok {
		return nil, autherr.ErrNotFound
	}
	existing.Name = org.Name
	existing.Address = org.Address
	existing.City = org.City
	existing.State = org.State
	existing.ZipCode = org.ZipCode
	existing.Country = org.Country
	existing.Phone = org.Phone
	existing.Email = org.Email
	existing.Website = org.Website
	existing.UpdatedAt = s.Now()
	s.organizations[org.ID] = existing
	out := existing
	return &out, nil
}

func (s *MemoryStore) FindLocationByID(ctx context.Context, id string) (*model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.locations[id]
	if !ok {
		return nil, autherr.ErrNotFound
	}
	out := loc
	return &out, nil
}

func (s *MemoryStore) ListLocations(ctx context.Context, organizationID string) ([]model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var locs []model.Location
	for _, loc := range s.locations {
		if loc.OrganizationID == organizationID {
			locs = append(locs, loc)
		}
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i].CreatedAt.Before(locs[j].CreatedAt) })
	return locs, nil
}

func (s *MemoryStore) CreateLocation(ctx context.Context, loc model.Location) (*model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}
	first := true
	for _, other := range s.locations {
		if other.OrganizationID == loc.OrganizationID {
			first = false
			break
		}
	}
	if first {
		loc.IsMain = true
	}
	now := s.Now()
	loc.CreatedAt = now
	loc.UpdatedAt = now
	s.locations[loc.ID] = loc
	out := loc
	return &out, nil
}

func (s *MemoryStore) UpdateLocation(ctx context.Context, loc model.Location) (*model.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.locations[loc.ID]
	if !ok {
		return nil, autherr.ErrNotFound
	}
	existing.Name = loc.Name
	existing.Address = loc.Address
	existing.City = loc.City
	existing.State = loc.State
	existing.ZipCode = loc.ZipCode
	existing.Country = loc.Country
	existing.Phone = loc.Phone
	existing.Email = loc.Email
	existing.IsMain = loc.IsMain
	existing.UpdatedAt = s.Now()
	s.locations[loc.ID] = existing
	out := existing
	return &out, nil
}

// compile-time interface checks
var (
	_ Datastore = (*GormStore)(nil)
	_ Datastore = (*MemoryStore)(nil)
)
