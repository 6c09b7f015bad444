package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole labels a user. The role only seeds default permissions at
// creation time and bounds role assignment; authorization decisions are
// made against the explicit permission grant set, never the role itself.
type UserRole string

const (
	RoleSuperAdmin       UserRole = "SUPER_ADMIN"
	RoleTenantAdmin      UserRole = "TENANT_ADMIN"
	RoleOrgAdmin         UserRole = "ORG_ADMIN"
	RoleLocationAdmin    UserRole = "LOCATION_ADMIN"
	RoleDentist          UserRole = "DENTIST"
	RoleHygienist        UserRole = "HYGIENIST"
	RoleAssistant        UserRole = "ASSISTANT"
	RoleFrontDesk        UserRole = "FRONT_DESK"
	RoleLabManager       UserRole = "LAB_MANAGER"
	RoleLabTechnician    UserRole = "LAB_TECHNICIAN"
	RoleRadiologist      UserRole = "RADIOLOGIST"
	RoleImagingTech      UserRole = "IMAGING_TECH"
	RoleInventoryManager UserRole = "INVENTORY_MANAGER"
	RoleAccounting       UserRole = "ACCOUNTING"
	RolePatient          UserRole = "PATIENT"
)

// AllRoles lists every role in the closed enumeration.
var AllRoles = []UserRole{
	RoleSuperAdmin,
	RoleTenantAdmin,
	RoleOrgAdmin,
	RoleLocationAdmin,
	RoleDentist,
	RoleHygienist,
	RoleAssistant,
	RoleFrontDesk,
	RoleLabManager,
	RoleLabTechnician,
	RoleRadiologist,
	RoleImagingTech,
	RoleInventoryManager,
	RoleAccounting,
	RolePatient,
}

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	for _, r := range AllRoles {
		if UserRole(s) == r {
			return true
		}
	}
	return false
}

// User represents an actor. Email is globally unique; the password is
// nullable for users who only sign in through the external identity
// provider.
type User struct {
	ID             string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name           string         `json:"name" gorm:"type:varchar(100);not null"`
	Email          string         `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Password       *string        `json:"-" gorm:"type:varchar(255)"`
	Role           UserRole       `json:"role" gorm:"type:varchar(30);not null"`
	OrganizationID string         `json:"organization_id" gorm:"type:varchar(36);index;not null"`
	IsActive       bool           `json:"is_active" gorm:"default:true"`
	LastLogin      *time.Time     `json:"last_login,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Organization Organization     `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
	Locations    []UserLocation   `json:"locations,omitempty" gorm:"foreignKey:UserID"`
	Permissions  []UserPermission `json:"permissions,omitempty" gorm:"foreignKey:UserID"`
}

// BeforeCreate assigns a UUID primary key if one wasn't provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// GrantedPermissionCodes flattens the user's permission rows into the set
// of codes with granted=true. This set is the single source of truth for
// authorization.
func (u *User) GrantedPermissionCodes() []string {
	codes := make([]string, 0, len(u.Permissions))
	for _, up := range u.Permissions {
		if up.Granted {
			codes = append(codes, up.Permission.Code)
		}
	}
	return codes
}
