package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission is a named capability with a `module:action` code. Permissions
// are registry-defined and never user-creatable; the rows exist so grants
// can reference them relationally.
type Permission struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code        string    `json:"code" gorm:"type:varchar(64);uniqueIndex;not null"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Description string    `json:"description" gorm:"type:varchar(255)"`
	Module      string    `json:"module" gorm:"type:varchar(32);index;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key if one wasn't provided.
func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

// UserPermission joins a user to a permission. The effective permission set
// of a user is exactly the codes whose row has Granted=true.
type UserPermission struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string    `json:"user_id" gorm:"type:varchar(36);index:idx_user_permission,unique;not null"`
	PermissionID string    `json:"permission_id" gorm:"type:varchar(36);index:idx_user_permission,unique;not null"`
	Granted      bool      `json:"granted" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	Permission Permission `json:"permission,omitempty" gorm:"foreignKey:PermissionID"`
}

// BeforeCreate assigns a UUID primary key if one wasn't provided.
func (up *UserPermission) BeforeCreate(tx *gorm.DB) error {
	if up.ID == "" {
		up.ID = uuid.New().String()
	}
	return nil
}
