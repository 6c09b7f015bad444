package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant represents the tenant model stored in the database.
// The subdomain is the isolation boundary for the whole platform: it is
// globally unique and immutable once claimed.
type Tenant struct {
	ID           string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string         `json:"name" gorm:"type:varchar(100);not null"`
	Subdomain    string         `json:"subdomain" gorm:"type:varchar(63);uniqueIndex;not null"`
	LogoURL      *string        `json:"logo_url,omitempty" gorm:"type:varchar(255)"`
	PrimaryColor *string        `json:"primary_color,omitempty" gorm:"type:varchar(7)"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Organizations []Organization `json:"organizations,omitempty" gorm:"foreignKey:TenantID"`
	Subscriptions []Subscription `json:"subscriptions,omitempty" gorm:"foreignKey:TenantID"`
}

// BeforeCreate assigns a UUID primary key if one wasn't provided.
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return nil
}
