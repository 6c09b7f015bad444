package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Location is a physical site under an organization. The creation flow
// keeps at least one location per organization flagged IsMain.
type Location struct {
	ID             string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrganizationID string         `json:"organization_id" gorm:"type:varchar(36);index;not null"`
	Name           string         `json:"name" gorm:"type:varchar(100);not null"`
	Address        string         `json:"address" gorm:"type:varchar(255)"`
	City           string         `json:"city" gorm:"type:varchar(100)"`
	State          string         `json:"state" gorm:"type:varchar(100)"`
	ZipCode        string         `json:"zip_code" gorm:"type:varchar(20)"`
	Country        string         `json:"country" gorm:"type:varchar(2)"`
	Phone          string         `json:"phone" gorm:"type:varchar(30)"`
	Email          string         `json:"email" gorm:"type:varchar(100)"`
	IsMain         bool           `json:"is_main" gorm:"default:false"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Organization Organization `json:"organization,omitempty" gorm:"foreignKey:OrganizationID"`
}

// BeforeCreate assigns a UUID primary key if one wasn't provided.
func (l *Location) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	return nil
}

// UserLocation associates a user with a location. At most one row per user
// carries IsPrimary, and every referenced location must belong to the same
// organization as the user.
type UserLocation struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `json:"user_id" gorm:"type:varchar(36);index:idx_user_location,unique;not null"`
	LocationID string    `json:"location_id" gorm:"type:varchar(36);index:idx_user_location,unique;not null"`
	IsPrimary  bool      `json:"is_primary" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Relations
	Location Location `json:"location,omitempty" gorm:"foreignKey:LocationID"`
}

// BeforeCreate assigns a UUID primary key if one wasn't provided.
func (ul *UserLocation) BeforeCreate(tx *gorm.DB) error {
	if ul.ID == "" {
		ul.ID = uuid.New().String()
	}
	return nil
}
