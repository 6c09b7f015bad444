package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrgType enumerates the kinds of business units a tenant can contain.
type OrgType string

const (
	OrgDentalClinic  OrgType = "DENTAL_CLINIC"
	OrgDentalLab     OrgType = "DENTAL_LAB"
	OrgImagingCenter OrgType = "IMAGING_CENTER"
	OrgSupplier      OrgType = "SUPPLIER"
)

// ValidOrgType reports whether s names a known organization type.
func ValidOrgType(s string) bool {
	switch OrgType(s) {
	case OrgDentalClinic, OrgDentalLab, OrgImagingCenter, OrgSupplier:
		return true
	}
	return false
}

// Organization is a typed business unit within a tenant. Every organization
// belongs to exactly one tenant; the type is assumed stable after creation.
type Organization struct {
	ID        string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TenantID  string         `json:"tenant_id" gorm:"type:varchar(36);index;not null"`
	Name      string         `json:"name" gorm:"type:varchar(100);not null"`
	Type      OrgType        `json:"type" gorm:"type:varchar(20);not null"`
	Address   string         `json:"address" gorm:"type:varchar(255)"`
	City      string         `json:"city" gorm:"type:varchar(100)"`
	State     string         `json:"state" gorm:"type:varchar(100)"`
	ZipCode   string         `json:"zip_code" gorm:"type:varchar(20)"`
	Country   string         `json:"country" gorm:"type:varchar(2)"`
	Phone     string         `json:"phone" gorm:"type:varchar(30)"`
	Email     string         `json:"email" gorm:"type:varchar(100)"`
	Website   string         `json:"website" gorm:"type:varchar(255)"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relations
	Tenant    Tenant     `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	Locations []Location `json:"locations,omitempty" gorm:"foreignKey:OrganizationID"`
}

// BeforeCreate assigns a UUID primary key if one wasn't provided.
func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	return nil
}
