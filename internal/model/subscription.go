package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlanType enumerates the subscription tiers a tenant can be on.
type PlanType string

const (
	PlanFree         PlanType = "FREE"
	PlanStarter      PlanType = "STARTER"
	PlanProfessional PlanType = "PROFESSIONAL"
	PlanEnterprise   PlanType = "ENTERPRISE"
	PlanCustom       PlanType = "CUSTOM"
)

// ValidPlanType reports whether s names a known plan tier.
func ValidPlanType(s string) bool {
	switch PlanType(s) {
	case PlanFree, PlanStarter, PlanProfessional, PlanEnterprise, PlanCustom:
		return true
	}
	return false
}

// Subscription is a time-bounded grant of tenant access. At most one
// subscription per tenant may be active at any instant; activating a new
// one deactivates and end-dates the previous active row in the same
// transaction.
type Subscription struct {
	ID               string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	TenantID         string     `json:"tenant_id" gorm:"type:varchar(36);index;not null"`
	PlanType         PlanType   `json:"plan_type" gorm:"type:varchar(20);not null"`
	StartDate        time.Time  `json:"start_date" gorm:"not null"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	IsActive         bool       `json:"is_active" gorm:"default:true"`
	AutoRenew        bool       `json:"auto_renew" gorm:"default:true"`
	PaymentMethod    *string    `json:"payment_method,omitempty" gorm:"type:varchar(50)"`
	PaymentReference *string    `json:"payment_reference,omitempty" gorm:"type:varchar(100)"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// BeforeCreate assigns a UUID primary key if one wasn't provided.
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// ActiveAt reports whether the subscription grants access at the given
// instant: it must be flagged active and either open-ended or not yet
// past its end date.
func (s *Subscription) ActiveAt(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	return s.EndDate == nil || s.EndDate.After(now)
}
