package jwtutil

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/justinmcgrath168/saas-dental-platform/internal/model"
	"github.com/justinmcgrath168/saas-dental-platform/internal/session"
	"github.com/justinmcgrath168/saas-dental-platform/pkg/config"
)

// SessionClaims embeds the full Principal in the token payload so every
// downstream authorization check can run without a datastore round trip.
// The subject claim carries the user ID.
type SessionClaims struct {
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Role             string   `json:"role"`
	OrganizationID   string   `json:"organization_id"`
	OrganizationName string   `json:"organization_name,omitempty"`
	OrganizationType string   `json:"organization_type,omitempty"`
	TenantID         string   `json:"tenant_id"`
	TenantName       string   `json:"tenant_name,omitempty"`
	TenantSubdomain  string   `json:"tenant_subdomain,omitempty"`
	Permissions      []string `json:"permissions"`
	jwt.RegisteredClaims
}

// Principal reconstructs the Principal embedded in the claims.
func (c *SessionClaims) Principal() *session.Principal {
	return &session.Principal{
		UserID:           c.Subject,
		Name:             c.Name,
		Email:            c.Email,
		Role:             model.UserRole(c.Role),
		OrganizationID:   c.OrganizationID,
		OrganizationName: c.OrganizationName,
		OrganizationType: model.OrgType(c.OrganizationType),
		TenantID:         c.TenantID,
		TenantName:       c.TenantName,
		TenantSubdomain:  c.TenantSubdomain,
		Permissions:      c.Permissions,
	}
}

// JWTUtil signs and validates session tokens.
type JWTUtil struct {
	config *config.JWTConfig
}

// NewJWTUtil creates a new JWT utility with the given configuration
func NewJWTUtil(cfg *config.JWTConfig) *JWTUtil {
	return &JWTUtil{config: cfg}
}

// GenerateToken signs a token carrying the Principal.
func (j *JWTUtil) GenerateToken(p *session.Principal) (string, error) {
	if j.config == nil {
		return "", errors.New("JWT configuration not provided")
	}

	claims := SessionClaims{
		Name:             p.Name,
		Email:            p.Email,
		Role:             string(p.Role),
		OrganizationID:   p.OrganizationID,
		OrganizationName: p.OrganizationName,
		OrganizationType: string(p.OrganizationType),
		TenantID:         p.TenantID,
		TenantName:       p.TenantName,
		TenantSubdomain:  p.TenantSubdomain,
		Permissions:      p.Permissions,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(j.config.ExpirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.config.SigningKey))
}

// ValidateToken validates and parses the session token.
func (j *JWTUtil) ValidateToken(tokenString string) (*SessionClaims, error) {
	if j.config == nil {
		return nil, errors.New("JWT configuration not provided")
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(j.config.SigningKey), nil
		},
	)
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
