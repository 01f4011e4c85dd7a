package domain

import (
	"strings"
	"time"
)

// Role is the access tag carried in identity metadata and duplicated on the profile row.
type Role string

const (
	RoleLead   Role = "lead"
	RoleClient Role = "client"
	RoleCoach  Role = "coach"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleLead, RoleClient, RoleCoach:
		return true
	}
	return false
}

// ParseRole converts raw input into a Role, returning a ValidationError for unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", &ValidationError{Field: "role", Reason: "must be one of: lead client coach"}
	}
	return r, nil
}

// CredentialState is owned by the identity provider and opaque to the lifecycle engine.
type CredentialState string

const (
	CredentialUnverified CredentialState = "unverified"
	CredentialVerified   CredentialState = "verified"
)

// IdentityRecord is an account in the identity store. Role is the single source of
// truth for privilege checks.
type IdentityRecord struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	CredentialState CredentialState `json:"credential_state"`
	Role            Role            `json:"role"`
	Name            string          `json:"name,omitempty"`
	Goal            string          `json:"goal,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	PasswordHash    string          `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewAccount carries what the identity store needs to create an account.
type NewAccount struct {
	Email    string
	Password string
	Role     Role
	Name     string
	Goal     string
	Notes    string
}

// MetadataPatch is a partial update of identity metadata. Nil fields are left untouched.
type MetadataPatch struct {
	Role  *Role
	Name  *string
	Goal  *string
	Notes *string
	Email *string
}

// Empty reports whether the patch changes nothing.
func (p MetadataPatch) Empty() bool {
	return p.Role == nil && p.Name == nil && p.Goal == nil && p.Notes == nil && p.Email == nil
}

// Apply returns a copy of rec with the patch applied.
func (p MetadataPatch) Apply(rec IdentityRecord) IdentityRecord {
	if p.Role != nil {
		rec.Role = *p.Role
	}
	if p.Name != nil {
		rec.Name = *p.Name
	}
	if p.Goal != nil {
		rec.Goal = *p.Goal
	}
	if p.Notes != nil {
		rec.Notes = *p.Notes
	}
	if p.Email != nil {
		rec.Email = *p.Email
	}
	return rec
}

// Session is an issued sign-in token bound to an identity.
type Session struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Identity  *IdentityRecord `json:"identity"`
}

// Actor identifies who is driving a transition.
type Actor struct {
	ID string
}

// NormalizeEmail trims and lowercases an address before it reaches a store.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
