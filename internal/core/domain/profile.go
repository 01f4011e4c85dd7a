package domain

import "time"

// ProfileStatus is the lifecycle status held by the profile store.
type ProfileStatus string

const (
	StatusPending ProfileStatus = "pending"
	StatusActive  ProfileStatus = "active"
)

// ProfileRecord is the application-side record, one-to-one with an identity via ID.
type ProfileRecord struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Goal            string        `json:"goal,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Age             *int          `json:"age,omitempty"`
	HeightCm        *float64      `json:"height_cm,omitempty"`
	WeightKg        *float64      `json:"weight_kg,omitempty"`
	AssignedCoachID *string       `json:"assigned_coach_id,omitempty"`
	Status          ProfileStatus `json:"status"`
	Role            Role          `json:"role"`
	CreatedAt       time.Time     `json:"created_at"`
}

// ProfilePatch is a partial update of a profile row. When ExpectStatus is set the
// update only applies if the stored status still matches it.
type ProfilePatch struct {
	Role         *Role
	Status       *ProfileStatus
	Name         *string
	Goal         *string
	Notes        *string
	ExpectStatus *ProfileStatus
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Role == nil && p.Status == nil && p.Name == nil && p.Goal == nil && p.Notes == nil
}

// Apply returns a copy of rec with the patch applied. ExpectStatus is not checked here.
func (p ProfilePatch) Apply(rec ProfileRecord) ProfileRecord {
	if p.Role != nil {
		rec.Role = *p.Role
	}
	if p.Status != nil {
		rec.Status = *p.Status
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
	return rec
}

// Account pairs the two records that together describe one person.
type Account struct {
	Identity IdentityRecord `json:"identity"`
	Profile  *ProfileRecord `json:"profile,omitempty"`
}

// RoleMismatch is one drift finding from the consistency checker. ProfileRole is
// empty when the identity has no profile row.
type RoleMismatch struct {
	ID           string `json:"id"`
	IdentityRole Role   `json:"identity_role"`
	ProfileRole  Role   `json:"profile_role,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
