package domain

import "time"

// NotificationKind names the lifecycle event a notification announces.
type NotificationKind string

const (
	NotifyRegistered   NotificationKind = "registered"
	NotifyLeadApproved NotificationKind = "lead_approved"
	NotifyCoachCreated NotificationKind = "coach_created"
)

// Notification is handed to the outbound dispatcher after a transition succeeds.
// Delivery is best effort and never affects the transition result.
type Notification struct {
	ID         string           `json:"id"`
	Kind       NotificationKind `json:"kind"`
	SubjectID  string           `json:"subject_id"`
	Email      string           `json:"email"`
	Name       string           `json:"name,omitempty"`
	ActorID    string           `json:"actor_id,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// DedupKey identifies the notification for at-most-once delivery.
func (n Notification) DedupKey() string {
	return "notify:" + string(n.Kind) + ":" + n.SubjectID
}
