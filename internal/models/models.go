package models

import "time"

// AlertStatus is the lifecycle state of an alert
type AlertStatus string

const (
	StatusPending   AlertStatus = "pending"
	StatusConfirmed AlertStatus = "confirmed"
	StatusFake      AlertStatus = "fake"
	StatusResolved  AlertStatus = "resolved"
)

// Valid reports whether s is a known status
func (s AlertStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusFake, StatusResolved:
		return true
	}
	return false
}

// Urgency is how pressing an alert is
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Valid reports whether u is a known urgency
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
		return true
	}
	return false
}

// CommentType distinguishes free text from vote notes
type CommentType string

const (
	CommentText  CommentType = "text"
	CommentGreen CommentType = "green" // note attached to a confirm vote
	CommentRed   CommentType = "red"   // note attached to a reject vote
)

// Valid reports whether t is a known comment type
func (t CommentType) Valid() bool {
	switch t {
	case CommentText, CommentGreen, CommentRed:
		return true
	}
	return false
}

// User represents an account in the system
type User struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Phone            string    `json:"phone"`
	PasswordHash     string    `json:"-"`
	HasCIN           bool      `json:"has_cin"`
	IsAdmin          bool      `json:"is_admin"`
	AlertsCount      int       `json:"alerts_count"`
	ValidationsCount int       `json:"validations_count"`
	Neighborhood     string    `json:"neighborhood"`
	Latitude         *float64  `json:"latitude,omitempty"`
	Longitude        *float64  `json:"longitude,omitempty"`
	PushToken        *string   `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
}

// Alert represents an incident report submitted by a user
type Alert struct {
	ID             string      `json:"id"`
	AuthorID       string      `json:"author_id"`
	Reason         string      `json:"reason"`
	Description    string      `json:"description"`
	Location       string      `json:"location"`
	Latitude       *float64    `json:"latitude,omitempty"`
	Longitude      *float64    `json:"longitude,omitempty"`
	Urgency        Urgency     `json:"urgency"`
	Status         AlertStatus `json:"status"`
	ConfirmedCount int         `json:"confirmed_count"`
	RejectedCount  int         `json:"rejected_count"`
	ValidatedBy    []string    `json:"validated_by"`
	Media          Media       `json:"media"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty"`
}

// Clone returns a copy that shares no slices with a
func (a *Alert) Clone() *Alert {
	c := *a
	c.ValidatedBy = make([]string, len(a.ValidatedBy))
	copy(c.ValidatedBy, a.ValidatedBy)
	c.Media = ManyMedia(a.Media.Paths())
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

// Comment is a remark attached to an alert
type Comment struct {
	ID        string      `json:"id"`
	AlertID   string      `json:"alert_id"`
	UserID    string      `json:"user_id"`
	Type      CommentType `json:"type"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// AuditAction names an explicit status change
type AuditAction string

const (
	AuditOverride AuditAction = "override"
	AuditResolve  AuditAction = "resolve"
	AuditDelete   AuditAction = "delete"
)

// AuditEntry records who changed an alert's status and how
type AuditEntry struct {
	ID             string      `json:"id"`
	AlertID        string      `json:"alert_id"`
	ActorID        string      `json:"actor_id"`
	Action         AuditAction `json:"action"`
	PreviousStatus AlertStatus `json:"previous_status"`
	NewStatus      AlertStatus `json:"new_status,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}
