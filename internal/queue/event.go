// Package queue defines message payloads exchanged over the message broker
// and the consumer that turns them into audit log lines.
package queue

import "time"

// Queue names.  Both are durable and addressed through the default
// exchange with the queue name as routing key.
const (
	SessionQueue     = "farm.sessions"
	AppointmentQueue = "farm.appointments"
)

// Session event types.
const (
	SessionLogin       = "login"
	SessionLoginFailed = "login_failed"
	SessionLogout      = "logout"
)

// SessionEvent is published on every login attempt and logout.  Role is
// empty for a failed login since no account was matched.
type SessionEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Email      string    `json:"email"`
	Role       string    `json:"role,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AppointmentScheduledEvent is published when a farmer books a vet visit.
type AppointmentScheduledEvent struct {
	AppointmentID uint64    `json:"appointment_id"`
	FarmID        uint64    `json:"farm_id"`
	VetID         uint64    `json:"vet_id"`
	SheepIDs      []uint64  `json:"sheep_ids"`
	Date          time.Time `json:"date"`
}
