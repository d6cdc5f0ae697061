package models

import (
	"time"

	"github.com/google/uuid"
)

// Invitation представляет приглашение участника в группу дома.
type Invitation struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	InviterID  uuid.UUID  `db:"inviter_id" json:"inviter_id"`
	Name       string     `db:"name" json:"name"`
	Email      *string    `db:"email" json:"email,omitempty"`
	Phone      *string    `db:"phone" json:"phone,omitempty"`
	Status     string     `db:"status" json:"status"`
	ExpiresAt  time.Time  `db:"expires_at" json:"expires_at"`
	AcceptedAt *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}
