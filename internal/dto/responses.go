package dto

import (
	"time"

	"github.com/ignatzorin/corent-backend/internal/models"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse represents a response carrying only a message
type MessageResponse struct {
	Message string `json:"message"`
}

// SendVerificationResponse represents the result of sending a verification code
type SendVerificationResponse struct {
	Message     string `json:"message"`
	SMSSent     bool   `json:"smsSent"`
	Provider    string `json:"provider"`
	MessageID   string `json:"messageId,omitempty"`
	ExpiresIn   int    `json:"expiresIn"`
	Note        string `json:"note,omitempty"`
	MockMessage string `json:"mockMessage,omitempty"`
}

// VerifySMSResponse represents a successful phone verification
type VerifySMSResponse struct {
	Message      string    `json:"message"`
	Verified     bool      `json:"verified"`
	Phone        string    `json:"phone"`
	Timestamp    time.Time `json:"timestamp"`
	InvitationID string    `json:"invitationId,omitempty"`
}

// VerificationStatsResponse represents verification store statistics
type VerificationStatsResponse struct {
	ActiveVerifications int       `json:"activeVerifications"`
	RateLimitEntries    int       `json:"rateLimitEntries"`
	Timestamp           time.Time `json:"timestamp"`
}

// InviteMemberResponse represents a created invitation
type InviteMemberResponse struct {
	Message     string                 `json:"message"`
	InviteToken string                 `json:"inviteToken"`
	Invitation  *models.Invitation     `json:"invitation"`
	SMS         *models.DeliveryResult `json:"sms,omitempty"`
	EmailSent   bool                   `json:"emailSent"`
}

// AcceptInviteResponse represents an accepted invitation
type AcceptInviteResponse struct {
	Message    string             `json:"message"`
	Invitation *models.Invitation `json:"invitation"`
}

// InvitationListResponse represents the invitations sent by the current user
type InvitationListResponse struct {
	Invitations []models.Invitation `json:"invitations"`
	Total       int                 `json:"total"`
}
