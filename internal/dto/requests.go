package dto

// SendVerificationRequest represents the request to send or resend a verification code
type SendVerificationRequest struct {
	Phone       string `json:"phone" binding:"required"`
	InviteToken string `json:"inviteToken"`
}

// VerifySMSRequest represents the request to check a verification code
type VerifySMSRequest struct {
	Phone            string `json:"phone" binding:"required"`
	VerificationCode string `json:"verificationCode" binding:"required"`
	InviteToken      string `json:"inviteToken"`
}

// SMSStatusCallback represents the provider status webhook (form encoded)
type SMSStatusCallback struct {
	MessageSid    string `form:"MessageSid"`
	MessageStatus string `form:"MessageStatus"`
	ErrorCode     string `form:"ErrorCode"`
	ErrorMessage  string `form:"ErrorMessage"`
}

// InviteMemberRequest represents the request to invite a member
type InviteMemberRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// AcceptInviteRequest represents the request to accept an invitation
type AcceptInviteRequest struct {
	Token string `json:"token" binding:"required"`
}
