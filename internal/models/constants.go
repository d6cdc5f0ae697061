package models

// Провайдеры доставки, которые попадают в DeliveryResult.Provider.
const (
	ProviderTwilio   = "twilio"
	ProviderMock     = "mock"
	ProviderFallback = "fallback"
)

// Действия, для которых считается лимит отправок на номер.
const (
	ActionVerification = "verification"
	ActionInvitation   = "invitation"
)

// Назначение исходящего SMS в журнале доставки.
const (
	SMSPurposeVerification = "verification"
	SMSPurposeInvitation   = "invitation"
)

// InvitationStatus константы статусов приглашений
const (
	InvitationStatusPending  = "Pending"
	InvitationStatusAccepted = "Accepted"
)

// Статус сообщения сразу после отправки; дальше его обновляет callback провайдера.
const SMSStatusSent = "sent"
