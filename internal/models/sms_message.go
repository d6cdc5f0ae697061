package models

import "time"

// SMSMessage представляет запись журнала доставки исходящего SMS.
type SMSMessage struct {
	MessageID      string    `db:"message_id" json:"message_id"`
	PhoneMasked    string    `db:"phone_masked" json:"phone_masked"`
	Provider       string    `db:"provider" json:"provider"`
	Purpose        string    `db:"purpose" json:"purpose"`
	Status         string    `db:"status" json:"status"`
	Cost           float64   `db:"cost" json:"cost"`
	ResponseTimeMs int64     `db:"response_time_ms" json:"response_time_ms"`
	ErrorCode      *string   `db:"error_code" json:"error_code,omitempty"`
	ErrorMessage   *string   `db:"error_message" json:"error_message,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// SMSStatusUpdate содержит статус сообщения из callback провайдера.
type SMSStatusUpdate struct {
	MessageID    string `json:"message_id"`
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}
