package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/corent-backend/internal/models"
	"github.com/ignatzorin/corent-backend/internal/repository/common"
)

// ErrSMSMessageNotFound возвращается, когда сообщения нет в журнале.
var ErrSMSMessageNotFound = errors.New("sms message not found")

// SMSMessageRepository ведёт журнал доставки SMS. Номер хранится только в маскированном виде.
type SMSMessageRepository struct {
	db *sqlx.DB
}

func NewSMSMessageRepository(db *sqlx.DB) *SMSMessageRepository {
	return &SMSMessageRepository{db: db}
}

// Create добавляет запись об отправке. Повторный message_id игнорируется.
func (r *SMSMessageRepository) Create(ctx context.Context, msg *models.SMSMessage) error {
	query := `
		INSERT INTO sms_messages (message_id, phone_masked, provider, purpose, status, cost, response_time_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (message_id) DO NOTHING
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(
		ctx,
		query,
		msg.MessageID,
		msg.PhoneMasked,
		msg.Provider,
		msg.Purpose,
		msg.Status,
		msg.Cost,
		msg.ResponseTimeMs,
	).Scan(&msg.CreatedAt, &msg.UpdatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("sms message repository: create %w", err)
	}

	return nil
}

// UpdateStatus записывает статус из callback провайдера.
func (r *SMSMessageRepository) UpdateStatus(ctx context.Context, upd models.SMSStatusUpdate) (*models.SMSMessage, error) {
	return common.GetOne[models.SMSMessage](ctx, r.db, "sms message repository: update status", ErrSMSMessageNotFound, `
		UPDATE sms_messages
		SET status = $2,
		    error_code = NULLIF($3, ''),
		    error_message = NULLIF($4, ''),
		    updated_at = NOW()
		WHERE message_id = $1
		RETURNING *
	`, upd.MessageID, upd.Status, upd.ErrorCode, upd.ErrorMessage)
}

// GetByMessageID возвращает запись журнала по идентификатору провайдера.
func (r *SMSMessageRepository) GetByMessageID(ctx context.Context, messageID string) (*models.SMSMessage, error) {
	return common.GetOne[models.SMSMessage](ctx, r.db, "sms message repository: get", ErrSMSMessageNotFound,
		`SELECT * FROM sms_messages WHERE message_id = $1`, messageID)
}
