package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/corent-backend/internal/models"
	"github.com/ignatzorin/corent-backend/internal/repository/common"
)

// ErrInvitationNotFound возвращается, когда приглашение не найдено.
var ErrInvitationNotFound = errors.New("invitation not found")

// InvitationRepository отвечает за работу с приглашениями участников.
type InvitationRepository struct {
	db *sqlx.DB
}

// NewInvitationRepository создаёт экземпляр репозитория.
func NewInvitationRepository(db *sqlx.DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create сохраняет приглашение и заполняет id и временные метки.
func (r *InvitationRepository) Create(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (inviter_id, name, email, phone, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(
		ctx,
		query,
		inv.InviterID,
		inv.Name,
		inv.Email,
		inv.Phone,
		inv.Status,
		inv.ExpiresAt,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return fmt.Errorf("invitation repository: create %w", err)
	}

	return nil
}

// Accept переводит ожидающее приглашение в Accepted.
// Повторное принятие не меняет accepted_at.
func (r *InvitationRepository) Accept(ctx context.Context, id uuid.UUID, at time.Time) (*models.Invitation, error) {
	return common.GetOne[models.Invitation](ctx, r.db, "invitation repository: accept", ErrInvitationNotFound, `
		UPDATE invitations
		SET status = $2,
		    accepted_at = COALESCE(accepted_at, $3),
		    updated_at = $3
		WHERE id = $1
		RETURNING *
	`, id, models.InvitationStatusAccepted, at)
}

// ListByInviter возвращает приглашения пользователя, новые первыми.
func (r *InvitationRepository) ListByInviter(ctx context.Context, inviterID uuid.UUID) ([]models.Invitation, error) {
	var invitations []models.Invitation
	if err := r.db.SelectContext(ctx, &invitations,
		`SELECT * FROM invitations WHERE inviter_id = $1 ORDER BY created_at DESC`, inviterID); err != nil {
		return nil, fmt.Errorf("invitation repository: list %w", err)
	}

	return invitations, nil
}
