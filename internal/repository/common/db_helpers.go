package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetOne выполняет запрос, возвращающий одну строку, и сканирует её в T.
// sql.ErrNoRows превращается в notFoundErr, остальные ошибки оборачиваются op.
// Подходит и для SELECT, и для UPDATE ... RETURNING.
func GetOne[T any](ctx context.Context, q sqlx.QueryerContext, op string, notFoundErr error, query string, args ...interface{}) (*T, error) {
	var entity T
	if err := sqlx.GetContext(ctx, q, &entity, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &entity, nil
}
