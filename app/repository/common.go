package repository

import (
	"context"
	"database/sql"
	"errors"
)

var ErrInvalidKey = errors.New("storage key is required")

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func nullableStringValue(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
