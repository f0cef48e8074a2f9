// Package postgres implements the repository interfaces on pgx.
package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/harunzafer/fastsvelte/pkg/errors"
)

// scanErr maps pgx.ErrNoRows to apperrors.ErrNotFound and wraps anything else.
func scanErr(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}
