package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/harunzafer/fastsvelte/internal/repository"
	"github.com/harunzafer/fastsvelte/pkg/database"
)

// Transactor implements repository.Transactor on a pool.
type Transactor struct {
	pool database.DBTX
}

func NewTransactor(pool database.DBTX) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction. The caller must defer Rollback.
func (t *Transactor) Begin(ctx context.Context) (repository.UnitOfWork, error) {
	tx, err := t.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &unitOfWork{tx: tx}, nil
}

type unitOfWork struct {
	tx   pgx.Tx
	done bool
}

func (u *unitOfWork) Users() repository.UserRepository { return NewUserRepository(u.tx) }
func (u *unitOfWork) Organizations() repository.OrganizationRepository {
	return NewOrganizationRepository(u.tx)
}
func (u *unitOfWork) OAuthAccounts() repository.OAuthAccountRepository {
	return NewOAuthAccountRepository(u.tx)
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	u.done = true
	if err := u.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback is a no-op once the transaction has been committed.
func (u *unitOfWork) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	if err := u.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}
