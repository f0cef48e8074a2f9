package postgres

import (
	"context"
	"fmt"

	"github.com/harunzafer/fastsvelte/internal/domain"
	"github.com/harunzafer/fastsvelte/pkg/database"
)

// OAuthAccountRepository implements repository.OAuthAccountRepository using PostgreSQL.
type OAuthAccountRepository struct {
	pool database.DBTX
}

func NewOAuthAccountRepository(pool database.DBTX) *OAuthAccountRepository {
	return &OAuthAccountRepository{pool: pool}
}

func (r *OAuthAccountRepository) GetUserID(ctx context.Context, providerID, providerUserID string) (int64, error) {
	query := `SELECT user_id FROM oauth_account WHERE provider_id = $1 AND provider_user_id = $2`

	var userID int64
	if err := r.pool.QueryRow(ctx, query, providerID, providerUserID).Scan(&userID); err != nil {
		return 0, scanErr(err, "scan oauth account")
	}
	return userID, nil
}

func (r *OAuthAccountRepository) Link(ctx context.Context, a *domain.OAuthAccount) error {
	query := `
		INSERT INTO oauth_account (provider_id, provider_user_id, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider_id, provider_user_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, a.ProviderID, a.ProviderUserID, a.UserID); err != nil {
		return fmt.Errorf("insert oauth account: %w", err)
	}
	return nil
}
