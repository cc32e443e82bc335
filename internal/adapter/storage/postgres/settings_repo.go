package postgres

import (
	"context"
	"errors"
	"fmt"

	"token-sale-gateway/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// SettingsRepo implements ports.SettingsRepository over the single
// system_settings row (id = 1).
type SettingsRepo struct {
	pool Pool
}

// NewSettingsRepo creates a new SettingsRepo.
func NewSettingsRepo(pool Pool) *SettingsRepo {
	return &SettingsRepo{pool: pool}
}

// Get reads the settings snapshot (non-locking read).
func (r *SettingsRepo) Get(ctx context.Context) (*domain.SystemSettings, error) {
	query := `SELECT current_supply, max_supply, token_price_cents, withdraw_fee_bps, referral_commission_bps, updated_at
		FROM system_settings WHERE id = 1`

	s := &domain.SystemSettings{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.CurrentSupply, &s.MaxSupply, &s.TokenPriceCents,
		&s.WithdrawFeeBps, &s.ReferralCommissionBps, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("system settings row missing")
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

// BumpSupply adds delta to current_supply only while the cap holds. Cap
// check and increment are one statement; the row write-lock serializes
// concurrent issuance, so the cap cannot be crossed by racing settlements.
func (r *SettingsRepo) BumpSupply(ctx context.Context, tx pgx.Tx, delta int64) (bool, error) {
	query := `UPDATE system_settings SET current_supply = current_supply + $1, updated_at = NOW()
		WHERE id = 1 AND current_supply + $1 <= max_supply`

	tag, err := tx.Exec(ctx, query, delta)
	if err != nil {
		return false, fmt.Errorf("bump supply: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
