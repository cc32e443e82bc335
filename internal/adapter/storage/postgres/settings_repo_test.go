package postgres

import (
	"context"
	"testing"
	"time"

	"token-sale-gateway/internal/core/domain"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepo_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSettingsRepo(mock)
	now := time.Now().UTC().Truncate(time.Microsecond)

	mock.ExpectQuery("SELECT .+ FROM system_settings WHERE id = 1").
		WillReturnRows(pgxmock.NewRows([]string{
			"current_supply", "max_supply", "token_price_cents", "withdraw_fee_bps", "referral_commission_bps", "updated_at",
		}).AddRow(
			100*domain.MicroTokens, 1000*domain.MicroTokens, int64(100), int64(200), int64(1000), now,
		))

	s, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100*domain.MicroTokens, s.CurrentSupply)
	assert.Equal(t, 1000*domain.MicroTokens, s.MaxSupply)
	assert.Equal(t, int64(100), s.TokenPriceCents)
	assert.Equal(t, int64(200), s.WithdrawFeeBps)
	assert.Equal(t, int64(1000), s.ReferralCommissionBps)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepo_BumpSupply_WithinCap(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSettingsRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE system_settings SET current_supply").
		WithArgs(22 * domain.MicroTokens).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.BumpSupply(context.Background(), tx, 22*domain.MicroTokens)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepo_BumpSupply_CapExceeded(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewSettingsRepo(mock)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE system_settings SET current_supply").
		WithArgs(int64(1 << 50)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	tx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	ok, err := repo.BumpSupply(context.Background(), tx, 1<<50)
	require.NoError(t, err, "cap refusal is a condition, not an error")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
