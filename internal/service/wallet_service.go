package service

import (
	"context"
	"fmt"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"
	"token-sale-gateway/pkg/apperror"

	"github.com/google/uuid"
)

// WalletServiceImpl implements ports.WalletService: read models over the
// user balance and the append-only ledger.
type WalletServiceImpl struct {
	userRepo     ports.UserRepository
	ledgerRepo   ports.LedgerRepository
	settingsRepo ports.SettingsRepository
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	userRepo ports.UserRepository,
	ledgerRepo ports.LedgerRepository,
	settingsRepo ports.SettingsRepository,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		userRepo:     userRepo,
		ledgerRepo:   ledgerRepo,
		settingsRepo: settingsRepo,
	}
}

// Balance returns the user's balance together with the global supply stats
// and the current token price.
func (s *WalletServiceImpl) Balance(ctx context.Context, userID uuid.UUID) (*ports.BalanceInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load settings: %w", err))
	}

	return &ports.BalanceInfo{
		Balance:         user.Balance,
		CurrentSupply:   settings.CurrentSupply,
		MaxSupply:       settings.MaxSupply,
		TokenPriceCents: settings.TokenPriceCents,
	}, nil
}

// History returns the user's ledger entries, newest first, optionally
// filtered by entry type.
func (s *WalletServiceImpl) History(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	entries, total, err := s.ledgerRepo.ListByUser(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, total, nil
}
