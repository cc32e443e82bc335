package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"
	"token-sale-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const minRejectionReasonLen = 3

// WithdrawalServiceImpl implements ports.WithdrawalService.
type WithdrawalServiceImpl struct {
	withdrawalRepo ports.WithdrawalRepository
	userRepo       ports.UserRepository
	ledgerRepo     ports.LedgerRepository
	settingsRepo   ports.SettingsRepository
	transactor     ports.DBTransactor
	log            zerolog.Logger
}

// NewWithdrawalService creates a new WithdrawalServiceImpl.
func NewWithdrawalService(
	withdrawalRepo ports.WithdrawalRepository,
	userRepo ports.UserRepository,
	ledgerRepo ports.LedgerRepository,
	settingsRepo ports.SettingsRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WithdrawalServiceImpl {
	return &WithdrawalServiceImpl{
		withdrawalRepo: withdrawalRepo,
		userRepo:       userRepo,
		ledgerRepo:     ledgerRepo,
		settingsRepo:   settingsRepo,
		transactor:     transactor,
		log:            log,
	}
}

// Request reserves amount+fee from the user's balance and files a PENDING
// withdrawal. The fee is computed from the settings in effect now and stored
// on the row, so a later rejection refunds exactly what was deducted even if
// the fee rate changes in between.
func (s *WithdrawalServiceImpl) Request(ctx context.Context, req ports.WithdrawRequest) (*domain.Withdrawal, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Address == "" {
		return nil, apperror.ErrInvalidAddress()
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load settings: %w", err))
	}
	fee := settings.WithdrawFee(req.Amount)

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Check-and-debit is a single conditional statement; insufficient
	// funds leave the balance untouched.
	ok, err := s.userRepo.DebitBalance(ctx, dbTx, req.UserID, req.Amount+fee)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("debit balance: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInsufficientBalance()
	}

	now := time.Now().UTC()
	w := &domain.Withdrawal{
		ID:          uuid.New(),
		UserID:      req.UserID,
		Amount:      req.Amount,
		Fee:         fee,
		Address:     req.Address,
		Status:      domain.WithdrawalStatusPending,
		RequestedAt: now,
	}

	if err := s.withdrawalRepo.Create(ctx, dbTx, w); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create withdrawal: %w", err))
	}

	if err := s.ledgerRepo.Create(ctx, dbTx, &domain.LedgerEntry{
		ID:         uuid.New(),
		UserID:     req.UserID,
		EntryType:  domain.EntryTypeWithdrawal,
		Amount:     -(req.Amount + fee),
		Status:     domain.EntryStatusCompleted,
		ExternalID: w.ID,
		CreatedAt:  now,
	}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("withdrawal ledger entry: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", w.ID.String()).
		Str("user_id", req.UserID.String()).
		Int64("amount", req.Amount).
		Int64("fee", fee).
		Msg("withdrawal requested")

	return w, nil
}

// Approve finalizes a pending withdrawal. The funds were already deducted at
// request time, so approval only flips the row state.
func (s *WithdrawalServiceImpl) Approve(ctx context.Context, withdrawalID, adminID uuid.UUID) (*domain.Withdrawal, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	w, err := s.lockPending(ctx, dbTx, withdrawalID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	w.Status = domain.WithdrawalStatusApproved
	w.ProcessedBy = &adminID
	w.ProcessedAt = &now

	if err := s.withdrawalRepo.UpdateDecision(ctx, dbTx, w); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update withdrawal: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", w.ID.String()).
		Str("admin_id", adminID.String()).
		Msg("withdrawal approved")

	return w, nil
}

// Reject refunds the stored amount+fee and reverses the request's ledger
// entry, then records the terminal decision with the given reason.
func (s *WithdrawalServiceImpl) Reject(ctx context.Context, withdrawalID, adminID uuid.UUID, reason string) (*domain.Withdrawal, error) {
	if len(strings.TrimSpace(reason)) < minRejectionReasonLen {
		return nil, apperror.ErrInvalidReason()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	w, err := s.lockPending(ctx, dbTx, withdrawalID)
	if err != nil {
		return nil, err
	}

	// Refund exactly what was deducted at request time. No supply change:
	// the tokens never left circulation.
	if err := s.userRepo.CreditBalance(ctx, dbTx, w.UserID, w.TotalDeducted()); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("refund balance: %w", err))
	}
	if err := s.ledgerRepo.ReverseByExternalID(ctx, dbTx, w.ID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("reverse ledger entry: %w", err))
	}

	now := time.Now().UTC()
	w.Status = domain.WithdrawalStatusRejected
	w.RejectionReason = &reason
	w.ProcessedBy = &adminID
	w.ProcessedAt = &now

	if err := s.withdrawalRepo.UpdateDecision(ctx, dbTx, w); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update withdrawal: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("withdrawal_id", w.ID.String()).
		Str("admin_id", adminID.String()).
		Str("reason", reason).
		Msg("withdrawal rejected")

	return w, nil
}

// ListByUser returns the user's withdrawals, newest first.
func (s *WithdrawalServiceImpl) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Withdrawal, int64, error) {
	ws, total, err := s.withdrawalRepo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list withdrawals: %w", err))
	}
	return ws, total, nil
}

// ListPending returns all withdrawals awaiting an admin decision.
func (s *WithdrawalServiceImpl) ListPending(ctx context.Context, page, pageSize int) ([]domain.Withdrawal, int64, error) {
	ws, total, err := s.withdrawalRepo.ListPending(ctx, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list pending withdrawals: %w", err))
	}
	return ws, total, nil
}

// lockPending locks the withdrawal row and enforces that it is still
// awaiting a decision. Concurrent admin decisions serialize on the lock; the
// loser sees a terminal row and gets ErrAlreadyProcessed.
func (s *WithdrawalServiceImpl) lockPending(ctx context.Context, dbTx pgx.Tx, id uuid.UUID) (*domain.Withdrawal, error) {
	w, err := s.withdrawalRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock withdrawal: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrWithdrawalNotFound()
	}
	if !w.IsPending() {
		return nil, apperror.ErrAlreadyProcessed()
	}
	return w, nil
}
