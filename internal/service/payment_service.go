package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"
	"token-sale-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const replayTTL = 24 * time.Hour

// PaymentServiceImpl implements ports.PaymentService: payment initiation
// against the gateway and the settlement state machine driven by IPN events.
type PaymentServiceImpl struct {
	paymentRepo  ports.PaymentRepository
	userRepo     ports.UserRepository
	ledgerRepo   ports.LedgerRepository
	settingsRepo ports.SettingsRepository
	gateway      ports.GatewayClient
	replayCache  ports.ReplayCache
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	paymentRepo ports.PaymentRepository,
	userRepo ports.UserRepository,
	ledgerRepo ports.LedgerRepository,
	settingsRepo ports.SettingsRepository,
	gateway ports.GatewayClient,
	replayCache ports.ReplayCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		paymentRepo:  paymentRepo,
		userRepo:     userRepo,
		ledgerRepo:   ledgerRepo,
		settingsRepo: settingsRepo,
		gateway:      gateway,
		replayCache:  replayCache,
		transactor:   transactor,
		log:          log,
	}
}

// Initiate opens a crypto transaction at the gateway and records the payment
// as PENDING. The referral commission (USD) is fixed here from the current
// commission rate; its token value is computed at settlement time.
func (s *PaymentServiceImpl) Initiate(ctx context.Context, req ports.InitiateRequest) (*domain.Payment, error) {
	if req.AmountUSD <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load settings: %w", err))
	}

	// Fail fast when the sale is sold out. The authoritative cap check
	// still happens inside the settlement transaction.
	if settings.ConvertUSDToTokens(req.AmountUSD) > settings.Remaining() {
		return nil, apperror.ErrSupplyExceeded()
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	var commissionUSD int64
	if user.ReferredBy != nil {
		commissionUSD = settings.ReferralCommission(req.AmountUSD)
	}

	gwResp, err := s.gateway.CreateTransaction(ctx, ports.GatewayTxRequest{
		AmountUSD: req.AmountUSD,
		Currency:  req.Currency,
		BuyerID:   req.UserID.String(),
	})
	if err != nil {
		return nil, apperror.ErrGatewayUnavailable(fmt.Errorf("create gateway tx: %w", err))
	}

	now := time.Now().UTC()
	p := &domain.Payment{
		ID:                    uuid.New(),
		TxnID:                 gwResp.TxnID,
		UserID:                req.UserID,
		AmountUSD:             req.AmountUSD,
		Currency:              req.Currency,
		CryptoAmount:          gwResp.CryptoAmount,
		Status:                domain.PaymentStatusPending,
		ReferralCommissionUSD: commissionUSD,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := s.paymentRepo.Create(ctx, p); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperror.InternalError(fmt.Errorf("create payment: %w", err))
	}

	s.log.Info().
		Str("txn_id", p.TxnID).
		Str("user_id", p.UserID.String()).
		Int64("amount_usd", p.AmountUSD).
		Str("currency", p.Currency).
		Msg("payment initiated")

	return p, nil
}

// Settle applies a verified settlement event with pessimistic locking.
// Terminal payments absorb replays as successful no-ops; a COMPLETED
// transition credits the buyer, pays the referral commission at most once,
// and bumps the circulating supply in the same transaction.
func (s *PaymentServiceImpl) Settle(ctx context.Context, event *domain.SettlementEvent) (*ports.SettlementResult, error) {
	// Fast path: recently processed (txn_id, status) pairs short-circuit
	// on the terminal row state without taking the row lock.
	seen, err := s.replayCache.Seen(ctx, event.TxnID, event.GatewayStatus, replayTTL)
	if err != nil {
		s.log.Warn().Err(err).Str("txn_id", event.TxnID).Msg("replay cache check failed, falling through to DB")
	}
	if seen {
		p, err := s.paymentRepo.GetByTxnID(ctx, event.TxnID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("load payment: %w", err))
		}
		if p != nil && p.Status.IsTerminal() {
			return &ports.SettlementResult{Payment: p, Replay: true}, nil
		}
	}

	// Settings snapshot taken before entering the critical section; no
	// reads outside the row locks happen while they are held.
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("load settings: %w", err))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	p, err := s.paymentRepo.GetByTxnIDForUpdate(ctx, dbTx, event.TxnID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock payment: %w", err))
	}
	if p == nil {
		return nil, apperror.ErrPaymentNotFound()
	}

	if p.Status.IsTerminal() {
		return &ports.SettlementResult{Payment: p, Replay: true}, nil
	}

	if event.Status != domain.PaymentStatusCompleted {
		return s.settleNonFinal(ctx, dbTx, p, event)
	}

	result, err := s.settleCompleted(ctx, dbTx, p, event, settings)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("txn_id", p.TxnID).
		Str("user_id", p.UserID.String()).
		Int64("tokens_credited", result.TokensCredited).
		Int64("commission_paid", result.CommissionPaid).
		Msg("payment settled")

	return result, nil
}

// settleNonFinal records a PENDING/PARTIAL progress update or a FAILED
// terminal transition. No balance or supply movement happens here.
func (s *PaymentServiceImpl) settleNonFinal(ctx context.Context, dbTx pgx.Tx, p *domain.Payment, event *domain.SettlementEvent) (*ports.SettlementResult, error) {
	next := event.Status
	if next != p.Status && !p.Status.CanTransitionTo(next) {
		// Out-of-order delivery (e.g. a late PENDING after PARTIAL);
		// keep the further-along state, still record what arrived.
		next = p.Status
	}

	if err := s.paymentRepo.UpdateSettlement(ctx, dbTx, p.ID, next, event.ReceivedAmount, p.ReferralPaid); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update payment: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	p.Status = next
	p.ReceivedAmount = event.ReceivedAmount
	p.UpdatedAt = time.Now().UTC()

	s.log.Info().
		Str("txn_id", p.TxnID).
		Int("gateway_status", event.GatewayStatus).
		Str("status", string(next)).
		Msg("settlement progress recorded")

	return &ports.SettlementResult{Payment: p}, nil
}

// settleCompleted performs the full value transfer for a COMPLETED
// transition inside the caller's transaction: one combined supply bump for
// deposit plus commission, then balance credits and ledger entries.
func (s *PaymentServiceImpl) settleCompleted(ctx context.Context, dbTx pgx.Tx, p *domain.Payment, event *domain.SettlementEvent, settings *domain.SystemSettings) (*ports.SettlementResult, error) {
	tokens := settings.ConvertUSDToTokens(p.AmountUSD)

	var (
		referrer         *domain.User
		commissionTokens int64
	)
	if p.ReferralCommissionUSD > 0 && !p.ReferralPaid {
		payer, err := s.userRepo.GetByID(ctx, p.UserID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("load payer: %w", err))
		}
		if payer != nil && payer.ReferredBy != nil {
			referrer, err = s.userRepo.GetByReferralCode(ctx, *payer.ReferredBy)
			if err != nil {
				return nil, apperror.InternalError(fmt.Errorf("load referrer: %w", err))
			}
			if referrer != nil && referrer.ID != payer.ID {
				commissionTokens = settings.ConvertUSDToTokens(p.ReferralCommissionUSD)
			} else {
				referrer = nil
			}
		}
	}

	// One conditional bump covers deposit and commission so the cap cannot
	// be split-crossed. The settings row lock serializes issuance globally.
	ok, err := s.settingsRepo.BumpSupply(ctx, dbTx, tokens+commissionTokens)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("bump supply: %w", err))
	}
	if !ok {
		return nil, apperror.ErrSupplyExceeded()
	}

	now := time.Now().UTC()

	if err := s.userRepo.CreditBalance(ctx, dbTx, p.UserID, tokens); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("credit buyer: %w", err))
	}
	if err := s.ledgerRepo.Create(ctx, dbTx, &domain.LedgerEntry{
		ID:         uuid.New(),
		UserID:     p.UserID,
		EntryType:  domain.EntryTypeDeposit,
		Amount:     tokens,
		Status:     domain.EntryStatusCompleted,
		ExternalID: p.ID,
		CreatedAt:  now,
	}); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("deposit ledger entry: %w", err))
	}

	referralPaid := p.ReferralPaid
	if commissionTokens > 0 {
		if err := s.userRepo.CreditBalance(ctx, dbTx, referrer.ID, commissionTokens); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("credit referrer: %w", err))
		}
		if err := s.ledgerRepo.Create(ctx, dbTx, &domain.LedgerEntry{
			ID:         uuid.New(),
			UserID:     referrer.ID,
			EntryType:  domain.EntryTypeReferralCommission,
			Amount:     commissionTokens,
			Status:     domain.EntryStatusCompleted,
			ExternalID: p.ID,
			CreatedAt:  now,
		}); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("commission ledger entry: %w", err))
		}
		referralPaid = true
	}

	if err := s.paymentRepo.UpdateSettlement(ctx, dbTx, p.ID, domain.PaymentStatusCompleted, event.ReceivedAmount, referralPaid); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update payment: %w", err))
	}

	p.Status = domain.PaymentStatusCompleted
	p.ReceivedAmount = event.ReceivedAmount
	p.ReferralPaid = referralPaid
	p.UpdatedAt = now

	return &ports.SettlementResult{
		Payment:        p,
		TokensCredited: tokens,
		CommissionPaid: commissionTokens,
	}, nil
}

// List returns the user's payments, newest first.
func (s *PaymentServiceImpl) List(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Payment, int64, error) {
	payments, total, err := s.paymentRepo.ListByUser(ctx, userID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list payments: %w", err))
	}
	return payments, total, nil
}
