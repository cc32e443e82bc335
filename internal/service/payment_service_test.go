package service

import (
	"context"
	"errors"
	"testing"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"
	"token-sale-gateway/internal/core/ports/mocks"
	"token-sale-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type paymentTestDeps struct {
	svc          *PaymentServiceImpl
	paymentRepo  *mocks.MockPaymentRepository
	userRepo     *mocks.MockUserRepository
	ledgerRepo   *mocks.MockLedgerRepository
	settingsRepo *mocks.MockSettingsRepository
	gateway      *mocks.MockGatewayClient
	replayCache  *mocks.MockReplayCache
	transactor   *mocks.MockDBTransactor
	ctrl         *gomock.Controller
}

func setupPaymentService(t *testing.T) *paymentTestDeps {
	ctrl := gomock.NewController(t)
	d := &paymentTestDeps{
		paymentRepo:  mocks.NewMockPaymentRepository(ctrl),
		userRepo:     mocks.NewMockUserRepository(ctrl),
		ledgerRepo:   mocks.NewMockLedgerRepository(ctrl),
		settingsRepo: mocks.NewMockSettingsRepository(ctrl),
		gateway:      mocks.NewMockGatewayClient(ctrl),
		replayCache:  mocks.NewMockReplayCache(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewPaymentService(
		d.paymentRepo, d.userRepo, d.ledgerRepo, d.settingsRepo,
		d.gateway, d.replayCache, d.transactor, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func testSettings() *domain.SystemSettings {
	return &domain.SystemSettings{
		CurrentSupply:         0,
		MaxSupply:             1_000_000 * domain.MicroTokens,
		TokenPriceCents:       100, // $1.00 per token
		WithdrawFeeBps:        200, // 2%
		ReferralCommissionBps: 1000, // 10%
	}
}

// ==================== Initiate Tests ====================

func TestPaymentService_Initiate_Success(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.settingsRepo.EXPECT().Get(ctx).Return(testSettings(), nil)
	d.userRepo.EXPECT().GetByID(ctx, userID).Return(&domain.User{ID: userID, Username: "alice"}, nil)
	d.gateway.EXPECT().CreateTransaction(ctx, ports.GatewayTxRequest{
		AmountUSD: 2000,
		Currency:  "LTCT",
		BuyerID:   userID.String(),
	}).Return(&ports.GatewayTxResponse{
		TxnID:        "CPBF23CBUSVZNPFLFHCTQOEYZC",
		Address:      "mn6GLccpUZM3Jh65SOME",
		CryptoAmount: 50_000_000, // 0.5 LTCT
	}, nil)
	d.paymentRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	p, err := d.svc.Initiate(ctx, ports.InitiateRequest{UserID: userID, AmountUSD: 2000, Currency: "LTCT"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "CPBF23CBUSVZNPFLFHCTQOEYZC", p.TxnID)
	assert.Equal(t, domain.PaymentStatusPending, p.Status)
	assert.Equal(t, int64(2000), p.AmountUSD)
	assert.Zero(t, p.ReferralCommissionUSD, "no referrer, no commission")
}

func TestPaymentService_Initiate_ReferredUserGetsCommission(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()
	refCode := "REFCODE9"

	d.settingsRepo.EXPECT().Get(ctx).Return(testSettings(), nil)
	d.userRepo.EXPECT().GetByID(ctx, userID).Return(&domain.User{ID: userID, ReferredBy: &refCode}, nil)
	d.gateway.EXPECT().CreateTransaction(ctx, gomock.Any()).Return(&ports.GatewayTxResponse{TxnID: "TX1"}, nil)
	d.paymentRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	p, err := d.svc.Initiate(ctx, ports.InitiateRequest{UserID: userID, AmountUSD: 2000, Currency: "LTCT"})
	require.NoError(t, err)
	assert.Equal(t, int64(200), p.ReferralCommissionUSD, "10% of $20.00")
}

func TestPaymentService_Initiate_InvalidAmount(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Initiate(context.Background(), ports.InitiateRequest{UserID: uuid.New(), AmountUSD: 0})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_002", appErr.Code)
}

func TestPaymentService_Initiate_SoldOut(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	settings := testSettings()
	settings.CurrentSupply = settings.MaxSupply // nothing left

	d.settingsRepo.EXPECT().Get(ctx).Return(settings, nil)

	_, err := d.svc.Initiate(ctx, ports.InitiateRequest{UserID: uuid.New(), AmountUSD: 100, Currency: "LTCT"})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LEDGER_002", appErr.Code)
}

func TestPaymentService_Initiate_GatewayUnavailable(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	d.settingsRepo.EXPECT().Get(ctx).Return(testSettings(), nil)
	d.userRepo.EXPECT().GetByID(ctx, userID).Return(&domain.User{ID: userID}, nil)
	d.gateway.EXPECT().CreateTransaction(ctx, gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := d.svc.Initiate(ctx, ports.InitiateRequest{UserID: userID, AmountUSD: 100, Currency: "LTCT"})
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_003", appErr.Code)
}

// ==================== Settle Tests ====================

func completedEvent(txnID string) *domain.SettlementEvent {
	return &domain.SettlementEvent{
		TxnID:          txnID,
		GatewayStatus:  100,
		Status:         domain.PaymentStatusCompleted,
		ReceivedAmount: 50_000_000,
		Currency:       "LTCT",
	}
}

func TestPaymentService_Settle_Completed_NoReferral(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	userID := uuid.New()
	payment := &domain.Payment{
		ID:        uuid.New(),
		TxnID:     "TX1",
		UserID:    userID,
		AmountUSD: 2000,
		Status:    domain.PaymentStatusPending,
	}
	event := completedEvent("TX1")

	d.replayCache.EXPECT().Seen(ctx, "TX1", 100, replayTTL).Return(false, nil)
	d.settingsRepo.EXPECT().Get(ctx).Return(testSettings(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByTxnIDForUpdate(ctx, tx, "TX1").Return(payment, nil)
	// $20 at $1.00/token = 20 tokens, no commission
	d.settingsRepo.EXPECT().BumpSupply(ctx, tx, 20*domain.MicroTokens).Return(true, nil)
	d.userRepo.EXPECT().CreditBalance(ctx, tx, userID, 20*domain.MicroTokens).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			assert.Equal(t, domain.EntryTypeDeposit, e.EntryType)
			assert.Equal(t, 20*domain.MicroTokens, e.Amount)
			assert.Equal(t, payment.ID, e.ExternalID)
			return nil
		})
	d.paymentRepo.EXPECT().UpdateSettlement(ctx, tx, payment.ID, domain.PaymentStatusCompleted, int64(50_000_000), false).Return(nil)

	result, err := d.svc.Settle(ctx, event)
	require.NoError(t, err)
	assert.False(t, result.Replay)
	assert.Equal(t, 20*domain.MicroTokens, result.TokensCredited)
	assert.Zero(t, result.CommissionPaid)
	assert.Equal(t, domain.PaymentStatusCompleted, result.Payment.Status)
}

func TestPaymentService_Settle_Completed_WithReferral(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	userID := uuid.New()
	referrerID := uuid.New()
	refCode := "REFCODE9"
	payment := &domain.Payment{
		ID:                    uuid.New(),
		TxnID:                 "TX2",
		UserID:                userID,
		AmountUSD:             2000,
		ReferralCommissionUSD: 200,
		Status:                domain.PaymentStatusPending,
	}

	d.replayCache.EXPECT().Seen(ctx, "TX2", 100, replayTTL).Return(false, nil)
	d.settingsRepo.EXPECT().Get(ctx).Return(testSettings(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByTxnIDForUpdate(ctx, tx, "TX2").Return(payment, nil)
	d.userRepo.EXPECT().GetByID(ctx, userID).Return(&domain.User{ID: userID, ReferredBy: &refCode}, nil)
	d.userRepo.EXPECT().GetByReferralCode(ctx, refCode).Return(&domain.User{ID: referrerID, ReferralCode: refCode}, nil)
	// One combined bump: 20 tokens deposit + 2 tokens commission
	d.settingsRepo.EXPECT().BumpSupply(ctx, tx, 22*domain.MicroTokens).Return(true, nil)
	d.userRepo.EXPECT().CreditBalance(ctx, tx, userID, 20*domain.MicroTokens).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.userRepo.EXPECT().CreditBalance(ctx, tx, referrerID, 2*domain.MicroTokens).Return(nil)
	d.ledgerRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, e *domain.LedgerEntry) error {
			assert.Equal(t, domain.EntryTypeReferralCommission, e.EntryType)
			assert.Equal(t, referrerID, e.UserID)
			return nil
		})
	d.paymentRepo.EXPECT().UpdateSettlement(ctx, tx, payment.ID, domain.PaymentStatusCompleted, int64(50_000_000), true).Return(nil)

	result, err := d.svc.Settle(ctx, completedEvent("TX2"))
	require.NoError(t, err)
	assert.Equal(t, 20*domain.MicroTokens, result.TokensCredited)
	assert.Equal(t, 2*domain.MicroTokens, result.CommissionPaid)
	assert.True(t, result.Payment.ReferralPaid)
}

func TestPaymentService_Settle_SupplyExceeded(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	payment := &domain.Payment{
		ID:        uuid.New(),
		TxnID:     "TX3",
		UserID:    uuid.New(),
		AmountUSD: 2000,
		Status:    domain.PaymentStatusPending,
	}

	d.replayCache.EXPECT().Seen(ctx, "TX3", 100, replayTTL).Return(false, nil)
	d.settingsRepo.EXPECT().Get(ctx).Return(testSettings(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByTxnIDForUpdate(ctx, tx, "TX3").Return(payment, nil)
	d.settingsRepo.EXPECT().BumpSupply(ctx, tx, 20*domain.MicroTokens).Return(false, nil)

	_, err := d.svc.Settle(ctx, completedEvent("TX3"))
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "LEDGER_002", appErr.Code)
}

func TestPaymentService_Settle_ReplayOnTerminalRow(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	payment := &domain.Payment{
		ID:     uuid.New(),
		TxnID:  "TX4",
		Status: domain.PaymentStatusCompleted,
	}

	d.replayCache.EXPECT().Seen(ctx, "TX4", 100, replayTTL).Return(false, nil)
	d.settingsRepo.EXPECT().Get(ctx).Return(testSettings(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByTxnIDForUpdate(ctx, tx, "TX4").Return(payment, nil)
	// No credits, no bump, no update: the replay is a pure no-op.

	result, err := d.svc.Settle(ctx, completedEvent("TX4"))
	require.NoError(t, err)
	assert.True(t, result.Replay)
	assert.Zero(t, result.TokensCredited)
}

func TestPaymentService_Settle_ReplayCacheFastPath(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	payment := &domain.Payment{ID: uuid.New(), TxnID: "TX5", Status: domain.PaymentStatusCompleted}

	d.replayCache.EXPECT().Seen(ctx, "TX5", 100, replayTTL).Return(true, nil)
	d.paymentRepo.EXPECT().GetByTxnID(ctx, "TX5").Return(payment, nil)
	// Terminal row short-circuits without opening a transaction.

	result, err := d.svc.Settle(ctx, completedEvent("TX5"))
	require.NoError(t, err)
	assert.True(t, result.Replay)
}

func TestPaymentService_Settle_UnknownTxnID(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.replayCache.EXPECT().Seen(ctx, "NOPE", 100, replayTTL).Return(false, nil)
	d.settingsRepo.EXPECT().Get(ctx).Return(testSettings(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByTxnIDForUpdate(ctx, tx, "NOPE").Return(nil, nil)

	_, err := d.svc.Settle(ctx, completedEvent("NOPE"))
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAY_001", appErr.Code)
}

func TestPaymentService_Settle_FailedTransition(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	payment := &domain.Payment{
		ID:     uuid.New(),
		TxnID:  "TX6",
		Status: domain.PaymentStatusPending,
	}
	event := &domain.SettlementEvent{
		TxnID:         "TX6",
		GatewayStatus: -1,
		Status:        domain.PaymentStatusFailed,
	}

	d.replayCache.EXPECT().Seen(ctx, "TX6", -1, replayTTL).Return(false, nil)
	d.settingsRepo.EXPECT().Get(ctx).Return(testSettings(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByTxnIDForUpdate(ctx, tx, "TX6").Return(payment, nil)
	d.paymentRepo.EXPECT().UpdateSettlement(ctx, tx, payment.ID, domain.PaymentStatusFailed, int64(0), false).Return(nil)

	result, err := d.svc.Settle(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, result.Payment.Status)
	assert.Zero(t, result.TokensCredited, "failed settlement moves no value")
}

func TestPaymentService_Settle_PartialRecordsReceivedAmount(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	payment := &domain.Payment{
		ID:     uuid.New(),
		TxnID:  "TX7",
		Status: domain.PaymentStatusPending,
	}
	event := &domain.SettlementEvent{
		TxnID:          "TX7",
		GatewayStatus:  1,
		Status:         domain.PaymentStatusPartial,
		ReceivedAmount: 25_000_000,
	}

	d.replayCache.EXPECT().Seen(ctx, "TX7", 1, replayTTL).Return(false, nil)
	d.settingsRepo.EXPECT().Get(ctx).Return(testSettings(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByTxnIDForUpdate(ctx, tx, "TX7").Return(payment, nil)
	d.paymentRepo.EXPECT().UpdateSettlement(ctx, tx, payment.ID, domain.PaymentStatusPartial, int64(25_000_000), false).Return(nil)

	result, err := d.svc.Settle(ctx, event)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPartial, result.Payment.Status)
	assert.Equal(t, int64(25_000_000), result.Payment.ReceivedAmount)
}

func TestPaymentService_Settle_CacheErrorFallsThrough(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	payment := &domain.Payment{ID: uuid.New(), TxnID: "TX8", Status: domain.PaymentStatusCompleted}

	d.replayCache.EXPECT().Seen(ctx, "TX8", 100, replayTTL).Return(false, errors.New("redis down"))
	d.settingsRepo.EXPECT().Get(ctx).Return(testSettings(), nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.paymentRepo.EXPECT().GetByTxnIDForUpdate(ctx, tx, "TX8").Return(payment, nil)

	result, err := d.svc.Settle(ctx, completedEvent("TX8"))
	require.NoError(t, err, "cache outage must not block settlement")
	assert.True(t, result.Replay)
}
