package integration

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"token-sale-gateway/internal/core/domain"
	"token-sale-gateway/internal/core/ports"
	"token-sale-gateway/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// The in-memory repos share one store so transactional flows see a
// consistent state. A single mutex in the transactor serializes everything
// that runs inside a Begin/Commit window, standing in for Postgres row
// locks.

type memStore struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]*domain.User
	payments    map[uuid.UUID]*domain.Payment
	paymentsTxn map[string]uuid.UUID
	ledger      []*domain.LedgerEntry
	withdrawals map[uuid.UUID]*domain.Withdrawal
	settings    domain.SystemSettings
}

func newMemStore(settings domain.SystemSettings) *memStore {
	return &memStore{
		users:       make(map[uuid.UUID]*domain.User),
		payments:    make(map[uuid.UUID]*domain.Payment),
		paymentsTxn: make(map[string]uuid.UUID),
		withdrawals: make(map[uuid.UUID]*domain.Withdrawal),
		settings:    settings,
	}
}

// --- In-Memory User Repo ---

type inMemoryUserRepo struct {
	store *memStore
}

func (r *inMemoryUserRepo) Create(_ context.Context, user *domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.users {
		if existing.Username == user.Username {
			return fmt.Errorf("username already exists")
		}
	}
	u := *user
	r.store.users[user.ID] = &u
	return nil
}

func (r *inMemoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	u, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *inMemoryUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, u := range r.store.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *inMemoryUserRepo) GetByReferralCode(_ context.Context, code string) (*domain.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	for _, u := range r.store.users {
		if u.ReferralCode == code {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *inMemoryUserRepo) CreditBalance(_ context.Context, _ pgx.Tx, userID uuid.UUID, amount int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[userID]
	if !ok {
		return fmt.Errorf("user not found")
	}
	u.Balance += amount
	return nil
}

func (r *inMemoryUserRepo) DebitBalance(_ context.Context, _ pgx.Tx, userID uuid.UUID, amount int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	u, ok := r.store.users[userID]
	if !ok {
		return false, fmt.Errorf("user not found")
	}
	if u.Balance < amount {
		return false, nil
	}
	u.Balance -= amount
	return true, nil
}

// --- In-Memory Payment Repo ---

type inMemoryPaymentRepo struct {
	store *memStore
}

func (r *inMemoryPaymentRepo) Create(_ context.Context, p *domain.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.paymentsTxn[p.TxnID]; exists {
		return apperror.ErrDuplicatePayment()
	}
	copied := *p
	r.store.payments[p.ID] = &copied
	r.store.paymentsTxn[p.TxnID] = p.ID
	return nil
}

func (r *inMemoryPaymentRepo) GetByTxnID(_ context.Context, txnID string) (*domain.Payment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	id, ok := r.store.paymentsTxn[txnID]
	if !ok {
		return nil, nil
	}
	copied := *r.store.payments[id]
	return &copied, nil
}

func (r *inMemoryPaymentRepo) GetByTxnIDForUpdate(ctx context.Context, _ pgx.Tx, txnID string) (*domain.Payment, error) {
	return r.GetByTxnID(ctx, txnID)
}

func (r *inMemoryPaymentRepo) UpdateSettlement(_ context.Context, _ pgx.Tx, id uuid.UUID, status domain.PaymentStatus, receivedAmount int64, referralPaid bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.payments[id]
	if !ok {
		return fmt.Errorf("payment not found")
	}
	p.Status = status
	p.ReceivedAmount = receivedAmount
	p.ReferralPaid = referralPaid
	return nil
}

func (r *inMemoryPaymentRepo) ListByUser(_ context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Payment, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.Payment
	for _, p := range r.store.payments {
		if p.UserID == userID {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return paginate(result, page, pageSize)
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	store *memStore
}

func (r *inMemoryLedgerRepo) Create(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *entry
	r.store.ledger = append(r.store.ledger, &copied)
	return nil
}

func (r *inMemoryLedgerRepo) ReverseByExternalID(_ context.Context, _ pgx.Tx, externalID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.ledger {
		if e.ExternalID == externalID && e.Status == domain.EntryStatusCompleted {
			e.Status = domain.EntryStatusReversed
			return nil
		}
	}
	return fmt.Errorf("no completed entry for external id %s", externalID)
}

func (r *inMemoryLedgerRepo) ListByUser(_ context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.LedgerEntry
	for _, e := range r.store.ledger {
		if e.UserID != params.UserID {
			continue
		}
		if params.EntryType != nil && e.EntryType != *params.EntryType {
			continue
		}
		result = append(result, *e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return paginate(result, params.Page, params.PageSize)
}

// --- In-Memory Withdrawal Repo ---

type inMemoryWithdrawalRepo struct {
	store *memStore
}

func (r *inMemoryWithdrawalRepo) Create(_ context.Context, _ pgx.Tx, w *domain.Withdrawal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copied := *w
	r.store.withdrawals[w.ID] = &copied
	return nil
}

func (r *inMemoryWithdrawalRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Withdrawal, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.withdrawals[id]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

func (r *inMemoryWithdrawalRepo) GetByIDForUpdate(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*domain.Withdrawal, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryWithdrawalRepo) UpdateDecision(_ context.Context, _ pgx.Tx, w *domain.Withdrawal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stored, ok := r.store.withdrawals[w.ID]
	if !ok {
		return fmt.Errorf("withdrawal not found")
	}
	stored.Status = w.Status
	stored.RejectionReason = w.RejectionReason
	stored.ProcessedBy = w.ProcessedBy
	stored.ProcessedAt = w.ProcessedAt
	return nil
}

func (r *inMemoryWithdrawalRepo) ListByUser(_ context.Context, userID uuid.UUID, page, pageSize int) ([]domain.Withdrawal, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.Withdrawal
	for _, w := range r.store.withdrawals {
		if w.UserID == userID {
			result = append(result, *w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RequestedAt.After(result[j].RequestedAt) })
	return paginate(result, page, pageSize)
}

func (r *inMemoryWithdrawalRepo) ListPending(_ context.Context, page, pageSize int) ([]domain.Withdrawal, int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []domain.Withdrawal
	for _, w := range r.store.withdrawals {
		if w.Status == domain.WithdrawalStatusPending {
			result = append(result, *w)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RequestedAt.Before(result[j].RequestedAt) })
	return paginate(result, page, pageSize)
}

// --- In-Memory Settings Repo ---

type inMemorySettingsRepo struct {
	store *memStore
}

func (r *inMemorySettingsRepo) Get(_ context.Context) (*domain.SystemSettings, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	copied := r.store.settings
	return &copied, nil
}

func (r *inMemorySettingsRepo) BumpSupply(_ context.Context, _ pgx.Tx, delta int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if r.store.settings.CurrentSupply+delta > r.store.settings.MaxSupply {
		return false, nil
	}
	r.store.settings.CurrentSupply += delta
	return true, nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes transactions with one mutex, approximating
// the row-lock serialization the real repos get from SELECT ... FOR UPDATE.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(_ context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockTx{release: &t.mu}, nil
}

// lockTx holds the transactor mutex until Commit or Rollback, whichever
// comes first.
type lockTx struct {
	release *sync.Mutex
	once    sync.Once
}

func (t *lockTx) done() {
	t.once.Do(t.release.Unlock)
}

func (t *lockTx) Begin(_ context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockTx) Commit(_ context.Context) error          { t.done(); return nil }
func (t *lockTx) Rollback(_ context.Context) error        { t.done(); return nil }
func (t *lockTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *lockTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockTx) Exec(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockTx) Query(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockTx) QueryRow(_ context.Context, _ string, _ ...any) pgx.Row { return nil }
func (t *lockTx) Conn() *pgx.Conn                                        { return nil }

func paginate[T any](items []T, page, pageSize int) ([]T, int64, error) {
	total := int64(len(items))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}, total, nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total, nil
}
