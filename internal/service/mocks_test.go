package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/internal/provider"
	"github.com/yusufpr/akrab_bot/utils"
)

func testLogger() *utils.Logger {
	return utils.InitLogger()
}

// fakeRepo is an in-memory Repository. The guarded transitions mirror the
// real conditional updates: settle and consume flip state under one lock.
type fakeRepo struct {
	mu           sync.Mutex
	users        map[int64]*models.User
	transactions map[string]*models.Transaction
	topups       map[string]*models.TopupRequest
	codes        map[string]*models.RedeemCode
	overrides    map[string]*models.ProductOverride
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:        make(map[int64]*models.User),
		transactions: make(map[string]*models.Transaction),
		topups:       make(map[string]*models.TopupRequest),
		codes:        make(map[string]*models.RedeemCode),
		overrides:    make(map[string]*models.ProductOverride),
	}
}

func (f *fakeRepo) GetUser(_ context.Context, id int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.users[user.TelegramID]; ok {
		existing.Username = user.Username
		existing.FullName = user.FullName
		return nil
	}
	cp := *user
	f.users[user.TelegramID] = &cp
	return nil
}

func (f *fakeRepo) GetAllUsers(_ context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeRepo) GetBalance(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[userID]; ok {
		return u.Balance, nil
	}
	return 0, nil
}

func (f *fakeRepo) CreditBalance(_ context.Context, userID int64, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credit(userID, amount)
	return nil
}

func (f *fakeRepo) credit(userID int64, amount int64) {
	u, ok := f.users[userID]
	if !ok {
		u = &models.User{TelegramID: userID}
		f.users[userID] = u
	}
	u.Balance += amount
}

func (f *fakeRepo) DebitBalance(_ context.Context, userID int64, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return errors.New("user not found for debit")
	}
	u.Balance -= amount
	return nil
}

func (f *fakeRepo) CreateTransaction(_ context.Context, trx *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *trx
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	f.transactions[trx.ReffID] = &cp
	return nil
}

func (f *fakeRepo) GetTransactionByRef(_ context.Context, reffID string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trx, ok := f.transactions[reffID]
	if !ok {
		return nil, nil
	}
	cp := *trx
	return &cp, nil
}

func (f *fakeRepo) SettleTransaction(_ context.Context, reffID, statusText string, outcome models.TxStatus, remark string, refundUserID, refundAmount int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	trx, ok := f.transactions[reffID]
	if !ok {
		return false, nil
	}
	if models.TxStatus(trx.Outcome).Terminal() {
		return false, nil
	}
	trx.StatusText = statusText
	trx.Outcome = string(outcome)
	trx.Remark = remark
	if refundAmount > 0 {
		f.credit(refundUserID, refundAmount)
	}
	return true, nil
}

func (f *fakeRepo) ListTransactionsByUser(_ context.Context, userID int64, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, trx := range f.transactions {
		if trx.UserID == userID && len(out) < limit {
			out = append(out, *trx)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListAllTransactions(_ context.Context, limit int) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, trx := range f.transactions {
		if len(out) < limit {
			out = append(out, *trx)
		}
	}
	return out, nil
}

func (f *fakeRepo) CountTransactionsByUser(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, trx := range f.transactions {
		if trx.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) ListStalePending(_ context.Context, before time.Time) ([]models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Transaction
	for _, trx := range f.transactions {
		if !models.TxStatus(trx.Outcome).Terminal() && trx.CreatedAt.Before(before) {
			out = append(out, *trx)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateTopup(_ context.Context, topup *models.TopupRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *topup
	f.topups[topup.ID] = &cp
	return nil
}

func (f *fakeRepo) GetTopupByID(_ context.Context, id string) (*models.TopupRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.topups[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeRepo) AttachTopupProof(_ context.Context, id, fileID, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.topups[id]
	if !ok {
		return errors.New("topup not found")
	}
	t.ProofFileID = fileID
	t.ProofCaption = caption
	return nil
}

func (f *fakeRepo) SettleTopup(_ context.Context, id, status string, credit bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.topups[id]
	if !ok {
		return false, nil
	}
	if t.Status != models.TopupPending {
		return false, nil
	}
	t.Status = status
	if credit {
		f.credit(t.UserID, t.Amount)
	}
	return true, nil
}

func (f *fakeRepo) ListTopupsByUser(_ context.Context, userID int64, limit int) ([]models.TopupRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TopupRequest
	for _, t := range f.topups {
		if t.UserID == userID && len(out) < limit {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListPendingTopups(_ context.Context, limit int) ([]models.TopupRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TopupRequest
	for _, t := range f.topups {
		if t.Status == models.TopupPending && len(out) < limit {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateRedeemCode(_ context.Context, code *models.RedeemCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.codes[code.Code]; exists {
		return errors.New("duplicate code")
	}
	cp := *code
	f.codes[code.Code] = &cp
	return nil
}

func (f *fakeRepo) GetRedeemCode(_ context.Context, code string) (*models.RedeemCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rc, ok := f.codes[code]
	if !ok {
		return nil, nil
	}
	cp := *rc
	return &cp, nil
}

func (f *fakeRepo) ConsumeRedeemCode(_ context.Context, code string, userID int64) (int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rc, ok := f.codes[code]
	if !ok {
		return 0, false, nil
	}
	if rc.Used {
		return 0, false, nil
	}
	now := time.Now()
	rc.Used = true
	rc.UsedBy = &userID
	rc.UsedAt = &now
	f.credit(userID, rc.Amount)
	return rc.Amount, true, nil
}

func (f *fakeRepo) ListRedeemCodesByIssuer(_ context.Context, issuedBy int64, limit int) ([]models.RedeemCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RedeemCode
	for _, rc := range f.codes {
		if rc.IssuedBy == issuedBy && len(out) < limit {
			out = append(out, *rc)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetOverride(_ context.Context, code string) (*models.ProductOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ov, ok := f.overrides[code]
	if !ok {
		return nil, nil
	}
	cp := *ov
	return &cp, nil
}

func (f *fakeRepo) SetOverridePrice(_ context.Context, code string, price int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ov, ok := f.overrides[code]; ok {
		ov.Price = price
		return nil
	}
	f.overrides[code] = &models.ProductOverride{Code: code, Price: price}
	return nil
}

func (f *fakeRepo) SetOverrideDescription(_ context.Context, code, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ov, ok := f.overrides[code]; ok {
		ov.Description = description
		return nil
	}
	f.overrides[code] = &models.ProductOverride{Code: code, Description: description}
	return nil
}

func (f *fakeRepo) ListOverrides(_ context.Context) ([]models.ProductOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ProductOverride, 0, len(f.overrides))
	for _, ov := range f.overrides {
		out = append(out, *ov)
	}
	return out, nil
}

// fakeFulfillment scripts dispatch replies per test.
type fakeFulfillment struct {
	mu            sync.Mutex
	dispatchCalls int
	dispatchErr   error
	status        string
	message       string
	products      []models.Product
	fetchErr      error
	fetchCalls    int
	fetchDelay    time.Duration
}

func (f *fakeFulfillment) Dispatch(_ context.Context, _, _, _ string) (*provider.DispatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dispatchCalls++
	if f.dispatchErr != nil {
		return nil, f.dispatchErr
	}
	status := f.status
	if status == "" {
		status = "PENDING"
	}
	return &provider.DispatchResult{Status: status, Message: f.message}, nil
}

func (f *fakeFulfillment) FetchStock(_ context.Context) ([]models.Product, error) {
	f.mu.Lock()
	f.fetchCalls++
	delay := f.fetchDelay
	products := f.products
	err := f.fetchErr
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return products, err
}

type fakeQRIS struct {
	image []byte
	err   error
}

func (f *fakeQRIS) Generate(_ context.Context, _ int64) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}

func newTestService(repo *fakeRepo, fulfillment *fakeFulfillment, qris *fakeQRIS) *Service {
	logger := testLogger()
	catalog := NewCatalogCache(fulfillment.FetchStock, time.Minute, logger)
	return NewService(repo, fulfillment, qris, catalog, []int64{999}, logger)
}
