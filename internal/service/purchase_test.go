package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yusufpr/akrab_bot/internal/models"
)

func TestPurchaseHappyPath(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.users[1] = &models.User{TelegramID: 1, Balance: 150_000}
	fulfillment := &fakeFulfillment{
		status:   "PENDING",
		message:  "Transaksi sedang diproses.",
		products: []models.Product{{Code: "XLA39", Name: "Akrab XL 39GB", Stock: 5, Price: 115_000}},
	}
	svc := newTestService(repo, fulfillment, &fakeQRIS{})

	trx, err := svc.Purchase(ctx, 1, "XLA39", "081234567890")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if trx.ReffID == "" {
		t.Fatal("expected a correlation ID")
	}
	if trx.Price != 115_000 {
		t.Fatalf("price = %d, want 115000", trx.Price)
	}
	if trx.Outcome != string(models.StatusPending) {
		t.Fatalf("outcome = %s, want pending", trx.Outcome)
	}

	balance, _ := repo.GetBalance(ctx, 1)
	if balance != 35_000 {
		t.Fatalf("balance = %d, want 35000 (debited up front)", balance)
	}
	if fulfillment.dispatchCalls != 1 {
		t.Fatalf("dispatch calls = %d, want 1", fulfillment.dispatchCalls)
	}
}

func TestPurchaseInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.users[1] = &models.User{TelegramID: 1, Balance: 0}
	fulfillment := &fakeFulfillment{
		products: []models.Product{{Code: "XLA39", Name: "Akrab XL 39GB", Stock: 5, Price: 50_000}},
	}
	svc := newTestService(repo, fulfillment, &fakeQRIS{})

	_, err := svc.Purchase(ctx, 1, "XLA39", "081234567890")
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if fulfillment.dispatchCalls != 0 {
		t.Fatal("no dispatch may happen without funds")
	}
	balance, _ := repo.GetBalance(ctx, 1)
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestPurchaseInvalidDestination(t *testing.T) {
	repo := newFakeRepo()
	repo.users[1] = &models.User{TelegramID: 1, Balance: 150_000}
	fulfillment := &fakeFulfillment{
		products: []models.Product{{Code: "XLA39", Price: 50_000}},
	}
	svc := newTestService(repo, fulfillment, &fakeQRIS{})

	for _, dest := range []string{"", "12345", "08123abc", "0812345678901234567"} {
		if _, err := svc.Purchase(context.Background(), 1, "XLA39", dest); !errors.Is(err, ErrInvalidDestination) {
			t.Errorf("destination %q: expected ErrInvalidDestination, got %v", dest, err)
		}
	}
	if fulfillment.dispatchCalls != 0 {
		t.Fatal("no dispatch may happen for an invalid destination")
	}
}

func TestPurchaseDispatchFailureRefunds(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.users[1] = &models.User{TelegramID: 1, Balance: 115_000}
	fulfillment := &fakeFulfillment{
		dispatchErr: errors.New("connection refused"),
		products:    []models.Product{{Code: "XLA39", Price: 115_000}},
	}
	svc := newTestService(repo, fulfillment, &fakeQRIS{})

	_, err := svc.Purchase(ctx, 1, "XLA39", "081234567890")
	if !errors.Is(err, ErrDispatchFailed) {
		t.Fatalf("expected ErrDispatchFailed, got %v", err)
	}

	balance, _ := repo.GetBalance(ctx, 1)
	if balance != 115_000 {
		t.Fatalf("balance = %d, want 115000 (compensated)", balance)
	}
	if len(repo.transactions) != 0 {
		t.Fatal("no transaction record may exist for a failed dispatch")
	}
}

func TestPurchaseSynchronousFailureRefunds(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.users[1] = &models.User{TelegramID: 1, Balance: 115_000}
	fulfillment := &fakeFulfillment{
		status:   "gagal",
		message:  "Stok habis",
		products: []models.Product{{Code: "XLA39", Price: 115_000}},
	}
	svc := newTestService(repo, fulfillment, &fakeQRIS{})

	trx, err := svc.Purchase(ctx, 1, "XLA39", "081234567890")
	if err != nil {
		t.Fatalf("Purchase: %v", err)
	}
	if trx.Outcome != string(models.StatusFailed) {
		t.Fatalf("outcome = %s, want failed", trx.Outcome)
	}

	balance, _ := repo.GetBalance(ctx, 1)
	if balance != 115_000 {
		t.Fatalf("balance = %d, want 115000 (refunded)", balance)
	}
}

func TestResolvePriceOverrideWins(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	fulfillment := &fakeFulfillment{
		products: []models.Product{{Code: "XLA39", Price: 115_000}},
	}
	svc := newTestService(repo, fulfillment, &fakeQRIS{})

	price, err := svc.ResolvePrice(ctx, "XLA39")
	if err != nil {
		t.Fatalf("ResolvePrice: %v", err)
	}
	if price != 115_000 {
		t.Fatalf("price = %d, want provider price 115000", price)
	}

	if err := svc.SetOverridePrice(ctx, "XLA39", 120_000); err != nil {
		t.Fatalf("SetOverridePrice: %v", err)
	}
	price, err = svc.ResolvePrice(ctx, "XLA39")
	if err != nil {
		t.Fatalf("ResolvePrice: %v", err)
	}
	if price != 120_000 {
		t.Fatalf("price = %d, want override 120000", price)
	}
}

func TestResolvePriceZeroRejected(t *testing.T) {
	repo := newFakeRepo()
	fulfillment := &fakeFulfillment{
		products: []models.Product{{Code: "GRATIS", Price: 0}},
	}
	svc := newTestService(repo, fulfillment, &fakeQRIS{})

	_, err := svc.ResolvePrice(context.Background(), "GRATIS")
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable for zero price, got %v", err)
	}
}

func TestSetOverridePriceRejectsNonPositive(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeFulfillment{}, &fakeQRIS{})
	for _, price := range []int64{0, -5_000} {
		if err := svc.SetOverridePrice(context.Background(), "XLA39", price); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("price %d: expected ErrInvalidAmount, got %v", price, err)
		}
	}
}

func TestSweepStalePurchases(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	repo.users[1] = &models.User{TelegramID: 1, Balance: 0}
	svc := newTestService(repo, &fakeFulfillment{}, &fakeQRIS{})

	stale := &models.Transaction{
		ReffID:      "stale-ref",
		UserID:      1,
		ProductCode: "XLA39",
		Price:       115_000,
		StatusText:  "PENDING",
		Outcome:     string(models.StatusPending),
		CreatedAt:   time.Now().Add(-2 * time.Hour),
	}
	fresh := &models.Transaction{
		ReffID:      "fresh-ref",
		UserID:      1,
		ProductCode: "XLA39",
		Price:       50_000,
		StatusText:  "PENDING",
		Outcome:     string(models.StatusPending),
		CreatedAt:   time.Now(),
	}
	settled := &models.Transaction{
		ReffID:    "done-ref",
		UserID:    1,
		Price:     10_000,
		Outcome:   string(models.StatusSuccess),
		CreatedAt: time.Now().Add(-3 * time.Hour),
	}
	for _, trx := range []*models.Transaction{stale, fresh, settled} {
		if err := repo.CreateTransaction(ctx, trx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	swept, err := svc.SweepStalePurchases(ctx, time.Hour)
	if err != nil {
		t.Fatalf("SweepStalePurchases: %v", err)
	}
	if swept != 1 {
		t.Fatalf("swept = %d, want 1", swept)
	}

	balance, _ := repo.GetBalance(ctx, 1)
	if balance != 115_000 {
		t.Fatalf("balance = %d, want 115000 (stale purchase refunded)", balance)
	}

	stored, _ := repo.GetTransactionByRef(ctx, "stale-ref")
	if stored.Outcome != string(models.StatusCancelled) {
		t.Fatalf("stale outcome = %s, want cancelled", stored.Outcome)
	}

	// A late callback for the swept transaction is now a duplicate.
	result, err := svc.ApplyCallback(ctx, &CallbackNotice{ReffID: "stale-ref", StatusText: "sukses", Remark: "late"})
	if err != nil {
		t.Fatalf("late callback: %v", err)
	}
	if !result.Duplicate {
		t.Fatal("late callback after sweep must be duplicate")
	}
}
