package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	// One shared in-memory DB per test; a bare :memory: DSN would give
	// every pooled connection its own empty database.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	err = db.AutoMigrate(
		&models.User{},
		&models.Transaction{},
		&models.TopupRequest{},
		&models.RedeemCode{},
		&models.ProductOverride{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepository(db, utils.InitLogger())
}

func TestBalanceDeltaUpdates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	// Credit creates the row when missing.
	if err := repo.CreditBalance(ctx, 1, 100_000); err != nil {
		t.Fatalf("CreditBalance: %v", err)
	}
	balance, err := repo.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 100_000 {
		t.Fatalf("balance = %d, want 100000", balance)
	}

	if err := repo.DebitBalance(ctx, 1, 30_000); err != nil {
		t.Fatalf("DebitBalance: %v", err)
	}
	balance, _ = repo.GetBalance(ctx, 1)
	if balance != 70_000 {
		t.Fatalf("balance = %d, want 70000", balance)
	}

	// Debit of an unknown user is refused.
	if err := repo.DebitBalance(ctx, 42, 1_000); err == nil {
		t.Fatal("expected error debiting a missing user")
	}

	// Unknown user reads as zero.
	balance, err = repo.GetBalance(ctx, 42)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 0 {
		t.Fatalf("balance = %d, want 0", balance)
	}
}

func TestUpsertUserKeepsBalance(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	if err := repo.UpsertUser(ctx, &models.User{TelegramID: 1, Username: "budi", FullName: "Budi"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := repo.CreditBalance(ctx, 1, 50_000); err != nil {
		t.Fatalf("CreditBalance: %v", err)
	}

	// Re-registering must refresh the profile without resetting funds.
	if err := repo.UpsertUser(ctx, &models.User{TelegramID: 1, Username: "budi_new", FullName: "Budi S"}); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}

	user, err := repo.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if user.Username != "budi_new" {
		t.Fatalf("username = %q, want budi_new", user.Username)
	}
	if user.Balance != 50_000 {
		t.Fatalf("balance = %d, want 50000", user.Balance)
	}
}

func TestSettleTransactionTerminalGuard(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	if err := repo.CreditBalance(ctx, 1, 0); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	trx := &models.Transaction{
		ReffID:      "ref-1",
		UserID:      1,
		ProductCode: "XLA39",
		Destination: "081234567890",
		Price:       115_000,
		StatusText:  "PENDING",
		Outcome:     string(models.StatusPending),
	}
	if err := repo.CreateTransaction(ctx, trx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	// First failure settles and refunds.
	won, err := repo.SettleTransaction(ctx, "ref-1", "gagal", models.StatusFailed, "tidak aktif", 1, 115_000)
	if err != nil {
		t.Fatalf("SettleTransaction: %v", err)
	}
	if !won {
		t.Fatal("first settlement must win")
	}
	balance, _ := repo.GetBalance(ctx, 1)
	if balance != 115_000 {
		t.Fatalf("balance = %d, want 115000", balance)
	}

	// Any further transition is refused, refund included.
	won, err = repo.SettleTransaction(ctx, "ref-1", "gagal", models.StatusFailed, "retry", 1, 115_000)
	if err != nil {
		t.Fatalf("SettleTransaction retry: %v", err)
	}
	if won {
		t.Fatal("settled transaction must not be settled again")
	}
	won, err = repo.SettleTransaction(ctx, "ref-1", "sukses", models.StatusSuccess, "late", 0, 0)
	if err != nil {
		t.Fatalf("SettleTransaction contradictory: %v", err)
	}
	if won {
		t.Fatal("terminal outcome must not flip")
	}

	balance, _ = repo.GetBalance(ctx, 1)
	if balance != 115_000 {
		t.Fatalf("balance = %d, want 115000 (single refund)", balance)
	}

	stored, _ := repo.GetTransactionByRef(ctx, "ref-1")
	if stored.Outcome != string(models.StatusFailed) {
		t.Fatalf("outcome = %s, want failed", stored.Outcome)
	}
	if stored.Remark != "tidak aktif" {
		t.Fatalf("remark = %q, want first remark preserved", stored.Remark)
	}
}

func TestSettleTransactionPendingLabelUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	trx := &models.Transaction{
		ReffID:     "ref-2",
		UserID:     1,
		StatusText: "PENDING",
		Outcome:    string(models.StatusPending),
	}
	if err := repo.CreateTransaction(ctx, trx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	won, err := repo.SettleTransaction(ctx, "ref-2", "diproses", models.StatusPending, "antrian provider", 0, 0)
	if err != nil {
		t.Fatalf("SettleTransaction: %v", err)
	}
	if !won {
		t.Fatal("non-terminal update must apply")
	}
	stored, _ := repo.GetTransactionByRef(ctx, "ref-2")
	if stored.StatusText != "diproses" || stored.Outcome != string(models.StatusPending) {
		t.Fatalf("stored = %s/%s, want diproses/pending", stored.StatusText, stored.Outcome)
	}

	// Still settleable afterwards.
	won, err = repo.SettleTransaction(ctx, "ref-2", "sukses", models.StatusSuccess, "ok", 0, 0)
	if err != nil || !won {
		t.Fatalf("final settlement: won=%v err=%v", won, err)
	}
}

func TestListStalePending(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	old := &models.Transaction{ReffID: "old", UserID: 1, Outcome: string(models.StatusPending), CreatedAt: time.Now().Add(-2 * time.Hour)}
	fresh := &models.Transaction{ReffID: "fresh", UserID: 1, Outcome: string(models.StatusPending), CreatedAt: time.Now()}
	done := &models.Transaction{ReffID: "done", UserID: 1, Outcome: string(models.StatusSuccess), CreatedAt: time.Now().Add(-2 * time.Hour)}
	for _, trx := range []*models.Transaction{old, fresh, done} {
		if err := repo.CreateTransaction(ctx, trx); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	stale, err := repo.ListStalePending(ctx, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListStalePending: %v", err)
	}
	if len(stale) != 1 || stale[0].ReffID != "old" {
		t.Fatalf("stale = %+v, want only 'old'", stale)
	}
}

func TestSettleTopupOnce(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	topup := &models.TopupRequest{
		ID:     "tp-1",
		UserID: 1,
		Amount: 50_321,
		Status: models.TopupPending,
	}
	if err := repo.CreateTopup(ctx, topup); err != nil {
		t.Fatalf("CreateTopup: %v", err)
	}

	won, err := repo.SettleTopup(ctx, "tp-1", models.TopupApproved, true)
	if err != nil {
		t.Fatalf("SettleTopup: %v", err)
	}
	if !won {
		t.Fatal("first settle must win")
	}
	balance, _ := repo.GetBalance(ctx, 1)
	if balance != 50_321 {
		t.Fatalf("balance = %d, want 50321", balance)
	}

	// Double approve and late reject both refuse.
	if won, _ := repo.SettleTopup(ctx, "tp-1", models.TopupApproved, true); won {
		t.Fatal("double approve must not win")
	}
	if won, _ := repo.SettleTopup(ctx, "tp-1", models.TopupRejected, false); won {
		t.Fatal("reject after approve must not win")
	}
	balance, _ = repo.GetBalance(ctx, 1)
	if balance != 50_321 {
		t.Fatalf("balance = %d, want 50321 (credited once)", balance)
	}

	// Missing topup settles nothing.
	if won, err := repo.SettleTopup(ctx, "missing", models.TopupApproved, true); err != nil || won {
		t.Fatalf("missing topup: won=%v err=%v", won, err)
	}
}

func TestConsumeRedeemCodeOnce(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	rc := &models.RedeemCode{Code: "123", IssuedBy: 999, Amount: 25_000}
	if err := repo.CreateRedeemCode(ctx, rc); err != nil {
		t.Fatalf("CreateRedeemCode: %v", err)
	}

	amount, won, err := repo.ConsumeRedeemCode(ctx, "123", 1)
	if err != nil {
		t.Fatalf("ConsumeRedeemCode: %v", err)
	}
	if !won || amount != 25_000 {
		t.Fatalf("won=%v amount=%d, want true/25000", won, amount)
	}

	// Second consumption by anyone loses.
	_, won, err = repo.ConsumeRedeemCode(ctx, "123", 2)
	if err != nil {
		t.Fatalf("ConsumeRedeemCode retry: %v", err)
	}
	if won {
		t.Fatal("used code must not be consumable again")
	}

	balance, _ := repo.GetBalance(ctx, 1)
	if balance != 25_000 {
		t.Fatalf("balance = %d, want 25000", balance)
	}
	balance, _ = repo.GetBalance(ctx, 2)
	if balance != 0 {
		t.Fatalf("loser balance = %d, want 0", balance)
	}

	stored, _ := repo.GetRedeemCode(ctx, "123")
	if !stored.Used || stored.UsedBy == nil || *stored.UsedBy != 1 {
		t.Fatalf("stored code = %+v, want used by 1", stored)
	}

	// Unknown code loses without error.
	_, won, err = repo.ConsumeRedeemCode(ctx, "999", 1)
	if err != nil || won {
		t.Fatalf("unknown code: won=%v err=%v", won, err)
	}
}

func TestOverrideUpserts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	if err := repo.SetOverridePrice(ctx, "XLA39", 115_000); err != nil {
		t.Fatalf("SetOverridePrice: %v", err)
	}
	if err := repo.SetOverrideDescription(ctx, "XLA39", "Kuota 39GB sebulan"); err != nil {
		t.Fatalf("SetOverrideDescription: %v", err)
	}

	ov, err := repo.GetOverride(ctx, "XLA39")
	if err != nil {
		t.Fatalf("GetOverride: %v", err)
	}
	if ov.Price != 115_000 || ov.Description != "Kuota 39GB sebulan" {
		t.Fatalf("override = %+v", ov)
	}

	// Updating one field leaves the other intact.
	if err := repo.SetOverridePrice(ctx, "XLA39", 120_000); err != nil {
		t.Fatalf("SetOverridePrice update: %v", err)
	}
	ov, _ = repo.GetOverride(ctx, "XLA39")
	if ov.Price != 120_000 || ov.Description != "Kuota 39GB sebulan" {
		t.Fatalf("override after price update = %+v", ov)
	}

	missing, err := repo.GetOverride(ctx, "NOPE")
	if err != nil {
		t.Fatalf("GetOverride missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing override, got %+v", missing)
	}
}
