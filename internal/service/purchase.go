package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/utils"
)

var destinationRe = regexp.MustCompile(`^[0-9]{8,16}$`)

// ResolvePrice returns the authoritative price for a product: an admin
// override > 0 wins, otherwise the provider price from the catalog.
// A price that resolves to zero is a data error and refuses the sale.
func (s *Service) ResolvePrice(ctx context.Context, productCode string) (int64, error) {
	override, err := s.repo.GetOverride(ctx, productCode)
	if err != nil {
		return 0, fmt.Errorf("failed to get price override: %w", err)
	}
	if override != nil && override.Price > 0 {
		return override.Price, nil
	}

	product, err := s.catalog.Find(ctx, productCode)
	if err != nil {
		s.logger.Warnf("Catalog lookup failed while pricing %s: %v", productCode, err)
	}
	if product != nil && product.Price > 0 {
		return product.Price, nil
	}

	s.logger.Errorf("No usable price for product %s", productCode)
	return 0, ErrPriceUnavailable
}

// Purchase runs the confirm→dispatch transition: verify funds, debit up
// front, fire the provider request under a fresh correlation ID, and
// persist the pending record before returning. A transport failure puts
// the money back; the terminal outcome is settled later by the webhook
// callback (or the sweep).
func (s *Service) Purchase(ctx context.Context, userID int64, productCode, destination string) (*models.Transaction, error) {
	if !destinationRe.MatchString(destination) {
		return nil, ErrInvalidDestination
	}

	price, err := s.ResolvePrice(ctx, productCode)
	if err != nil {
		return nil, err
	}

	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance < price {
		return nil, ErrInsufficientBalance
	}

	// Pessimistic reservation: the money leaves before the provider
	// confirms delivery.
	if err := s.repo.DebitBalance(ctx, userID, price); err != nil {
		return nil, fmt.Errorf("failed to debit balance: %w", err)
	}

	reffID := uuid.NewString()
	result, err := s.provider.Dispatch(ctx, productCode, destination, reffID)
	if err != nil {
		// The reservation must never stay open on a failed dispatch.
		if cerr := s.repo.CreditBalance(ctx, userID, price); cerr != nil {
			s.logger.Errorf("COMPENSATION FAILED for user %d amount %d: %v", userID, price, cerr)
			return nil, fmt.Errorf("dispatch failed and refund failed: %w", cerr)
		}
		s.logger.Warnf("Dispatch %s failed, refunded %s to user %d: %v", reffID, utils.FormatRupiah(price), userID, err)
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	outcome := models.ClassifyStatus(result.Status)
	trx := &models.Transaction{
		ReffID:      reffID,
		UserID:      userID,
		ProductCode: productCode,
		Destination: destination,
		Price:       price,
		StatusText:  result.Status,
		Outcome:     string(outcome),
		Remark:      result.Message,
	}
	if err := s.repo.CreateTransaction(ctx, trx); err != nil {
		// The dispatch went out but we cannot reconcile it later without
		// a record; refund so the ledger is not left holding a debit that
		// no callback can resolve.
		if cerr := s.repo.CreditBalance(ctx, userID, price); cerr != nil {
			s.logger.Errorf("COMPENSATION FAILED for user %d amount %d: %v", userID, price, cerr)
		}
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	// A synchronous failure label means no callback will come for it.
	if outcome == models.StatusFailed || outcome == models.StatusCancelled {
		if cerr := s.repo.CreditBalance(ctx, userID, price); cerr != nil {
			s.logger.Errorf("COMPENSATION FAILED for user %d amount %d: %v", userID, price, cerr)
		}
	}

	s.logger.Infof("Dispatched %s: user=%d produk=%s tujuan=%s harga=%d status=%s",
		reffID, userID, productCode, destination, price, result.Status)
	return trx, nil
}

// SweepStalePurchases terminally cancels and refunds purchases that have
// sat in a non-terminal state longer than the window. It shares the
// settlement CAS with the callback path, so a late callback after a
// sweep is a no-op duplicate.
func (s *Service) SweepStalePurchases(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	stale, err := s.repo.ListStalePending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale transactions: %w", err)
	}

	swept := 0
	for _, trx := range stale {
		won, err := s.repo.SettleTransaction(ctx, trx.ReffID, "TIMEOUT", models.StatusCancelled,
			"Tidak ada konfirmasi dari provider, dana dikembalikan.", trx.UserID, trx.Price)
		if err != nil {
			s.logger.Errorf("Sweep failed for %s: %v", trx.ReffID, err)
			continue
		}
		if !won {
			continue
		}
		swept++
		s.logger.Infof("Swept stale transaction %s, refunded %s to user %d",
			trx.ReffID, utils.FormatRupiah(trx.Price), trx.UserID)
		s.sendNotify(trx.UserID, fmt.Sprintf(
			"⏰ <b>TRANSAKSI DIBATALKAN</b>\n\nTransaksi <code>%s</code> untuk produk [%s] tidak mendapat konfirmasi dari provider.\nDana sebesar %s telah dikembalikan ke saldo Anda.",
			trx.ReffID, trx.ProductCode, utils.FormatRupiah(trx.Price)))
	}
	return swept, nil
}
