package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/utils"
)

// callbackRe matches the provider's notification line:
//
//	RC=<uuid> TrxID=<digits> <PRODUK>.<tujuan> <STATUS> <remark...> [Saldo...] [result=<code>]
var callbackRe = regexp.MustCompile(
	`(?i)^RC=(?P<reffid>[a-f0-9-]+)\s+TrxID=(?P<trxid>\d+)\s+` +
		`(?P<produk>[A-Z0-9]+)\.(?P<tujuan>\d+)\s+` +
		`(?P<status>[A-Za-z]+)\s*` +
		`(?P<remark>.+?)` +
		`(?:\s+Saldo[\s\S]*?)?` +
		`(?:\bresult=(?P<code>\d+))?\s*>?$`,
)

// CallbackNotice is one parsed provider notification.
type CallbackNotice struct {
	ReffID      string
	TrxID       string
	ProductCode string
	Destination string
	StatusText  string
	Remark      string
	ResultCode  string
}

// ParseCallback extracts a notice from the raw webhook line. Lines that
// do not match the grammar are rejected without touching any state.
func ParseCallback(line string) (*CallbackNotice, error) {
	m := callbackRe.FindStringSubmatch(line)
	if m == nil {
		return nil, ErrUnparseableCallback
	}

	notice := &CallbackNotice{}
	for i, name := range callbackRe.SubexpNames() {
		switch name {
		case "reffid":
			notice.ReffID = m[i]
		case "trxid":
			notice.TrxID = m[i]
		case "produk":
			notice.ProductCode = m[i]
		case "tujuan":
			notice.Destination = m[i]
		case "status":
			notice.StatusText = m[i]
		case "remark":
			notice.Remark = m[i]
		case "code":
			notice.ResultCode = m[i]
		}
	}
	return notice, nil
}

// CallbackResult reports what a callback application did.
type CallbackResult struct {
	Duplicate bool
	Outcome   models.TxStatus
}

// ApplyCallback settles a provider notification against the transaction
// log. Terminal records are never mutated again (duplicate/late retries
// are acknowledged and dropped); the first failure/cancel signal credits
// the dispatch-time debit back; success performs no further accounting
// since the debit already happened at dispatch.
func (s *Service) ApplyCallback(ctx context.Context, notice *CallbackNotice) (*CallbackResult, error) {
	trx, err := s.repo.GetTransactionByRef(ctx, notice.ReffID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up transaction: %w", err)
	}
	if trx == nil {
		return nil, ErrTransactionNotFound
	}

	if models.TxStatus(trx.Outcome).Terminal() {
		s.logger.Infof("Duplicate callback for %s (already %s), ignored", notice.ReffID, trx.Outcome)
		return &CallbackResult{Duplicate: true, Outcome: models.TxStatus(trx.Outcome)}, nil
	}

	outcome := models.ClassifyStatus(notice.StatusText)
	switch outcome {
	case models.StatusSuccess:
		won, err := s.repo.SettleTransaction(ctx, notice.ReffID, notice.StatusText, outcome, notice.Remark, 0, 0)
		if err != nil {
			return nil, err
		}
		if !won {
			// Raced with another settler; whoever won already accounted.
			return &CallbackResult{Duplicate: true, Outcome: outcome}, nil
		}
		s.logger.Infof("Transaction %s settled: success", notice.ReffID)
		s.sendNotify(trx.UserID, fmt.Sprintf(
			"✅ <b>TRANSAKSI SUKSES</b>\n\nProduk [%s] ke %s telah berhasil dikirim.\nHarga: %s\nKeterangan: %s",
			trx.ProductCode, trx.Destination, utils.FormatRupiah(trx.Price), notice.Remark))
		return &CallbackResult{Outcome: outcome}, nil

	case models.StatusFailed, models.StatusCancelled:
		won, err := s.repo.SettleTransaction(ctx, notice.ReffID, notice.StatusText, outcome, notice.Remark, trx.UserID, trx.Price)
		if err != nil {
			return nil, err
		}
		if !won {
			return &CallbackResult{Duplicate: true, Outcome: outcome}, nil
		}
		s.logger.Infof("Transaction %s settled: %s, refunded %d to user %d", notice.ReffID, outcome, trx.Price, trx.UserID)
		s.sendNotify(trx.UserID, fmt.Sprintf(
			"❌ <b>TRANSAKSI GAGAL</b>\n\nTransaksi untuk produk [%s] ke %s GAGAL.\nKeterangan: %s\n\nDana sebesar %s telah dikembalikan ke saldo Anda.",
			trx.ProductCode, trx.Destination, notice.Remark, utils.FormatRupiah(trx.Price)))
		return &CallbackResult{Outcome: outcome}, nil

	case models.StatusPending:
		// Non-terminal progress update: refresh the label, no accounting.
		if _, err := s.repo.SettleTransaction(ctx, notice.ReffID, notice.StatusText, outcome, notice.Remark, 0, 0); err != nil {
			return nil, err
		}
		return &CallbackResult{Outcome: outcome}, nil

	default:
		s.logger.Infof("Unknown callback status %q for %s, no mutation", notice.StatusText, notice.ReffID)
		return &CallbackResult{Outcome: models.StatusUnknown}, nil
	}
}
