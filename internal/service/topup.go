package service

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"

	"github.com/google/uuid"
	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/utils"
)

const (
	TopupMinAmount = 10_000
	TopupMaxAmount = 5_000_000
	TopupStep      = 1_000
)

// QRISTopup holds everything the bot needs to show a payment request.
type QRISTopup struct {
	Request   *models.TopupRequest
	Surcharge int64
	Image     []byte
}

// StartQRISTopup validates the requested amount, adds the 3-digit
// uniqueness surcharge so the operator can tell same-nominal transfers
// apart, obtains the QR image and records the pending request.
func (s *Service) StartQRISTopup(ctx context.Context, user *models.User, amount int64) (*QRISTopup, error) {
	if amount < TopupMinAmount || amount > TopupMaxAmount || amount%TopupStep != 0 {
		return nil, ErrInvalidAmount
	}

	surcharge := int64(rand.Intn(900) + 100)
	final := amount + surcharge

	image, err := s.qris.Generate(ctx, final)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QRIS: %w", err)
	}

	topup := &models.TopupRequest{
		ID:       uuid.NewString(),
		UserID:   user.TelegramID,
		Username: user.Username,
		FullName: user.FullName,
		Amount:   final,
		Status:   models.TopupPending,
	}
	if err := s.repo.CreateTopup(ctx, topup); err != nil {
		return nil, err
	}

	s.logger.Infof("Topup %s created: user=%d nominal=%d (surcharge %d)", topup.ID, user.TelegramID, final, surcharge)
	return &QRISTopup{Request: topup, Surcharge: surcharge, Image: image}, nil
}

// AttachTopupProof stores the proof-of-payment photo by reference.
func (s *Service) AttachTopupProof(ctx context.Context, topupID, fileID, caption string) error {
	return s.repo.AttachTopupProof(ctx, topupID, fileID, caption)
}

func (s *Service) GetTopup(ctx context.Context, id string) (*models.TopupRequest, error) {
	return s.repo.GetTopupByID(ctx, id)
}

func (s *Service) ListTopups(ctx context.Context, userID int64, limit int) ([]models.TopupRequest, error) {
	return s.repo.ListTopupsByUser(ctx, userID, limit)
}

func (s *Service) ListPendingTopups(ctx context.Context, limit int) ([]models.TopupRequest, error) {
	return s.repo.ListPendingTopups(ctx, limit)
}

// ApproveTopup credits the surcharged amount exactly once; re-approving
// an already-settled request returns ErrTopupAlreadySettled.
func (s *Service) ApproveTopup(ctx context.Context, topupID string) (*models.TopupRequest, error) {
	topup, err := s.repo.GetTopupByID(ctx, topupID)
	if err != nil {
		return nil, err
	}
	if topup == nil {
		return nil, ErrTopupNotFound
	}

	won, err := s.repo.SettleTopup(ctx, topupID, models.TopupApproved, true)
	if err != nil {
		return nil, err
	}
	if !won {
		return topup, ErrTopupAlreadySettled
	}

	s.logger.Infof("Topup %s approved: credited %d to user %d", topupID, topup.Amount, topup.UserID)
	balance, _ := s.repo.GetBalance(ctx, topup.UserID)
	s.sendNotify(topup.UserID, fmt.Sprintf(
		"✅ <b>TOP UP DISETUJUI</b>\n\nTop up sebesar %s telah disetujui!\nSaldo Anda sekarang: %s",
		utils.FormatRupiah(topup.Amount), utils.FormatRupiah(balance)))
	return topup, nil
}

// RejectTopup settles the request without crediting anything.
func (s *Service) RejectTopup(ctx context.Context, topupID string) (*models.TopupRequest, error) {
	topup, err := s.repo.GetTopupByID(ctx, topupID)
	if err != nil {
		return nil, err
	}
	if topup == nil {
		return nil, ErrTopupNotFound
	}

	won, err := s.repo.SettleTopup(ctx, topupID, models.TopupRejected, false)
	if err != nil {
		return nil, err
	}
	if !won {
		return topup, ErrTopupAlreadySettled
	}

	s.logger.Infof("Topup %s rejected for user %d", topupID, topup.UserID)
	s.sendNotify(topup.UserID, fmt.Sprintf(
		"❌ <b>TOP UP DITOLAK</b>\n\nTop up sebesar %s ditolak oleh admin.",
		utils.FormatRupiah(topup.Amount)))
	return topup, nil
}

// RedeemCode consumes a redemption code for the user. The consumption is
// atomic per code, so the same code submitted concurrently credits once.
func (s *Service) RedeemCode(ctx context.Context, userID int64, code string) (int64, error) {
	rc, err := s.repo.GetRedeemCode(ctx, code)
	if err != nil {
		return 0, err
	}
	if rc == nil {
		return 0, ErrCodeInvalid
	}
	if rc.Used {
		return 0, ErrCodeUsed
	}

	amount, won, err := s.repo.ConsumeRedeemCode(ctx, code, userID)
	if err != nil {
		return 0, err
	}
	if !won {
		// Lost the race against another redemption of the same code.
		return 0, ErrCodeUsed
	}

	s.logger.Infof("Redeem code %s consumed by user %d for %d", code, userID, amount)
	return amount, nil
}

// IssueRedeemCode creates a fresh single-use code. Codes are short
// numeric strings, retried on the rare collision with an existing one.
func (s *Service) IssueRedeemCode(ctx context.Context, adminID int64, amount int64) (*models.RedeemCode, error) {
	if amount < TopupMinAmount {
		return nil, ErrInvalidAmount
	}

	for attempt := 0; attempt < 5; attempt++ {
		code := strconv.Itoa(rand.Intn(900) + 100)
		existing, err := s.repo.GetRedeemCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			continue
		}

		rc := &models.RedeemCode{
			Code:     code,
			IssuedBy: adminID,
			Amount:   amount,
		}
		if err := s.repo.CreateRedeemCode(ctx, rc); err != nil {
			continue
		}
		s.logger.Infof("Redeem code %s issued by admin %d for %d", code, adminID, amount)
		return rc, nil
	}
	return nil, fmt.Errorf("failed to allocate a unique redeem code")
}

func (s *Service) ListRedeemCodes(ctx context.Context, issuedBy int64, limit int) ([]models.RedeemCode, error) {
	return s.repo.ListRedeemCodesByIssuer(ctx, issuedBy, limit)
}
