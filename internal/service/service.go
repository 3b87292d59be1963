package service

import (
	"context"
	"errors"
	"time"

	"github.com/yusufpr/akrab_bot/internal/models"
	"github.com/yusufpr/akrab_bot/internal/provider"
	"github.com/yusufpr/akrab_bot/utils"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPriceUnavailable    = errors.New("product price unavailable")
	ErrInvalidDestination  = errors.New("invalid destination number")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrDispatchFailed      = errors.New("provider dispatch failed")
	ErrCodeInvalid         = errors.New("redeem code not found")
	ErrCodeUsed            = errors.New("redeem code already used")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrUnparseableCallback = errors.New("unrecognized callback format")
	ErrTopupNotFound       = errors.New("topup request not found")
	ErrTopupAlreadySettled = errors.New("topup request already settled")
)

type Repository interface {
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
	GetAllUsers(ctx context.Context) ([]*models.User, error)

	GetBalance(ctx context.Context, userID int64) (int64, error)
	CreditBalance(ctx context.Context, userID int64, amount int64) error
	DebitBalance(ctx context.Context, userID int64, amount int64) error

	CreateTransaction(ctx context.Context, trx *models.Transaction) error
	GetTransactionByRef(ctx context.Context, reffID string) (*models.Transaction, error)
	SettleTransaction(ctx context.Context, reffID, statusText string, outcome models.TxStatus, remark string, refundUserID, refundAmount int64) (bool, error)
	ListTransactionsByUser(ctx context.Context, userID int64, limit int) ([]models.Transaction, error)
	ListAllTransactions(ctx context.Context, limit int) ([]models.Transaction, error)
	CountTransactionsByUser(ctx context.Context, userID int64) (int64, error)
	ListStalePending(ctx context.Context, before time.Time) ([]models.Transaction, error)

	CreateTopup(ctx context.Context, topup *models.TopupRequest) error
	GetTopupByID(ctx context.Context, id string) (*models.TopupRequest, error)
	AttachTopupProof(ctx context.Context, id, fileID, caption string) error
	SettleTopup(ctx context.Context, id, status string, credit bool) (bool, error)
	ListTopupsByUser(ctx context.Context, userID int64, limit int) ([]models.TopupRequest, error)
	ListPendingTopups(ctx context.Context, limit int) ([]models.TopupRequest, error)

	CreateRedeemCode(ctx context.Context, code *models.RedeemCode) error
	GetRedeemCode(ctx context.Context, code string) (*models.RedeemCode, error)
	ConsumeRedeemCode(ctx context.Context, code string, userID int64) (int64, bool, error)
	ListRedeemCodesByIssuer(ctx context.Context, issuedBy int64, limit int) ([]models.RedeemCode, error)

	GetOverride(ctx context.Context, code string) (*models.ProductOverride, error)
	SetOverridePrice(ctx context.Context, code string, price int64) error
	SetOverrideDescription(ctx context.Context, code string, description string) error
	ListOverrides(ctx context.Context) ([]models.ProductOverride, error)
}

type FulfillmentClient interface {
	Dispatch(ctx context.Context, productCode, destination, reffID string) (*provider.DispatchResult, error)
	FetchStock(ctx context.Context) ([]models.Product, error)
}

type QRISGenerator interface {
	Generate(ctx context.Context, amount int64) ([]byte, error)
}

type Service struct {
	repo     Repository
	provider FulfillmentClient
	qris     QRISGenerator
	catalog  *CatalogCache
	adminIDs map[int64]bool
	notify   models.Notifier
	logger   *utils.Logger
}

func NewService(
	repo Repository,
	fulfillment FulfillmentClient,
	qris QRISGenerator,
	catalog *CatalogCache,
	adminIDs []int64,
	logger *utils.Logger,
) *Service {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return &Service{
		repo:     repo,
		provider: fulfillment,
		qris:     qris,
		catalog:  catalog,
		adminIDs: admins,
		logger:   logger,
	}
}

// SetNotifier wires the outbound message channel; set once after the bot
// exists (the bot and the service reference each other).
func (s *Service) SetNotifier(n models.Notifier) {
	s.notify = n
}

func (s *Service) sendNotify(userID int64, text string) {
	if s.notify != nil {
		s.notify(userID, text)
	}
}

func (s *Service) IsAdmin(userID int64) bool {
	return s.adminIDs[userID]
}

func (s *Service) Catalog() *CatalogCache {
	return s.catalog
}

// RegisterUser creates or refreshes the user row on first interaction.
func (s *Service) RegisterUser(ctx context.Context, telegramID int64, username, fullName string) error {
	return s.repo.UpsertUser(ctx, &models.User{
		TelegramID: telegramID,
		Username:   username,
		FullName:   fullName,
	})
}

func (s *Service) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	return s.repo.GetUser(ctx, telegramID)
}

func (s *Service) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetAllUsers(ctx)
}

func (s *Service) GetBalance(ctx context.Context, userID int64) (int64, error) {
	return s.repo.GetBalance(ctx, userID)
}

func (s *Service) CountTransactions(ctx context.Context, userID int64) (int64, error) {
	return s.repo.CountTransactionsByUser(ctx, userID)
}

func (s *Service) ListTransactions(ctx context.Context, userID int64, limit int) ([]models.Transaction, error) {
	return s.repo.ListTransactionsByUser(ctx, userID, limit)
}

func (s *Service) ListAllTransactions(ctx context.Context, limit int) ([]models.Transaction, error) {
	return s.repo.ListAllTransactions(ctx, limit)
}

func (s *Service) GetOverride(ctx context.Context, code string) (*models.ProductOverride, error) {
	return s.repo.GetOverride(ctx, code)
}

func (s *Service) SetOverridePrice(ctx context.Context, code string, price int64) error {
	if price <= 0 {
		return ErrInvalidAmount
	}
	return s.repo.SetOverridePrice(ctx, code, price)
}

func (s *Service) SetOverrideDescription(ctx context.Context, code, description string) error {
	return s.repo.SetOverrideDescription(ctx, code, description)
}

func (s *Service) ListOverrides(ctx context.Context) ([]models.ProductOverride, error) {
	return s.repo.ListOverrides(ctx)
}
