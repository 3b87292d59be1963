package models

import (
	"strings"
	"time"
)

type User struct {
	TelegramID int64  `gorm:"primaryKey" json:"telegram_id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Balance    int64  `gorm:"not null;default:0" json:"balance"` // rupiah
	CreatedAt  time.Time
}

// Transaction is one purchase dispatched to the fulfillment provider,
// keyed by the correlation ID we generated for it.
type Transaction struct {
	ReffID      string `gorm:"primaryKey" json:"reff_id"`
	UserID      int64  `gorm:"index" json:"user_id"`
	ProductCode string `json:"product_code"`
	Destination string `json:"destination"`
	Price       int64  `json:"price"`
	StatusText  string `json:"status_text"`                               // raw provider label
	Outcome     string `gorm:"index;default:pending" json:"outcome"`      // classified TxStatus
	Remark      string `json:"remark"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TopupRequest struct {
	ID           string `gorm:"primaryKey" json:"id"`
	UserID       int64  `gorm:"index" json:"user_id"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	Amount       int64  `json:"amount"` // requested amount plus uniqueness surcharge
	Status       string `gorm:"default:pending" json:"status"`
	ProofFileID  string `json:"proof_file_id"`
	ProofCaption string `json:"proof_caption"`
	CreatedAt    time.Time
}

const (
	TopupPending  = "pending"
	TopupApproved = "approved"
	TopupRejected = "rejected"
)

// RedeemCode is an admin-issued single-use balance credit.
type RedeemCode struct {
	Code      string `gorm:"primaryKey" json:"code"`
	IssuedBy  int64  `gorm:"index" json:"issued_by"`
	Amount    int64  `json:"amount"`
	Used      bool   `gorm:"not null;default:false" json:"used"`
	UsedBy    *int64 `json:"used_by,omitempty"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time
}

// ProductOverride is the admin price/description overlay for a catalog
// product. It survives catalog refreshes; a price > 0 wins over the
// provider price.
type ProductOverride struct {
	Code        string `gorm:"primaryKey" json:"code"`
	Price       int64  `json:"price"`
	Description string `json:"description"`
}

// Product is a catalog entry as served by the provider. Transient,
// replaced wholesale on each cache refresh.
type Product struct {
	Code  string
	Name  string
	Stock int
	Price int64
}

// TxStatus is the closed classification of provider status labels.
type TxStatus string

const (
	StatusPending   TxStatus = "pending"
	StatusSuccess   TxStatus = "success"
	StatusFailed    TxStatus = "failed"
	StatusCancelled TxStatus = "cancelled"
	StatusUnknown   TxStatus = "unknown"
)

// Terminal reports whether no further ledger mutation is permitted.
func (s TxStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// ClassifyStatus maps a free-text provider status label onto the closed
// enum. This is the only place label text is interpreted.
func ClassifyStatus(label string) TxStatus {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, "sukses"):
		return StatusSuccess
	case strings.Contains(l, "gagal"):
		return StatusFailed
	case strings.Contains(l, "batal"):
		return StatusCancelled
	case strings.Contains(l, "pending"), strings.Contains(l, "proses"):
		return StatusPending
	}
	return StatusUnknown
}

// Notifier delivers a user-facing message outside the conversation flow
// (callback settlements, sweep refunds, admin decisions).
type Notifier func(userID int64, text string)
