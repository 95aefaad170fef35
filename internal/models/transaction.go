package models

import "time"

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionRejected  TransactionStatus = "rejected"
)

func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionCompleted || s == TransactionRejected
}

const (
	PaymentBkash = "bkash"
	PaymentNagad = "nagad"
)

// Transaction is a manually verified payment for a token package.
type Transaction struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	UserID        uint              `gorm:"not null;index" json:"userId"`
	UserEmail     string            `gorm:"size:320" json:"userEmail"`
	PackageID     string            `gorm:"size:64;not null" json:"packageId"`
	Amount        int               `gorm:"not null" json:"amount"`
	PaymentMethod string            `gorm:"size:20;not null" json:"paymentMethod"`
	ExternalTxID  string            `gorm:"size:120;not null;uniqueIndex" json:"trxId"`
	ProofImage    string            `gorm:"type:text" json:"proofImage,omitempty"`
	Note          string            `gorm:"size:500" json:"note,omitempty"`
	Status        TransactionStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	ReviewedAt    *time.Time        `json:"reviewedAt,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"-"`
}
