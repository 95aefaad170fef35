package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"oneclick/internal/models"
	"oneclick/internal/repositories"
)

// MaxProofImageBytes caps the inline payment screenshot.
const MaxProofImageBytes = 2 << 20

type SubmitTransactionInput struct {
	UserID       uint   `json:"-" validate:"required"`
	PackageID    string `json:"packageId" validate:"required"`
	Amount       int    `json:"amount" validate:"gt=0"`
	Method       string `json:"paymentMethod" validate:"oneof=bkash nagad"`
	ExternalTxID string `json:"trxId" validate:"required,max=120"`
	ProofImage   string `json:"proofImage,omitempty" validate:"omitempty,startswith=data:image/"`
	Note         string `json:"note,omitempty" validate:"max=500"`
}

// ReviewOutcome reports the transaction after review and whether this call
// changed it.
type ReviewOutcome struct {
	Transaction *models.Transaction `json:"transaction"`
	Applied     bool                `json:"applied"`
}

type TransactionService interface {
	Submit(ctx context.Context, in SubmitTransactionInput) (*models.Transaction, error)
	ListPending(ctx context.Context) ([]models.Transaction, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Transaction, error)
	// Approve completes a pending transaction and credits the package tokens.
	// Reviewing a terminal transaction is a no-op with Applied false.
	Approve(ctx context.Context, id uint) (*ReviewOutcome, error)
	Reject(ctx context.Context, id uint) (*ReviewOutcome, error)
}

type transactionService struct {
	txs      repositories.TransactionRepository
	users    repositories.UserRepository
	packages PackageService
	validate *validator.Validate
}

func NewTransactionService(txs repositories.TransactionRepository, users repositories.UserRepository, packages PackageService) TransactionService {
	return &transactionService{
		txs:      txs,
		users:    users,
		packages: packages,
		validate: validator.New(),
	}
}

func (s *transactionService) Submit(ctx context.Context, in SubmitTransactionInput) (*models.Transaction, error) {
	in.PackageID = strings.TrimSpace(in.PackageID)
	in.Method = strings.ToLower(strings.TrimSpace(in.Method))
	in.ExternalTxID = strings.ToUpper(strings.TrimSpace(in.ExternalTxID))
	in.Note = strings.TrimSpace(in.Note)
	if err := s.validate.Struct(in); err != nil {
		return nil, invalid(describeValidation(err))
	}
	if len(in.ProofImage) > MaxProofImageBytes {
		return nil, invalid("proof image is too large")
	}

	if _, err := s.packages.Get(ctx, in.PackageID); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	existing, err := s.txs.FindByExternalID(ctx, in.ExternalTxID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateTransaction
	}

	tx := &models.Transaction{
		UserID:        user.ID,
		UserEmail:     user.Email,
		PackageID:     in.PackageID,
		Amount:        in.Amount,
		PaymentMethod: in.Method,
		ExternalTxID:  in.ExternalTxID,
		ProofImage:    in.ProofImage,
		Note:          in.Note,
		Status:        models.TransactionPending,
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateTransaction
		}
		return nil, err
	}
	log.Info().Uint("user", user.ID).Uint("transaction", tx.ID).Str("package", tx.PackageID).Msg("payment submitted")
	return tx, nil
}

func (s *transactionService) ListPending(ctx context.Context) ([]models.Transaction, error) {
	return s.txs.ListByStatus(ctx, models.TransactionPending)
}

func (s *transactionService) ListByUser(ctx context.Context, userID uint) ([]models.Transaction, error) {
	return s.txs.ListByUser(ctx, userID)
}

func (s *transactionService) Approve(ctx context.Context, id uint) (*ReviewOutcome, error) {
	tx, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsTerminal() {
		return &ReviewOutcome{Transaction: tx}, nil
	}
	pkg, err := s.packages.Get(ctx, tx.PackageID)
	if err != nil {
		return nil, fmt.Errorf("approve transaction %d: %w", id, err)
	}
	return s.review(ctx, id, models.TransactionCompleted, pkg.Tokens)
}

func (s *transactionService) Reject(ctx context.Context, id uint) (*ReviewOutcome, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	return s.review(ctx, id, models.TransactionRejected, 0)
}

func (s *transactionService) find(ctx context.Context, id uint) (*models.Transaction, error) {
	tx, err := s.txs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTransactionNotFound
	}
	return tx, nil
}

func (s *transactionService) review(ctx context.Context, id uint, status models.TransactionStatus, credit int) (*ReviewOutcome, error) {
	tx, applied, err := s.txs.Review(ctx, id, status, credit)
	if err != nil {
		return nil, fmt.Errorf("review transaction %d: %w", id, err)
	}
	if applied {
		log.Info().Uint("transaction", id).Str("status", string(status)).Int("credited", credit).Msg("transaction reviewed")
	}
	return &ReviewOutcome{Transaction: tx, Applied: applied}, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
