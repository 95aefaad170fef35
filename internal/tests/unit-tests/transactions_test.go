package unit_tests

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"oneclick/internal/models"
	"oneclick/internal/repositories"
	"oneclick/internal/services"
)

type billing struct {
	db       *gorm.DB
	users    services.UserService
	packages services.PackageService
	txs      services.TransactionService
}

func newBilling(t *testing.T) *billing {
	t.Helper()
	db := openDB(t)
	packages := services.NewPackageService(repositories.NewPackageRepository(db))
	require.NoError(t, packages.Seed(context.Background()))
	return &billing{
		db:       db,
		users:    newUsers(db),
		packages: packages,
		txs:      services.NewTransactionService(repositories.NewTransactionRepository(db), repositories.NewUserRepository(db), packages),
	}
}

func (b *billing) userWithTokens(t *testing.T, email string, tokens int) *models.User {
	t.Helper()
	u, err := b.users.Register(context.Background(), email, "secret1", "")
	require.NoError(t, err)
	require.NoError(t, b.db.Model(&models.User{}).Where("id = ?", u.ID).Update("tokens", tokens).Error)
	return u
}

func TestPackageService_SeedIsIdempotent(t *testing.T) {
	b := newBilling(t)
	ctx := context.Background()
	require.NoError(t, b.packages.Seed(ctx))

	pkgs, err := b.packages.List(ctx)
	require.NoError(t, err)
	require.Len(t, pkgs, 3)
	assert.Equal(t, "starter", pkgs[0].ID)

	pro, err := b.packages.Get(ctx, "pro")
	require.NoError(t, err)
	assert.Equal(t, 100, pro.Tokens)
	assert.True(t, pro.IsPopular)

	_, err = b.packages.Get(ctx, "enterprise")
	assert.ErrorIs(t, err, services.ErrPackageNotFound)
}

func TestParsePackageCatalog_RejectsBadEntries(t *testing.T) {
	_, err := services.ParsePackageCatalog([]byte("[[packages]]\nid = \"a\"\ntokens = 0\n"))
	assert.Error(t, err)

	_, err = services.ParsePackageCatalog([]byte("[[packages]]\nid = \"a\"\ntokens = 1\n[[packages]]\nid = \"a\"\ntokens = 2\n"))
	assert.Error(t, err)

	pkgs, err := services.ParsePackageCatalog([]byte("[[packages]]\nid = \" solo \"\nname = \"Solo\"\ntokens = 5\nprice = 10\n"))
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "solo", pkgs[0].ID)
}

func TestTransactionService_ApproveIsIdempotent(t *testing.T) {
	b := newBilling(t)
	ctx := context.Background()
	u := b.userWithTokens(t, "buyer@example.com", 5)

	tx, err := b.txs.Submit(ctx, services.SubmitTransactionInput{
		UserID: u.ID, PackageID: "pro", Amount: 179, Method: "bKash", ExternalTxID: " 8n7a6b5c ",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, tx.Status)
	assert.Equal(t, "8N7A6B5C", tx.ExternalTxID)
	assert.Equal(t, models.PaymentBkash, tx.PaymentMethod)
	assert.Equal(t, u.Email, tx.UserEmail)

	pending, err := b.txs.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	out, err := b.txs.Approve(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, models.TransactionCompleted, out.Transaction.Status)

	profile, err := b.users.FetchProfile(ctx, "", u.ID)
	require.NoError(t, err)
	assert.Equal(t, 105, profile.Tokens)

	out, err = b.txs.Approve(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	out, err = b.txs.Reject(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, models.TransactionCompleted, out.Transaction.Status)

	profile, err = b.users.FetchProfile(ctx, "", u.ID)
	require.NoError(t, err)
	assert.Equal(t, 105, profile.Tokens)

	pending, err = b.txs.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTransactionService_RejectLeavesBalance(t *testing.T) {
	b := newBilling(t)
	ctx := context.Background()
	u := b.userWithTokens(t, "r@example.com", 5)

	tx, err := b.txs.Submit(ctx, services.SubmitTransactionInput{
		UserID: u.ID, PackageID: "starter", Amount: 99, Method: "nagad", ExternalTxID: "NG1",
	})
	require.NoError(t, err)

	out, err := b.txs.Reject(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, models.TransactionRejected, out.Transaction.Status)

	out, err = b.txs.Approve(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, out.Applied)

	profile, err := b.users.FetchProfile(ctx, "", u.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, profile.Tokens)

	mine, err := b.txs.ListByUser(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.TransactionRejected, mine[0].Status)
}

func TestTransactionService_SubmitValidation(t *testing.T) {
	b := newBilling(t)
	ctx := context.Background()
	u := b.userWithTokens(t, "v@example.com", 5)
	valid := services.SubmitTransactionInput{UserID: u.ID, PackageID: "pro", Amount: 179, Method: "bkash", ExternalTxID: "DUP1"}

	bad := valid
	bad.Method = "card"
	_, err := b.txs.Submit(ctx, bad)
	assert.True(t, services.IsValidation(err))

	bad = valid
	bad.ExternalTxID = "  "
	_, err = b.txs.Submit(ctx, bad)
	assert.True(t, services.IsValidation(err))

	bad = valid
	bad.ProofImage = "data:image/png;base64," + strings.Repeat("A", services.MaxProofImageBytes)
	_, err = b.txs.Submit(ctx, bad)
	assert.True(t, services.IsValidation(err))

	bad = valid
	bad.PackageID = "missing"
	_, err = b.txs.Submit(ctx, bad)
	assert.ErrorIs(t, err, services.ErrPackageNotFound)

	_, err = b.txs.Submit(ctx, valid)
	require.NoError(t, err)
	dup := valid
	dup.ExternalTxID = "dup1"
	_, err = b.txs.Submit(ctx, dup)
	assert.ErrorIs(t, err, services.ErrDuplicateTransaction)

	_, err = b.txs.Approve(ctx, 9999)
	assert.ErrorIs(t, err, services.ErrTransactionNotFound)
}
