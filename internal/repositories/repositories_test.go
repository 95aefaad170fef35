package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"oneclick/internal/database"
	"oneclick/internal/models"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	return db
}

func createUser(t *testing.T, db *gorm.DB, email string, tokens int) *models.User {
	t.Helper()
	u := &models.User{Email: email, PasswordHash: "x", Tokens: tokens, Role: models.RoleUser}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func TestUserRepository_DecrementStopsAtZero(t *testing.T) {
	db := openDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, db, "a@example.com", 1)

	changed, err := repo.DecrementTokens(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.DecrementTokens(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Tokens)

	missing, err := repo.FindByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTransactionRepository_ApproveCreditsOnce(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	u := createUser(t, db, "buyer@example.com", 5)
	repo := NewTransactionRepository(db)

	tx := &models.Transaction{UserID: u.ID, PackageID: "pro", Amount: 179, PaymentMethod: models.PaymentBkash, ExternalTxID: "TRX1", Status: models.TransactionPending}
	require.NoError(t, repo.Create(ctx, tx))

	got, applied, err := repo.Review(ctx, tx.ID, models.TransactionCompleted, 100)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, models.TransactionCompleted, got.Status)
	assert.NotNil(t, got.ReviewedAt)

	got, applied, err = repo.Review(ctx, tx.ID, models.TransactionCompleted, 100)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Equal(t, models.TransactionCompleted, got.Status)

	_, applied, err = repo.Review(ctx, tx.ID, models.TransactionRejected, 0)
	require.NoError(t, err)
	assert.False(t, applied)

	user, err := NewUserRepository(db).FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 105, user.Tokens)
}

func TestTransactionRepository_DuplicateExternalID(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	u := createUser(t, db, "dup@example.com", 0)
	repo := NewTransactionRepository(db)

	require.NoError(t, repo.Create(ctx, &models.Transaction{UserID: u.ID, PackageID: "starter", PaymentMethod: models.PaymentNagad, ExternalTxID: "SAME"}))
	err := repo.Create(ctx, &models.Transaction{UserID: u.ID, PackageID: "starter", PaymentMethod: models.PaymentNagad, ExternalTxID: "SAME"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	pending, err := repo.ListByStatus(ctx, models.TransactionPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestPackageRepository_UpsertReplaces(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := NewPackageRepository(db)

	require.NoError(t, repo.Upsert(ctx, []models.Package{{ID: "starter", Name: "Starter", Tokens: 50, Price: 99}}))
	require.NoError(t, repo.Upsert(ctx, []models.Package{{ID: "starter", Name: "Starter", Tokens: 60, Price: 99}, {ID: "pro", Name: "Pro", Tokens: 100, Price: 179, IsPopular: true}}))

	pkgs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	assert.Equal(t, 60, pkgs[0].Tokens)
	assert.True(t, pkgs[1].IsPopular)
}

func TestGenerationSessionRepository_UpsertByUser(t *testing.T) {
	db := openDB(t)
	repo := NewGenerationSessionRepository(db)

	_, err := repo.Upsert(7, "gemini:gemini-2.5-pro", "gemini", `{"a":"1"}`, `[]`)
	require.NoError(t, err)
	_, err = repo.Upsert(7, "gemini:gemini-2.5-pro", "gemini", `{"a":"2"}`, `[{}]`)
	require.NoError(t, err)

	got, err := repo.GetByUser(7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, `{"a":"2"}`, got.FilesJSON)

	require.NoError(t, repo.DeleteByUser(7))
	got, err = repo.GetByUser(7)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBuildJobRepository_SaveOverwrites(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := NewBuildJobRepository(db)
	started := time.Now().Add(-time.Minute)

	job := &models.BuildJob{ID: "job-1", UserID: 3, Owner: "octo", Repo: "app", Phase: "pushing", StartedAt: started}
	require.NoError(t, repo.Save(ctx, job))
	finished := time.Now()
	job.Phase = "done"
	job.DownloadURL = "https://example.com/a.zip"
	job.FinishedAt = &finished
	require.NoError(t, repo.Save(ctx, job))

	jobs, err := repo.ListByUser(ctx, 3, 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "done", jobs[0].Phase)
	assert.Equal(t, "https://example.com/a.zip", jobs[0].DownloadURL)
}

func TestUserSettingsRepository_Defaults(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := NewUserSettingsRepository(db)

	s, err := repo.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "bn", s.Locale)

	s.DefaultModelKey = "openai:gpt-5"
	s.Locale = "en"
	require.NoError(t, repo.Update(ctx, s))

	s, err = repo.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt-5", s.DefaultModelKey)
	assert.Equal(t, "en", s.Locale)
}
