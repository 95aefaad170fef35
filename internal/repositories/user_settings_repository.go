package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"oneclick/internal/models"
)

const DefaultLocale = "bn"

type UserSettingsRepository interface {
	Get(ctx context.Context, userID uint) (*models.UserSettings, error)
	Update(ctx context.Context, settings *models.UserSettings) error
}

type userSettingsRepository struct {
	db *gorm.DB
}

func NewUserSettingsRepository(db *gorm.DB) UserSettingsRepository {
	return &userSettingsRepository{db: db}
}

func (r *userSettingsRepository) Get(ctx context.Context, userID uint) (*models.UserSettings, error) {
	var settings models.UserSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&settings).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Defaults until the user saves preferences.
			return &models.UserSettings{UserID: userID, Locale: DefaultLocale}, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *userSettingsRepository) Update(ctx context.Context, settings *models.UserSettings) error {
	return r.db.WithContext(ctx).Save(settings).Error
}
