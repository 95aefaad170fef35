package services

import (
	"context"
	"strings"
	"time"

	"oneclick/internal/models"
	"oneclick/internal/repositories"
)

var supportedLocales = map[string]bool{"bn": true, "en": true, "hi": true}

type UserSettingsService interface {
	Get(ctx context.Context, userID uint) (*models.UserSettings, error)
	Update(ctx context.Context, userID uint, modelKey, locale string) (*models.UserSettings, error)
}

type userSettingsService struct {
	settings     repositories.UserSettingsRepository
	modelConfigs ModelConfigService
}

func NewUserSettingsService(settings repositories.UserSettingsRepository, modelConfigs ModelConfigService) UserSettingsService {
	return &userSettingsService{settings: settings, modelConfigs: modelConfigs}
}

func (s *userSettingsService) Get(ctx context.Context, userID uint) (*models.UserSettings, error) {
	return s.settings.Get(ctx, userID)
}

// Update replaces the preferences. An empty model key clears the preference
// so the server default applies.
func (s *userSettingsService) Update(ctx context.Context, userID uint, modelKey, locale string) (*models.UserSettings, error) {
	locale = strings.ToLower(strings.TrimSpace(locale))
	if locale == "" {
		return nil, invalid("locale is required")
	}
	if !supportedLocales[locale] {
		return nil, invalid("locale must be 'bn', 'en' or 'hi'")
	}
	modelKey = strings.TrimSpace(modelKey)
	if modelKey != "" {
		model, err := s.modelConfigs.GetModel(modelKey)
		if err != nil {
			return nil, err
		}
		if !model.Enabled {
			return nil, ErrModelDisabled
		}
	}

	current, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	current.UserID = userID
	current.DefaultModelKey = modelKey
	current.Locale = locale
	current.UpdatedAt = time.Now()

	if err := s.settings.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}
