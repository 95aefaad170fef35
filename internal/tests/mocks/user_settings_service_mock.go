package mocks

import (
	"context"

	"oneclick/internal/models"
	"oneclick/internal/repositories"
)

type UserSettingsServiceMock struct {
	GetFunc    func(ctx context.Context, userID uint) (*models.UserSettings, error)
	UpdateFunc func(ctx context.Context, userID uint, modelKey, locale string) (*models.UserSettings, error)
}

func (m *UserSettingsServiceMock) Get(ctx context.Context, userID uint) (*models.UserSettings, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, userID)
	}
	return &models.UserSettings{UserID: userID, Locale: repositories.DefaultLocale}, nil
}

func (m *UserSettingsServiceMock) Update(ctx context.Context, userID uint, modelKey, locale string) (*models.UserSettings, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, userID, modelKey, locale)
	}
	return &models.UserSettings{UserID: userID, DefaultModelKey: modelKey, Locale: locale}, nil
}
