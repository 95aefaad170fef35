package mocks

import (
	"context"

	"oneclick/internal/models"
	"oneclick/internal/services"
)

type UserServiceMock struct {
	RegisterFunc       func(ctx context.Context, email, password, name string) (*models.User, error)
	AuthenticateFunc   func(ctx context.Context, email, password string) (*services.AuthSession, error)
	GetSessionFunc     func(ctx context.Context, token string) (*models.User, error)
	FetchProfileFunc   func(ctx context.Context, email string, id uint) (*models.User, error)
	DecrementTokenFunc func(ctx context.Context, id uint, email string) (*models.User, error)
	SyncAdminsFunc     func(ctx context.Context) error
	IsAdminEmailFunc   func(email string) bool
}

func (m *UserServiceMock) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, name)
	}
	return &models.User{Email: email, Name: name, Tokens: models.DefaultSignupTokens, Role: models.RoleUser}, nil
}

func (m *UserServiceMock) Authenticate(ctx context.Context, email, password string) (*services.AuthSession, error) {
	if m.AuthenticateFunc != nil {
		return m.AuthenticateFunc(ctx, email, password)
	}
	return nil, services.ErrInvalidCredentials
}

func (m *UserServiceMock) GetSession(ctx context.Context, token string) (*models.User, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, token)
	}
	return nil, services.ErrUnauthorized
}

func (m *UserServiceMock) FetchProfile(ctx context.Context, email string, id uint) (*models.User, error) {
	if m.FetchProfileFunc != nil {
		return m.FetchProfileFunc(ctx, email, id)
	}
	return &models.User{ID: id, Email: email, Tokens: models.DefaultSignupTokens, Role: models.RoleUser}, nil
}

func (m *UserServiceMock) DecrementToken(ctx context.Context, id uint, email string) (*models.User, error) {
	if m.DecrementTokenFunc != nil {
		return m.DecrementTokenFunc(ctx, id, email)
	}
	return &models.User{ID: id, Email: email, Tokens: models.DefaultSignupTokens - 1, Role: models.RoleUser}, nil
}

func (m *UserServiceMock) SyncAdmins(ctx context.Context) error {
	if m.SyncAdminsFunc != nil {
		return m.SyncAdminsFunc(ctx)
	}
	return nil
}

func (m *UserServiceMock) IsAdminEmail(email string) bool {
	if m.IsAdminEmailFunc != nil {
		return m.IsAdminEmailFunc(email)
	}
	return false
}
