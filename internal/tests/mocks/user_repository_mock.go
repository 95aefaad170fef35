package mocks

import (
	"context"

	"oneclick/internal/models"
)

type UserRepositoryMock struct {
	CreateFunc          func(ctx context.Context, u *models.User) error
	FindByIDFunc        func(ctx context.Context, id uint) (*models.User, error)
	FindByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	ListFunc            func(ctx context.Context, limit, offset int) ([]models.User, error)
	UpdateFunc          func(ctx context.Context, u *models.User) error
	SetRoleFunc         func(ctx context.Context, id uint, role string) error
	DecrementTokensFunc func(ctx context.Context, id uint) (bool, error)
	AddTokensFunc       func(ctx context.Context, id uint, n int) error
}

func (m *UserRepositoryMock) Create(ctx context.Context, u *models.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, u)
	}
	return nil
}

func (m *UserRepositoryMock) FindByID(ctx context.Context, id uint) (*models.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *UserRepositoryMock) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *UserRepositoryMock) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []models.User{}, nil
}

func (m *UserRepositoryMock) Update(ctx context.Context, u *models.User) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, u)
	}
	return nil
}

func (m *UserRepositoryMock) SetRole(ctx context.Context, id uint, role string) error {
	if m.SetRoleFunc != nil {
		return m.SetRoleFunc(ctx, id, role)
	}
	return nil
}

func (m *UserRepositoryMock) DecrementTokens(ctx context.Context, id uint) (bool, error) {
	if m.DecrementTokensFunc != nil {
		return m.DecrementTokensFunc(ctx, id)
	}
	return true, nil
}

func (m *UserRepositoryMock) AddTokens(ctx context.Context, id uint, n int) error {
	if m.AddTokensFunc != nil {
		return m.AddTokensFunc(ctx, id, n)
	}
	return nil
}
