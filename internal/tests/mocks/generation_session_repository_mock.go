package mocks

import (
	"oneclick/internal/models"
)

type GenerationSessionRepositoryMock struct {
	GetByUserFunc    func(userID uint) (*models.GenerationSession, error)
	UpsertFunc       func(userID uint, modelKey, provider, filesJSON, messagesJSON string) (*models.GenerationSession, error)
	DeleteByUserFunc func(userID uint) error
}

func (m *GenerationSessionRepositoryMock) GetByUser(userID uint) (*models.GenerationSession, error) {
	if m.GetByUserFunc != nil {
		return m.GetByUserFunc(userID)
	}
	return nil, nil
}

func (m *GenerationSessionRepositoryMock) Upsert(userID uint, modelKey, provider, filesJSON, messagesJSON string) (*models.GenerationSession, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(userID, modelKey, provider, filesJSON, messagesJSON)
	}
	return &models.GenerationSession{UserID: userID, ModelKey: modelKey, Provider: provider, FilesJSON: filesJSON, MessagesJSON: messagesJSON}, nil
}

func (m *GenerationSessionRepositoryMock) DeleteByUser(userID uint) error {
	if m.DeleteByUserFunc != nil {
		return m.DeleteByUserFunc(userID)
	}
	return nil
}
