package repositories

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oneclick/internal/models"
)

type GenerationSessionRepository interface {
	GetByUser(userID uint) (*models.GenerationSession, error)
	Upsert(userID uint, modelKey, provider, filesJSON, messagesJSON string) (*models.GenerationSession, error)
	DeleteByUser(userID uint) error
}

type generationSessionRepository struct {
	db *gorm.DB
}

func NewGenerationSessionRepository(db *gorm.DB) GenerationSessionRepository {
	return &generationSessionRepository{db: db}
}

func (r *generationSessionRepository) GetByUser(userID uint) (*models.GenerationSession, error) {
	var sess models.GenerationSession
	res := r.db.Where("user_id = ?", userID).Take(&sess)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, res.Error
	}
	return &sess, nil
}

func (r *generationSessionRepository) Upsert(userID uint, modelKey, provider, filesJSON, messagesJSON string) (*models.GenerationSession, error) {
	if userID == 0 {
		return nil, fmt.Errorf("userID is required")
	}
	sess := models.GenerationSession{
		UserID:       userID,
		Provider:     provider,
		ModelKey:     modelKey,
		FilesJSON:    filesJSON,
		MessagesJSON: messagesJSON,
	}
	if err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"provider", "model_key", "files_json", "messages_json", "updated_at"}),
	}).Create(&sess).Error; err != nil {
		return nil, err
	}
	return &sess, nil
}

func (r *generationSessionRepository) DeleteByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.GenerationSession{}).Error
}
