package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oneclick/internal/models"
)

type BuildJobRepository interface {
	// Save inserts the job or overwrites the row with the same id.
	Save(ctx context.Context, job *models.BuildJob) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.BuildJob, error)
}

type buildJobRepository struct {
	db *gorm.DB
}

func NewBuildJobRepository(db *gorm.DB) BuildJobRepository {
	return &buildJobRepository{db: db}
}

func (r *buildJobRepository) Save(ctx context.Context, job *models.BuildJob) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"phase", "commit_sha", "run_id", "run_url", "download_url",
			"artifact_name", "poll_attempts", "error_message", "finished_at", "updated_at",
		}),
	}).Create(job).Error
}

func (r *buildJobRepository) ListByUser(ctx context.Context, userID uint, limit int) ([]models.BuildJob, error) {
	var jobs []models.BuildJob
	q := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
