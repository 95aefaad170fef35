package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"oneclick/internal/models"
)

type PackageRepository interface {
	List(ctx context.Context) ([]models.Package, error)
	FindByID(ctx context.Context, id string) (*models.Package, error)
	Upsert(ctx context.Context, pkgs []models.Package) error
}

type packageRepository struct {
	db *gorm.DB
}

func NewPackageRepository(db *gorm.DB) PackageRepository {
	return &packageRepository{db: db}
}

func (r *packageRepository) List(ctx context.Context) ([]models.Package, error) {
	var pkgs []models.Package
	if err := r.db.WithContext(ctx).Order("tokens ASC").Find(&pkgs).Error; err != nil {
		return nil, err
	}
	return pkgs, nil
}

func (r *packageRepository) FindByID(ctx context.Context, id string) (*models.Package, error) {
	var p models.Package
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// Upsert inserts the packages, replacing existing rows with the same id.
func (r *packageRepository) Upsert(ctx context.Context, pkgs []models.Package) error {
	if len(pkgs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "tokens", "price", "is_popular", "icon", "updated_at"}),
	}).Create(&pkgs).Error
}
