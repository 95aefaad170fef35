package services

import (
	"context"
	"fmt"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog/log"

	"oneclick/internal/assets"
	"oneclick/internal/models"
	"oneclick/internal/repositories"
)

type PackageService interface {
	// Seed upserts the embedded catalog by id.
	Seed(ctx context.Context) error
	List(ctx context.Context) ([]models.Package, error)
	Get(ctx context.Context, id string) (*models.Package, error)
}

type packageCatalog struct {
	Packages []models.Package `toml:"packages"`
}

type packageService struct {
	repo    repositories.PackageRepository
	catalog []byte
}

func NewPackageService(repo repositories.PackageRepository) PackageService {
	return &packageService{repo: repo, catalog: assets.PackagesData}
}

// ParsePackageCatalog decodes a TOML catalog of [[packages]] tables.
func ParsePackageCatalog(data []byte) ([]models.Package, error) {
	var cat packageCatalog
	if err := toml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse package catalog: %w", err)
	}
	seen := make(map[string]bool, len(cat.Packages))
	for i := range cat.Packages {
		p := &cat.Packages[i]
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" || p.Tokens <= 0 {
			return nil, fmt.Errorf("package catalog entry %d needs an id and a positive token count", i)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("package catalog repeats id %q", p.ID)
		}
		seen[p.ID] = true
	}
	return cat.Packages, nil
}

func (s *packageService) Seed(ctx context.Context) error {
	pkgs, err := ParsePackageCatalog(s.catalog)
	if err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, pkgs); err != nil {
		return fmt.Errorf("seed packages: %w", err)
	}
	log.Info().Int("packages", len(pkgs)).Msg("package catalog seeded")
	return nil
}

func (s *packageService) List(ctx context.Context) ([]models.Package, error) {
	return s.repo.List(ctx)
}

func (s *packageService) Get(ctx context.Context, id string) (*models.Package, error) {
	p, err := s.repo.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPackageNotFound
	}
	return p, nil
}
