package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"oneclick/internal/build"
	"oneclick/internal/config"
	"oneclick/internal/database"
	"oneclick/internal/events"
	"oneclick/internal/github"
	"oneclick/internal/services"
)

// app owns the database and the service container for one command run.
type app struct {
	cfg         *config.Config
	db          *gorm.DB
	services    *services.Services
	broadcaster *events.Broadcaster
	dbClose     func() error
}

// openApp opens the database and keyring and wires every service. Builds
// started through the returned app run under ctx.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	level := logger.Warn
	if cfg.Log.Level == "debug" || cfg.Log.Level == "trace" {
		level = logger.Info
	}
	db, err := database.Init(database.Config{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		LogLevel: level,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a := &app{cfg: cfg, db: db, broadcaster: events.NewBroadcaster()}
	if sqlDB, err := db.DB(); err == nil {
		a.dbClose = sqlDB.Close
	}

	ring, err := services.OpenKeyring(services.KeyringConfig{
		Backend:  cfg.Keyring.Backend,
		Dir:      cfg.Keyring.Dir,
		Password: cfg.Keyring.Password,
	})
	if err != nil {
		a.shutdown()
		return nil, err
	}

	a.services = services.NewServices(db, services.Options{
		Auth: services.UserServiceConfig{
			JWTSecret:   []byte(cfg.Auth.JWTSecret),
			TokenTTL:    cfg.Auth.TokenTTL,
			AdminEmails: cfg.Auth.AdminEmails,
		},
		Keyring: ring,
		Store:   github.NewClient(cfg.GitHub.APIURL),
		Build: build.Config{
			PollInterval:    cfg.Build.PollInterval,
			MaxPollAttempts: cfg.Build.MaxPollAttempts,
			MaxPollDuration: cfg.Build.MaxPollDuration,
		},
		Studio: services.StudioConfig{
			DefaultModel:       cfg.Generator.DefaultModel,
			HistoryTurns:       cfg.Generator.HistoryTurns,
			HistoryTokenBudget: cfg.Generator.HistoryTokenBudget,
		},
		Broadcaster:          a.broadcaster,
		Base:                 ctx,
		WorkspaceIdleTimeout: cfg.Workspace.IdleTimeout,
	})
	return a, nil
}

// shutdown stops running builds and closes the database pool.
func (a *app) shutdown() {
	if a.services != nil {
		a.services.Close()
	}
	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		} else {
			log.Debug().Msg("database closed")
		}
		a.dbClose = nil
	}
}
