package services

import (
	"context"
	"time"

	"github.com/99designs/keyring"
	"gorm.io/gorm"

	"oneclick/internal/build"
	"oneclick/internal/events"
	"oneclick/internal/repositories"
)

// Services aggregates the domain services backed by the database.
type Services struct {
	Users        UserService
	Packages     PackageService
	Transactions TransactionService
	Settings     UserSettingsService
	Models       ModelConfigService
	Keys         *KeyringService
	Clients      *ClientService
	Events       *EventEmitterService
	Workspaces   *WorkspaceService
}

type Options struct {
	Auth        UserServiceConfig
	Keyring     keyring.Keyring
	Providers   map[string]ProviderFactory
	Store       build.Store
	Build       build.Config
	Studio      StudioConfig
	Broadcaster *events.Broadcaster

	// Base is the server lifetime; builds run under it.
	Base                 context.Context
	WorkspaceIdleTimeout time.Duration
}

// NewServices constructs the service container using repositories backed by db.
func NewServices(db *gorm.DB, opts Options) *Services {
	userRepo := repositories.NewUserRepository(db)
	packageRepo := repositories.NewPackageRepository(db)
	txRepo := repositories.NewTransactionRepository(db)
	settingsRepo := repositories.NewUserSettingsRepository(db)
	modelRepo := repositories.NewModelSettingRepository(db)
	sessionRepo := repositories.NewGenerationSessionRepository(db)
	jobRepo := repositories.NewBuildJobRepository(db)

	users := NewUserService(userRepo, opts.Auth)
	packages := NewPackageService(packageRepo)
	modelConfigs := NewModelConfigService(modelRepo)
	settings := NewUserSettingsService(settingsRepo, modelConfigs)
	keys := NewKeyringService(opts.Keyring)
	clients := NewClientService(keys, modelConfigs, opts.Providers)
	emitter := NewEventEmitterService(opts.Broadcaster)

	workspaces := NewWorkspaceService(WorkspaceDeps{
		Store: opts.Store,
		Jobs:  jobRepo,
		Studio: StudioDeps{
			Sessions:   sessionRepo,
			Generators: clients,
			Users:      users,
			Settings:   settings,
			Emitter:    emitter.Emitter(),
			Config:     opts.Studio,
		},
		Build:       opts.Build,
		Base:        opts.Base,
		IdleTimeout: opts.WorkspaceIdleTimeout,
	})

	return &Services{
		Users:        users,
		Packages:     packages,
		Transactions: NewTransactionService(txRepo, userRepo, packages),
		Settings:     settings,
		Models:       modelConfigs,
		Keys:         keys,
		Clients:      clients,
		Events:       emitter,
		Workspaces:   workspaces,
	}
}

// Startup loads the model catalog and checks the generator wiring.
func (s *Services) Startup(ctx context.Context) error {
	if err := s.Models.Startup(ctx); err != nil {
		return err
	}
	if err := s.Clients.Startup(ctx); err != nil {
		return err
	}
	if err := s.Packages.Seed(ctx); err != nil {
		return err
	}
	return s.Users.SyncAdmins(ctx)
}

// Close stops every running build.
func (s *Services) Close() {
	s.Workspaces.Close()
}
