package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"oneclick/internal/build"
	"oneclick/internal/events"
	"oneclick/internal/models"
	"oneclick/internal/repositories"
)

// ErrWorkspacesClosed is returned once the registry has shut down.
var ErrWorkspacesClosed = errors.New("workspaces are closed")

// Workspace is one user's studio session, build orchestrator and repository
// credential.
type Workspace struct {
	UserID  uint
	Session *StudioSession
	Builds  *build.Orchestrator

	jobs     repositories.BuildJobRepository
	lastUsed atomic.Int64

	mu   sync.RWMutex
	cred models.RepoCredential
}

func (w *Workspace) touch(now time.Time) {
	w.lastUsed.Store(now.UnixNano())
}

// idle reports whether nothing has used the workspace for timeout and no
// build or instruction is running.
func (w *Workspace) idle(now time.Time, timeout time.Duration) bool {
	if now.Sub(time.Unix(0, w.lastUsed.Load())) < timeout {
		return false
	}
	return !w.Builds.Snapshot().Phase.Active() && !w.Session.Busy()
}

// SetCredential replaces the credential wholesale. Completeness is checked
// when a build starts.
func (w *Workspace) SetCredential(cred models.RepoCredential) {
	w.mu.Lock()
	w.cred = cred.Trimmed()
	w.mu.Unlock()
}

// Credential returns the stored credential with the token masked.
func (w *Workspace) Credential() models.RepoCredential {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cred.Masked()
}

func (w *Workspace) ClearCredential() {
	w.mu.Lock()
	w.cred = models.RepoCredential{}
	w.mu.Unlock()
}

// StartBuild pushes a snapshot of the current project.
func (w *Workspace) StartBuild(ctx context.Context) (build.Snapshot, error) {
	w.mu.RLock()
	cred := w.cred
	w.mu.RUnlock()
	return w.Builds.StartBuild(ctx, cred, w.Session.Files())
}

// BuildHistory lists the user's recorded builds, newest first.
func (w *Workspace) BuildHistory(ctx context.Context, limit int) ([]models.BuildJob, error) {
	return w.jobs.ListByUser(ctx, w.UserID, limit)
}

type WorkspaceDeps struct {
	Store  build.Store
	Jobs   repositories.BuildJobRepository
	Studio StudioDeps
	Build  build.Config

	// Base outlives requests; builds keep running after the request that
	// started them returns.
	Base context.Context

	// IdleTimeout evicts workspaces unused for this long. Zero keeps them
	// until Close.
	IdleTimeout time.Duration
}

// WorkspaceService lazily creates one Workspace per user.
type WorkspaceService struct {
	deps WorkspaceDeps

	mu         sync.Mutex
	workspaces map[uint]*Workspace
	closed     bool
	stop       chan struct{}
}

func NewWorkspaceService(deps WorkspaceDeps) *WorkspaceService {
	if deps.Base == nil {
		deps.Base = context.Background()
	}
	if deps.Studio.Emitter == nil {
		deps.Studio.Emitter = events.Nop
	}
	s := &WorkspaceService{deps: deps, workspaces: make(map[uint]*Workspace), stop: make(chan struct{})}
	if deps.IdleTimeout > 0 {
		go s.sweep(deps.IdleTimeout / 2)
	}
	return s
}

func (s *WorkspaceService) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.deps.Base.Done():
			return
		case <-s.stop:
			return
		case now := <-ticker.C:
			if n := s.EvictIdle(now); n > 0 {
				log.Debug().Int("evicted", n).Msg("idle workspaces closed")
			}
		}
	}
}

// EvictIdle closes the workspaces that have been idle longer than the
// configured timeout and reports how many it removed. An evicted user gets a
// fresh workspace, restored from the stored session, on the next Get.
func (s *WorkspaceService) EvictIdle(now time.Time) int {
	if s.deps.IdleTimeout <= 0 {
		return 0
	}
	s.mu.Lock()
	var evicted []*Workspace
	for id, ws := range s.workspaces {
		if ws.idle(now, s.deps.IdleTimeout) {
			delete(s.workspaces, id)
			evicted = append(evicted, ws)
		}
	}
	s.mu.Unlock()

	for _, ws := range evicted {
		ws.Builds.Close()
		log.Debug().Uint("user", ws.UserID).Msg("workspace evicted")
	}
	return len(evicted)
}

// Get returns the user's workspace, restoring the stored session on first
// use.
func (s *WorkspaceService) Get(ctx context.Context, user *models.User) (*Workspace, error) {
	if user == nil {
		return nil, ErrUnauthorized
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrWorkspacesClosed
	}
	if ws, ok := s.workspaces[user.ID]; ok {
		ws.touch(time.Now())
		return ws, nil
	}

	session, err := NewStudioSession(user.ID, s.deps.Studio)
	if err != nil {
		return nil, err
	}
	userID := user.ID
	orch, err := build.New(s.deps.Store,
		build.WithConfig(s.deps.Build),
		build.WithBaseContext(s.deps.Base),
		build.WithEvents(s.deps.Studio.Emitter, UserSessionKey(userID)),
		build.WithLogger(log.With().Uint("user", userID).Logger()),
		build.WithRecorder(s.recorder(userID)),
	)
	if err != nil {
		return nil, err
	}

	ws := &Workspace{UserID: userID, Session: session, Builds: orch, jobs: s.deps.Jobs}
	ws.touch(time.Now())
	s.workspaces[userID] = ws
	log.Debug().Uint("user", userID).Msg("workspace opened")
	return ws, nil
}

func (s *WorkspaceService) recorder(userID uint) build.Recorder {
	return func(ctx context.Context, snap build.Snapshot) {
		if s.deps.Jobs == nil || snap.JobID == "" {
			return
		}
		job := &models.BuildJob{
			ID:           snap.JobID,
			UserID:       userID,
			Owner:        snap.Owner,
			Repo:         snap.Repo,
			Phase:        string(snap.Phase),
			CommitSHA:    snap.CommitSHA,
			PollAttempts: snap.Attempts,
			ErrorMessage: snap.Error,
			FinishedAt:   snap.FinishedAt,
		}
		if snap.StartedAt != nil {
			job.StartedAt = *snap.StartedAt
		}
		if snap.Result != nil {
			job.RunID = snap.Result.RunID
			job.RunURL = snap.Result.RunURL
			job.DownloadURL = snap.Result.DownloadURL
			job.ArtifactName = snap.Result.ArtifactName
		}
		if err := s.deps.Jobs.Save(context.WithoutCancel(ctx), job); err != nil {
			log.Error().Err(err).Str("job", snap.JobID).Msg("record build job")
		}
	}
}

// Close cancels every running build and refuses new workspaces.
func (s *WorkspaceService) Close() {
	s.mu.Lock()
	if !s.closed {
		close(s.stop)
	}
	s.closed = true
	open := make([]*Workspace, 0, len(s.workspaces))
	for _, ws := range s.workspaces {
		open = append(open, ws)
	}
	s.mu.Unlock()

	for _, ws := range open {
		ws.Builds.Close()
	}
}
