// Package build drives a project through push, remote CI and artifact
// retrieval.
package build

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"oneclick/internal/events"
	"oneclick/internal/github"
	"oneclick/internal/models"
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhasePushing  Phase = "pushing"
	PhaseBuilding Phase = "building"
	PhaseDone     Phase = "done"
	PhaseFailed   Phase = "failed"
)

// Active reports whether a job in this phase still has work in flight.
func (p Phase) Active() bool {
	return p == PhasePushing || p == PhaseBuilding
}

func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Store is the remote repository API the orchestrator talks to.
type Store interface {
	CheckRepository(ctx context.Context, cred models.RepoCredential) (bool, error)
	UpsertFile(ctx context.Context, cred models.RepoCredential, path, content string) (*github.UpsertResult, error)
	LatestRun(ctx context.Context, cred models.RepoCredential, filter github.RunFilter) (*github.WorkflowRun, error)
	ListArtifacts(ctx context.Context, cred models.RepoCredential, run *github.WorkflowRun) ([]github.Artifact, error)
	FetchArtifactBytes(ctx context.Context, cred models.RepoCredential, downloadURL string) ([]byte, error)
}

// Recorder receives a snapshot on every phase change.
type Recorder func(ctx context.Context, snap Snapshot)

type Config struct {
	PollInterval    time.Duration
	MaxPollAttempts int
	MaxPollDuration time.Duration
	// ArtifactNames are accepted in addition to the names the descriptor
	// uploads.
	ArtifactNames []string
}

func DefaultConfig() Config {
	return Config{
		PollInterval:    10 * time.Second,
		MaxPollAttempts: 90,
		MaxPollDuration: 20 * time.Minute,
		ArtifactNames:   []string{"app-bundle"},
	}
}

// Result locates a finished build.
type Result struct {
	DownloadURL  string `json:"downloadUrl,omitempty"`
	RunURL       string `json:"runUrl,omitempty"`
	RunID        int64  `json:"runId,omitempty"`
	ArtifactName string `json:"artifactName,omitempty"`
	SizeBytes    int64  `json:"sizeBytes,omitempty"`
}

// Snapshot is a point-in-time copy of the current job.
type Snapshot struct {
	JobID      string     `json:"jobId,omitempty"`
	Phase      Phase      `json:"phase"`
	Logs       []string   `json:"logs"`
	Result     *Result    `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	Owner      string     `json:"owner,omitempty"`
	Repo       string     `json:"repo,omitempty"`
	CommitSHA  string     `json:"commitSha,omitempty"`
	Attempts   int        `json:"pollAttempts"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	Err error `json:"-"`
}

type Option func(*Orchestrator)

func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) {
		def := DefaultConfig()
		if cfg.PollInterval <= 0 {
			cfg.PollInterval = def.PollInterval
		}
		if cfg.MaxPollAttempts <= 0 {
			cfg.MaxPollAttempts = def.MaxPollAttempts
		}
		if cfg.ArtifactNames == nil {
			cfg.ArtifactNames = def.ArtifactNames
		}
		o.cfg = cfg
	}
}

func WithDescriptor(d Descriptor) Option {
	return func(o *Orchestrator) { o.descriptor = d }
}

// WithEvents scopes emitted events to sessionKey.
func WithEvents(em events.Emitter, sessionKey string) Option {
	return func(o *Orchestrator) { o.emitter = events.Scoped(em, sessionKey) }
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithBaseContext sets the parent of every job context. Jobs outlive the
// request that started them, so this is usually the server lifetime.
func WithBaseContext(ctx context.Context) Option {
	return func(o *Orchestrator) { o.base = ctx }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// Orchestrator owns the build lifecycle of one project. At most one job is
// active at a time.
type Orchestrator struct {
	store      Store
	cfg        Config
	descriptor Descriptor
	accepted   mapset.Set[string]
	emitter    events.Emitter
	recorder   Recorder
	base       context.Context
	logger     zerolog.Logger
	metrics    *buildMetrics
	now        func() time.Time

	mu     sync.Mutex
	job    *job
	task   *Task
	closed bool
}

type job struct {
	id         string
	phase      Phase
	logs       []string
	result     *Result
	err        error
	cred       models.RepoCredential
	files      []pushEntry
	commitSHA  string
	attempts   int
	startedAt  time.Time
	finishedAt time.Time
}

// New builds an orchestrator. It fails only when the embedded workflow is
// unusable.
func New(store Store, opts ...Option) (*Orchestrator, error) {
	o := &Orchestrator{
		store:   store,
		cfg:     DefaultConfig(),
		emitter: events.Nop,
		base:    context.Background(),
		logger:  log.Logger,
		metrics: newBuildMetrics(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.descriptor.Path == "" {
		d, err := DefaultDescriptor()
		if err != nil {
			return nil, err
		}
		o.descriptor = d
	}
	o.accepted = mapset.NewSet(o.descriptor.Artifacts...)
	o.accepted.Append(o.cfg.ArtifactNames...)
	return o, nil
}

// StartBuild snapshots files and begins a push-build-resolve job. It returns
// ErrConfiguration without touching the network when the credential is
// incomplete, and ErrBuildInProgress without side effects while a job is
// pushing or building.
func (o *Orchestrator) StartBuild(ctx context.Context, cred models.RepoCredential, files map[string]string) (Snapshot, error) {
	cred = cred.Trimmed()
	if !cred.Complete() {
		return o.Snapshot(), fmt.Errorf("%w: token, owner and repository are required", ErrConfiguration)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return o.Snapshot(), ErrClosed
	}
	if o.job != nil && o.job.phase.Active() {
		snap := o.snapshotLocked()
		o.mu.Unlock()
		return snap, ErrBuildInProgress
	}
	j := &job{
		id:        uuid.NewString(),
		phase:     PhasePushing,
		cred:      cred,
		files:     pushSet(files, o.descriptor),
		startedAt: o.now(),
	}
	j.logs = append(j.logs, fmt.Sprintf("Pushing %d files to %s/%s", len(j.files), cred.Owner, cred.Repo))
	o.job = j
	snap := o.snapshotLocked()
	// The job waits for the pushing announcement so observers see phases in order.
	ready := make(chan struct{})
	o.task = Go(o.base, func(ctx context.Context) {
		select {
		case <-ready:
		case <-ctx.Done():
			o.fail(j, ErrCanceled)
			return
		}
		o.run(ctx, j)
	})
	o.mu.Unlock()

	o.logger.Info().Str("job", j.id).Str("repo", cred.Owner+"/"+cred.Repo).Int("files", len(j.files)).Msg("build started")
	o.metrics.started.Add(ctx, 1)
	o.announce(ctx, snap, events.NewInfo(snap.Logs[0]))
	close(ready)
	return snap, nil
}

// Snapshot returns the current job state, or an idle snapshot.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Reset clears a finished job so the orchestrator reads Idle again.
func (o *Orchestrator) Reset() error {
	o.mu.Lock()
	if o.job != nil && o.job.phase.Active() {
		o.mu.Unlock()
		return ErrBuildInProgress
	}
	o.job = nil
	o.task = nil
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.announce(o.base, snap, events.NewInfo("Build reset"))
	return nil
}

// Cancel stops the active job, if any, and waits for it to wind down. The
// job ends in PhaseFailed with ErrCanceled.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	task := o.task
	o.mu.Unlock()
	if task != nil {
		task.Stop()
	}
}

// Close cancels any active job and refuses new ones.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.Cancel()
}

// Wait blocks until the current job's task has returned.
func (o *Orchestrator) Wait() {
	o.mu.Lock()
	task := o.task
	o.mu.Unlock()
	if task != nil {
		<-task.Done()
	}
}

// DownloadArtifact fetches the archive of a finished build. It returns the
// bytes and a file name for saving them.
func (o *Orchestrator) DownloadArtifact(ctx context.Context) ([]byte, string, error) {
	o.mu.Lock()
	if o.job == nil || o.job.phase != PhaseDone || o.job.result == nil {
		o.mu.Unlock()
		return nil, "", ErrNotReady
	}
	cred := o.job.cred
	result := *o.job.result
	o.mu.Unlock()

	data, err := o.store.FetchArtifactBytes(ctx, cred, result.DownloadURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDownload, err)
	}
	return data, result.ArtifactName + ".zip", nil
}

func (o *Orchestrator) run(ctx context.Context, j *job) {
	if err := o.push(ctx, j); err != nil {
		if ctx.Err() != nil {
			err = ErrCanceled
		}
		o.fail(j, err)
		return
	}
	o.transition(j, PhaseBuilding, "Push complete, waiting for the build pipeline")

	deadline := o.now().Add(o.cfg.MaxPollDuration)
	if err := Repeat(ctx, o.cfg.PollInterval, func(ctx context.Context) bool {
		return o.poll(ctx, j, deadline)
	}); err != nil {
		o.fail(j, ErrCanceled)
	}
}

func (o *Orchestrator) push(ctx context.Context, j *job) error {
	ok, err := o.store.CheckRepository(ctx, j.cred)
	if !ok {
		if err == nil {
			err = errors.New("repository is not reachable")
		}
		return fmt.Errorf("%w: check %s/%s: %w", ErrPush, j.cred.Owner, j.cred.Repo, err)
	}

	var commit string
	for _, entry := range j.files {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res, err := o.store.UpsertFile(ctx, j.cred, entry.Path, entry.Content)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrPush, entry.Path, err)
		}
		if res.Skipped {
			o.appendLog(j, "Unchanged "+entry.Path)
			continue
		}
		o.appendLog(j, "Pushed "+entry.Path)
		if res.CommitSHA != "" {
			commit = res.CommitSHA
		}
	}

	o.mu.Lock()
	j.commitSHA = commit
	o.mu.Unlock()
	if commit == "" {
		o.appendLog(j, "No changes since the last push, watching the latest run")
	}
	return nil
}

// poll performs one status check and reports whether the job is finished.
func (o *Orchestrator) poll(ctx context.Context, j *job, deadline time.Time) bool {
	o.mu.Lock()
	j.attempts++
	attempt := j.attempts
	filter := github.RunFilter{HeadSHA: j.commitSHA}
	o.mu.Unlock()
	o.metrics.polls.Add(ctx, 1)

	run, err := o.store.LatestRun(ctx, j.cred, filter)
	switch {
	case err != nil:
		if ctx.Err() != nil {
			return false
		}
		o.appendLog(j, fmt.Sprintf("Status check %d failed: %v", attempt, err))
	case run == nil:
		o.appendLog(j, "Waiting for the pipeline to start")
	case !run.Completed():
		o.appendLog(j, "Pipeline "+run.Status)
	case !run.Succeeded():
		o.mu.Lock()
		j.result = &Result{RunURL: run.HTMLURL, RunID: run.ID}
		o.mu.Unlock()
		o.fail(j, fmt.Errorf("%w: conclusion %q (%s)", ErrPipelineFailed, run.Conclusion, run.HTMLURL))
		return true
	default:
		artifacts, err := o.store.ListArtifacts(ctx, j.cred, run)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			o.appendLog(j, fmt.Sprintf("Artifact lookup failed: %v", err))
			break
		}
		if art := o.pickArtifact(artifacts); art != nil {
			o.complete(j, run, art)
			return true
		}
		o.appendLog(j, "Pipeline succeeded, waiting for the artifact upload")
	}

	if attempt >= o.cfg.MaxPollAttempts || (o.cfg.MaxPollDuration > 0 && o.now().After(deadline)) {
		o.fail(j, fmt.Errorf("%w after %d status checks", ErrTimeout, attempt))
		return true
	}
	return false
}

func (o *Orchestrator) pickArtifact(artifacts []github.Artifact) *github.Artifact {
	for i := range artifacts {
		a := &artifacts[i]
		if !a.Expired && o.accepted.Contains(a.Name) {
			return a
		}
	}
	return nil
}

func (o *Orchestrator) complete(j *job, run *github.WorkflowRun, art *github.Artifact) {
	o.mu.Lock()
	if o.job != j || j.phase.Terminal() {
		o.mu.Unlock()
		return
	}
	j.phase = PhaseDone
	j.finishedAt = o.now()
	j.result = &Result{
		DownloadURL:  art.ArchiveDownloadURL,
		RunURL:       run.HTMLURL,
		RunID:        run.ID,
		ArtifactName: art.Name,
		SizeBytes:    art.SizeInBytes,
	}
	j.logs = append(j.logs, "Build ready: "+art.Name)
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Info().Str("job", j.id).Int64("run", run.ID).Str("artifact", art.Name).Msg("build finished")
	o.metrics.finish(o.base, PhaseDone, j.finishedAt.Sub(j.startedAt))
	o.announce(o.base, snap, events.NewSuccess("Build ready").With("downloadUrl", art.ArchiveDownloadURL))
}

func (o *Orchestrator) fail(j *job, err error) {
	o.mu.Lock()
	if o.job != j || j.phase.Terminal() {
		o.mu.Unlock()
		return
	}
	j.phase = PhaseFailed
	j.err = err
	j.finishedAt = o.now()
	j.logs = append(j.logs, "Build failed: "+err.Error())
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.logger.Warn().Str("job", j.id).Err(err).Msg("build failed")
	o.metrics.finish(o.base, PhaseFailed, j.finishedAt.Sub(j.startedAt))
	o.announce(o.base, snap, events.NewError(err.Error()))
}

func (o *Orchestrator) transition(j *job, phase Phase, message string) {
	o.mu.Lock()
	if o.job != j || j.phase.Terminal() {
		o.mu.Unlock()
		return
	}
	j.phase = phase
	j.logs = append(j.logs, message)
	snap := o.snapshotLocked()
	o.mu.Unlock()

	o.announce(o.base, snap, events.NewInfo(message))
}

// appendLog adds a line unless it repeats the previous one.
func (o *Orchestrator) appendLog(j *job, line string) {
	o.mu.Lock()
	if n := len(j.logs); n > 0 && j.logs[n-1] == line {
		o.mu.Unlock()
		return
	}
	j.logs = append(j.logs, line)
	o.mu.Unlock()

	o.emitter.Emit(o.base, events.BuildLog, events.NewInfo(line).With("jobId", j.id))
}

func (o *Orchestrator) announce(ctx context.Context, snap Snapshot, evt events.Event) {
	evt = evt.With("phase", string(snap.Phase))
	if snap.JobID != "" {
		evt = evt.With("jobId", snap.JobID)
	}
	o.emitter.Emit(ctx, events.BuildPhase, evt)
	if o.recorder != nil && snap.JobID != "" {
		o.recorder(ctx, snap)
	}
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	j := o.job
	if j == nil {
		return Snapshot{Phase: PhaseIdle, Logs: []string{}}
	}
	snap := Snapshot{
		JobID:     j.id,
		Phase:     j.phase,
		Logs:      append([]string(nil), j.logs...),
		Owner:     j.cred.Owner,
		Repo:      j.cred.Repo,
		CommitSHA: j.commitSHA,
		Attempts:  j.attempts,
		Err:       j.err,
	}
	started := j.startedAt
	snap.StartedAt = &started
	if !j.finishedAt.IsZero() {
		finished := j.finishedAt
		snap.FinishedAt = &finished
	}
	if j.result != nil {
		r := *j.result
		snap.Result = &r
	}
	if j.err != nil {
		snap.Error = j.err.Error()
	}
	return snap
}
