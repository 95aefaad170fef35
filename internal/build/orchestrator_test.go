package build

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oneclick/internal/events"
	"oneclick/internal/github"
	"oneclick/internal/models"
)

type fakeStore struct {
	mu sync.Mutex

	calls   []string
	filters []github.RunFilter
	pushed  map[string]string
	commits int

	repoMissing bool
	upsertErr   map[string]error
	skip        map[string]bool
	upsertGate  chan struct{}

	runs      []*github.WorkflowRun
	runErrs   map[int]error
	artifacts [][]github.Artifact
	polls     int
	lookups   int
	onPoll    func()

	download    []byte
	downloadErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pushed:    map[string]string{},
		upsertErr: map[string]error{},
		skip:      map[string]bool{},
		runErrs:   map[int]error{},
	}
}

func (f *fakeStore) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeStore) CheckRepository(_ context.Context, _ models.RepoCredential) (bool, error) {
	f.record("check")
	if f.repoMissing {
		return false, &github.APIError{Op: "check repository", StatusCode: 404, Message: "Not Found"}
	}
	return true, nil
}

func (f *fakeStore) UpsertFile(ctx context.Context, _ models.RepoCredential, path, content string) (*github.UpsertResult, error) {
	if f.upsertGate != nil {
		select {
		case <-f.upsertGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.record("upsert " + path)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.upsertErr[path]; err != nil {
		return nil, err
	}
	if f.skip[path] {
		return &github.UpsertResult{Path: path, Skipped: true}, nil
	}
	f.pushed[path] = content
	f.commits++
	return &github.UpsertResult{Path: path, CommitSHA: fmt.Sprintf("c%d", f.commits)}, nil
}

func (f *fakeStore) LatestRun(_ context.Context, _ models.RepoCredential, filter github.RunFilter) (*github.WorkflowRun, error) {
	if f.onPoll != nil {
		f.onPoll()
	}
	f.record("runs")
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.polls
	f.polls++
	f.filters = append(f.filters, filter)
	if err := f.runErrs[idx]; err != nil {
		return nil, err
	}
	if len(f.runs) == 0 {
		return nil, nil
	}
	if idx >= len(f.runs) {
		idx = len(f.runs) - 1
	}
	return f.runs[idx], nil
}

func (f *fakeStore) ListArtifacts(_ context.Context, _ models.RepoCredential, _ *github.WorkflowRun) ([]github.Artifact, error) {
	f.record("artifacts")
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.lookups
	f.lookups++
	if len(f.artifacts) == 0 {
		return nil, nil
	}
	if idx >= len(f.artifacts) {
		idx = len(f.artifacts) - 1
	}
	return f.artifacts[idx], nil
}

func (f *fakeStore) FetchArtifactBytes(_ context.Context, _ models.RepoCredential, url string) ([]byte, error) {
	f.record("download " + url)
	return f.download, f.downloadErr
}

var (
	goodCred   = models.RepoCredential{Token: "tkn", Owner: "octo", Repo: "app"}
	seedFiles  = map[string]string{"index.html": "<h1>A</h1>", "main.js": "// Logic goes here"}
	runPending = &github.WorkflowRun{ID: 9, Status: "in_progress", HTMLURL: "https://github.com/octo/app/actions/runs/9"}
	runSuccess = &github.WorkflowRun{ID: 9, Status: "completed", Conclusion: "success", HTMLURL: "https://github.com/octo/app/actions/runs/9"}
	apkArt     = github.Artifact{ID: 1, Name: "app-debug", SizeInBytes: 42, ArchiveDownloadURL: "https://api.github.com/artifacts/1/zip"}
)

func newTestOrchestrator(t *testing.T, store Store, cfg Config, opts ...Option) *Orchestrator {
	t.Helper()
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Millisecond
	}
	o, err := New(store, append([]Option{WithConfig(cfg)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(o.Close)
	return o
}

func TestStartBuild_IncompleteCredential(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(t, store, Config{})

	snap, err := o.StartBuild(context.Background(), models.RepoCredential{Token: "", Owner: "x", Repo: "y"}, seedFiles)

	assert.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, PhaseIdle, o.Snapshot().Phase)
	assert.Zero(t, store.callCount())
}

func TestStartBuild_ResolvesAfterArtifactAppears(t *testing.T) {
	store := newFakeStore()
	store.runs = []*github.WorkflowRun{nil, nil, runPending, runSuccess, runSuccess}
	store.artifacts = [][]github.Artifact{
		{{Name: "coverage-report", ArchiveDownloadURL: "x"}},
		{apkArt},
	}

	var phasesAtPoll []Phase
	var recorded []Phase
	o := newTestOrchestrator(t, store, Config{}, WithRecorder(func(_ context.Context, snap Snapshot) {
		recorded = append(recorded, snap.Phase)
	}))
	store.onPoll = func() { phasesAtPoll = append(phasesAtPoll, o.Snapshot().Phase) }

	snap, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	assert.Equal(t, PhasePushing, snap.Phase)
	o.Wait()

	final := o.Snapshot()
	require.Equal(t, PhaseDone, final.Phase, final.Logs)
	require.NotNil(t, final.Result)
	assert.Equal(t, apkArt.ArchiveDownloadURL, final.Result.DownloadURL)
	assert.Equal(t, runSuccess.HTMLURL, final.Result.RunURL)
	assert.Equal(t, "app-debug", final.Result.ArtifactName)
	assert.Equal(t, 5, final.Attempts)
	assert.Equal(t, []Phase{PhaseBuilding, PhaseBuilding, PhaseBuilding, PhaseBuilding, PhaseBuilding}, phasesAtPoll)
	assert.Equal(t, []Phase{PhasePushing, PhaseBuilding, PhaseDone}, recorded)

	assert.Equal(t, []string{
		"check",
		"upsert index.html",
		"upsert main.js",
		"upsert " + DescriptorPath,
		"runs", "runs", "runs", "runs", "artifacts", "runs", "artifacts",
	}, store.calls)
	assert.Equal(t, "c3", store.filters[0].HeadSHA)
	assert.Contains(t, store.pushed[DescriptorPath], "actions/upload-artifact@v4")
}

func TestStartBuild_NoOpWhileActive(t *testing.T) {
	store := newFakeStore()
	store.upsertGate = make(chan struct{})
	store.runs = []*github.WorkflowRun{runSuccess}
	store.artifacts = [][]github.Artifact{{apkArt}}
	o := newTestOrchestrator(t, store, Config{})

	first, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return store.callCount() == 1 }, time.Second, time.Millisecond)

	second, err := o.StartBuild(context.Background(), goodCred, map[string]string{"other.html": "x"})
	assert.ErrorIs(t, err, ErrBuildInProgress)
	assert.Equal(t, first.JobID, second.JobID)
	assert.Equal(t, PhasePushing, second.Phase)
	assert.Equal(t, 1, store.callCount())

	close(store.upsertGate)
	o.Wait()
	assert.Equal(t, PhaseDone, o.Snapshot().Phase)
	_, pushedOther := store.pushed["other.html"]
	assert.False(t, pushedOther)

	third, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	assert.NotEqual(t, first.JobID, third.JobID)
	o.Wait()
}

func TestStartBuild_UsesSnapshotOfFiles(t *testing.T) {
	store := newFakeStore()
	store.upsertGate = make(chan struct{})
	store.runs = []*github.WorkflowRun{runSuccess}
	store.artifacts = [][]github.Artifact{{apkArt}}
	o := newTestOrchestrator(t, store, Config{})

	files := map[string]string{"index.html": "<h1>A</h1>"}
	_, err := o.StartBuild(context.Background(), goodCred, files)
	require.NoError(t, err)

	files["index.html"] = "<h1>edited</h1>"
	files["late.js"] = "late"
	close(store.upsertGate)
	o.Wait()

	assert.Equal(t, "<h1>A</h1>", store.pushed["index.html"])
	assert.NotContains(t, store.pushed, "late.js")
}

func TestStartBuild_PushFailure(t *testing.T) {
	store := newFakeStore()
	store.upsertErr["main.js"] = &github.APIError{Op: "put main.js", StatusCode: 403, Message: "Resource not accessible by personal access token"}
	o := newTestOrchestrator(t, store, Config{})

	_, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.ErrorIs(t, snap.Err, ErrPush)
	assert.ErrorIs(t, snap.Err, github.ErrAuth)
	assert.Contains(t, snap.Error, "Resource not accessible by personal access token")
	assert.NotContains(t, store.calls, "runs")
	assert.Equal(t, "<h1>A</h1>", store.pushed["index.html"])
}

func TestStartBuild_RepositoryUnreachable(t *testing.T) {
	store := newFakeStore()
	store.repoMissing = true
	o := newTestOrchestrator(t, store, Config{})

	_, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.ErrorIs(t, snap.Err, ErrPush)
	assert.ErrorIs(t, snap.Err, github.ErrNotFound)
	assert.Equal(t, []string{"check"}, store.calls)
}

func TestPoll_PipelineFailureKeepsRunLink(t *testing.T) {
	store := newFakeStore()
	store.runs = []*github.WorkflowRun{{ID: 4, Status: "completed", Conclusion: "failure", HTMLURL: "https://github.com/octo/app/actions/runs/4"}}
	o := newTestOrchestrator(t, store, Config{})

	_, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.ErrorIs(t, snap.Err, ErrPipelineFailed)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "https://github.com/octo/app/actions/runs/4", snap.Result.RunURL)
	assert.Empty(t, snap.Result.DownloadURL)
}

func TestPoll_TimesOut(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(t, store, Config{MaxPollAttempts: 3})

	_, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.ErrorIs(t, snap.Err, ErrTimeout)
	assert.Equal(t, 3, snap.Attempts)
}

func TestPoll_TransientErrorsAreRetried(t *testing.T) {
	store := newFakeStore()
	store.runErrs[0] = &github.APIError{Op: "list runs", StatusCode: 502}
	store.runErrs[1] = &github.APIError{Op: "list runs", Err: errors.New("connection reset")}
	store.runs = []*github.WorkflowRun{runSuccess}
	store.artifacts = [][]github.Artifact{{apkArt}}
	o := newTestOrchestrator(t, store, Config{})

	_, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	o.Wait()

	snap := o.Snapshot()
	assert.Equal(t, PhaseDone, snap.Phase)
	assert.Equal(t, 3, snap.Attempts)
	assert.Contains(t, snap.Logs, "Status check 1 failed: list runs: 502 Bad Gateway")
}

func TestPoll_IgnoresExpiredArtifacts(t *testing.T) {
	store := newFakeStore()
	store.runs = []*github.WorkflowRun{runSuccess}
	expired := apkArt
	expired.Expired = true
	bundle := github.Artifact{ID: 2, Name: "app-bundle", ArchiveDownloadURL: "https://api.github.com/artifacts/2/zip"}
	store.artifacts = [][]github.Artifact{{expired, bundle}}
	o := newTestOrchestrator(t, store, Config{})

	_, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	o.Wait()

	snap := o.Snapshot()
	require.Equal(t, PhaseDone, snap.Phase)
	assert.Equal(t, "app-bundle", snap.Result.ArtifactName)
}

func TestPush_UnchangedProjectWatchesLatestRun(t *testing.T) {
	store := newFakeStore()
	for _, p := range []string{"index.html", "main.js", DescriptorPath} {
		store.skip[p] = true
	}
	store.runs = []*github.WorkflowRun{runSuccess}
	store.artifacts = [][]github.Artifact{{apkArt}}
	o := newTestOrchestrator(t, store, Config{})

	_, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	o.Wait()

	assert.Equal(t, PhaseDone, o.Snapshot().Phase)
	assert.Equal(t, "", store.filters[0].HeadSHA)
}

func TestCancel_StopsPolling(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(t, store, Config{MaxPollAttempts: 1_000_000, MaxPollDuration: time.Hour})

	_, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return o.Snapshot().Attempts > 2 }, time.Second, time.Millisecond)

	o.Cancel()
	snap := o.Snapshot()
	assert.Equal(t, PhaseFailed, snap.Phase)
	assert.ErrorIs(t, snap.Err, ErrCanceled)

	polls := store.callCount()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, polls, store.callCount())
}

func TestClose_RefusesNewBuilds(t *testing.T) {
	o := newTestOrchestrator(t, newFakeStore(), Config{})
	o.Close()

	_, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDownloadArtifact(t *testing.T) {
	store := newFakeStore()
	store.runs = []*github.WorkflowRun{runSuccess}
	store.artifacts = [][]github.Artifact{{apkArt}}
	store.download = []byte("PK zip")
	o := newTestOrchestrator(t, store, Config{})

	_, _, err := o.DownloadArtifact(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)

	_, err = o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	o.Wait()

	data, name, err := o.DownloadArtifact(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("PK zip"), data)
	assert.Equal(t, "app-debug.zip", name)
	assert.Contains(t, store.calls, "download "+apkArt.ArchiveDownloadURL)

	store.downloadErr = &github.APIError{Op: "download artifact", StatusCode: 410, Message: "Artifact has expired"}
	_, _, err = o.DownloadArtifact(context.Background())
	assert.ErrorIs(t, err, ErrDownload)
	assert.ErrorContains(t, err, "Artifact has expired")
}

func TestReset(t *testing.T) {
	store := newFakeStore()
	store.upsertGate = make(chan struct{})
	store.runs = []*github.WorkflowRun{runSuccess}
	store.artifacts = [][]github.Artifact{{apkArt}}
	o := newTestOrchestrator(t, store, Config{})

	_, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	assert.ErrorIs(t, o.Reset(), ErrBuildInProgress)

	close(store.upsertGate)
	o.Wait()
	require.NoError(t, o.Reset())
	snap := o.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Empty(t, snap.JobID)
}

func TestEvents_ScopedToSession(t *testing.T) {
	var mu sync.Mutex
	var got []events.Event
	sink := events.EmitterFunc(func(_ context.Context, name string, evt events.Event) {
		if name != events.BuildPhase {
			return
		}
		mu.Lock()
		got = append(got, evt)
		mu.Unlock()
	})
	store := newFakeStore()
	store.runs = []*github.WorkflowRun{runSuccess}
	store.artifacts = [][]github.Artifact{{apkArt}}
	o := newTestOrchestrator(t, store, Config{}, WithEvents(sink, "user-7"))

	_, err := o.StartBuild(context.Background(), goodCred, seedFiles)
	require.NoError(t, err)
	o.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 3)
	for _, evt := range got {
		assert.Equal(t, "user-7", evt.SessionKey)
	}
	last := got[2]
	assert.Equal(t, events.EventSuccess, last.Type)
	assert.Equal(t, "done", last.Metadata["phase"])
	assert.Equal(t, apkArt.ArchiveDownloadURL, last.Metadata["downloadUrl"])
}
