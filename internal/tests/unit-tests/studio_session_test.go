package unit_tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oneclick/internal/events"
	"oneclick/internal/llm/client"
	"oneclick/internal/models"
	"oneclick/internal/services"
	"oneclick/internal/tests/mocks"
)

type emitted struct {
	name string
	evt  events.Event
}

type eventLog struct {
	mu  sync.Mutex
	all []emitted
}

func (l *eventLog) Emit(_ context.Context, name string, evt events.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.all = append(l.all, emitted{name: name, evt: evt})
}

func (l *eventLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.all))
	for _, e := range l.all {
		out = append(out, e.name)
	}
	return out
}

type studioFixture struct {
	repo      *mocks.GenerationSessionRepositoryMock
	users     *mocks.UserServiceMock
	settings  *mocks.UserSettingsServiceMock
	resolver  *mocks.GeneratorResolverMock
	events    *eventLog
	persisted []string
}

func newStudioFixture() *studioFixture {
	f := &studioFixture{
		repo:     &mocks.GenerationSessionRepositoryMock{},
		users:    &mocks.UserServiceMock{},
		settings: &mocks.UserSettingsServiceMock{},
		resolver: &mocks.GeneratorResolverMock{},
		events:   &eventLog{},
	}
	f.repo.UpsertFunc = func(userID uint, modelKey, provider, filesJSON, messagesJSON string) (*models.GenerationSession, error) {
		f.persisted = append(f.persisted, filesJSON)
		return &models.GenerationSession{UserID: userID, FilesJSON: filesJSON, MessagesJSON: messagesJSON}, nil
	}
	return f
}

func (f *studioFixture) session(t *testing.T) *services.StudioSession {
	t.Helper()
	s, err := services.NewStudioSession(7, services.StudioDeps{
		Sessions:   f.repo,
		Generators: f.resolver,
		Users:      f.users,
		Settings:   f.settings,
		Emitter:    f.events,
		Config:     services.StudioConfig{DefaultModel: "gemini|gemini-3-pro-preview", HistoryTurns: 15},
	})
	require.NoError(t, err)
	return s
}

func TestStudioSession_SeedsNewProject(t *testing.T) {
	s := newStudioFixture().session(t)

	files := s.Files()
	assert.Equal(t, services.SeedFiles(), files)
	assert.Empty(t, s.History())
}

func TestStudioSession_OverwritesAndKeepsFiles(t *testing.T) {
	f := newStudioFixture()
	replies := []map[string]string{
		{"index.html": "A"},
		{"index.html": "B", "style.css": "body{}"},
		{"app/util.js": "export {}"},
	}
	call := 0
	f.resolver.GenerateFunc = func(_ context.Context, req client.Request) (*client.Result, error) {
		files := replies[call]
		call++
		return &client.Result{Answer: "done", Files: files}, nil
	}
	s := f.session(t)
	ctx := context.Background()

	before := s.Files()
	for i := range replies {
		turn, err := s.ApplyInstruction(ctx, "change something")
		require.NoError(t, err)
		assert.Equal(t, models.RoleAssistantTurn, turn.Role)
		assert.Equal(t, replies[i], turn.Files)

		after := s.Files()
		for key := range before {
			assert.Contains(t, after, key)
		}
		before = after
	}

	files := s.Files()
	assert.Equal(t, "B", files["index.html"])
	assert.Equal(t, "// Logic goes here", files["main.js"])
	assert.Equal(t, "body{}", files["style.css"])
	assert.Equal(t, "export {}", files["app/util.js"])
	assert.Len(t, s.History(), 6)
}

func TestStudioSession_RequestCarriesSnapshotAndPriorHistory(t *testing.T) {
	f := newStudioFixture()
	var requests []client.Request
	f.resolver.GenerateFunc = func(_ context.Context, req client.Request) (*client.Result, error) {
		requests = append(requests, req)
		return &client.Result{Answer: "ok", Files: map[string]string{"index.html": "<p>x</p>"}}, nil
	}
	f.settings.GetFunc = func(_ context.Context, userID uint) (*models.UserSettings, error) {
		return &models.UserSettings{UserID: userID, Locale: "en"}, nil
	}
	s := f.session(t)
	ctx := context.Background()

	_, err := s.ApplyInstruction(ctx, "  first  ")
	require.NoError(t, err)
	_, err = s.ApplyInstruction(ctx, "second")
	require.NoError(t, err)

	require.Len(t, requests, 2)
	assert.Equal(t, "first", requests[0].Prompt)
	assert.Empty(t, requests[0].History)
	assert.Equal(t, "en", requests[0].Locale)
	assert.Contains(t, requests[0].Files["index.html"], "OneClick Studio Ready")

	require.Len(t, requests[1].History, 2)
	assert.Equal(t, "first", requests[1].History[0].Content)
	assert.Equal(t, "<p>x</p>", requests[1].Files["index.html"])

	// Mutating the request copy never reaches the session.
	requests[1].Files["index.html"] = "tampered"
	assert.Equal(t, "<p>x</p>", s.Files()["index.html"])
}

func TestStudioSession_FailureKeepsFilesAndRecordsFallback(t *testing.T) {
	f := newStudioFixture()
	f.resolver.GenerateFunc = func(context.Context, client.Request) (*client.Result, error) {
		return nil, client.ErrMalformedResponse
	}
	debited := false
	f.users.DecrementTokenFunc = func(context.Context, uint, string) (*models.User, error) {
		debited = true
		return nil, nil
	}
	s := f.session(t)

	turn, err := s.ApplyInstruction(context.Background(), "make it red")
	require.Error(t, err)
	assert.Nil(t, turn)
	assert.ErrorIs(t, err, services.ErrGeneration)
	assert.ErrorIs(t, err, client.ErrMalformedResponse)
	assert.False(t, debited)

	assert.Equal(t, services.SeedFiles(), s.Files())
	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, models.RoleUserTurn, history[0].Role)
	assert.Equal(t, services.FallbackAnswer, history[1].Content)
	assert.Contains(t, f.events.names(), events.StudioTurn)
}

func TestStudioSession_ProviderUnavailableIsGenerationError(t *testing.T) {
	f := newStudioFixture()
	f.resolver.GeneratorFunc = func(...string) (client.Generator, *models.LLMModel, error) {
		return nil, nil, client.ErrProviderUnavailable
	}
	s := f.session(t)

	_, err := s.ApplyInstruction(context.Background(), "hello")
	assert.ErrorIs(t, err, services.ErrGeneration)
	assert.ErrorIs(t, err, client.ErrProviderUnavailable)
}

func TestStudioSession_RejectsWithoutTokens(t *testing.T) {
	f := newStudioFixture()
	f.users.FetchProfileFunc = func(_ context.Context, _ string, id uint) (*models.User, error) {
		return &models.User{ID: id, Tokens: 0, Role: models.RoleUser}, nil
	}
	called := false
	f.resolver.GenerateFunc = func(context.Context, client.Request) (*client.Result, error) {
		called = true
		return &client.Result{Answer: "ok"}, nil
	}
	s := f.session(t)

	_, err := s.ApplyInstruction(context.Background(), "hello")
	assert.ErrorIs(t, err, services.ErrInsufficientTokens)
	assert.False(t, called)
	assert.Empty(t, s.History())
}

func TestStudioSession_AdminsGenerateAtZero(t *testing.T) {
	f := newStudioFixture()
	f.users.FetchProfileFunc = func(_ context.Context, _ string, id uint) (*models.User, error) {
		return &models.User{ID: id, Tokens: 0, Role: models.RoleAdmin}, nil
	}
	s := f.session(t)

	_, err := s.ApplyInstruction(context.Background(), "hello")
	assert.NoError(t, err)
}

func TestStudioSession_RejectsEmptyInstruction(t *testing.T) {
	s := newStudioFixture().session(t)

	_, err := s.ApplyInstruction(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, services.IsValidation(err))
}

func TestStudioSession_OneInstructionInFlight(t *testing.T) {
	f := newStudioFixture()
	entered := make(chan struct{})
	release := make(chan struct{})
	f.resolver.GenerateFunc = func(context.Context, client.Request) (*client.Result, error) {
		close(entered)
		<-release
		return &client.Result{Answer: "slow"}, nil
	}
	s := f.session(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := s.ApplyInstruction(ctx, "first")
		done <- err
	}()
	<-entered

	_, err := s.ApplyInstruction(ctx, "second")
	assert.ErrorIs(t, err, services.ErrGenerationInProgress)
	assert.ErrorIs(t, s.Reset(ctx), services.ErrGenerationInProgress)

	close(release)
	require.NoError(t, <-done)
}

func TestStudioSession_DebitFailureDoesNotRollBack(t *testing.T) {
	f := newStudioFixture()
	f.resolver.GenerateFunc = func(context.Context, client.Request) (*client.Result, error) {
		return &client.Result{Answer: "ok", Files: map[string]string{"index.html": "new"}}, nil
	}
	f.users.DecrementTokenFunc = func(context.Context, uint, string) (*models.User, error) {
		return nil, errors.New("db down")
	}
	s := f.session(t)

	turn, err := s.ApplyInstruction(context.Background(), "update")
	require.NoError(t, err)
	assert.Equal(t, "ok", turn.Content)
	assert.Equal(t, "new", s.Files()["index.html"])
	assert.NotContains(t, f.events.names(), events.AccountToken)
}

func TestStudioSession_EmitsTurnFilesAndBalance(t *testing.T) {
	f := newStudioFixture()
	f.resolver.GenerateFunc = func(context.Context, client.Request) (*client.Result, error) {
		return &client.Result{Answer: "ok", Files: map[string]string{"index.html": "x"}}, nil
	}
	s := f.session(t)

	_, err := s.ApplyInstruction(context.Background(), "go")
	require.NoError(t, err)

	assert.Equal(t, []string{events.StudioTurn, events.StudioFiles, events.AccountToken}, f.events.names())
	for _, e := range f.events.all {
		assert.Equal(t, services.UserSessionKey(7), e.evt.SessionKey)
	}
	assert.Equal(t, "9", f.events.all[2].evt.Metadata["tokens"])
}

func TestStudioSession_PersistsAndRestores(t *testing.T) {
	f := newStudioFixture()
	f.resolver.GenerateFunc = func(context.Context, client.Request) (*client.Result, error) {
		return &client.Result{Answer: "ok", Files: map[string]string{"about.html": "<p>about</p>"}}, nil
	}
	var stored models.GenerationSession
	f.repo.UpsertFunc = func(userID uint, modelKey, provider, filesJSON, messagesJSON string) (*models.GenerationSession, error) {
		stored = models.GenerationSession{UserID: userID, ModelKey: modelKey, Provider: provider, FilesJSON: filesJSON, MessagesJSON: messagesJSON}
		return &stored, nil
	}
	s := f.session(t)
	_, err := s.ApplyInstruction(context.Background(), "add about page")
	require.NoError(t, err)

	assert.Equal(t, "gemini|gemini-3-pro-preview", stored.ModelKey)
	var files map[string]string
	require.NoError(t, json.Unmarshal([]byte(stored.FilesJSON), &files))
	assert.Equal(t, "<p>about</p>", files["about.html"])

	f.repo.GetByUserFunc = func(uint) (*models.GenerationSession, error) {
		return &stored, nil
	}
	restored := f.session(t)
	assert.Equal(t, s.Files(), restored.Files())
	require.Len(t, restored.History(), 2)
	assert.Equal(t, "add about page", restored.History()[0].Content)
}

func TestStudioSession_ResetReseeds(t *testing.T) {
	f := newStudioFixture()
	f.resolver.GenerateFunc = func(context.Context, client.Request) (*client.Result, error) {
		return &client.Result{Answer: "ok", Files: map[string]string{"extra.js": "1"}}, nil
	}
	s := f.session(t)
	ctx := context.Background()
	_, err := s.ApplyInstruction(ctx, "add")
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, services.SeedFiles(), s.Files())
	assert.Empty(t, s.History())
}
