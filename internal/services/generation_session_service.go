package services

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/semaphore"

	"oneclick/internal/events"
	"oneclick/internal/llm/client"
	"oneclick/internal/models"
	"oneclick/internal/repositories"
)

// FallbackAnswer is the assistant turn recorded when generation fails.
const FallbackAnswer = "সিস্টেম জেনারেশনে সমস্যা হয়েছে। অনুগ্রহ করে আবার চেষ্টা করুন।"

// SeedFiles returns the project every new studio starts from.
func SeedFiles() map[string]string {
	return map[string]string{
		"index.html": `<h1 style="color:cyan; text-align:center; padding:50px; font-family:sans-serif;">OneClick Studio Ready</h1>`,
		"main.js":    "// Logic goes here",
	}
}

// GeneratorResolver picks a generator for the preferred model keys.
type GeneratorResolver interface {
	Generator(candidates ...string) (client.Generator, *models.LLMModel, error)
}

type StudioConfig struct {
	DefaultModel       string
	HistoryTurns       int
	HistoryTokenBudget int
}

type StudioDeps struct {
	Sessions   repositories.GenerationSessionRepository
	Generators GeneratorResolver
	Users      UserService
	Settings   UserSettingsService
	Emitter    events.Emitter
	Config     StudioConfig
}

// StudioSession owns one user's project files and conversation. At most one
// instruction is processed at a time; the file map only grows or has values
// replaced.
type StudioSession struct {
	userID     uint
	sessionKey string
	deps       StudioDeps
	emitter    events.Emitter
	inflight   *semaphore.Weighted
	metrics    *generationMetrics
	now        func() time.Time

	mu       sync.RWMutex
	files    map[string]string
	history  []models.ChatMessage
	modelKey string
	provider string
}

// NewStudioSession restores the user's stored session, or seeds a new one.
func NewStudioSession(userID uint, deps StudioDeps) (*StudioSession, error) {
	if deps.Emitter == nil {
		deps.Emitter = events.Nop
	}
	key := UserSessionKey(userID)
	s := &StudioSession{
		userID:     userID,
		sessionKey: key,
		deps:       deps,
		emitter:    events.Scoped(deps.Emitter, key),
		inflight:   semaphore.NewWeighted(1),
		metrics:    sharedGenerationMetrics(),
		now:        time.Now,
		files:      SeedFiles(),
	}

	stored, err := deps.Sessions.GetByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("load studio session: %w", err)
	}
	if stored != nil {
		if files := parseFilesJSON(stored.FilesJSON); len(files) > 0 {
			s.files = files
		}
		s.history = parseChatMessagesJSON(stored.MessagesJSON)
		s.modelKey = stored.ModelKey
		s.provider = stored.Provider
	}
	return s, nil
}

// UserSessionKey scopes events to one user's streams.
func UserSessionKey(userID uint) string {
	return fmt.Sprintf("user-%d", userID)
}

// Busy reports whether an instruction or reset is in flight.
func (s *StudioSession) Busy() bool {
	if !s.inflight.TryAcquire(1) {
		return true
	}
	s.inflight.Release(1)
	return false
}

// Files returns a copy of the project.
func (s *StudioSession) Files() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.files)
}

// File returns one project file.
func (s *StudioSession) File(path string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.files[path]
	return content, ok
}

// History returns a copy of the conversation.
func (s *StudioSession) History() []models.ChatMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// Reset re-seeds the project and clears the conversation.
func (s *StudioSession) Reset(ctx context.Context) error {
	if !s.inflight.TryAcquire(1) {
		return ErrGenerationInProgress
	}
	defer s.inflight.Release(1)

	s.mu.Lock()
	s.files = SeedFiles()
	s.history = nil
	s.mu.Unlock()

	s.persist()
	s.emitter.Emit(ctx, events.StudioFiles, events.NewInfo("Project reset"))
	return nil
}

// ApplyInstruction sends text to the generator and merges the files it
// returns. A failed generation records the fallback answer, leaves the files
// untouched and returns ErrGeneration.
func (s *StudioSession) ApplyInstruction(ctx context.Context, text string) (*models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalid("instruction is required")
	}
	if !s.inflight.TryAcquire(1) {
		return nil, ErrGenerationInProgress
	}
	defer s.inflight.Release(1)

	profile, err := s.deps.Users.FetchProfile(ctx, "", s.userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrUserNotFound
	}
	if !profile.IsAdmin() && profile.Tokens <= 0 {
		return nil, ErrInsufficientTokens
	}

	locale := repositories.DefaultLocale
	preferred := ""
	if prefs, err := s.deps.Settings.Get(ctx, s.userID); err != nil {
		log.Warn().Err(err).Uint("user", s.userID).Msg("load preferences, using defaults")
	} else {
		locale = prefs.Locale
		preferred = prefs.DefaultModelKey
	}

	s.mu.Lock()
	req := client.Request{
		Prompt:  text,
		Files:   maps.Clone(s.files),
		History: client.TrimHistory(s.history, s.deps.Config.HistoryTurns, s.deps.Config.HistoryTokenBudget),
		Locale:  locale,
	}
	s.history = append(s.history, s.newTurn(models.RoleUserTurn, text))
	s.mu.Unlock()

	start := s.now()
	res, model, err := s.generate(ctx, req, preferred)
	if err != nil {
		s.metrics.record(ctx, "failed", modelKeyOf(model), s.now().Sub(start))
		log.Warn().Err(err).Uint("user", s.userID).Msg("generation failed")
		turn := s.newTurn(models.RoleAssistantTurn, FallbackAnswer)
		s.mu.Lock()
		s.history = append(s.history, turn)
		s.mu.Unlock()
		s.persist()
		s.emitter.Emit(ctx, events.StudioTurn, events.NewError(FallbackAnswer).With("turnId", turn.ID))
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	s.metrics.record(ctx, "ok", model.Key, s.now().Sub(start))

	turn := s.newTurn(models.RoleAssistantTurn, res.Answer)
	turn.InputType = res.InputType
	turn.Options = res.ChoiceOptions()
	turn.Choices = res.FollowUps()
	if len(res.Files) > 0 {
		turn.Files = maps.Clone(res.Files)
	}

	s.mu.Lock()
	for path, content := range res.Files {
		s.files[path] = content
	}
	s.history = append(s.history, turn)
	s.modelKey = model.Key
	s.provider = model.ProviderID
	s.mu.Unlock()
	s.persist()

	s.emitter.Emit(ctx, events.StudioTurn, events.NewSuccess(res.Answer).With("turnId", turn.ID))
	if len(res.Files) > 0 {
		s.emitter.Emit(ctx, events.StudioFiles, events.NewInfo(fmt.Sprintf("%d files updated", len(res.Files))))
	}

	// Billing is not transactional with the merge; a failed debit is logged.
	updated, err := s.deps.Users.DecrementToken(ctx, s.userID, "")
	if err != nil {
		log.Error().Err(err).Uint("user", s.userID).Msg("token debit failed")
	} else {
		s.emitter.Emit(ctx, events.AccountToken, events.NewInfo("Token balance updated").With("tokens", fmt.Sprint(updated.Tokens)))
	}
	return &turn, nil
}

func (s *StudioSession) generate(ctx context.Context, req client.Request, preferred string) (*client.Result, *models.LLMModel, error) {
	gen, model, err := s.deps.Generators.Generator(preferred, s.deps.Config.DefaultModel)
	if err != nil {
		return nil, nil, err
	}
	res, err := gen.Generate(ctx, req)
	if err != nil {
		return nil, model, err
	}
	return res, model, nil
}

func (s *StudioSession) newTurn(role, content string) models.ChatMessage {
	return models.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: s.now().UTC().Format(time.RFC3339Nano),
	}
}

// persist stores the session. The in-memory copy stays authoritative, so a
// failed write is logged rather than returned.
func (s *StudioSession) persist() {
	s.mu.RLock()
	filesJSON, err := json.Marshal(s.files)
	messagesJSON := marshalChatMessages(s.history)
	modelKey, provider := s.modelKey, s.provider
	s.mu.RUnlock()
	if err != nil {
		log.Error().Err(err).Uint("user", s.userID).Msg("encode studio files")
		return
	}
	if _, err := s.deps.Sessions.Upsert(s.userID, modelKey, provider, string(filesJSON), messagesJSON); err != nil {
		log.Error().Err(err).Uint("user", s.userID).Msg("persist studio session")
	}
}

func modelKeyOf(m *models.LLMModel) string {
	if m == nil {
		return ""
	}
	return m.Key
}

func parseFilesJSON(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var files map[string]string
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil
	}
	return files
}

func parseChatMessagesJSON(raw string) []models.ChatMessage {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var msgs []models.ChatMessage
	if err := json.Unmarshal([]byte(raw), &msgs); err != nil {
		return nil
	}
	clean := make([]models.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		role := strings.TrimSpace(strings.ToLower(m.Role))
		if role != models.RoleUserTurn && role != models.RoleAssistantTurn {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		m.Role = role
		clean = append(clean, m)
	}
	return clean
}

func marshalChatMessages(msgs []models.ChatMessage) string {
	if len(msgs) == 0 {
		return "[]"
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		return "[]"
	}
	return string(data)
}

type generationMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

var (
	genMetricsOnce sync.Once
	genMetrics     *generationMetrics
)

func sharedGenerationMetrics() *generationMetrics {
	genMetricsOnce.Do(func() {
		meter := otel.Meter("oneclick/internal/services")
		m := &generationMetrics{}
		var err error
		if m.requests, err = meter.Int64Counter("oneclick.generation.requests",
			metric.WithDescription("Instructions sent to a generator")); err != nil {
			log.Warn().Err(err).Msg("generation metrics: requests counter")
			m.requests = noop.Int64Counter{}
		}
		if m.latency, err = meter.Float64Histogram("oneclick.generation.latency",
			metric.WithDescription("Generator round trip"),
			metric.WithUnit("s")); err != nil {
			log.Warn().Err(err).Msg("generation metrics: latency histogram")
			m.latency = noop.Float64Histogram{}
		}
		genMetrics = m
	})
	return genMetrics
}

func (m *generationMetrics) record(ctx context.Context, outcome, modelKey string, took time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome), attribute.String("model", modelKey))
	m.requests.Add(ctx, 1, attrs)
	m.latency.Record(ctx, took.Seconds(), attrs)
}
