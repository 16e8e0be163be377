package analysis

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/doclexa/doclexa/internal/backend"
	"github.com/doclexa/doclexa/internal/documents"
	apperrors "github.com/doclexa/doclexa/internal/errors"
	"github.com/doclexa/doclexa/internal/metrics"
	"github.com/doclexa/doclexa/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Default quota for accounts whose profile carries no totals.
const defaultFreeAnalyses = 5

// Recorder mirrors completed analyses to the managed backend.
type Recorder interface {
	Session() *backend.Session
	InsertAnalysis(ctx context.Context, record backend.AnalysisInsert) error
	ListAnalyses(ctx context.Context, userID string, limit int) ([]backend.RemoteAnalysis, error)
	Profile(ctx context.Context) (*backend.Profile, error)
	MarkFreeTrialUsed(ctx context.Context) error
}

// LocalStore persists analyses on the device.
type LocalStore interface {
	SaveAnalysis(ctx context.Context, record *store.AnalysisRecord) error
	ListAnalyses(ctx context.Context, userID string, limit int) ([]store.AnalysisRecord, error)
}

// NotifyFunc is called after every completed analysis.
type NotifyFunc func(ctx context.Context, result Result)

// Session holds the document pool, the conversation thread, and the
// results of the current analysis run, most recent first.
type Session struct {
	engine   Engine
	recorder Recorder
	local    LocalStore
	language func() string
	notify   NotifyFunc
	logger   *zap.Logger

	mu           sync.Mutex
	docs         []*documents.Document
	results      []Result
	thread       []Message
	usedThisSess int
}

// Options configures a session.
type Options struct {
	Engine   Engine
	Recorder Recorder
	Local    LocalStore
	Language func() string // active language code, defaults to "en"
	Notify   NotifyFunc    // optional completion hook
	Logger   *zap.Logger
}

// NewSession creates an analysis session.
func NewSession(opts Options) *Session {
	language := opts.Language
	if language == nil {
		language = func() string { return "en" }
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		engine:   opts.Engine,
		recorder: opts.Recorder,
		local:    opts.Local,
		language: language,
		notify:   opts.Notify,
		logger:   logger,
	}
}

// AddDocument admits a document into the pool.
func (s *Session) AddDocument(doc *documents.Document) {
	s.mu.Lock()
	s.docs = append(s.docs, doc)
	s.mu.Unlock()
	metrics.Default().RecordDocumentAdded()
}

// RemoveDocument drops a document from the pool by ID.
func (s *Session) RemoveDocument(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.docs[:0]
	for _, doc := range s.docs {
		if doc.ID != id {
			kept = append(kept, doc)
		}
	}
	s.docs = kept
}

// Documents returns the current pool.
func (s *Session) Documents() []*documents.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*documents.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Results returns the results of this session, most recent first.
func (s *Session) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Result, len(s.results))
	copy(out, s.results)
	return out
}

// Thread returns the conversation so far.
func (s *Session) Thread() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.thread))
	copy(out, s.thread)
	return out
}

// Start runs the engine over the document pool. Requires at least one
// document and a remaining analysis on the user's plan.
func (s *Session) Start(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	docs := make([]*documents.Document, len(s.docs))
	copy(docs, s.docs)
	s.mu.Unlock()

	if len(docs) == 0 {
		return nil, apperrors.ErrNoDocuments
	}
	profile, err := s.checkQuota(ctx)
	if err != nil {
		return nil, err
	}

	language := s.language()

	userContent := docs[0].Name
	if len(docs) > 1 {
		userContent = "Documents uploaded"
	}
	s.appendMessage(Message{Role: RoleUser, Content: userContent})

	started := time.Now()
	result, err := s.engine.Analyze(ctx, docs, language)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrEngineUnavailable.Code, "analysis failed")
	}
	metrics.Default().RecordEngineTime(time.Since(started))
	metrics.Default().RecordAnalysis()

	result.ID = uuid.New().String()
	result.DocumentType = "Auto-detected"
	result.Language = language
	result.CreatedAt = time.Now()

	s.mu.Lock()
	s.results = append([]Result{result}, s.results...)
	s.usedThisSess++
	s.mu.Unlock()

	s.appendMessage(Message{Role: RoleAssistant, Content: result.Answer})

	if profile != nil && !profile.FreeTrialUsed {
		if err := s.recorder.MarkFreeTrialUsed(ctx); err != nil {
			s.logger.Warn("failed to mark free trial used", zap.Error(err))
		}
	}

	s.persist(ctx, result, s.sourceImage(docs))
	if s.notify != nil {
		s.notify(ctx, result)
	}
	return &result, nil
}

// AskFollowUp sends a follow-up question against the current conversation.
func (s *Session) AskFollowUp(ctx context.Context, question string) (*Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, apperrors.ErrEmptyQuestion
	}
	if _, err := s.checkQuota(ctx); err != nil {
		return nil, err
	}

	s.appendMessage(Message{Role: RoleUser, Content: question})

	thread := s.Thread()
	started := time.Now()
	result, err := s.engine.FollowUp(ctx, thread, question)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrEngineUnavailable.Code, "follow-up failed")
	}
	metrics.Default().RecordEngineTime(time.Since(started))
	metrics.Default().RecordFollowUp()

	result.ID = uuid.New().String()
	result.DocumentType = "Follow-up Question"
	result.Language = s.language()
	result.CreatedAt = time.Now()

	s.mu.Lock()
	s.results = append([]Result{result}, s.results...)
	s.usedThisSess++
	s.mu.Unlock()

	s.appendMessage(Message{Role: RoleAssistant, Content: result.Answer})

	s.persist(ctx, result, "")
	if s.notify != nil {
		s.notify(ctx, result)
	}
	return &result, nil
}

// SaveAndStartNew persists the latest result and clears the pool, the
// results, and the conversation for a fresh analysis.
func (s *Session) SaveAndStartNew(ctx context.Context) error {
	s.mu.Lock()
	if len(s.results) == 0 {
		s.mu.Unlock()
		return apperrors.ErrNothingToSave
	}
	latest := s.results[0]
	docs := make([]*documents.Document, len(s.docs))
	copy(docs, s.docs)
	s.mu.Unlock()

	if s.recorder != nil && s.recorder.Session() != nil {
		insert := backend.AnalysisInsert{
			UserID:       s.recorder.Session().User.ID,
			DocumentType: latest.DocumentType,
			Language:     latest.Language,
			ResultText:   latest.Answer,
			SourceImage:  s.sourceImage(docs),
		}
		if err := s.recorder.InsertAnalysis(ctx, insert); err != nil {
			return apperrors.Wrap(err, apperrors.ErrBackendRejected.Code, "failed to save analysis")
		}
	}
	// The run already persisted this result; the explicit save is a
	// separate row, as a fresh insert.
	saved := latest
	saved.ID = ""
	s.saveLocal(ctx, saved, s.sourceImage(docs))
	metrics.Default().RecordAnalysisSaved()

	s.mu.Lock()
	s.docs = nil
	s.results = nil
	s.thread = nil
	s.mu.Unlock()
	return nil
}

// PreviousAnalyses returns stored analyses, newest first. Backend rows win
// when signed in; the local store answers offline.
func (s *Session) PreviousAnalyses(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 10
	}

	if s.recorder != nil && s.recorder.Session() != nil {
		userID := s.recorder.Session().User.ID
		rows, err := s.recorder.ListAnalyses(ctx, userID, limit)
		if err == nil {
			out := make([]Result, 0, len(rows))
			for _, row := range rows {
				question := row.DocumentType
				if question == "" {
					question = "Document Analysis"
				}
				created, _ := time.Parse(time.RFC3339, row.CreatedAt)
				out = append(out, Result{
					ID:           row.ID,
					Question:     question,
					Answer:       row.ResultText,
					DocumentType: row.DocumentType,
					Language:     row.Language,
					CreatedAt:    created,
				})
			}
			return out, nil
		}
		s.logger.Warn("falling back to local analyses", zap.Error(err))
	}

	if s.local == nil {
		return nil, nil
	}
	records, err := s.local.ListAnalyses(ctx, s.localUserID(), limit)
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(records))
	for _, rec := range records {
		out = append(out, Result{
			ID:           rec.ID,
			Question:     rec.Question,
			Answer:       rec.Answer,
			DocumentType: rec.DocumentType,
			Language:     rec.Language,
			CreatedAt:    rec.CreatedAt,
		})
	}
	return out, nil
}

// checkQuota enforces the plan's analysis allowance and returns the
// fetched profile. Profile lookups that fail are absorbed so the session
// keeps working offline; the profile is nil in that case.
func (s *Session) checkQuota(ctx context.Context) (*backend.Profile, error) {
	if s.recorder == nil || s.recorder.Session() == nil {
		return nil, nil
	}

	profile, err := s.recorder.Profile(ctx)
	if err != nil {
		s.logger.Warn("plan lookup failed, allowing analysis", zap.Error(err))
		return nil, nil
	}
	if profile == nil {
		return nil, nil
	}

	total := profile.TotalAnalyses
	if total <= 0 {
		total = defaultFreeAnalyses
	}

	s.mu.Lock()
	used := profile.UsedAnalyses + s.usedThisSess
	s.mu.Unlock()

	if used >= total {
		return nil, apperrors.New(apperrors.ErrNoAnalysesLeft.Code, "analysisLimitWarning")
	}
	return profile, nil
}

func (s *Session) appendMessage(msg Message) {
	s.mu.Lock()
	s.thread = append(s.thread, msg)
	s.mu.Unlock()
}

// persist mirrors a result to the backend and the local store, best effort.
func (s *Session) persist(ctx context.Context, result Result, sourceImage string) {
	if s.recorder != nil && s.recorder.Session() != nil {
		insert := backend.AnalysisInsert{
			UserID:       s.recorder.Session().User.ID,
			DocumentType: result.DocumentType,
			Language:     result.Language,
			ResultText:   result.Answer,
			SourceImage:  sourceImage,
		}
		if err := s.recorder.InsertAnalysis(ctx, insert); err != nil {
			s.logger.Warn("failed to mirror analysis to backend", zap.Error(err))
		}
	}
	s.saveLocal(ctx, result, sourceImage)
}

func (s *Session) saveLocal(ctx context.Context, result Result, sourceImage string) {
	if s.local == nil {
		return
	}
	record := &store.AnalysisRecord{
		ID:           result.ID,
		UserID:       s.localUserID(),
		Question:     result.Question,
		Answer:       result.Answer,
		DocumentType: result.DocumentType,
		Language:     result.Language,
		SourceImage:  sourceImage,
		CreatedAt:    result.CreatedAt,
	}
	if err := s.local.SaveAnalysis(ctx, record); err != nil {
		s.logger.Warn("failed to save analysis locally", zap.Error(err))
	}
}

func (s *Session) localUserID() string {
	if s.recorder != nil && s.recorder.Session() != nil {
		return s.recorder.Session().User.ID
	}
	return "local"
}

// sourceImage returns the path of the first image in the pool.
func (s *Session) sourceImage(docs []*documents.Document) string {
	for _, doc := range docs {
		if doc.Kind == documents.KindImage {
			return doc.Path
		}
	}
	return ""
}
