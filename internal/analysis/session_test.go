package analysis

import (
	"context"
	"testing"

	"github.com/doclexa/doclexa/internal/backend"
	"github.com/doclexa/doclexa/internal/documents"
	apperrors "github.com/doclexa/doclexa/internal/errors"
	"github.com/doclexa/doclexa/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecorder struct {
	session    *backend.Session
	profile    *backend.Profile
	profileErr error
	insertErr  error
	inserts    []backend.AnalysisInsert
	remote     []backend.RemoteAnalysis
	listErr    error
	markCalls  int
	markErr    error
}

func (f *fakeRecorder) Session() *backend.Session { return f.session }

func (f *fakeRecorder) InsertAnalysis(ctx context.Context, record backend.AnalysisInsert) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserts = append(f.inserts, record)
	return nil
}

func (f *fakeRecorder) ListAnalyses(ctx context.Context, userID string, limit int) ([]backend.RemoteAnalysis, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.remote, nil
}

func (f *fakeRecorder) Profile(ctx context.Context) (*backend.Profile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeRecorder) MarkFreeTrialUsed(ctx context.Context) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markCalls++
	if f.profile != nil {
		f.profile.FreeTrialUsed = true
	}
	return nil
}

type fakeLocal struct {
	saved   []*store.AnalysisRecord
	records []store.AnalysisRecord
	saveErr error
	listErr error
}

func (f *fakeLocal) SaveAnalysis(ctx context.Context, record *store.AnalysisRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, record)
	return nil
}

func (f *fakeLocal) ListAnalyses(ctx context.Context, userID string, limit int) ([]store.AnalysisRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.records, nil
}

func signedIn(profile *backend.Profile) *fakeRecorder {
	return &fakeRecorder{
		session: &backend.Session{User: backend.User{ID: "user-1", Email: "user@example.com"}},
		profile: profile,
	}
}

func pdfDoc(name string) *documents.Document {
	return &documents.Document{ID: name, Name: name, Kind: documents.KindPDF, Path: "/tmp/" + name}
}

func imageDoc(name string) *documents.Document {
	return &documents.Document{ID: name, Name: name, Kind: documents.KindImage, Path: "/tmp/" + name}
}

func newTestSession(recorder Recorder, local LocalStore) *Session {
	logger, _ := zap.NewDevelopment()
	return NewSession(Options{
		Engine:   NewStubEngine(),
		Recorder: recorder,
		Local:    local,
		Language: func() string { return "pl" },
		Logger:   logger,
	})
}

func TestStartRequiresDocuments(t *testing.T) {
	s := newTestSession(nil, nil)
	_, err := s.Start(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNoDocuments)
}

func TestStartRunsAnalysis(t *testing.T) {
	recorder := signedIn(&backend.Profile{TotalAnalyses: 5, UsedAnalyses: 0})
	local := &fakeLocal{}
	s := newTestSession(recorder, local)

	s.AddDocument(pdfDoc("lease.pdf"))
	result, err := s.Start(context.Background())
	require.NoError(t, err)

	assert.Contains(t, result.Answer, "AI Analysis completed for 1 document(s) in PL.")
	assert.Contains(t, result.Answer, "Document Type Detected")
	assert.Equal(t, "Intelligent analysis of 1 document(s)", result.Question)
	assert.Equal(t, "Auto-detected", result.DocumentType)
	assert.Equal(t, "pl", result.Language)
	assert.NotEmpty(t, result.ID)

	thread := s.Thread()
	require.Len(t, thread, 2)
	assert.Equal(t, Message{Role: RoleUser, Content: "lease.pdf"}, thread[0])
	assert.Equal(t, RoleAssistant, thread[1].Role)

	// Mirrored to backend and saved locally.
	require.Len(t, recorder.inserts, 1)
	assert.Equal(t, "user-1", recorder.inserts[0].UserID)
	assert.Equal(t, "Auto-detected", recorder.inserts[0].DocumentType)
	require.Len(t, local.saved, 1)
	assert.Equal(t, "user-1", local.saved[0].UserID)
}

func TestStartConsumesFreeTrial(t *testing.T) {
	recorder := signedIn(&backend.Profile{TotalAnalyses: 5})
	s := newTestSession(recorder, nil)

	s.AddDocument(pdfDoc("lease.pdf"))
	_, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, recorder.markCalls)
	assert.True(t, recorder.profile.FreeTrialUsed)

	// Already consumed, not flagged again.
	s.AddDocument(pdfDoc("invoice.pdf"))
	_, err = s.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, recorder.markCalls)
}

func TestStartResultsNewestFirst(t *testing.T) {
	s := newTestSession(nil, nil)
	s.AddDocument(pdfDoc("a.pdf"))

	_, err := s.Start(context.Background())
	require.NoError(t, err)
	second, err := s.Start(context.Background())
	require.NoError(t, err)

	results := s.Results()
	require.Len(t, results, 2)
	assert.Equal(t, second.ID, results[0].ID)
}

func TestStartRecordsSourceImage(t *testing.T) {
	recorder := signedIn(nil)
	s := newTestSession(recorder, nil)
	s.AddDocument(pdfDoc("a.pdf"))
	s.AddDocument(imageDoc("scan.jpg"))

	_, err := s.Start(context.Background())
	require.NoError(t, err)

	require.Len(t, recorder.inserts, 1)
	assert.Equal(t, "/tmp/scan.jpg", recorder.inserts[0].SourceImage)
}

func TestStartBackendFailureIsAbsorbed(t *testing.T) {
	recorder := signedIn(nil)
	recorder.insertErr = apperrors.ErrBackendUnavailable
	local := &fakeLocal{}
	s := newTestSession(recorder, local)

	s.AddDocument(pdfDoc("a.pdf"))
	_, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.Len(t, local.saved, 1)
}

func TestStartSignedOutSavesLocally(t *testing.T) {
	local := &fakeLocal{}
	s := newTestSession(nil, local)

	s.AddDocument(pdfDoc("a.pdf"))
	_, err := s.Start(context.Background())
	require.NoError(t, err)

	require.Len(t, local.saved, 1)
	assert.Equal(t, "local", local.saved[0].UserID)
}

func TestQuotaExceeded(t *testing.T) {
	recorder := signedIn(&backend.Profile{TotalAnalyses: 5, UsedAnalyses: 5})
	s := newTestSession(recorder, nil)

	s.AddDocument(pdfDoc("a.pdf"))
	_, err := s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNoAnalysesLeft.Code, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "analysisLimitWarning")
}

func TestQuotaCountsSessionRuns(t *testing.T) {
	recorder := signedIn(&backend.Profile{TotalAnalyses: 5, UsedAnalyses: 4})
	s := newTestSession(recorder, nil)

	s.AddDocument(pdfDoc("a.pdf"))
	_, err := s.Start(context.Background())
	require.NoError(t, err)

	_, err = s.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNoAnalysesLeft.Code, apperrors.GetCode(err))
}

func TestQuotaLookupFailureAllowsRun(t *testing.T) {
	recorder := signedIn(nil)
	recorder.profileErr = apperrors.ErrBackendUnavailable
	s := newTestSession(recorder, nil)

	s.AddDocument(pdfDoc("a.pdf"))
	_, err := s.Start(context.Background())
	assert.NoError(t, err)
}

func TestAskFollowUp(t *testing.T) {
	recorder := signedIn(nil)
	s := newTestSession(recorder, nil)

	result, err := s.AskFollowUp(context.Background(), "What does clause 4 mean?")
	require.NoError(t, err)
	assert.Contains(t, result.Answer, `Response to: "What does clause 4 mean?"`)
	assert.Contains(t, result.Answer, "simulated AI response")
	assert.Equal(t, "Follow-up Question", result.DocumentType)

	require.Len(t, recorder.inserts, 1)
	assert.Equal(t, "Follow-up Question", recorder.inserts[0].DocumentType)
}

func TestAskFollowUpRejectsBlankQuestion(t *testing.T) {
	s := newTestSession(nil, nil)
	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := s.AskFollowUp(context.Background(), q)
		assert.ErrorIs(t, err, apperrors.ErrEmptyQuestion)
	}
}

func TestSaveAndStartNew(t *testing.T) {
	recorder := signedIn(nil)
	local := &fakeLocal{}
	s := newTestSession(recorder, local)

	s.AddDocument(pdfDoc("a.pdf"))
	_, err := s.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.SaveAndStartNew(context.Background()))

	assert.Empty(t, s.Documents())
	assert.Empty(t, s.Results())
	assert.Empty(t, s.Thread())
	// One insert from the run, one from the explicit save.
	assert.Len(t, recorder.inserts, 2)
}

func TestSaveAndStartNewNothingToSave(t *testing.T) {
	s := newTestSession(nil, nil)
	err := s.SaveAndStartNew(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNothingToSave)
}

func TestSaveAndStartNewKeepsStateOnFailure(t *testing.T) {
	recorder := signedIn(nil)
	s := newTestSession(recorder, nil)

	s.AddDocument(pdfDoc("a.pdf"))
	_, err := s.Start(context.Background())
	require.NoError(t, err)

	recorder.insertErr = apperrors.ErrBackendUnavailable
	err = s.SaveAndStartNew(context.Background())
	require.Error(t, err)

	assert.NotEmpty(t, s.Results())
	assert.NotEmpty(t, s.Documents())
}

func TestRemoveDocument(t *testing.T) {
	s := newTestSession(nil, nil)
	s.AddDocument(pdfDoc("a.pdf"))
	s.AddDocument(pdfDoc("b.pdf"))

	s.RemoveDocument("a.pdf")

	docs := s.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "b.pdf", docs[0].Name)
}

func TestPreviousAnalysesFromBackend(t *testing.T) {
	recorder := signedIn(nil)
	recorder.remote = []backend.RemoteAnalysis{
		{ID: "r1", DocumentType: "Auto-detected", ResultText: "newer", CreatedAt: "2026-02-01T00:00:00Z"},
		{ID: "r2", DocumentType: "", ResultText: "older", CreatedAt: "2026-01-01T00:00:00Z"},
	}
	s := newTestSession(recorder, nil)

	results, err := s.PreviousAnalyses(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Auto-detected", results[0].Question)
	assert.Equal(t, "Document Analysis", results[1].Question)
	assert.Equal(t, 2026, results[0].CreatedAt.Year())
}

func TestPreviousAnalysesFallsBackToLocal(t *testing.T) {
	recorder := signedIn(nil)
	recorder.listErr = apperrors.ErrBackendUnavailable
	local := &fakeLocal{records: []store.AnalysisRecord{
		{ID: "l1", Question: "Intelligent analysis of 1 document(s)", Answer: "offline"},
	}}
	s := newTestSession(recorder, local)

	results, err := s.PreviousAnalyses(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "offline", results[0].Answer)
}

func TestNotifyHookRuns(t *testing.T) {
	var notified []Result
	logger, _ := zap.NewDevelopment()
	s := NewSession(Options{
		Engine:   NewStubEngine(),
		Language: func() string { return "en" },
		Notify:   func(_ context.Context, r Result) { notified = append(notified, r) },
		Logger:   logger,
	})

	s.AddDocument(pdfDoc("a.pdf"))
	_, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Len(t, notified, 1)
	assert.Contains(t, notified[0].Answer, "AI Analysis completed")
}
