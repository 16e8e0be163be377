package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotCounts(t *testing.T) {
	m := New()

	m.RecordAnalysis()
	m.RecordAnalysis()
	m.RecordFollowUp()
	m.RecordAnalysisSaved()
	m.RecordDocumentAdded()
	m.RecordRateFetch(true)
	m.RecordRateFetch(false)
	m.RecordLanguageSwitch()
	m.RecordCurrencySwitch()
	m.RecordBackendRequest(true)
	m.RecordBackendRequest(false)
	m.RecordExport("pdf")
	m.RecordExport("mail")
	m.RecordExport("carrier-pigeon")

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.AnalysesRun)
	assert.Equal(t, int64(1), s.FollowUpsAsked)
	assert.Equal(t, int64(1), s.AnalysesSaved)
	assert.Equal(t, int64(1), s.DocumentsAdded)
	assert.Equal(t, int64(1), s.RateFetchesOK)
	assert.Equal(t, int64(1), s.RateFetchesFailed)
	assert.Equal(t, int64(1), s.FallbackActivations)
	assert.Equal(t, int64(1), s.LanguageSwitches)
	assert.Equal(t, int64(1), s.CurrencySwitches)
	assert.Equal(t, int64(2), s.BackendRequests)
	assert.Equal(t, int64(1), s.BackendFailures)
	assert.Equal(t, int64(1), s.ExportsPDF)
	assert.Equal(t, int64(1), s.ExportsMail)
}

func TestEngineTimeAverage(t *testing.T) {
	m := New()
	m.RecordEngineTime(100 * time.Millisecond)
	m.RecordEngineTime(300 * time.Millisecond)

	s := m.Snapshot()
	assert.Equal(t, 200*time.Millisecond, s.AvgEngineTime)
}

func TestActiveConnections(t *testing.T) {
	m := New()
	m.IncrementActiveConnections()
	m.IncrementActiveConnections()
	m.DecrementActiveConnections()

	assert.Equal(t, int64(1), m.Snapshot().ActiveConnections)
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}
