package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Metrics struct {
	startTime time.Time

	analysesRun    atomic.Int64
	followUpsAsked atomic.Int64
	analysesSaved  atomic.Int64

	documentsAdded atomic.Int64

	rateFetchesOK       atomic.Int64
	rateFetchesFailed   atomic.Int64
	fallbackActivations atomic.Int64

	languageSwitches atomic.Int64
	currencySwitches atomic.Int64

	backendRequests atomic.Int64
	backendFailures atomic.Int64

	exportsPDF  atomic.Int64
	exportsMail atomic.Int64

	activeConnections atomic.Int64

	engineTimes     []time.Duration
	engineTimesLock sync.Mutex
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

func New() *Metrics {
	return &Metrics{
		startTime:   time.Now(),
		engineTimes: make([]time.Duration, 0, 1000),
	}
}

func (m *Metrics) RecordAnalysis() {
	m.analysesRun.Add(1)
}

func (m *Metrics) RecordFollowUp() {
	m.followUpsAsked.Add(1)
}

func (m *Metrics) RecordAnalysisSaved() {
	m.analysesSaved.Add(1)
}

func (m *Metrics) RecordDocumentAdded() {
	m.documentsAdded.Add(1)
}

func (m *Metrics) RecordRateFetch(success bool) {
	if success {
		m.rateFetchesOK.Add(1)
	} else {
		m.rateFetchesFailed.Add(1)
		m.fallbackActivations.Add(1)
	}
}

func (m *Metrics) RecordLanguageSwitch() {
	m.languageSwitches.Add(1)
}

func (m *Metrics) RecordCurrencySwitch() {
	m.currencySwitches.Add(1)
}

func (m *Metrics) RecordBackendRequest(success bool) {
	m.backendRequests.Add(1)
	if !success {
		m.backendFailures.Add(1)
	}
}

func (m *Metrics) RecordExport(kind string) {
	switch kind {
	case "pdf":
		m.exportsPDF.Add(1)
	case "mail":
		m.exportsMail.Add(1)
	}
}

func (m *Metrics) RecordEngineTime(d time.Duration) {
	m.engineTimesLock.Lock()
	defer m.engineTimesLock.Unlock()

	m.engineTimes = append(m.engineTimes, d)
	if len(m.engineTimes) > 1000 {
		m.engineTimes = m.engineTimes[1:]
	}
}

func (m *Metrics) IncrementActiveConnections() {
	m.activeConnections.Add(1)
}

func (m *Metrics) DecrementActiveConnections() {
	m.activeConnections.Add(-1)
}

type Snapshot struct {
	Uptime              time.Duration `json:"uptime"`
	AnalysesRun         int64         `json:"analyses_run"`
	FollowUpsAsked      int64         `json:"follow_ups_asked"`
	AnalysesSaved       int64         `json:"analyses_saved"`
	DocumentsAdded      int64         `json:"documents_added"`
	RateFetchesOK       int64         `json:"rate_fetches_ok"`
	RateFetchesFailed   int64         `json:"rate_fetches_failed"`
	FallbackActivations int64         `json:"fallback_activations"`
	LanguageSwitches    int64         `json:"language_switches"`
	CurrencySwitches    int64         `json:"currency_switches"`
	BackendRequests     int64         `json:"backend_requests"`
	BackendFailures     int64         `json:"backend_failures"`
	ExportsPDF          int64         `json:"exports_pdf"`
	ExportsMail         int64         `json:"exports_mail"`
	ActiveConnections   int64         `json:"active_connections"`
	AvgEngineTime       time.Duration `json:"avg_engine_time"`
}

func (m *Metrics) Snapshot() *Snapshot {
	s := &Snapshot{
		Uptime:              time.Since(m.startTime),
		AnalysesRun:         m.analysesRun.Load(),
		FollowUpsAsked:      m.followUpsAsked.Load(),
		AnalysesSaved:       m.analysesSaved.Load(),
		DocumentsAdded:      m.documentsAdded.Load(),
		RateFetchesOK:       m.rateFetchesOK.Load(),
		RateFetchesFailed:   m.rateFetchesFailed.Load(),
		FallbackActivations: m.fallbackActivations.Load(),
		LanguageSwitches:    m.languageSwitches.Load(),
		CurrencySwitches:    m.currencySwitches.Load(),
		BackendRequests:     m.backendRequests.Load(),
		BackendFailures:     m.backendFailures.Load(),
		ExportsPDF:          m.exportsPDF.Load(),
		ExportsMail:         m.exportsMail.Load(),
		ActiveConnections:   m.activeConnections.Load(),
	}

	m.engineTimesLock.Lock()
	if len(m.engineTimes) > 0 {
		var total time.Duration
		for _, d := range m.engineTimes {
			total += d
		}
		s.AvgEngineTime = total / time.Duration(len(m.engineTimes))
	}
	m.engineTimesLock.Unlock()

	return s
}
