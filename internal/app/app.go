// Package app wires the application together: storage, backend client,
// locale and currency state, the analysis session, and the local API server.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/doclexa/doclexa/internal/analysis"
	"github.com/doclexa/doclexa/internal/api"
	"github.com/doclexa/doclexa/internal/backend"
	"github.com/doclexa/doclexa/internal/channels"
	"github.com/doclexa/doclexa/internal/channels/discord"
	"github.com/doclexa/doclexa/internal/channels/telegram"
	"github.com/doclexa/doclexa/internal/config"
	"github.com/doclexa/doclexa/internal/documents"
	"github.com/doclexa/doclexa/internal/export"
	"github.com/doclexa/doclexa/internal/i18n"
	"github.com/doclexa/doclexa/internal/rates"
	"github.com/doclexa/doclexa/internal/store"
	"go.uber.org/zap"
)

// App holds the application components
type App struct {
	Config      *config.Config
	Store       *store.Store
	Logger      *zap.Logger
	Backend     *backend.Client
	Languages   *i18n.Store
	Translator  *i18n.Translator
	RateManager *rates.Manager
	Currency    *rates.CurrencyStore
	Session     *analysis.Session
	Picker      *documents.Picker
	Camera      *documents.Capture
	Printer     *export.Printer
	Version     string

	refresher  *rates.Refresher
	watcher    *documents.Watcher
	discordBot *discord.Notifier
}

// New builds the application. Locale and currency state come up
// initialized: saved preferences are adopted and the first rate fetch runs
// within the configured timeout.
func New(cfg *config.Config, logger *zap.Logger, version string) (*App, error) {
	st, err := store.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	client := backend.NewClient(backend.Config{
		URL:               cfg.Backend.URL,
		AnonKey:           cfg.Backend.AnonKey,
		Timeout:           cfg.Backend.Timeout,
		RequestsPerMinute: cfg.Backend.RequestsPerMinute,
	}, logger)

	a := &App{
		Config:  cfg,
		Store:   st,
		Logger:  logger,
		Backend: client,
		Picker:  documents.NewPicker(cfg.Documents.MaxDocumentMB),
		Printer: export.NewPrinter(cfg.Export.ChromePath, cfg.Export.OutputDir),
		Version: version,
	}
	a.Camera = documents.NewCapture(cfg.Storage.DataDir, cfg.Documents.CameraDevice, a.Picker, logger)

	// Session changes persist locally so sign-in survives restarts.
	client.OnAuthStateChange(func(event backend.AuthEvent, session *backend.Session) {
		ctx := context.Background()
		switch event {
		case backend.SignedIn:
			cached := &store.CachedSession{
				UserID:       session.User.ID,
				Email:        session.User.Email,
				AccessToken:  session.AccessToken,
				RefreshToken: session.RefreshToken,
				ExpiresAt:    session.ExpiresAt,
			}
			if err := st.SaveSession(ctx, cached); err != nil {
				logger.Warn("failed to cache session", zap.Error(err))
			}
		case backend.SignedOut:
			if err := st.ClearSession(ctx); err != nil {
				logger.Warn("failed to clear cached session", zap.Error(err))
			}
		}
	})
	a.restoreSession()

	a.Languages = i18n.NewStore(st, logger)
	a.Languages.Initialize(context.Background())

	translator, err := i18n.NewTranslator(a.Languages)
	if err != nil {
		return nil, fmt.Errorf("failed to load translations: %w", err)
	}
	a.Translator = translator

	a.RateManager = rates.NewManager(client, st, logger)
	a.Currency = rates.NewCurrencyStore(a.RateManager, st, logger)

	initTimeout := time.Duration(cfg.Rates.InitTimeout) * time.Second
	if initTimeout == 0 {
		initTimeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	a.Currency.Initialize(ctx)
	cancel()

	notify, err := a.buildNotifier()
	if err != nil {
		logger.Warn("notification channels unavailable", zap.Error(err))
	}

	a.Session = analysis.NewSession(analysis.Options{
		Engine:   a.buildEngine(),
		Recorder: client,
		Local:    st,
		Language: a.Languages.Language,
		Notify:   notify,
		Logger:   logger,
	})

	return a, nil
}

// restoreSession adopts the cached backend session, refreshing when stale.
func (a *App) restoreSession() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cached, err := a.Store.LoadSession(ctx)
	if err != nil || cached == nil {
		return
	}

	session := &backend.Session{
		AccessToken:  cached.AccessToken,
		RefreshToken: cached.RefreshToken,
		ExpiresAt:    cached.ExpiresAt,
		User:         backend.User{ID: cached.UserID, Email: cached.Email},
	}
	if _, err := a.Backend.RestoreSession(ctx, session); err != nil {
		a.Logger.Warn("cached session rejected, signed out", zap.Error(err))
		if err := a.Store.ClearSession(ctx); err != nil {
			a.Logger.Warn("failed to clear cached session", zap.Error(err))
		}
	}
}

// CaptureDocument takes a camera photo, mirrors the bytes into the blob
// cache, and adds the image to the session pool.
func (a *App) CaptureDocument(ctx context.Context) (*documents.Document, error) {
	doc, err := a.Camera.CaptureImage(ctx)
	if err != nil {
		return nil, err
	}

	if data, rerr := os.ReadFile(doc.Path); rerr == nil {
		if berr := a.Store.PutBlob("capture."+doc.ID, data); berr != nil {
			a.Logger.Warn("failed to cache captured image", zap.Error(berr))
		}
	}

	a.Session.AddDocument(doc)
	return doc, nil
}

// CapturedImage returns the cached photo bytes for a captured document,
// or nil when the id is unknown.
func (a *App) CapturedImage(id string) ([]byte, error) {
	return a.Store.GetBlob("capture." + id)
}

func (a *App) buildEngine() analysis.Engine {
	if a.Config.Engine.Provider == "llm" {
		return analysis.NewLLMEngine(a.Config.Engine)
	}
	return analysis.NewStubEngine()
}

// buildNotifier assembles the completion broadcaster from the configured
// channels. With everything disabled it returns nil and the session skips
// the hook entirely.
func (a *App) buildNotifier() (analysis.NotifyFunc, error) {
	tg, err := telegram.NewNotifier(a.Config.Channels.Telegram, a.Logger)
	if err != nil {
		return nil, err
	}
	dc, err := discord.NewNotifier(a.Config.Channels.Discord, a.Logger)
	if err != nil {
		return nil, err
	}
	a.discordBot = dc

	if !tg.Enabled() && !dc.Enabled() {
		return nil, nil
	}

	broadcaster := channels.NewBroadcaster(a.Logger, tg, dc)
	return broadcaster.AnalysisCompleted, nil
}

// RunServer starts the background workers and the API server, then blocks
// until interrupted.
func (a *App) RunServer() {
	if a.discordBot != nil && a.discordBot.Enabled() {
		if err := a.discordBot.Start(); err != nil {
			a.Logger.Error("failed to start discord notifier", zap.Error(err))
		}
	}

	refresher, err := rates.NewRefresher(a.RateManager, a.Config.Rates.RefreshSchedule, a.Logger)
	if err != nil {
		a.Logger.Error("invalid rate refresh schedule", zap.Error(err))
	} else {
		a.refresher = refresher
		refresher.Start()
		a.Logger.Info("rate refresher started", zap.String("schedule", a.Config.Rates.RefreshSchedule))
	}

	if a.Config.Documents.InboxDir != "" {
		watcher, err := documents.NewWatcher(a.Config.Documents.InboxDir, a.Picker, a.Session.AddDocument, a.Logger)
		if err != nil {
			a.Logger.Error("failed to watch inbox directory", zap.Error(err))
		} else {
			a.watcher = watcher
			watcher.Start()
			a.Logger.Info("inbox watcher started", zap.String("dir", a.Config.Documents.InboxDir))
		}
	}

	server := api.New(api.Options{
		Config:     a.Config,
		Languages:  a.Languages,
		Translator: a.Translator,
		Currency:   a.Currency,
		Manager:    a.RateManager,
		Session:    a.Session,
		Picker:     a.Picker,
		Camera:     a,
		Printer:    a.Printer,
		Logger:     a.Logger,
	})

	go func() {
		if err := server.Start(); err != nil {
			a.Logger.Fatal("server error", zap.Error(err))
		}
	}()

	a.Logger.Info("server started",
		zap.String("address", a.Config.Server.Address),
		zap.Int("port", a.Config.Server.Port),
		zap.String("url", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.Logger.Info("shutting down...")
	a.Shutdown()

	if err := server.Shutdown(); err != nil {
		a.Logger.Error("server shutdown error", zap.Error(err))
	}
}

// Shutdown stops background workers and closes storage.
func (a *App) Shutdown() {
	if a.refresher != nil {
		a.refresher.Stop()
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.Logger.Warn("watcher close error", zap.Error(err))
		}
	}
	if a.discordBot != nil {
		if err := a.discordBot.Stop(); err != nil {
			a.Logger.Warn("discord notifier close error", zap.Error(err))
		}
	}
	if err := a.Store.Close(); err != nil {
		a.Logger.Warn("store close error", zap.Error(err))
	}
}
