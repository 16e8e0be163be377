// Package api exposes the app over HTTP for local UI frontends.
package api

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/doclexa/doclexa/internal/analysis"
	"github.com/doclexa/doclexa/internal/config"
	"github.com/doclexa/doclexa/internal/documents"
	"github.com/doclexa/doclexa/internal/export"
	"github.com/doclexa/doclexa/internal/i18n"
	"github.com/doclexa/doclexa/internal/rates"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Camera takes photos into the session pool and serves the cached frames.
type Camera interface {
	CaptureDocument(ctx context.Context) (*documents.Document, error)
	CapturedImage(id string) ([]byte, error)
}

// Server handles HTTP API and WebSocket
type Server struct {
	app        *fiber.App
	config     *config.Config
	languages  *i18n.Store
	translator *i18n.Translator
	currency   *rates.CurrencyStore
	manager    *rates.Manager
	session    *analysis.Session
	picker     *documents.Picker
	camera     Camera
	printer    *export.Printer
	logger     *zap.Logger
}

// Options collects the server's collaborators.
type Options struct {
	Config     *config.Config
	Languages  *i18n.Store
	Translator *i18n.Translator
	Currency   *rates.CurrencyStore
	Manager    *rates.Manager
	Session    *analysis.Session
	Picker     *documents.Picker
	Camera     Camera
	Printer    *export.Printer
	Logger     *zap.Logger
}

// New creates a new API server
func New(opts Options) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(opts.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(opts.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	s := &Server{
		app:        app,
		config:     opts.Config,
		languages:  opts.Languages,
		translator: opts.Translator,
		currency:   opts.Currency,
		manager:    opts.Manager,
		session:    opts.Session,
		picker:     opts.Picker,
		camera:     opts.Camera,
		printer:    opts.Printer,
		logger:     opts.Logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// Middleware
	s.app.Use(recover.New())
	s.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Server.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Health check
	s.app.Get("/health", s.handleHealth)

	api := s.app.Group("/api")

	// Locale and currency
	api.Get("/language", s.handleGetLanguage)
	api.Put("/language", s.handlePutLanguage)
	api.Get("/languages", s.handleListLanguages)
	api.Get("/translations", s.handleTranslations)
	api.Get("/currency", s.handleGetCurrency)
	api.Put("/currency", s.handlePutCurrency)
	api.Get("/currencies", s.handleListCurrencies)
	api.Get("/rates", s.handleRates)

	// Analysis flow
	api.Post("/documents", s.handleAddDocument)
	api.Get("/documents", s.handleListDocuments)
	api.Delete("/documents/:id", s.handleRemoveDocument)
	api.Post("/capture", s.handleCapture)
	api.Get("/captures/:id", s.handleCapturedImage)
	api.Post("/analyze", s.handleAnalyze)
	api.Post("/followup", s.handleFollowUp)
	api.Post("/save", s.handleSaveAndStartNew)
	api.Get("/analyses", s.handleListAnalyses)
	api.Post("/export/pdf", s.handleExportPDF)
	api.Get("/export/mailto", s.handleExportMailto)

	// Observability
	api.Get("/metrics", s.handleMetrics)

	// WebSocket
	s.app.Get("/ws", websocket.New(s.handleWebSocket))
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

// App exposes the underlying fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}
