package api

import (
	"strings"
	"time"

	apperrors "github.com/doclexa/doclexa/internal/errors"
	"github.com/doclexa/doclexa/internal/export"
	"github.com/doclexa/doclexa/internal/i18n"
	"github.com/doclexa/doclexa/internal/metrics"
	"github.com/doclexa/doclexa/internal/rates"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   "0.1.0",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	return c.JSON(metrics.Default().Snapshot())
}

// ==================== Locale ====================

func (s *Server) handleGetLanguage(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"language":    s.languages.Language(),
		"initialized": s.languages.Initialized(),
	})
}

func (s *Server) handlePutLanguage(c *fiber.Ctx) error {
	var req struct {
		Language string `json:"language"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if !i18n.IsSupported(req.Language) {
		return c.Status(400).JSON(fiber.Map{"error": "unsupported language: " + req.Language})
	}

	s.languages.ChangeLanguage(c.Context(), req.Language)
	metrics.Default().RecordLanguageSwitch()
	return c.JSON(fiber.Map{"language": s.languages.Language()})
}

func (s *Server) handleListLanguages(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"languages": i18n.SupportedLanguages,
		"default":   i18n.DefaultLanguage,
	})
}

// handleTranslations resolves the requested keys in the active language.
func (s *Server) handleTranslations(c *fiber.Ctx) error {
	keysParam := c.Query("keys")
	if keysParam == "" {
		return c.Status(400).JSON(fiber.Map{"error": "keys query parameter is required"})
	}

	out := make(map[string]string)
	for _, key := range strings.Split(keysParam, ",") {
		key = strings.TrimSpace(key)
		if key != "" {
			out[key] = s.translator.T(key)
		}
	}
	return c.JSON(fiber.Map{
		"language":     s.languages.Language(),
		"translations": out,
	})
}

// ==================== Currency ====================

func (s *Server) handleGetCurrency(c *fiber.Ctx) error {
	code := s.currency.Selected()
	currency, _ := rates.CatalogCurrency(code)
	return c.JSON(fiber.Map{
		"currency": currency,
		"selected": code,
	})
}

func (s *Server) handlePutCurrency(c *fiber.Ctx) error {
	var req struct {
		Currency string `json:"currency"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	if !rates.InCatalog(req.Currency) {
		return c.Status(400).JSON(fiber.Map{"error": "unknown currency: " + req.Currency})
	}

	s.currency.Select(c.Context(), req.Currency)
	metrics.Default().RecordCurrencySwitch()
	return c.JSON(fiber.Map{"selected": s.currency.Selected()})
}

func (s *Server) handleListCurrencies(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"currencies": rates.Catalog})
}

func (s *Server) handleRates(c *fiber.Ctx) error {
	table := make(map[string]float64, len(rates.Catalog))
	for _, currency := range rates.Catalog {
		table[currency.Code] = s.manager.Rate(currency.Code)
	}
	return c.JSON(fiber.Map{"rates": table})
}

// ==================== Analysis ====================

func (s *Server) handleAddDocument(c *fiber.Ctx) error {
	var req struct {
		Path string `json:"path"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	doc, err := s.picker.Pick(req.Path)
	if err != nil {
		return s.fail(c, 400, err)
	}
	s.session.AddDocument(doc)
	return c.Status(201).JSON(doc)
}

func (s *Server) handleCapture(c *fiber.Ctx) error {
	doc, err := s.camera.CaptureDocument(c.Context())
	if err != nil {
		return s.fail(c, statusFor(err), err)
	}
	return c.Status(201).JSON(doc)
}

func (s *Server) handleCapturedImage(c *fiber.Ctx) error {
	data, err := s.camera.CapturedImage(c.Params("id"))
	if err != nil {
		return s.fail(c, 500, err)
	}
	if data == nil {
		return c.Status(404).JSON(fiber.Map{"error": "capture not found"})
	}
	c.Set("Content-Type", "image/jpeg")
	return c.Send(data)
}

func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"documents": s.session.Documents()})
}

func (s *Server) handleRemoveDocument(c *fiber.Ctx) error {
	s.session.RemoveDocument(c.Params("id"))
	return c.SendStatus(204)
}

func (s *Server) handleAnalyze(c *fiber.Ctx) error {
	result, err := s.session.Start(c.Context())
	if err != nil {
		return s.fail(c, statusFor(err), err)
	}
	return c.JSON(result)
}

func (s *Server) handleFollowUp(c *fiber.Ctx) error {
	var req struct {
		Question string `json:"question"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid request"})
	}

	result, err := s.session.AskFollowUp(c.Context(), req.Question)
	if err != nil {
		return s.fail(c, statusFor(err), err)
	}
	return c.JSON(result)
}

func (s *Server) handleSaveAndStartNew(c *fiber.Ctx) error {
	if err := s.session.SaveAndStartNew(c.Context()); err != nil {
		return s.fail(c, statusFor(err), err)
	}
	return c.JSON(fiber.Map{"status": "saved"})
}

func (s *Server) handleListAnalyses(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	results, err := s.session.PreviousAnalyses(c.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list analyses", zap.Error(err))
		return c.Status(500).JSON(fiber.Map{"error": "failed to list analyses"})
	}
	return c.JSON(fiber.Map{"analyses": results})
}

// ==================== Export ====================

func (s *Server) handleExportPDF(c *fiber.Ctx) error {
	results := s.session.Results()
	if len(results) == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "no analysis to export"})
	}

	html, err := export.RenderHTML(results[0])
	if err != nil {
		return s.fail(c, 500, err)
	}
	path, err := s.printer.PrintToPDF(c.Context(), html)
	if err != nil {
		return s.fail(c, 500, err)
	}
	metrics.Default().RecordExport("pdf")
	return c.JSON(fiber.Map{"file": path})
}

func (s *Server) handleExportMailto(c *fiber.Ctx) error {
	results := s.session.Results()
	if len(results) == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "no analysis to export"})
	}
	metrics.Default().RecordExport("mail")
	return c.JSON(fiber.Map{"url": export.MailtoURL(results[0])})
}

// ==================== helpers ====================

func (s *Server) fail(c *fiber.Ctx, status int, err error) error {
	s.logger.Warn("request failed",
		zap.String("path", c.Path()),
		zap.Error(err))
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  apperrors.GetCode(err),
	})
}

// statusFor maps application error codes to HTTP statuses.
func statusFor(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrNoDocuments.Code,
		apperrors.ErrEmptyQuestion.Code,
		apperrors.ErrNothingToSave.Code:
		return 400
	case apperrors.ErrNoAnalysesLeft.Code:
		return 402
	case apperrors.ErrNotSignedIn.Code:
		return 401
	case apperrors.ErrBackendUnavailable.Code,
		apperrors.ErrEngineUnavailable.Code,
		apperrors.ErrCaptureUnavailable.Code:
		return 503
	default:
		return 500
	}
}
