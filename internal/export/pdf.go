package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	apperrors "github.com/doclexa/doclexa/internal/errors"
)

// Printer renders HTML sheets to PDF files through headless Chrome.
type Printer struct {
	chromePath string
	outputDir  string
}

// NewPrinter creates a printer. outputDir receives the generated PDFs.
func NewPrinter(chromePath, outputDir string) *Printer {
	return &Printer{chromePath: chromePath, outputDir: outputDir}
}

// PrintToPDF renders the HTML to a PDF and returns the file path.
func (p *Printer) PrintToPDF(ctx context.Context, html string) (string, error) {
	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrExportFailed.Code, "cannot create output directory")
	}

	// Chrome needs a navigable URL, so the sheet goes through a temp file.
	tmp, err := os.CreateTemp(p.outputDir, "sheet-*.html")
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrExportFailed.Code, "cannot create temp sheet")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(html); err != nil {
		tmp.Close()
		return "", apperrors.Wrap(err, apperrors.ErrExportFailed.Code, "cannot write temp sheet")
	}
	tmp.Close()

	taskCtx, cancel := p.browserContext(ctx)
	defer cancel()

	var pdf []byte
	err = chromedp.Run(taskCtx,
		chromedp.Navigate("file://"+tmp.Name()),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrExportFailed.Code, "failed to print analysis")
	}

	outPath := filepath.Join(p.outputDir, fmt.Sprintf("analysis_%s.pdf", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(outPath, pdf, 0644); err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrExportFailed.Code, "cannot write PDF")
	}
	return outPath, nil
}

func (p *Printer) browserContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Headless,
	}
	if p.chromePath != "" {
		opts = append(opts, chromedp.ExecPath(p.chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		taskCancel()
		allocCancel()
	}
	return taskCtx, cancel
}
