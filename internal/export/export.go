// Package export turns analysis results into shareable artifacts: a styled
// HTML sheet, a printed PDF, and a prefilled mail draft.
package export

import (
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/doclexa/doclexa/internal/analysis"
)

// PricingURL is where users upgrade their plan.
const PricingURL = "https://doclexa.com/pricing"

const sheetTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>DocLexa Analysis</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 20px; }
    .header { text-align: center; margin-bottom: 30px; }
    .section { margin-bottom: 20px; }
    .label { font-weight: bold; color: #333; }
    .content { margin-top: 10px; line-height: 1.6; }
    .footer { margin-top: 30px; font-size: 12px; color: #666; text-align: center; }
  </style>
</head>
<body>
  <div class="header">
    <h1>DocLexa Analysis Results</h1>
  </div>
  <div class="section">
    <div class="label">Question:</div>
    <div class="content">{{.Question}}</div>
  </div>
  <div class="section">
    <div class="label">Answer:</div>
    <div class="content">{{.Answer}}</div>
  </div>
  <div class="section">
    <div class="label">Document Type:</div>
    <div class="content">{{.DocumentType}}</div>
  </div>
  <div class="section">
    <div class="label">Language:</div>
    <div class="content">{{.Language}}</div>
  </div>
  <div class="footer">
    Generated by DocLexa on {{.Date}}
  </div>
</body>
</html>`

var sheet = template.Must(template.New("sheet").Parse(sheetTemplate))

// RenderHTML produces the printable sheet for a result.
func RenderHTML(result analysis.Result) (string, error) {
	data := struct {
		Question     string
		Answer       string
		DocumentType string
		Language     string
		Date         string
	}{
		Question:     result.Question,
		Answer:       result.Answer,
		DocumentType: orDefault(result.DocumentType, "Auto-detected"),
		Language:     orDefault(result.Language, "Unknown"),
		Date:         time.Now().Format("1/2/2006"),
	}

	var sb strings.Builder
	if err := sheet.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// MailtoURL builds a mail draft link carrying the analysis.
func MailtoURL(result analysis.Result) string {
	subject := encodeComponent("DocLexa Analysis Results")
	body := encodeComponent("Analysis Results\n\nQuestion: " + result.Question +
		"\n\nAnswer: " + result.Answer +
		"\n\nDocument Type: " + orDefault(result.DocumentType, "Auto-detected") +
		"\nLanguage: " + orDefault(result.Language, "Unknown") +
		"\n\nGenerated by DocLexa")

	return "mailto:?subject=" + subject + "&body=" + body
}

// encodeComponent escapes for a mailto query, spaces included.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
