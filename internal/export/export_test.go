package export

import (
	"net/url"
	"strings"
	"testing"

	"github.com/doclexa/doclexa/internal/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() analysis.Result {
	return analysis.Result{
		ID:           "r1",
		Question:     "Intelligent analysis of 1 document(s)",
		Answer:       "The lease runs for 12 months.",
		DocumentType: "Auto-detected",
		Language:     "en",
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML(sampleResult())
	require.NoError(t, err)

	assert.Contains(t, html, "<title>DocLexa Analysis</title>")
	assert.Contains(t, html, "DocLexa Analysis Results")
	assert.Contains(t, html, "Intelligent analysis of 1 document(s)")
	assert.Contains(t, html, "The lease runs for 12 months.")
	assert.Contains(t, html, "Auto-detected")
	assert.Contains(t, html, "Generated by DocLexa on")
}

func TestRenderHTMLEscapesContent(t *testing.T) {
	result := sampleResult()
	result.Answer = `<script>alert("x")</script>`

	html, err := RenderHTML(result)
	require.NoError(t, err)
	assert.NotContains(t, html, `<script>alert`)
	assert.Contains(t, html, "&lt;script&gt;")
}

func TestRenderHTMLDefaults(t *testing.T) {
	result := sampleResult()
	result.DocumentType = ""
	result.Language = ""

	html, err := RenderHTML(result)
	require.NoError(t, err)
	assert.Contains(t, html, "Auto-detected")
	assert.Contains(t, html, "Unknown")
}

func TestMailtoURL(t *testing.T) {
	link := MailtoURL(sampleResult())
	require.True(t, strings.HasPrefix(link, "mailto:?subject="))

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	values := parsed.Query()
	assert.Equal(t, "DocLexa Analysis Results", values.Get("subject"))

	body := values.Get("body")
	assert.Contains(t, body, "Question: Intelligent analysis of 1 document(s)")
	assert.Contains(t, body, "Answer: The lease runs for 12 months.")
	assert.Contains(t, body, "Document Type: Auto-detected")
	assert.Contains(t, body, "Language: en")
	assert.Contains(t, body, "Generated by DocLexa")

	// Spaces must be percent-escaped, not plus-encoded.
	assert.NotContains(t, link, "+")
	assert.Contains(t, link, "%20")
}

func TestPricingURL(t *testing.T) {
	assert.Equal(t, "https://doclexa.com/pricing", PricingURL)
}
