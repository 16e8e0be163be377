package documents

import (
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// ExtractText pulls readable text out of an HTML document so it can be
// handed to the analysis engine. Chrome and boilerplate sections are
// dropped; main content areas are preferred over the full body.
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, header, footer, aside").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	var text string
	for _, selector := range []string{"main", "article", "[role='main']", ".content", "#content", "body"} {
		content := doc.Find(selector).First().Text()
		if len(strings.TrimSpace(content)) > 0 {
			text = content
			break
		}
	}

	return cleanWhitespace(text), nil
}

// ExtractTextFromFile reads an HTML file and extracts its text.
func ExtractTextFromFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return ExtractText(f)
}

func cleanWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
