package documents

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/doclexa/doclexa/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestPickDocument(t *testing.T) {
	dir := t.TempDir()
	picker := NewPicker(25)

	path := writeFile(t, dir, "contract.pdf", "%PDF-1.4 fake")
	doc, err := picker.PickDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "contract.pdf", doc.Name)
	assert.Equal(t, KindPDF, doc.Kind)
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, int64(13), doc.Size)
}

func TestPickDocumentCanceled(t *testing.T) {
	picker := NewPicker(25)
	_, err := picker.PickDocument("")
	assert.ErrorIs(t, err, apperrors.ErrPickCanceled)
}

func TestPickDocumentRejectsNonPDF(t *testing.T) {
	dir := t.TempDir()
	picker := NewPicker(25)

	path := writeFile(t, dir, "notes.txt", "text")
	_, err := picker.PickDocument(path)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnsupportedDocKind.Code, apperrors.GetCode(err))
}

func TestPickImage(t *testing.T) {
	dir := t.TempDir()
	picker := NewPicker(25)

	for _, name := range []string{"scan.jpg", "scan.JPEG", "scan.png", "scan.webp"} {
		path := writeFile(t, dir, name, "image-bytes")
		doc, err := picker.PickImage(path)
		require.NoError(t, err, name)
		assert.Equal(t, KindImage, doc.Kind)
	}

	path := writeFile(t, dir, "scan.gif", "image-bytes")
	_, err := picker.PickImage(path)
	assert.Equal(t, apperrors.ErrUnsupportedDocKind.Code, apperrors.GetCode(err))
}

func TestPickInfersKind(t *testing.T) {
	dir := t.TempDir()
	picker := NewPicker(25)

	pdf, err := picker.Pick(writeFile(t, dir, "a.pdf", "x"))
	require.NoError(t, err)
	assert.Equal(t, KindPDF, pdf.Kind)

	img, err := picker.Pick(writeFile(t, dir, "b.png", "x"))
	require.NoError(t, err)
	assert.Equal(t, KindImage, img.Kind)

	_, err = picker.Pick(writeFile(t, dir, "c.docx", "x"))
	assert.Equal(t, apperrors.ErrUnsupportedDocKind.Code, apperrors.GetCode(err))
}

func TestPickRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	picker := NewPicker(1)

	path := filepath.Join(dir, "big.pdf")
	require.NoError(t, os.WriteFile(path, make([]byte, 2*1024*1024), 0644))

	_, err := picker.PickDocument(path)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnsupportedDocKind.Code, apperrors.GetCode(err))
	assert.Contains(t, err.Error(), "1 MB limit")
}

func TestPickMissingFile(t *testing.T) {
	picker := NewPicker(25)
	_, err := picker.PickDocument(filepath.Join(t.TempDir(), "gone.pdf"))
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound.Code, apperrors.GetCode(err))
}

func TestWatcherAdmitsDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	logger, _ := zap.NewDevelopment()

	var mu sync.Mutex
	var added []*Document
	onAdd := func(doc *Document) {
		mu.Lock()
		added = append(added, doc)
		mu.Unlock()
	}

	w, err := NewWatcher(dir, NewPicker(25), onAdd, logger)
	require.NoError(t, err)
	defer w.Close()
	w.Start()

	writeFile(t, dir, "dropped.pdf", "%PDF")
	writeFile(t, dir, "ignored.txt", "text")

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(added) == 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "dropped.pdf", added[0].Name)
	assert.Equal(t, KindPDF, added[0].Kind)
}

func TestExtractText(t *testing.T) {
	html := `<html><head><style>body{color:red}</style></head>
	<body><nav>menu</nav><main><h1>Lease Agreement</h1>
	<p>The  tenant   agrees to pay rent.</p></main>
	<script>alert(1)</script><footer>legal</footer></body></html>`

	text, err := ExtractText(strings.NewReader(html))
	require.NoError(t, err)
	assert.Contains(t, text, "Lease Agreement")
	assert.Contains(t, text, "The tenant agrees to pay rent.")
	assert.NotContains(t, text, "menu")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "color:red")
}

func TestExtractTextFromFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "page.html", "<html><body><p>hello world</p></body></html>")

	text, err := ExtractTextFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}
