// Package documents handles document acquisition: file selection, camera
// capture, an inbox directory watcher, and text extraction for engine input.
package documents

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/doclexa/doclexa/internal/errors"
	"github.com/google/uuid"
)

// Kind classifies a document in the pool.
type Kind string

const (
	KindPDF   Kind = "pdf"
	KindImage Kind = "image"
)

// Document is one entry in the analysis pool.
type Document struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
	".webp": true,
}

// Picker validates and admits files into the document pool.
type Picker struct {
	maxBytes int64
}

// NewPicker creates a picker. maxDocumentMB bounds accepted file size;
// zero means the default of 25.
func NewPicker(maxDocumentMB int) *Picker {
	if maxDocumentMB <= 0 {
		maxDocumentMB = 25
	}
	return &Picker{maxBytes: int64(maxDocumentMB) * 1024 * 1024}
}

// PickDocument admits a PDF file. An empty path means the user backed out
// of selection.
func (p *Picker) PickDocument(path string) (*Document, error) {
	if path == "" {
		return nil, apperrors.ErrPickCanceled
	}
	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return nil, apperrors.New(apperrors.ErrUnsupportedDocKind.Code,
			fmt.Sprintf("not a PDF file: %s", filepath.Base(path)))
	}
	return p.admit(path, KindPDF)
}

// PickImage admits an image file.
func (p *Picker) PickImage(path string) (*Document, error) {
	if path == "" {
		return nil, apperrors.ErrPickCanceled
	}
	if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
		return nil, apperrors.New(apperrors.ErrUnsupportedDocKind.Code,
			fmt.Sprintf("not a supported image: %s", filepath.Base(path)))
	}
	return p.admit(path, KindImage)
}

// Pick admits a file, inferring the kind from its extension.
func (p *Picker) Pick(path string) (*Document, error) {
	if path == "" {
		return nil, apperrors.ErrPickCanceled
	}
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".pdf":
		return p.admit(path, KindPDF)
	case imageExtensions[ext]:
		return p.admit(path, KindImage)
	default:
		return nil, apperrors.New(apperrors.ErrUnsupportedDocKind.Code,
			fmt.Sprintf("unsupported file type: %s", ext))
	}
}

func (p *Picker) admit(path string, kind Kind) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrNotFound.Code, "file not accessible")
	}
	if info.IsDir() {
		return nil, apperrors.New(apperrors.ErrUnsupportedDocKind.Code, "path is a directory")
	}
	if info.Size() > p.maxBytes {
		return nil, apperrors.New(apperrors.ErrUnsupportedDocKind.Code,
			fmt.Sprintf("file exceeds %d MB limit", p.maxBytes/(1024*1024)))
	}

	return &Document{
		ID:   uuid.New().String(),
		Name: filepath.Base(path),
		Kind: kind,
		Path: path,
		Size: info.Size(),
	}, nil
}
