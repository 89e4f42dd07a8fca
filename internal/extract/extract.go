// Package extract turns source descriptors (uploaded files, video URLs) into
// raw text for ingestion.
package extract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/document/loader/file"
	"github.com/cloudwego/eino/components/document"
)

var (
	// ErrExtraction marks a malformed or unreadable source.
	ErrExtraction = errors.New("text extraction failed")
	// ErrUnsupportedType marks a file extension no adapter handles.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrInvalidURL marks a video URL no id can be parsed from.
	ErrInvalidURL = errors.New("invalid youtube url")
)

// Supported reports whether an adapter exists for the extension.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".docx", ".txt", ".md":
		return true
	}
	return false
}

// Service dispatches extraction to the per-format adapters.
type Service struct {
	fileLoader *file.FileLoader
	client     *http.Client
}

// NewService constructs the extraction service.
func NewService(ctx context.Context) (*Service, error) {
	loader, err := file.NewFileLoader(ctx, &file.FileLoaderConfig{UseNameAsID: true})
	if err != nil {
		return nil, fmt.Errorf("init file loader: %w", err)
	}
	return &Service{
		fileLoader: loader,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// FromFile extracts raw text from an on-disk upload, choosing the adapter by
// file extension.
func (s *Service) FromFile(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return extractPDF(path)
	case ".docx":
		return extractDOCX(path)
	case ".txt", ".md":
		return s.extractPlain(ctx, path)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
}

func (s *Service) extractPlain(ctx context.Context, path string) (string, error) {
	docs, err := s.fileLoader.Load(ctx, document.Source{URI: path})
	if err != nil {
		return "", fmt.Errorf("%w: load %s: %v", ErrExtraction, filepath.Base(path), err)
	}
	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}
	text := strings.Join(parts, "\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrExtraction, filepath.Base(path))
	}
	return text, nil
}
