package extract

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/ledongthuc/pdf"
)

func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: open pdf %s: %v", ErrExtraction, filepath.Base(path), err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: read pdf %s: %v", ErrExtraction, filepath.Base(path), err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: read pdf %s: %v", ErrExtraction, filepath.Base(path), err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("%w: pdf %s has no extractable text", ErrExtraction, filepath.Base(path))
	}
	return buf.String(), nil
}
