//go:build !tesseract

package ocr

import (
	"context"

	"github.com/rotisserie/eris"
)

// Tesseract is unavailable in builds without the tesseract tag.
type Tesseract struct{}

// NewTesseract reports that the binary was built without Tesseract support.
func NewTesseract(_ ...string) (*Tesseract, error) {
	return nil, newError("tesseract", KindConfig, eris.New("built without tesseract support; rebuild with -tags tesseract"))
}

// ExtractText always fails.
func (t *Tesseract) ExtractText(_ context.Context, _ string) (string, error) {
	return "", newError("tesseract", KindConfig, eris.New("built without tesseract support"))
}
