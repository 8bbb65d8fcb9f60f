//go:build tesseract

package ocr

import (
	"context"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"
)

// Tesseract extracts text locally with libtesseract via gosseract.
type Tesseract struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseract creates a Tesseract extractor for the given languages.
func NewTesseract(languages ...string) (*Tesseract, error) {
	return &Tesseract{languages: languages, clientFactory: gosseract.NewClient}, nil
}

// ExtractText runs Tesseract on the image file. A fresh client is used per
// call since gosseract clients are not safe for concurrent use.
func (t *Tesseract) ExtractText(ctx context.Context, imageRef string) (string, error) {
	if isRemote(imageRef) {
		return "", newError("tesseract", KindInput, eris.Errorf("remote images are not supported: %s", imageRef))
	}
	data, err := readImage("tesseract", imageRef)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", newError("tesseract", KindProvider, err)
	}

	c := t.clientFactory()
	defer c.Close() //nolint:errcheck

	if len(t.languages) > 0 {
		if err := c.SetLanguage(t.languages...); err != nil {
			return "", newError("tesseract", KindConfig, eris.Wrap(err, "set languages"))
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", newError("tesseract", KindInput, eris.Wrap(err, "set image"))
	}
	text, err := c.Text()
	if err != nil {
		return "", newError("tesseract", KindProvider, eris.Wrap(err, "recognize"))
	}
	return text, nil
}
