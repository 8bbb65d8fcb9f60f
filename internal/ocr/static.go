package ocr

import "context"

// DemoCardText is the text of the sample business card used in demo mode.
const DemoCardText = "Olivia Wilson\n" +
	"Real Estate Agent\n" +
	"+123-456-7890\n" +
	"+123-456-7890\n" +
	"www.reallygreatsite.com\n" +
	"hello@reallygreatsite.com\n" +
	"123 Anywhere St.,\n" +
	"Any City, ST 12345"

// Static returns fixed text for every image.
type Static struct {
	text string
}

// NewStatic creates an Extractor that always returns text.
func NewStatic(text string) *Static {
	return &Static{text: text}
}

// ExtractText returns the configured text. The image is not read.
func (s *Static) ExtractText(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", newError("static", KindProvider, err)
	}
	return s.text, nil
}
