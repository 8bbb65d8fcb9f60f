// Package ocr turns a business-card image into raw text.
package ocr

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/card-ingest/internal/config"
)

// Extractor extracts the text printed on an image. An image with no
// detectable text yields "" and a nil error.
type Extractor interface {
	ExtractText(ctx context.Context, imageRef string) (string, error)
}

// ErrorKind classifies an OCR failure.
type ErrorKind string

const (
	// KindConfig covers missing or malformed credentials and settings.
	KindConfig ErrorKind = "config"
	// KindInput covers unreadable or unsupported images.
	KindInput ErrorKind = "input"
	// KindProvider covers failures reported by the OCR backend.
	KindProvider ErrorKind = "provider"
)

// Error is returned by every Extractor in this package.
type Error struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ocr %s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(provider string, kind ErrorKind, err error) *Error {
	return &Error{Provider: provider, Kind: kind, Err: err}
}

// Provider labels stamped into Lead.Source.
var labels = map[string]string{
	"vision":    "Google Vision",
	"mistral":   "Mistral OCR",
	"tesseract": "Tesseract",
	"static":    "Mock OCR",
}

// Label returns the human readable name of a provider.
func Label(provider string) string {
	if l, ok := labels[provider]; ok {
		return l
	}
	return provider
}

// NewExtractor creates the configured Extractor, wrapped in a result cache
// when one is enabled. The returned close func releases cache connections.
func NewExtractor(ctx context.Context, cfg config.OCRConfig) (Extractor, func() error, error) {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var (
		ext Extractor
		err error
	)
	switch cfg.Provider {
	case "vision", "":
		ext, err = newVisionFromConfig(cfg, client)
	case "mistral":
		if cfg.MistralAPIKey == "" {
			return nil, nil, newError("mistral", KindConfig, eris.New("mistral provider requires mistral_api_key"))
		}
		ext = NewMistralOCR(cfg.MistralAPIKey, cfg.MistralModel, WithMistralClient(client))
	case "tesseract":
		ext, err = NewTesseract(cfg.TesseractLanguages...)
	case "static":
		text := cfg.StaticText
		if text == "" {
			text = DemoCardText
		}
		ext = NewStatic(text)
	default:
		return nil, nil, newError(cfg.Provider, KindConfig, eris.Errorf("unknown provider %q", cfg.Provider))
	}
	if err != nil {
		return nil, nil, err
	}

	noop := func() error { return nil }
	ttl := time.Duration(cfg.Cache.TTLMins) * time.Minute
	switch cfg.Cache.Backend {
	case "", "none":
		return ext, noop, nil
	case "memory":
		return NewCached(ext, cfg.Provider, NewMemoryCache(ttl), ttl), noop, nil
	case "redis":
		rc, err := NewRedisCache(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, nil, newError(cfg.Provider, KindConfig, err)
		}
		return NewCached(ext, cfg.Provider, rc, ttl), rc.Close, nil
	default:
		return nil, nil, newError(cfg.Provider, KindConfig, eris.Errorf("unknown cache backend %q", cfg.Cache.Backend))
	}
}

// isRemote reports whether ref is a URI the provider fetches itself.
func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "gs://")
}

// readImage loads a local image file.
func readImage(provider, path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return nil, newError(provider, KindInput, eris.New("image path is empty"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(provider, KindInput, eris.Wrapf(err, "read image %s", path))
	}
	if len(data) == 0 {
		return nil, newError(provider, KindInput, eris.Errorf("image %s is empty", path))
	}
	return data, nil
}
