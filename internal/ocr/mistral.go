package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/card-ingest/internal/resilience"
)

const (
	mistralOCREndpoint  = "https://api.mistral.ai/v1/ocr"
	defaultMistralModel = "mistral-ocr-latest"
)

// MistralOCR extracts text from images using the Mistral OCR API.
type MistralOCR struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
	retry    resilience.RetryConfig
}

// MistralOption configures a MistralOCR.
type MistralOption func(*MistralOCR)

// WithMistralClient overrides the HTTP client.
func WithMistralClient(c *http.Client) MistralOption {
	return func(m *MistralOCR) {
		if c != nil {
			m.client = c
		}
	}
}

// WithMistralEndpoint overrides the OCR endpoint URL.
func WithMistralEndpoint(endpoint string) MistralOption {
	return func(m *MistralOCR) {
		if endpoint != "" {
			m.endpoint = endpoint
		}
	}
}

// WithMistralRetry overrides the retry policy for transient API failures.
func WithMistralRetry(cfg resilience.RetryConfig) MistralOption {
	return func(m *MistralOCR) {
		m.retry = cfg
	}
}

// NewMistralOCR creates a MistralOCR extractor. If model is empty, the default is used.
func NewMistralOCR(apiKey, model string, opts ...MistralOption) *MistralOCR {
	if model == "" {
		model = defaultMistralModel
	}
	m := &MistralOCR{
		apiKey:   apiKey,
		model:    model,
		endpoint: mistralOCREndpoint,
		client:   &http.Client{},
		retry:    providerRetry("mistral"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type mistralOCRRequest struct {
	Model    string             `json:"model"`
	Document mistralOCRDocument `json:"document"`
}

type mistralOCRDocument struct {
	Type     string `json:"type"`
	ImageURL string `json:"image_url"`
}

type mistralOCRResponse struct {
	Pages []mistralOCRPage `json:"pages"`
}

type mistralOCRPage struct {
	Index    int    `json:"index"`
	Markdown string `json:"markdown"`
}

// ExtractText sends the image to Mistral OCR and returns the page text.
// Local files are inlined as base64 data URLs.
func (m *MistralOCR) ExtractText(ctx context.Context, imageRef string) (string, error) {
	imageURL := imageRef
	if !isRemote(imageRef) {
		data, err := readImage("mistral", imageRef)
		if err != nil {
			return "", err
		}
		imageURL = "data:" + http.DetectContentType(data) + ";base64," + base64.StdEncoding.EncodeToString(data)
	}

	bodyBytes, err := json.Marshal(mistralOCRRequest{
		Model:    m.model,
		Document: mistralOCRDocument{Type: "image_url", ImageURL: imageURL},
	})
	if err != nil {
		return "", newError("mistral", KindProvider, eris.Wrap(err, "marshal mistral request"))
	}

	respBody, err := callProvider(ctx, m.client, m.retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, eris.Wrap(err, "create mistral request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
		return req, nil
	})
	if err != nil {
		return "", providerError("mistral", err, http.StatusUnauthorized)
	}

	var ocrResp mistralOCRResponse
	if err := json.Unmarshal(respBody, &ocrResp); err != nil {
		return "", newError("mistral", KindProvider, eris.Wrap(err, "unmarshal mistral response"))
	}

	var sb strings.Builder
	for i, page := range ocrResp.Pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(page.Markdown)
	}
	return sb.String(), nil
}
