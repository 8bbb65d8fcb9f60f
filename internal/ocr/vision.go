package ocr

import (
	"bytes"
	"crypto/rsa"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/card-ingest/internal/config"
	"github.com/sells-group/card-ingest/internal/resilience"
)

const (
	visionEndpoint  = "https://vision.googleapis.com/v1/images:annotate"
	visionScope     = "https://www.googleapis.com/auth/cloud-vision"
	defaultTokenURI = "https://oauth2.googleapis.com/token"
	jwtBearerGrant  = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// ServiceAccount is the subset of a Google service account key file needed
// to mint access tokens.
type ServiceAccount struct {
	Type         string `json:"type"`
	ClientEmail  string `json:"client_email"`
	PrivateKey   string `json:"private_key"`
	PrivateKeyID string `json:"private_key_id"`
	TokenURI     string `json:"token_uri"`
}

// LoadServiceAccount reads and checks a service account key file. OAuth2
// client secrets and other credential files lack client_email and are
// rejected as a configuration error.
func LoadServiceAccount(path string) (*ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newError("vision", KindConfig, eris.Wrapf(err, "read credentials %s", path))
	}
	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, newError("vision", KindConfig, eris.Wrapf(err, "parse credentials %s", path))
	}
	if sa.ClientEmail == "" {
		return nil, newError("vision", KindConfig, eris.New("invalid Google Vision credentials: missing client_email; use a service account key file, not OAuth2 client credentials"))
	}
	if sa.PrivateKey == "" {
		return nil, newError("vision", KindConfig, eris.New("invalid Google Vision credentials: missing private_key"))
	}
	if sa.TokenURI == "" {
		sa.TokenURI = defaultTokenURI
	}
	return &sa, nil
}

// VisionOCR extracts text with the Google Cloud Vision TEXT_DETECTION
// feature over REST. It authenticates with either an API key or a service
// account.
type VisionOCR struct {
	endpoint string
	apiKey   string
	client   *http.Client
	retry    resilience.RetryConfig
	tokens   *tokenSource
}

// VisionOption configures a VisionOCR.
type VisionOption func(*VisionOCR)

// WithVisionEndpoint overrides the images:annotate URL.
func WithVisionEndpoint(endpoint string) VisionOption {
	return func(v *VisionOCR) {
		if endpoint != "" {
			v.endpoint = endpoint
		}
	}
}

// WithVisionClient overrides the HTTP client.
func WithVisionClient(c *http.Client) VisionOption {
	return func(v *VisionOCR) {
		if c != nil {
			v.client = c
		}
	}
}

// WithVisionRetry overrides the retry policy for transient API failures.
func WithVisionRetry(cfg resilience.RetryConfig) VisionOption {
	return func(v *VisionOCR) {
		v.retry = cfg
	}
}

// NewVisionWithAPIKey creates a Vision extractor authenticated by API key.
func NewVisionWithAPIKey(apiKey string, opts ...VisionOption) *VisionOCR {
	v := &VisionOCR{endpoint: visionEndpoint, apiKey: apiKey, client: &http.Client{}, retry: providerRetry("vision")}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// NewVisionWithServiceAccount creates a Vision extractor that signs a JWT
// assertion with the service account key and exchanges it for access tokens.
func NewVisionWithServiceAccount(sa *ServiceAccount, opts ...VisionOption) (*VisionOCR, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, newError("vision", KindConfig, eris.Wrap(err, "parse service account private key"))
	}
	v := &VisionOCR{endpoint: visionEndpoint, client: &http.Client{}, retry: providerRetry("vision")}
	for _, opt := range opts {
		opt(v)
	}
	v.tokens = &tokenSource{sa: sa, key: key, client: v.client}
	return v, nil
}

func newVisionFromConfig(cfg config.OCRConfig, client *http.Client) (Extractor, error) {
	opts := []VisionOption{WithVisionEndpoint(cfg.VisionEndpoint), WithVisionClient(client)}
	if cfg.VisionAPIKey != "" {
		return NewVisionWithAPIKey(cfg.VisionAPIKey, opts...), nil
	}
	if cfg.VisionCredentialsFile == "" {
		return nil, newError("vision", KindConfig, eris.New("vision provider requires vision_api_key or vision_credentials_file (GOOGLE_APPLICATION_CREDENTIALS)"))
	}
	sa, err := LoadServiceAccount(cfg.VisionCredentialsFile)
	if err != nil {
		return nil, err
	}
	return NewVisionWithServiceAccount(sa, opts...)
}

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string             `json:"content,omitempty"`
	Source  *visionImageSource `json:"source,omitempty"`
}

type visionImageSource struct {
	ImageURI string `json:"imageUri"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []struct {
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

// ExtractText sends the image to Vision and returns the full detected text,
// which is the first text annotation.
func (v *VisionOCR) ExtractText(ctx context.Context, imageRef string) (string, error) {
	var img visionImage
	if isRemote(imageRef) {
		img.Source = &visionImageSource{ImageURI: imageRef}
	} else {
		data, err := readImage("vision", imageRef)
		if err != nil {
			return "", err
		}
		img.Content = base64.StdEncoding.EncodeToString(data)
	}

	body, err := json.Marshal(visionRequest{Requests: []visionImageRequest{{
		Image:    img,
		Features: []visionFeature{{Type: "TEXT_DETECTION"}},
	}}})
	if err != nil {
		return "", newError("vision", KindProvider, eris.Wrap(err, "marshal request"))
	}

	endpoint := v.endpoint
	if v.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(v.apiKey)
	}
	respBody, err := callProvider(ctx, v.client, v.retry, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "create request")
		}
		req.Header.Set("Content-Type", "application/json")
		if v.tokens != nil {
			token, err := v.tokens.Token(ctx)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return req, nil
	})
	if err != nil {
		var oe *Error
		if errors.As(err, &oe) {
			return "", oe
		}
		return "", providerError("vision", err, http.StatusUnauthorized, http.StatusForbidden)
	}

	var out visionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", newError("vision", KindProvider, eris.Wrap(err, "unmarshal vision response"))
	}
	if len(out.Responses) == 0 {
		return "", nil
	}
	r := out.Responses[0]
	if r.Error != nil {
		return "", newError("vision", KindProvider, eris.Errorf("vision error %d: %s", r.Error.Code, r.Error.Message))
	}
	if len(r.TextAnnotations) == 0 {
		return "", nil
	}
	return r.TextAnnotations[0].Description, nil
}

// tokenSource mints and caches OAuth2 access tokens from a service account.
type tokenSource struct {
	sa     *ServiceAccount
	key    *rsa.PrivateKey
	client *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Token returns a cached access token, refreshing it a minute before expiry.
func (ts *tokenSource) Token(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := time.Now()
	if ts.token != "" && now.Add(time.Minute).Before(ts.expires) {
		return ts.token, nil
	}

	claims := jwt.MapClaims{
		"iss":   ts.sa.ClientEmail,
		"scope": visionScope,
		"aud":   ts.sa.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if ts.sa.PrivateKeyID != "" {
		tok.Header["kid"] = ts.sa.PrivateKeyID
	}
	assertion, err := tok.SignedString(ts.key)
	if err != nil {
		return "", newError("vision", KindConfig, eris.Wrap(err, "sign jwt assertion"))
	}

	form := url.Values{}
	form.Set("grant_type", jwtBearerGrant)
	form.Set("assertion", assertion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ts.sa.TokenURI, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return "", newError("vision", KindConfig, eris.Wrap(err, "create token request"))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := ts.client.Do(req)
	if err != nil {
		return "", newError("vision", KindProvider, eris.Wrap(err, "token exchange"))
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := readLimited(resp.Body)
	if err != nil {
		return "", newError("vision", KindProvider, eris.Wrap(err, "read token response"))
	}
	if resp.StatusCode != http.StatusOK {
		return "", newError("vision", KindConfig, &resilience.HTTPError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", newError("vision", KindProvider, eris.Wrap(err, "unmarshal token response"))
	}
	if tr.AccessToken == "" {
		return "", newError("vision", KindConfig, eris.New("token response has no access_token"))
	}
	ts.token = tr.AccessToken
	ts.expires = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	return ts.token, nil
}
