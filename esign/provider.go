package esign

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// ErrProvider signals a network failure or error response from the
// e-signature provider.
var ErrProvider = errors.New("esign: provider failure")

// Provider is the e-signature provider client. Create-and-send is a single
// atomic operation on the provider side; none of these operations are
// guaranteed idempotent and must not be retried automatically.
type Provider interface {
	CreateAndSendPackage(ctx context.Context, spec PackageSpec) (string, error)
	DeletePackage(ctx context.Context, packageID string) error
	DownloadDocument(ctx context.Context, packageID, documentID string) ([]byte, error)
}

// HTTPProvider talks to the provider's REST API with API-key authentication.
type HTTPProvider struct {
	client *http.Client
	logger *zap.Logger
	apiURL string
	apiKey string
}

// NewHTTPProvider constructs a provider client against baseURL. client may be
// nil, in which case a default client with a bounded timeout is used.
func NewHTTPProvider(baseURL, apiKey string, client *http.Client, logger *zap.Logger) (*HTTPProvider, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("esign: parse base url: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPProvider{
		client: client,
		logger: logger,
		apiURL: base.JoinPath("api").String(),
		apiKey: apiKey,
	}, nil
}

type packagePayload struct {
	Name   string `json:"name"`
	Sender struct {
		Email string `json:"email"`
	} `json:"sender"`
	Signer struct {
		Email      string             `json:"email"`
		FirstName  string             `json:"firstName"`
		LastName   string             `json:"lastName"`
		Challenges []challengePayload `json:"challenges"`
	} `json:"signer"`
	Document struct {
		Name          string `json:"name"`
		Content       string `json:"content"` // base64 PDF
		ExtractFields bool   `json:"extractFields"`
	} `json:"document"`
	ExpiresAt string `json:"expiresAt"`
	Autosend  bool   `json:"autosend"`
}

type challengePayload struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type packageResponse struct {
	ID string `json:"id"`
}

// CreateAndSendPackage creates the package and sends it in one step,
// returning the provider-assigned package id.
func (p *HTTPProvider) CreateAndSendPackage(ctx context.Context, spec PackageSpec) (string, error) {
	var payload packagePayload
	payload.Name = spec.Name
	payload.Sender.Email = spec.SenderEmail
	payload.Signer.Email = spec.SignerEmail
	payload.Signer.FirstName = spec.SignerFirstName
	payload.Signer.LastName = spec.SignerLastName
	payload.Signer.Challenges = []challengePayload{
		{Question: "Date of birth (MM/DD/YYYY)", Answer: spec.ChallengeDateOfBirth},
		{Question: "Last 4 digits of SSN", Answer: spec.ChallengeLast4},
	}
	payload.Document.Name = spec.DocumentName
	payload.Document.Content = base64.StdEncoding.EncodeToString(spec.Document)
	payload.Document.ExtractFields = true
	payload.ExpiresAt = time.Now().AddDate(0, 0, spec.ExpiryDays).UTC().Format(time.RFC3339)
	payload.Autosend = true

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("esign: marshal package: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+"/packages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("esign: build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: create package: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: create package: status %d", ErrProvider, resp.StatusCode)
	}

	var created packageResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("%w: decode create response: %v", ErrProvider, err)
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: create response missing package id", ErrProvider)
	}

	p.logger.Info("package created and sent",
		zap.String("package_id", created.ID),
		zap.String("signer_email", spec.SignerEmail),
	)
	return created.ID, nil
}

// DeletePackage removes a package from the provider.
func (p *HTTPProvider) DeletePackage(ctx context.Context, packageID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.apiURL+"/packages/"+url.PathEscape(packageID), nil)
	if err != nil {
		return fmt.Errorf("esign: build delete request: %w", err)
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: delete package %s: %v", ErrProvider, packageID, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: delete package %s: status %d", ErrProvider, packageID, resp.StatusCode)
	}
	return nil
}

// DownloadDocument fetches the signed document bytes.
func (p *HTTPProvider) DownloadDocument(ctx context.Context, packageID, documentID string) ([]byte, error) {
	target := fmt.Sprintf("%s/packages/%s/documents/%s/pdf",
		p.apiURL, url.PathEscape(packageID), url.PathEscape(documentID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("esign: build download request: %w", err)
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: download %s/%s: %v", ErrProvider, packageID, documentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: download %s/%s: status %d", ErrProvider, packageID, documentID, resp.StatusCode)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read document body: %v", ErrProvider, err)
	}
	return content, nil
}

func (p *HTTPProvider) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Basic "+p.apiKey)
}
