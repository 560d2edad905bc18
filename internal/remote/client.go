package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/config"
	"github.com/ChiefClarity/clarity-tech-app-sub000/internal/models"
)

// IOfferAPIClient is the boundary to the remote scheduling backend. All three
// mutating operations are idempotent by offer ID: the backend tolerates the
// same call being replayed after a partial failure without further effect.
type IOfferAPIClient interface {
	Accept(ctx context.Context, offerID string) error
	Decline(ctx context.Context, offerID string) error
	Undo(ctx context.Context, offerID string) error
	Health(ctx context.Context) error
}

// apiResponse is the expected body from the offer endpoints.
type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// offerAPIClient implements IOfferAPIClient over HTTP.
type offerAPIClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewOfferAPIClient creates a new remote API client with a bounded timeout so
// a dead network can never stall a sync drain indefinitely.
func NewOfferAPIClient(cfg *config.Config) IOfferAPIClient {
	return &offerAPIClient{
		baseURL:    cfg.RemoteAPIBaseURL,
		httpClient: &http.Client{Timeout: cfg.RemoteAPITimeout},
	}
}

func (c *offerAPIClient) Accept(ctx context.Context, offerID string) error {
	return c.post(ctx, fmt.Sprintf("/offers/%s/accept", offerID))
}

func (c *offerAPIClient) Decline(ctx context.Context, offerID string) error {
	return c.post(ctx, fmt.Sprintf("/offers/%s/decline", offerID))
}

func (c *offerAPIClient) Undo(ctx context.Context, offerID string) error {
	return c.post(ctx, fmt.Sprintf("/offers/%s/undo", offerID))
}

// Health probes the backend; a nil return means the device is considered
// online. Used by the connectivity monitor, never by user-facing paths.
func (c *offerAPIClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: health probe: %v", models.ErrRemoteCallFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health probe returned status %d", models.ErrRemoteCallFailed, resp.StatusCode)
	}
	return nil
}

// post performs one remote mutation. Any transport error, timeout, or non-2xx
// response is wrapped in models.ErrRemoteCallFailed so callers can queue the
// action instead of surfacing a hard error.
func (c *offerAPIClient) post(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request for %s: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", models.ErrRemoteCallFailed, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response for %s: %v", models.ErrRemoteCallFailed, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("Remote API %s returned non-OK status: %d - Body: %s", path, resp.StatusCode, string(body))
		return fmt.Errorf("%w: %s returned status %d", models.ErrRemoteCallFailed, path, resp.StatusCode)
	}

	// An empty 2xx body counts as success; some backends reply with a plain 200.
	if len(body) == 0 {
		return nil
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		log.Printf("Error unmarshalling remote API response for %s: %v - Body: %s", path, err, string(body))
		return fmt.Errorf("%w: unparseable response for %s", models.ErrRemoteCallFailed, path)
	}
	if !apiResp.Success {
		return fmt.Errorf("%w: %s rejected: %s", models.ErrRemoteCallFailed, path, apiResp.Message)
	}
	return nil
}
