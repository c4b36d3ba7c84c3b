package contentgen

import (
	"context"
	"encoding/json"
	"errors"

	"vecna/internal/gamecontext"
	"vecna/internal/services/jsonapi"
)

const generatePath = "generate"

// Request asks the generation service to produce content for one entity.
// FamilyContext is embedded by value so later edits to the base entity do
// not change a request that was already issued.
type Request struct {
	EntityID      int64                      `json:"entityId"`
	ContentTypes  []string                   `json:"contentTypes"`
	QualityTier   string                     `json:"qualityTier"`
	FamilyContext *gamecontext.FamilyContext `json:"familyContext,omitempty"`
	// Context is the entity's own enrichment bundle.
	Context string `json:"context,omitempty"`
}

// Response reports the generation outcome. Errors maps a content type to
// the sub-error that type failed with. Content carries the generated fields
// per content type when the service returns them inline.
type Response struct {
	Success bool                      `json:"success"`
	Error   string                    `json:"error,omitempty"`
	Errors  map[string]string         `json:"errors,omitempty"`
	Content map[string]map[string]any `json:"content,omitempty"`
}

// Client calls the content generation service.
type Client struct {
	api *jsonapi.Client
}

// NewClient constructs a generation client for cfg.BaseURL.
func NewClient(cfg jsonapi.Config, opts ...jsonapi.Option) *Client {
	if cfg.Name == "" {
		cfg.Name = "generate service"
	}
	return &Client{api: jsonapi.NewClient(cfg, opts...)}
}

// Generate submits req. Transport failures, non-2xx responses, and timeouts
// are returned as errors; {"success": false} comes back as a response.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	var resp Response
	if err := c.api.PostJSON(ctx, generatePath, req, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}

// DecodeFailure extracts a structured failure body from a non-2xx response
// error. It reports false when err carries no status or the body is not a
// generation response naming an error.
func DecodeFailure(err error) (int, Response, bool) {
	var statusErr *jsonapi.StatusError
	if !errors.As(err, &statusErr) || statusErr.Body == "" {
		return 0, Response{}, false
	}
	var resp Response
	if json.Unmarshal([]byte(statusErr.Body), &resp) != nil {
		return 0, Response{}, false
	}
	if len(resp.Errors) == 0 && resp.Error == "" {
		return 0, Response{}, false
	}
	return statusErr.StatusCode, resp, true
}
