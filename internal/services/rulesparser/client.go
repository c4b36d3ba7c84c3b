package rulesparser

import (
	"context"

	"vecna/internal/services/jsonapi"
)

const parsePath = "parse"

// Request asks the extraction service to parse one rulebook document.
type Request struct {
	EntityID          int64  `json:"entityId"`
	DocumentReference string `json:"documentReference"`
}

// Response reports the extraction outcome. The service persists extracted
// text through its own write path; only the outcome travels back.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Client calls the rulebook extraction service.
type Client struct {
	api *jsonapi.Client
}

// NewClient constructs a parse client for cfg.BaseURL.
func NewClient(cfg jsonapi.Config, opts ...jsonapi.Option) *Client {
	if cfg.Name == "" {
		cfg.Name = "parse service"
	}
	return &Client{api: jsonapi.NewClient(cfg, opts...)}
}

// Parse submits req. A non-2xx response, transport failure, or timeout is
// returned as an error; an explicit {"success": false} is returned as a
// response for the caller to interpret.
func (c *Client) Parse(ctx context.Context, req Request) (Response, error) {
	var resp Response
	if err := c.api.PostJSON(ctx, parsePath, req, &resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
