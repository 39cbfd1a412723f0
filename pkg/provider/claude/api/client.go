package api

// Client for the Anthropic Messages API. Only the streaming endpoint is
// implemented; the engine above always streams.

import "net/http"

type Client struct {
	httpClient *http.Client
	apiKey     string
	APIVersion string
	BaseURL    string
}

const defaultAPIVersion = "2023-06-01"

// NewClient initializes and returns a new API client.
func NewClient(apiKey string, baseURL string, apiVersion ...string) *Client {
	version := defaultAPIVersion
	if len(apiVersion) > 0 {
		version = apiVersion[0]
	}
	return &Client{
		httpClient: &http.Client{},
		apiKey:     apiKey,
		BaseURL:    baseURL,
		APIVersion: version,
	}
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", c.APIVersion)
	req.Header.Set("Content-Type", "application/json")
}

// ErrorResponse represents the API's error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
