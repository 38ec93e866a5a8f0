package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/routinecopy/internal/importer"
	"github.com/claude/routinecopy/internal/models"
	api "github.com/claude/routinecopy/internal/server"
	"github.com/claude/routinecopy/internal/shelf"
)

// HTTPClient implements Backend by calling the routinecopy REST API.
// Used when the MCP binary runs locally (stdio) but the browser is attached
// to a routinecopy server elsewhere (reached over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		// An import of a long routine can take minutes.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, params url.Values, body string, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) Extract(ctx context.Context) (string, error) {
	var resp api.ExtractResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/extract", nil, "", &resp); err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (c *HTTPClient) Import(ctx context.Context, text string) (*importer.Report, error) {
	// Decode locally so malformed text never leaves the machine.
	if _, err := models.DecodeRoutine([]byte(text)); err != nil {
		return nil, err
	}
	var rep importer.Report
	if err := c.do(ctx, http.MethodPost, "/api/v1/import", nil, text, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func (c *HTTPClient) Library(ctx context.Context) ([]models.LibraryEntry, error) {
	var entries []models.LibraryEntry
	if err := c.do(ctx, http.MethodGet, "/api/v1/library", nil, "", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *HTTPClient) ListShelf(ctx context.Context) ([]shelf.Entry, error) {
	var entries []shelf.Entry
	if err := c.do(ctx, http.MethodGet, "/api/v1/shelf", nil, "", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *HTTPClient) GetShelf(ctx context.Context, name string) (string, shelf.Entry, error) {
	var resp api.ShelfResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/shelf/"+url.PathEscape(name), nil, "", &resp); err != nil {
		return "", shelf.Entry{}, err
	}
	return resp.Text, resp.Entry, nil
}

func (c *HTTPClient) SaveShelf(ctx context.Context, name, text string) (shelf.Entry, error) {
	var entry shelf.Entry
	if err := c.do(ctx, http.MethodPut, "/api/v1/shelf/"+url.PathEscape(name), nil, text, &entry); err != nil {
		return shelf.Entry{}, err
	}
	return entry, nil
}

func (c *HTTPClient) ImportShelf(ctx context.Context, name string) (*importer.Report, error) {
	var rep importer.Report
	if err := c.do(ctx, http.MethodPost, "/api/v1/shelf/"+url.PathEscape(name)+"/import", nil, "", &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func (c *HTTPClient) Runs(ctx context.Context, limit int) ([]shelf.Run, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var runs []shelf.Run
	if err := c.do(ctx, http.MethodGet, "/api/v1/runs", params, "", &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
