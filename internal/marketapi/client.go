// Package marketapi is the client for the marketplace REST API that owns the
// dashboard's records.
package marketapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TokenSource yields the bearer token for outgoing requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// File is a multipart file part.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// Client talks to one marketplace API base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewClient constructs a Client. A nil httpClient gets a 15s timeout client.
func NewClient(baseURL string, httpClient *http.Client, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
	}
}

// WithTokens returns a copy of the client authenticating with tokens.
func (c *Client) WithTokens(tokens TokenSource) *Client {
	clone := *c
	clone.tokens = tokens
	return &clone
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// List fetches GET /{resource} and decodes the data array into out.
func (c *Client) List(ctx context.Context, resource string, out any) error {
	return c.do(ctx, http.MethodGet, c.path(resource), nil, "", out)
}

// Create posts a JSON body to /{resource}.
func (c *Client) Create(ctx context.Context, resource string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, c.path(resource), body, out)
}

// CreateMultipart posts form fields and an optional file to /{resource}.
func (c *Client) CreateMultipart(ctx context.Context, resource string, fields map[string]string, file *File, out any) error {
	buf := &bytes.Buffer{}
	writer := multipart.NewWriter(buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return err
		}
	}
	if file != nil && file.Content != nil {
		field := file.Field
		if field == "" {
			field = "image"
		}
		part, err := writer.CreateFormFile(field, file.Name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, c.path(resource), buf, writer.FormDataContentType(), out)
}

// Patch sends a partial JSON body to /{resource}/{id}.
func (c *Client) Patch(ctx context.Context, resource, id string, body, out any) error {
	return c.doJSON(ctx, http.MethodPatch, c.path(resource, id), body, out)
}

// Put sends a JSON body to /{resource}/{id}.
func (c *Client) Put(ctx context.Context, resource, id string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, c.path(resource, id), body, out)
}

// Delete removes /{resource}/{id}.
func (c *Client) Delete(ctx context.Context, resource, id string) error {
	return c.do(ctx, http.MethodDelete, c.path(resource, id), nil, "", nil)
}

// Action posts to a domain action: /{resource}/{id}/{action}.
func (c *Client) Action(ctx context.Context, resource, id, action string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, c.path(resource, id, action), body, out)
}

func (c *Client) path(parts ...string) string {
	escaped := make([]string, 0, len(parts))
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *Client) doJSON(ctx context.Context, method, target string, body, out any) error {
	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marketapi: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.do(ctx, method, target, reader, contentType, out)
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &transportError{err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return &transportError{err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var env envelope
		_ = json.Unmarshal(data, &env)
		return &APIError{Status: resp.StatusCode, Message: env.Message}
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	// A body with a data key is an envelope even when data is null.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err == nil {
		if raw, ok := fields["data"]; ok {
			data = raw
		}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("marketapi: decode %s %s: %w", method, target, err)
	}
	return nil
}
