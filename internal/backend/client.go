// Package backend provides the HTTP client for the interview backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"ai-interview-session-service/internal/models"
)

const (
	contentType    = "application/json"
	userAgent      = "ai-interview-session-service"
	csrfCookieName = "csrftoken"
	csrfHeader     = "X-CSRFToken"
	maxErrorBody   = 4096
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// File is a file part of a multipart request.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// Client talks to the backend. Cookies persist across calls so the CSRF
// token fetched once is reused for later uploads.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string

	baseURL  *url.URL
	csrfPath string
	logger   zerolog.Logger

	mu        sync.Mutex
	csrfValue string
}

// New creates a backend client rooted at baseURL.
func New(baseURL, csrfPath string, logger zerolog.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		HTTPClient: &http.Client{Jar: jar},
		UserAgent:  userAgent,
		baseURL:    u,
		csrfPath:   csrfPath,
		logger:     logger,
	}, nil
}

// URL resolves a path against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// PostJSON posts in as JSON and decodes a 2xx response into out.
func (c *Client) PostJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", contentType)
	if token := c.cachedCSRF(); token != "" {
		req.Header.Set(csrfHeader, token)
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// PostMultipart posts form fields and an optional file, with the CSRF header set.
func (c *Client) PostMultipart(ctx context.Context, path string, fields map[string]string, file *File) error {
	token, err := c.EnsureCSRF(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("CSRF token unavailable, posting without it")
	}

	var b bytes.Buffer
	w := multipart.NewWriter(&b)
	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Name))
		ct := file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return err
		}
		if _, err := part.Write(file.Data); err != nil {
			return err
		}
	}
	for key, val := range fields {
		if err := w.WriteField(key, val); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), &b)
	if err != nil {
		return err
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set(csrfHeader, token)
	}

	resp, err := c.request(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return nil
}

// EnsureCSRF returns the CSRF token, fetching it from the backend when no
// csrftoken cookie is held yet.
func (c *Client) EnsureCSRF(ctx context.Context) (string, error) {
	if token := c.cachedCSRF(); token != "" {
		return token, nil
	}
	if c.csrfPath == "" {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(c.csrfPath), nil)
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	var body struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && err != io.EOF {
		c.logger.Debug().Err(err).Msg("CSRF response body not JSON")
	}

	if token := c.cachedCSRF(); token != "" {
		return token, nil
	}
	c.mu.Lock()
	c.csrfValue = body.CSRFToken
	c.mu.Unlock()
	return body.CSRFToken, nil
}

func (c *Client) cachedCSRF() string {
	if c.HTTPClient.Jar != nil {
		for _, ck := range c.HTTPClient.Jar.Cookies(c.baseURL) {
			if ck.Name == csrfCookieName && ck.Value != "" {
				return ck.Value
			}
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.csrfValue
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("make request")
	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Referer", c.baseURL.String()+"/")
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body models.ErrorResponse
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}
