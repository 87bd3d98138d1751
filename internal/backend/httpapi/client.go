// Package httpapi implements service.Service against the fluxtodo HTTP API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fluxtodo/internal/api"
	"fluxtodo/internal/service"
)

const (
	defaultUserAgent = "fluxtodo/0.1"
	defaultTimeout   = 10 * time.Second
)

// Client talks to the fluxtodo HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	token     string
	userAgent string
}

// Ensure Client implements service.Service at compile time.
var _ service.Service = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient builds a Client for the API rooted at baseURL, authenticating
// with a bearer token.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: defaultTimeout},
		token:     token,
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("api url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api url %q has no host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// ListLists implements service.Service.
func (c *Client) ListLists(ctx context.Context, q service.ListQuery) (service.ListPage, error) {
	values := url.Values{}
	setWindow(values, q.Page, q.Limit)
	setString(values, "search", q.Search)
	setString(values, "sortBy", string(q.SortBy))
	setString(values, "sortOrder", string(q.SortOrder))

	var page service.ListPage
	meta, err := c.do(ctx, http.MethodGet, "/api/lists", values, nil, &page.Items)
	if err != nil {
		return service.ListPage{}, err
	}
	page.Meta = metaOr(meta, q.Page, q.Limit, len(page.Items))
	return page, nil
}

// ListListsWithTasks implements service.Service.
func (c *Client) ListListsWithTasks(ctx context.Context) ([]service.ListWithTasks, error) {
	var out []service.ListWithTasks
	if _, err := c.do(ctx, http.MethodGet, "/api/lists", url.Values{"include": {"tasks"}}, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateList implements service.Service.
func (c *Client) CreateList(ctx context.Context, req service.CreateListRequest) (service.List, error) {
	var l service.List
	if _, err := c.do(ctx, http.MethodPost, "/api/lists", nil, req, &l); err != nil {
		return service.List{}, err
	}
	return l, nil
}

// UpdateList implements service.Service.
func (c *Client) UpdateList(ctx context.Context, id string, req service.UpdateListRequest) (service.List, error) {
	var l service.List
	body := api.UpdateListBody{ListID: id, Title: req.Title}
	if _, err := c.do(ctx, http.MethodPatch, "/api/lists", nil, body, &l); err != nil {
		return service.List{}, err
	}
	return l, nil
}

// DeleteList implements service.Service.
func (c *Client) DeleteList(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/lists", url.Values{"listId": {id}}, nil, nil)
	return err
}

// ListTasks implements service.Service.
func (c *Client) ListTasks(ctx context.Context, q service.TaskQuery) (service.TaskPage, error) {
	values := url.Values{}
	setWindow(values, q.Page, q.Limit)
	setString(values, "search", q.Search)
	setString(values, "listId", q.ListID)
	setString(values, "sortBy", string(q.SortBy))
	setString(values, "sortOrder", string(q.SortOrder))
	if q.Completed != nil {
		values.Set("completed", strconv.FormatBool(*q.Completed))
	}

	var page service.TaskPage
	meta, err := c.do(ctx, http.MethodGet, "/api/tasks", values, nil, &page.Items)
	if err != nil {
		return service.TaskPage{}, err
	}
	page.Meta = metaOr(meta, q.Page, q.Limit, len(page.Items))
	return page, nil
}

// CreateTask implements service.Service.
func (c *Client) CreateTask(ctx context.Context, req service.CreateTaskRequest) (service.Task, error) {
	var t service.Task
	if _, err := c.do(ctx, http.MethodPost, "/api/tasks", nil, req, &t); err != nil {
		return service.Task{}, err
	}
	return t, nil
}

// UpdateTask implements service.Service.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	var t service.Task
	body := api.UpdateTaskBody{TaskID: id, TaskPatch: patch}
	if _, err := c.do(ctx, http.MethodPatch, "/api/tasks", nil, body, &t); err != nil {
		return service.Task{}, err
	}
	return t, nil
}

// DeleteTask implements service.Service.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/tasks", url.Values{"taskId": {id}}, nil, nil)
	return err
}

// do sends one request and unwraps the envelope into dest. Failure
// envelopes become *service.Error; responses without an envelope become
// errors carrying the HTTP status.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, dest any) (*service.PageMeta, error) {
	rel := &url.URL{Path: c.baseURL.Path + path, RawQuery: query.Encode()}
	reqURL := c.baseURL.ResolveReference(rel)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env api.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, service.NewError(resp.StatusCode, statusCode(resp.StatusCode),
				fmt.Sprintf("api %s %s returned status %d", method, path, resp.StatusCode))
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !env.Success || resp.StatusCode >= 400 {
		if env.Error == nil {
			return nil, service.NewError(resp.StatusCode, statusCode(resp.StatusCode),
				fmt.Sprintf("api %s %s returned status %d", method, path, resp.StatusCode))
		}
		return nil, env.Error.AsServiceError(resp.StatusCode)
	}
	if dest != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, dest); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return env.Meta, nil
}

// statusCode classifies a bare HTTP status the way the server would.
func statusCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return service.CodeValidation
	case http.StatusUnauthorized:
		return service.CodeUnauthorized
	case http.StatusForbidden:
		return service.CodeForbidden
	case http.StatusNotFound:
		return service.CodeNotFound
	case http.StatusConflict:
		return service.CodeConflict
	case http.StatusTooManyRequests:
		return service.CodeRateLimit
	default:
		return service.CodeInternal
	}
}

func metaOr(meta *service.PageMeta, page, limit, n int) service.PageMeta {
	if meta != nil {
		return *meta
	}
	q := service.TaskQuery{Page: page, Limit: limit}.Normalize()
	return service.Meta(q.Page, q.Limit, n)
}

func setWindow(v url.Values, page, limit int) {
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
}

func setString(v url.Values, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		v.Set(key, value)
	}
}
