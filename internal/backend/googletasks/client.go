// Package googletasks implements the service.Service interface using Google Tasks API.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"fluxtodo/internal/config"
	"fluxtodo/internal/service"
)

const (
	// PageSize is the number of items requested per API page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// Scope is the OAuth scope for Google Tasks.
	Scope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"

	// fanout bounds concurrent per-list requests.
	fanout = 4
)

// Client implements service.Service using Google Tasks API.
// Google lists have no owner, so every list reports the configured user.
type Client struct {
	svc   *tasks.Service
	owner string

	// Google addresses tasks by list; index remembers where each task id
	// was last seen.
	mu    sync.Mutex
	index map[string]string
}

// New creates a new Google Tasks client.
// Requires oauth_client.json and token.json to exist.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	clientJSON, err := os.ReadFile(cfg.OAuthClientPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth_client.json: %w", err)
	}

	oauthConfig, err := google.ConfigFromJSON(clientJSON, Scope)
	if err != nil {
		return nil, fmt.Errorf("invalid oauth_client.json: %w", err)
	}

	tokenData, err := os.ReadFile(cfg.TokenPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read token.json: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("invalid token.json: %w", err)
	}

	// Token source refreshes automatically.
	httpClient := oauth2.NewClient(ctx, oauthConfig.TokenSource(ctx, &token))

	svc, err := tasks.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	return newClient(svc, cfg.UserID()), nil
}

// NewWithHTTPClient creates a client with a custom HTTP client and endpoint
// (for testing). An empty endpoint uses the public API.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, endpoint, owner string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return newClient(svc, owner), nil
}

func newClient(svc *tasks.Service, owner string) *Client {
	return &Client{svc: svc, owner: owner, index: make(map[string]string)}
}

// ListLists returns one page of task lists. Google has no server-side
// search or sort for lists, so all lists are read and paged locally.
func (c *Client) ListLists(ctx context.Context, q service.ListQuery) (service.ListPage, error) {
	lists, err := c.allLists(ctx)
	if err != nil {
		return service.ListPage{}, err
	}
	return service.PageLists(lists, q), nil
}

// ListListsWithTasks returns every list with all of its tasks.
func (c *Client) ListListsWithTasks(ctx context.Context) ([]service.ListWithTasks, error) {
	lists, err := c.allLists(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]service.ListWithTasks, len(lists))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanout)
	for i, l := range lists {
		g.Go(func() error {
			ts, err := c.listTasks(gctx, l.ID)
			if err != nil {
				return err
			}
			out[i] = service.ListWithTasks{List: l, Tasks: ts}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateList creates a new task list.
func (c *Client) CreateList(ctx context.Context, req service.CreateListRequest) (service.List, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	l, err := c.svc.Tasklists.Insert(&tasks.TaskList{Title: req.Title}).Context(ctx).Do()
	if err != nil {
		return service.List{}, wrapError(err)
	}
	return c.toList(l), nil
}

// UpdateList renames a task list.
func (c *Client) UpdateList(ctx context.Context, id string, req service.UpdateListRequest) (service.List, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	l, err := c.svc.Tasklists.Patch(id, &tasks.TaskList{Title: req.Title}).Context(ctx).Do()
	if err != nil {
		return service.List{}, wrapError(err)
	}
	return c.toList(l), nil
}

// DeleteList deletes a task list by ID.
func (c *Client) DeleteList(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasklists.Delete(id).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	c.mu.Lock()
	for taskID, listID := range c.index {
		if listID == id {
			delete(c.index, taskID)
		}
	}
	c.mu.Unlock()
	return nil
}

// ListTasks returns one page of tasks. An empty q.ListID reads every list.
func (c *Client) ListTasks(ctx context.Context, q service.TaskQuery) (service.TaskPage, error) {
	if q.ListID != "" {
		ts, err := c.listTasks(ctx, q.ListID)
		if err != nil {
			return service.TaskPage{}, err
		}
		return service.PageTasks(ts, q), nil
	}
	all, err := c.ListListsWithTasks(ctx)
	if err != nil {
		return service.TaskPage{}, err
	}
	var ts []service.Task
	for _, l := range all {
		ts = append(ts, l.Tasks...)
	}
	return service.PageTasks(ts, q), nil
}

// CreateTask creates a new task in req.ListID.
func (c *Client) CreateTask(ctx context.Context, req service.CreateTaskRequest) (service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	gt := &tasks.Task{Title: req.Title}
	if req.Description != nil {
		gt.Notes = *req.Description
	}
	created, err := c.svc.Tasks.Insert(req.ListID, gt).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return c.remember(req.ListID, created), nil
}

// UpdateTask applies patch. Moving to another list uses the move endpoint
// before the remaining fields are patched.
func (c *Client) UpdateTask(ctx context.Context, id string, patch service.TaskPatch) (service.Task, error) {
	listID, err := c.locate(ctx, id)
	if err != nil {
		return service.Task{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if patch.ListID != nil && *patch.ListID != listID {
		moved, err := c.svc.Tasks.Move(listID, id).DestinationTasklist(*patch.ListID).Context(ctx).Do()
		if err != nil {
			return service.Task{}, wrapError(err)
		}
		c.forget(id)
		id, listID = moved.Id, *patch.ListID
		c.remember(listID, moved)
	}

	gt := &tasks.Task{}
	if patch.Title != nil {
		gt.Title = *patch.Title
	}
	if patch.Description != nil {
		gt.Notes = *patch.Description
		gt.ForceSendFields = append(gt.ForceSendFields, "Notes")
	}
	if patch.Completed != nil {
		if *patch.Completed {
			gt.Status = statusCompleted
		} else {
			gt.Status = statusNeedsAction
			gt.NullFields = append(gt.NullFields, "Completed")
		}
	}

	updated, err := c.svc.Tasks.Patch(listID, id, gt).Context(ctx).Do()
	if err != nil {
		return service.Task{}, wrapError(err)
	}
	return c.remember(listID, updated), nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	listID, err := c.locate(ctx, id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(listID, id).Context(ctx).Do(); err != nil {
		return wrapError(err)
	}
	c.forget(id)
	return nil
}

func (c *Client) allLists(ctx context.Context) ([]service.List, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result []service.List
	err := c.svc.Tasklists.List().MaxResults(PageSize).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, l := range resp.Items {
			result = append(result, c.toList(l))
		}
		return nil
	})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

func (c *Client) listTasks(ctx context.Context, listID string) ([]service.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	var result []service.Task
	err := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, c.remember(listID, t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError(err)
	}
	return result, nil
}

// locate returns the list holding task id, scanning every list when the
// task has not been seen yet.
func (c *Client) locate(ctx context.Context, id string) (string, error) {
	c.mu.Lock()
	listID, ok := c.index[id]
	c.mu.Unlock()
	if ok {
		return listID, nil
	}
	if _, err := c.ListListsWithTasks(ctx); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if listID, ok := c.index[id]; ok {
		return listID, nil
	}
	return "", service.NotFound("Task")
}

func (c *Client) remember(listID string, t *tasks.Task) service.Task {
	c.mu.Lock()
	c.index[t.Id] = listID
	c.mu.Unlock()
	return toTask(listID, t)
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.index, id)
	c.mu.Unlock()
}

func (c *Client) toList(l *tasks.TaskList) service.List {
	updated := parseTime(l.Updated)
	return service.List{
		ID:        l.Id,
		Title:     l.Title,
		OwnerID:   c.owner,
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

// toTask maps a Google task. Google keeps no creation time; Updated stands in.
func toTask(listID string, t *tasks.Task) service.Task {
	updated := parseTime(t.Updated)
	out := service.Task{
		ID:        t.Id,
		Title:     t.Title,
		Completed: t.Status == statusCompleted,
		ListID:    listID,
		CreatedAt: updated,
		UpdatedAt: updated,
	}
	if t.Notes != "" {
		notes := t.Notes
		out.Description = &notes
	}
	return out
}

func parseTime(s string) time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return ts
}

// wrapError classifies API errors into service errors with user-friendly
// messages. Transport errors are returned unchanged.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded") {
		return fmt.Errorf("request timed out: %w", err)
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		e := service.Unauthorized()
		e.Message = "token expired or revoked (run: fluxtodo login)"
		return e
	case http.StatusNotFound:
		return service.NewError(http.StatusNotFound, service.CodeNotFound, "not found")
	case http.StatusTooManyRequests:
		return service.RateLimited()
	case http.StatusBadRequest:
		return service.Validation(gerr.Message, "")
	case http.StatusConflict:
		return service.Conflict(gerr.Message)
	default:
		return service.Internal(gerr.Message)
	}
}
