// Package client talks to the Ghost Crew API over HTTP. It implements
// app.Backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ghost-crew/internal/app"
	"ghost-crew/internal/models"
	"ghost-crew/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// Is lets a 401 match app.ErrSessionExpired.
func (e *APIError) Is(target error) bool {
	return target == app.ErrSessionExpired && e.Status == fiber.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type envelope struct {
	Message string          `json:"message"`
	Success bool            `json:"success"`
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
}

type Client struct {
	baseURL string
	timeout time.Duration
}

var _ app.Backend = (*Client)(nil)

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// timeoutFor shortens the client timeout to the context deadline.
func (c *Client) timeoutFor(ctx context.Context) time.Duration {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

type request struct {
	method      string
	path        string
	token       string
	json        interface{}
	body        []byte
	contentType string
}

func (c *Client) send(ctx context.Context, r request) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(r.method)
	req.SetRequestURI(c.baseURL + r.path)
	if r.token != "" {
		a.Set(fiber.HeaderAuthorization, "Bearer "+r.token)
	}
	switch {
	case r.json != nil:
		a.JSON(r.json)
	case r.body != nil:
		a.ContentType(r.contentType)
		a.Body(r.body)
	}
	a.Timeout(c.timeoutFor(ctx))

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return 0, nil, err
	}
	code, body, errs := a.Bytes()
	if len(errs) > 0 {
		return 0, nil, errors.Join(errs...)
	}
	return code, body, nil
}

// call sends r and decodes the envelope's data into out when out is not nil.
func (c *Client) call(ctx context.Context, r request, out interface{}) error {
	code, body, err := c.send(ctx, r)
	if err != nil {
		logger.ContextLogger.Debug("API request failed", zap.String("method", r.method), zap.String("path", r.path), zap.Error(err))
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}

	var env envelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil && code < 300 {
			return fmt.Errorf("%s %s: decode response: %w", r.method, r.path, err)
		}
	}
	if code < 200 || code >= 300 {
		return &APIError{Status: code, Message: env.Message}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%s %s: decode data: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	code, _, err := c.send(ctx, request{method: fiber.MethodGet, path: "/healthz"})
	if err != nil {
		return err
	}
	if code != fiber.StatusOK {
		return &APIError{Status: code, Message: "health check failed"}
	}
	return nil
}

func (c *Client) Login(ctx context.Context, pin string) (*app.Session, error) {
	var session app.Session
	err := c.call(ctx, request{method: fiber.MethodPost, path: "/api/v1/login", json: map[string]string{"pin": pin}}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) TodaysJobs(ctx context.Context, token, date string) ([]models.Job, error) {
	var jobs []models.Job
	err := c.call(ctx, request{method: fiber.MethodGet, path: "/api/v1/jobs?date=" + date, token: token}, &jobs)
	return jobs, err
}

func (c *Client) Checklist(ctx context.Context, token string, jobID int) ([]models.ChecklistItem, error) {
	var items []models.ChecklistItem
	err := c.call(ctx, request{method: fiber.MethodGet, path: fmt.Sprintf("/api/v1/jobs/%d/checklist", jobID), token: token}, &items)
	return items, err
}

func (c *Client) jobAction(ctx context.Context, method, path, token string) (*models.Job, error) {
	var job models.Job
	if err := c.call(ctx, request{method: method, path: path, token: token}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) StartJob(ctx context.Context, token string, jobID int) (*models.Job, error) {
	return c.jobAction(ctx, fiber.MethodPut, fmt.Sprintf("/api/v1/jobs/%d/start", jobID), token)
}

func (c *Client) FinishJob(ctx context.Context, token string, jobID int) (*models.Job, error) {
	return c.jobAction(ctx, fiber.MethodPut, fmt.Sprintf("/api/v1/jobs/%d/finish", jobID), token)
}

func (c *Client) UpsertTaskCompletion(ctx context.Context, token string, tc models.TaskCompletion) error {
	return c.call(ctx, request{method: fiber.MethodPut, path: "/api/v1/task-completions", token: token, json: tc}, nil)
}

func (c *Client) InsertIssue(ctx context.Context, token string, i models.Issue) error {
	return c.call(ctx, request{method: fiber.MethodPost, path: "/api/v1/issues", token: token, json: i}, nil)
}

// UploadPhoto sends the file at path as the "photo" form field.
func (c *Client) UploadPhoto(ctx context.Context, token, path string) (*app.PhotoUpload, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="photo"; filename="%s"`, filepath.Base(path)))
	h.Set("Content-Type", contentType)
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(content); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	var upload app.PhotoUpload
	err = c.call(ctx, request{
		method:      fiber.MethodPost,
		path:        "/api/v1/upload/photo",
		token:       token,
		body:        body.Bytes(),
		contentType: writer.FormDataContentType(),
	}, &upload)
	if err != nil {
		return nil, err
	}
	return &upload, nil
}

func (c *Client) ReviewQueue(ctx context.Context, token string) ([]models.Job, error) {
	var jobs []models.Job
	err := c.call(ctx, request{method: fiber.MethodGet, path: "/api/v1/review", token: token}, &jobs)
	return jobs, err
}

func (c *Client) ReviewDetail(ctx context.Context, token string, jobID int) (*models.ReviewDetail, error) {
	var detail models.ReviewDetail
	if err := c.call(ctx, request{method: fiber.MethodGet, path: fmt.Sprintf("/api/v1/review/%d", jobID), token: token}, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

func (c *Client) ApproveJob(ctx context.Context, token string, jobID int) (*models.Job, error) {
	return c.jobAction(ctx, fiber.MethodPost, fmt.Sprintf("/api/v1/review/%d", jobID), token)
}
