// Package kintone is a minimal client for the record store REST API: record
// queries, single record reads, full-field updates and file uploads.
package kintone

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"kinbridge/internal/formdata"
)

const (
	// DefaultHTTPTimeout bounds every outbound call when no timeout is configured.
	DefaultHTTPTimeout = 15 * time.Second

	tokenHeader     = "X-Cybozu-API-Token"
	recordsPath     = "/k/v1/records.json"
	recordPath      = "/k/v1/record.json"
	filePath        = "/k/v1/file.json"
	maxResponseBody = 8 << 20 // 8 MiB
)

// App identifies one record store application and the API token used for it.
type App struct {
	ID    string
	Token string
}

// Client talks to one record store host.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL. A non-positive timeout selects
// DefaultHTTPTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the configured host.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RecordURL returns the browser URL of one record.
func (c *Client) RecordURL(app App, id string) string {
	return fmt.Sprintf("%s/k/%s/show#record=%s", c.baseURL, url.PathEscape(app.ID), url.QueryEscape(id))
}

type recordsResponse struct {
	Records []Record `json:"records"`
}

type recordResponse struct {
	Record Record `json:"record"`
}

type updateRequest struct {
	App    string  `json:"app"`
	ID     string  `json:"id"`
	Record Updates `json:"record"`
}

type uploadResponse struct {
	FileKey string `json:"fileKey"`
}

// QueryRecords runs query against app and returns the matching records.
func (c *Client) QueryRecords(ctx context.Context, app App, query string) ([]Record, error) {
	params := url.Values{}
	params.Set("app", app.ID)
	if query != "" {
		params.Set("query", query)
	}

	var resp recordsResponse
	if err := c.do(ctx, app, "query records", http.MethodGet, recordsPath, params, nil, "", &resp); err != nil {
		return nil, err
	}
	if resp.Records == nil {
		resp.Records = []Record{}
	}
	return resp.Records, nil
}

// GetRecord reads one record. A missing record yields an error matching ErrNotFound.
func (c *Client) GetRecord(ctx context.Context, app App, id string) (Record, error) {
	params := url.Values{}
	params.Set("app", app.ID)
	params.Set("id", id)

	var resp recordResponse
	err := c.do(ctx, app, "get record", http.MethodGet, recordPath, params, nil, "", &resp)
	if err != nil {
		var respErr *ResponseError
		if errors.As(err, &respErr) && respErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, err
	}
	if resp.Record == nil {
		return nil, &ResponseError{Op: "get record", Status: http.StatusOK, Body: "response has no record"}
	}
	return resp.Record, nil
}

// UpdateRecord overwrites the given fields of one record.
func (c *Client) UpdateRecord(ctx context.Context, app App, id string, updates Updates) error {
	payload, err := json.Marshal(updateRequest{App: app.ID, ID: id, Record: updates})
	if err != nil {
		return err
	}
	return c.do(ctx, app, "update record", http.MethodPut, recordPath, nil, bytes.NewReader(payload), "application/json", nil)
}

// UploadFile stores part in the record store's file staging area and returns
// the file key used to attach it. Uploads are never retried.
func (c *Client) UploadFile(ctx context.Context, app App, part formdata.Part) (string, error) {
	body, err := formdata.Build(part)
	if err != nil {
		return "", err
	}

	var resp uploadResponse
	if err := c.do(ctx, app, "upload file", http.MethodPost, filePath, nil, bytes.NewReader(body.Data), body.ContentType, &resp); err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.FileKey) == "" {
		return "", &ResponseError{Op: "upload file", Status: http.StatusOK, Body: "response has no fileKey"}
	}
	return resp.FileKey, nil
}

func (c *Client) do(ctx context.Context, app App, op, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set(tokenHeader, app.Token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("kintone %s: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return fmt.Errorf("kintone %s: read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ResponseError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ResponseError{Op: op, Status: resp.StatusCode, Body: string(raw)}
	}
	return nil
}
