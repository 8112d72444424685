// Package api holds the bridge's wire types and a client for them.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"kinbridge/internal/formdata"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	httpTimeoutEnvKey  = "KINBRIDGE_CLIENT_TIMEOUT"
	apiTokenEnvKey     = "KINBRIDGE_API_TOKEN"
)

// Client is a simple HTTP client for the bridge API.
type Client struct {
	baseURL   string
	http      *http.Client
	authToken string
}

// NewClient creates a new API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: httpTimeoutFromEnv()},
		authToken: strings.TrimSpace(os.Getenv(apiTokenEnvKey)),
	}
}

// Ping checks whether the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

// ResolveCompany maps a user id to its company id.
func (c *Client) ResolveCompany(ctx context.Context, uid string) (ResolveResponse, error) {
	var resp ResolveResponse
	err := c.do(ctx, http.MethodGet, "/v1/companies/resolve", url.Values{"uid": {uid}}, nil, &resp)
	return resp, err
}

// SearchRecords lists the records awaiting an invoice for a user's company.
func (c *Client) SearchRecords(ctx context.Context, uid string) (SearchResponse, error) {
	var resp SearchResponse
	err := c.do(ctx, http.MethodGet, "/v1/records/search", url.Values{"uid": {uid}}, nil, &resp)
	return resp, err
}

// History lists a company's inbound records.
func (c *Client) History(ctx context.Context, companyID string) (HistoryResponse, error) {
	var resp HistoryResponse
	err := c.do(ctx, http.MethodGet, "/v1/history", url.Values{"companyId": {companyID}}, nil, &resp)
	return resp, err
}

// CancelHistory requests cancellation of one record.
func (c *Client) CancelHistory(ctx context.Context, req CancelRequest) (CancelResponse, error) {
	var resp CancelResponse
	err := c.do(ctx, http.MethodPost, "/v1/history/cancel", nil, req, &resp)
	return resp, err
}

// AttachInvoice uploads one file and attaches it to a record. The original
// file name is also sent as origName so it survives intermediaries that
// mangle non-ASCII multipart filenames.
func (c *Client) AttachInvoice(ctx context.Context, recordID string, part formdata.Part) (AttachResponse, error) {
	var resp AttachResponse
	form, err := formdata.BuildForm([]formdata.Field{
		{Name: "recordId", Value: recordID},
		{Name: "origName", Value: part.Filename},
	}, part)
	if err != nil {
		return resp, err
	}
	err = c.doRaw(ctx, http.MethodPost, "/v1/invoices/attach", nil, bytes.NewReader(form.Data), form.ContentType, &resp)
	return resp, err
}

// NotifyInvoice announces an uploaded invoice to the chat webhook.
func (c *Client) NotifyInvoice(ctx context.Context, req NotifyRequest) (OKResponse, error) {
	var resp OKResponse
	err := c.do(ctx, http.MethodPost, "/v1/invoices/notify", nil, req, &resp)
	return resp, err
}

// ListAttempts reads the attach journal.
func (c *Client) ListAttempts(ctx context.Context, state, recordID string, limit int) (AttemptsResponse, error) {
	var resp AttemptsResponse
	query := url.Values{}
	if state != "" {
		query.Set("state", state)
	}
	if recordID != "" {
		query.Set("recordId", recordID)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	err := c.do(ctx, http.MethodGet, "/v1/attach/attempts", query, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var (
		reader      io.Reader
		contentType string
	)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.doRaw(ctx, method, path, query, reader, contentType, out)
}

func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Error != "" {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      errResp.Code,
			ErrorCode: errResp.ErrorCode,
			Message:   errResp.Error,
		}
	}
	return &APIError{Status: resp.StatusCode, Message: "api error: " + resp.Status}
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.authToken == "" || req == nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.authToken)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
