// Package automation delegates invoice attachment to a no-code automation
// webhook instead of calling the record store directly.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"kinbridge/internal/attach"
	"kinbridge/internal/formdata"
)

const (
	// DefaultHTTPTimeout bounds the webhook call when no timeout is configured.
	DefaultHTTPTimeout = 15 * time.Second

	maxResponseBody = 1 << 20
)

// ResponseError is a non-success reply from the automation webhook.
type ResponseError struct {
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("automation webhook failed (status %d): %s", e.Status, e.Body)
}

// Options configures a Forwarder.
type Options struct {
	WebhookURL  string
	BearerToken string
	FieldCode   string
	Mode        attach.Mode
	Timeout     time.Duration
}

// Forwarder posts the file and record id to the webhook, which performs the
// upload and field update itself.
type Forwarder struct {
	opts    Options
	http    *http.Client
	journal attach.Journal
	logger  *slog.Logger
}

var _ attach.Backend = (*Forwarder)(nil)

// reply is the subset of the webhook response inspected here; the full body
// is passed through to the caller.
type reply struct {
	FileKey string `json:"fileKey"`
}

// New creates a Forwarder. A nil journal disables journaling.
func New(opts Options, journal attach.Journal, logger *slog.Logger) *Forwarder {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultHTTPTimeout
	}
	if opts.Mode == "" {
		opts.Mode = attach.ModeAppend
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		opts:    opts,
		http:    &http.Client{Timeout: opts.Timeout},
		journal: journal,
		logger:  logger,
	}
}

// Attach forwards one file. The webhook is treated as a single upload step:
// any failure is reported as attach.ErrUploadFailed.
func (f *Forwarder) Attach(ctx context.Context, in attach.AttachInput) (attach.Result, error) {
	recordID := strings.TrimSpace(in.RecordID)
	if recordID == "" {
		return attach.Result{}, fmt.Errorf("record id is required")
	}

	result := attach.Result{
		AttemptID: uuid.NewString(),
		RecordID:  recordID,
		FieldCode: f.opts.FieldCode,
		Mode:      f.opts.Mode,
		State:     attach.StateReceived,
		Backend:   attach.BackendWebhook,
	}
	logger := f.logger.With("attempt_id", result.AttemptID, "record_id", recordID, "backend", attach.BackendWebhook)
	f.begin(ctx, logger, attach.Attempt{
		ID:       result.AttemptID,
		RecordID: recordID,
		FileName: formdata.Sanitize(in.Part.Filename),
		Mode:     string(result.Mode),
		Backend:  attach.BackendWebhook,
		State:    attach.StateReceived,
	})

	f.transition(ctx, logger, &result, attach.StateUploading, "")
	body, err := f.post(ctx, recordID, in.Part)
	if err != nil {
		f.transition(ctx, logger, &result, attach.StateUploadFailed, err.Error())
		return result, fmt.Errorf("%w: %w", attach.ErrUploadFailed, err)
	}

	var r reply
	if json.Unmarshal(body, &r) == nil {
		result.FileKey = r.FileKey
	}
	if json.Valid(body) {
		result.Upstream = json.RawMessage(body)
	}
	f.transition(ctx, logger, &result, attach.StateAttached, "")
	logger.Info("file forwarded to automation webhook")
	return result, nil
}

func (f *Forwarder) post(ctx context.Context, recordID string, part formdata.Part) ([]byte, error) {
	if strings.TrimSpace(f.opts.WebhookURL) == "" {
		return nil, fmt.Errorf("automation webhook url is not configured")
	}

	fields := []formdata.Field{{Name: "recordId", Value: recordID}}
	if f.opts.FieldCode != "" {
		fields = append(fields, formdata.Field{Name: "fileField", Value: f.opts.FieldCode})
	}
	form, err := formdata.BuildForm(fields, part)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.opts.WebhookURL, bytes.NewReader(form.Data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.ContentType)
	req.Header.Set("Accept", "application/json")
	if f.opts.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.opts.BearerToken)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("automation webhook: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("automation webhook: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ResponseError{Status: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func (f *Forwarder) begin(ctx context.Context, logger *slog.Logger, attempt attach.Attempt) {
	if f.journal == nil {
		return
	}
	if err := f.journal.Begin(ctx, attempt); err != nil {
		logger.Warn("attach journal write failed", "error", err)
	}
}

func (f *Forwarder) transition(ctx context.Context, logger *slog.Logger, result *attach.Result, state attach.State, errMsg string) {
	result.State = state
	if state.Failed() {
		logger.Error("attach attempt failed", "state", string(state), "error", errMsg)
	}
	if f.journal == nil {
		return
	}
	if err := f.journal.Transition(ctx, result.AttemptID, state, result.FileKey, errMsg); err != nil {
		logger.Warn("attach journal write failed", "error", err)
	}
}
