// Package attach uploads a file to the record store and attaches it to a
// record's file field.
//
// One request moves through RECEIVED, UPLOADING, UPLOADED, RECONCILING and
// ATTACHED, or stops at UPLOAD_FAILED or ATTACH_FAILED. Nothing is retried and
// an uploaded file is never rolled back, so attachment is at-least-once: an
// ATTACH_FAILED attempt leaves its file key orphaned in the store's staging
// area. Two concurrent appends to the same record race on the field value and
// the last update wins.
package attach

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"kinbridge/internal/formdata"
	"kinbridge/internal/kintone"
)

var (
	// ErrUploadFailed marks a failure of the file upload step.
	ErrUploadFailed = errors.New("upload failed")
	// ErrRecordUpdateFailed marks a failure while attaching an uploaded file.
	ErrRecordUpdateFailed = errors.New("record update failed")
)

// Backend names.
const (
	BackendDirect  = "direct"
	BackendWebhook = "webhook"
)

// RecordStore is the subset of the record store client used here.
type RecordStore interface {
	GetRecord(ctx context.Context, app kintone.App, id string) (kintone.Record, error)
	UpdateRecord(ctx context.Context, app kintone.App, id string, updates kintone.Updates) error
	UploadFile(ctx context.Context, app kintone.App, part formdata.Part) (string, error)
}

// Options configures where and how files are attached.
type Options struct {
	App         kintone.App
	FieldCode   string
	Mode        Mode
	StatusField string
	StatusValue string
}

// Attacher runs upload-and-attach requests.
type Attacher struct {
	store   RecordStore
	journal Journal
	logger  *slog.Logger
	opts    Options
}

// New creates an Attacher. A nil journal disables journaling.
func New(store RecordStore, journal Journal, opts Options, logger *slog.Logger) *Attacher {
	if logger == nil {
		logger = slog.Default()
	}
	if journal == nil {
		journal = nopJournal{}
	}
	if opts.Mode == "" {
		opts.Mode = ModeAppend
	}
	return &Attacher{store: store, journal: journal, logger: logger, opts: opts}
}

// AttachInput is one file destined for one record.
type AttachInput struct {
	RecordID string
	Part     formdata.Part
}

// Result describes a completed attach. Upstream holds a delegated backend's
// reply verbatim.
type Result struct {
	AttemptID string            `json:"attemptId"`
	RecordID  string            `json:"recordId"`
	FieldCode string            `json:"fileField"`
	Mode      Mode              `json:"mode"`
	FileKey   string            `json:"fileKey"`
	Files     []kintone.FileRef `json:"-"`
	State     State             `json:"state"`
	Backend   string            `json:"backend"`
	Upstream  json.RawMessage   `json:"upstream,omitempty"`
}

// Backend attaches one file to one record. Attacher is the direct
// implementation; a deployment may delegate to an automation webhook instead.
type Backend interface {
	Attach(ctx context.Context, in AttachInput) (Result, error)
}

// ReconcileInput carries everything needed to rewrite one file field.
type ReconcileInput struct {
	RecordID  string
	FieldCode string
	Mode      Mode
	Existing  []kintone.FileRef
	NewRef    kintone.FileRef
	// Status holds extra field values written in the same update.
	Status map[string]any
}

// Attach uploads in.Part and attaches the resulting file key to the record.
func (a *Attacher) Attach(ctx context.Context, in AttachInput) (Result, error) {
	recordID := strings.TrimSpace(in.RecordID)
	if recordID == "" {
		return Result{}, fmt.Errorf("record id is required")
	}

	result := Result{
		AttemptID: uuid.NewString(),
		RecordID:  recordID,
		FieldCode: a.opts.FieldCode,
		Mode:      a.opts.Mode,
		State:     StateReceived,
		Backend:   BackendDirect,
	}
	logger := a.logger.With("attempt_id", result.AttemptID, "record_id", recordID, "mode", string(result.Mode))

	a.record(logger, func() error {
		return a.journal.Begin(ctx, Attempt{
			ID:       result.AttemptID,
			RecordID: recordID,
			FileName: formdata.Sanitize(in.Part.Filename),
			Mode:     string(result.Mode),
			Backend:  BackendDirect,
			State:    StateReceived,
		})
	})

	a.transition(ctx, logger, &result, StateUploading, "")
	fileKey, err := a.store.UploadFile(ctx, a.opts.App, in.Part)
	if err != nil {
		a.transition(ctx, logger, &result, StateUploadFailed, err.Error())
		return result, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	result.FileKey = fileKey
	a.transition(ctx, logger, &result, StateUploaded, "")

	a.transition(ctx, logger, &result, StateReconciling, "")
	var existing []kintone.FileRef
	if result.Mode == ModeAppend {
		existing, err = a.existingFiles(ctx, recordID)
		if err != nil {
			err = fmt.Errorf("%w: read existing files: %w", ErrRecordUpdateFailed, err)
			a.transition(ctx, logger, &result, StateAttachFailed, err.Error())
			return result, err
		}
	}

	var status map[string]any
	if a.opts.StatusField != "" {
		status = map[string]any{a.opts.StatusField: a.opts.StatusValue}
	}
	files, err := a.Reconcile(ctx, ReconcileInput{
		RecordID:  recordID,
		FieldCode: a.opts.FieldCode,
		Mode:      result.Mode,
		Existing:  existing,
		NewRef:    kintone.FileRef{FileKey: fileKey},
		Status:    status,
	})
	if err != nil {
		a.transition(ctx, logger, &result, StateAttachFailed, err.Error())
		return result, err
	}

	result.Files = files
	a.transition(ctx, logger, &result, StateAttached, "")
	logger.Info("file attached", "file_key", fileKey, "files", len(files))
	return result, nil
}

// Reconcile computes the field value for in.Mode and writes it, along with any
// status fields, in one full-field update.
func (a *Attacher) Reconcile(ctx context.Context, in ReconcileInput) ([]kintone.FileRef, error) {
	if strings.TrimSpace(in.NewRef.FileKey) == "" {
		return nil, fmt.Errorf("%w: new file key is required", ErrRecordUpdateFailed)
	}
	fieldCode := in.FieldCode
	if fieldCode == "" {
		fieldCode = a.opts.FieldCode
	}

	files := Merge(in.Mode, in.Existing, in.NewRef)
	updates := kintone.Updates{}.Set(fieldCode, files)
	for code, value := range in.Status {
		if code == fieldCode {
			continue
		}
		updates.Set(code, value)
	}

	if err := a.store.UpdateRecord(ctx, a.opts.App, in.RecordID, updates); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecordUpdateFailed, err)
	}
	return files, nil
}

func (a *Attacher) existingFiles(ctx context.Context, recordID string) ([]kintone.FileRef, error) {
	record, err := a.store.GetRecord(ctx, a.opts.App, recordID)
	if err != nil {
		return nil, err
	}
	files, ok := record.Files(a.opts.FieldCode)
	if !ok {
		return nil, nil
	}
	return files, nil
}

func (a *Attacher) transition(ctx context.Context, logger *slog.Logger, result *Result, state State, errMsg string) {
	result.State = state
	if state.Failed() {
		logger.Error("attach attempt failed", "state", string(state), "file_key", result.FileKey, "error", errMsg)
	} else {
		logger.Debug("attach attempt transition", "state", string(state))
	}
	a.record(logger, func() error {
		return a.journal.Transition(ctx, result.AttemptID, state, result.FileKey, errMsg)
	})
}

func (a *Attacher) record(logger *slog.Logger, fn func() error) {
	if err := fn(); err != nil {
		logger.Warn("attach journal write failed", "error", err)
	}
}
