package api

import (
	"encoding/json"

	"kinbridge/internal/attach"
)

// ErrorResponse is a generic JSON error wrapper.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ResolveResponse maps a user id to its company.
type ResolveResponse struct {
	CompanyID string `json:"companyId"`
}

// SearchItem is one row of a record's item table.
type SearchItem struct {
	ItemName  string   `json:"itemName"`
	Qty       float64  `json:"qty"`
	DesignLot []string `json:"designLot"`
}

// SearchRecord is one inbound record awaiting an invoice.
type SearchRecord struct {
	RecordID  string       `json:"recordId"`
	BaseDate  string       `json:"baseDate"`
	ItemTable []SearchItem `json:"itemTable"`
}

// SearchResponse is returned by GET /v1/records/search.
type SearchResponse struct {
	Records   []SearchRecord `json:"records"`
	CompanyID string         `json:"companyId"`
}

// HistoryItem is one inbound record in a company's history.
type HistoryItem struct {
	RecordID    string  `json:"recordId"`
	CreatedAt   string  `json:"createdAt"`
	PlannedDate string  `json:"plannedDate"`
	SlipNo      string  `json:"slipNo"`
	Status      string  `json:"status"`
	QtySum      float64 `json:"qtySum"`
	IsCanceled  bool    `json:"isCanceled"`
}

// HistoryResponse is returned by GET /v1/history.
type HistoryResponse struct {
	Items []HistoryItem `json:"items"`
}

// CancelRequest marks one history record as canceled on behalf of a user.
type CancelRequest struct {
	RecordID string `json:"recordId"`
	UID      string `json:"uid"`
}

// CancelResponse is returned by POST /v1/history/cancel.
type CancelResponse struct {
	Success bool `json:"success"`
}

// AttachResponse is returned by POST /v1/invoices/attach.
type AttachResponse struct {
	OK        bool            `json:"ok"`
	RecordID  string          `json:"recordId"`
	FileField string          `json:"fileField"`
	Mode      string          `json:"mode"`
	FileKey   string          `json:"fileKey,omitempty"`
	Backend   string          `json:"backend"`
	AttemptID string          `json:"attemptId,omitempty"`
	Upstream  json.RawMessage `json:"upstream,omitempty"`
}

// NotifyRequest announces an uploaded invoice.
type NotifyRequest struct {
	RecordID string `json:"recordId"`
	FileName string `json:"fileName"`
	UserName string `json:"userName"`
}

// OKResponse is a bare acknowledgement.
type OKResponse struct {
	OK bool `json:"ok"`
}

// AttemptsResponse is returned by GET /v1/attach/attempts.
type AttemptsResponse struct {
	Attempts []attach.Attempt `json:"attempts"`
}
