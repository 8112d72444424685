package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /health", s.handleHealth)

	// Company and record lookups.
	mux.HandleFunc("GET /v1/companies/resolve", s.handleResolveCompany)
	mux.HandleFunc("GET /v1/records/search", s.handleSearchRecords)

	// Inbound history.
	mux.HandleFunc("GET /v1/history", s.handleHistory)
	mux.HandleFunc("POST /v1/history/cancel", s.handleCancelHistory)

	// Invoices.
	mux.HandleFunc("POST /v1/invoices/attach", s.handleAttachInvoice)
	mux.HandleFunc("POST /v1/invoices/notify", s.handleNotifyInvoice)

	// Attach journal.
	mux.HandleFunc("GET /v1/attach/attempts", s.handleListAttempts)

	return mux
}
