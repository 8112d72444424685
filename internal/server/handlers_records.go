package server

import (
	"net/http"

	"kinbridge/internal/api"
	"kinbridge/internal/notify"
)

func (s *Server) handleResolveCompany(w http.ResponseWriter, r *http.Request) {
	uid, err := requireParam("uid", r.URL.Query().Get("uid"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	companyID, err := s.directory.ResolveCompany(r.Context(), uid)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ResolveResponse{CompanyID: companyID})
}

func (s *Server) handleSearchRecords(w http.ResponseWriter, r *http.Request) {
	uid, err := requireParam("uid", r.URL.Query().Get("uid"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	resp, err := s.directory.Search(r.Context(), uid)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	companyID, err := requireParam("companyId", r.URL.Query().Get("companyId"))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	items, err := s.directory.History(r.Context(), companyID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryResponse{Items: items})
}

func (s *Server) handleCancelHistory(w http.ResponseWriter, r *http.Request) {
	var req api.CancelRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	recordID, err := requireRecordID(req.RecordID)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	uid, err := requireParam("uid", req.UID)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	companyID, err := s.directory.Cancel(r.Context(), recordID, uid)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	// The record is already canceled; a failed push only gets logged.
	if s.push != nil {
		if err := s.push.Push(r.Context(), notify.CancelRequestText(companyID, recordID, uid)); err != nil {
			s.log().Warn("cancel push failed", "record_id", recordID, "company_id", companyID, "request_id", requestIDFromContext(r.Context()), "error", err)
		}
	}
	s.writeJSON(w, http.StatusOK, api.CancelResponse{Success: true})
}
