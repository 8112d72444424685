package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"kinbridge/internal/api"
	"kinbridge/internal/attach"
	"kinbridge/internal/config"
	"kinbridge/internal/journal"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *Server) handleListAttempts(w http.ResponseWriter, r *http.Request) {
	if s.attempts == nil {
		s.writeServiceError(w, r, &config.MissingError{Keys: []string{"journal_path"}})
		return
	}

	filter, err := parseAttemptFilter(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	attempts, err := s.attempts.List(r.Context(), filter)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusInternalServerError, makeAPIError(http.StatusInternalServerError, "internal", ErrCodeJournalFailure, err))
		return
	}
	if attempts == nil {
		attempts = []attach.Attempt{}
	}
	s.writeJSON(w, http.StatusOK, api.AttemptsResponse{Attempts: attempts})
}

func parseAttemptFilter(r *http.Request) (journal.Filter, error) {
	query := r.URL.Query()
	filter := journal.Filter{RecordID: strings.TrimSpace(query.Get("recordId"))}

	if raw := strings.TrimSpace(query.Get("state")); raw != "" {
		state, ok := attach.ParseState(raw)
		if !ok {
			return journal.Filter{}, badRequestCode(fmt.Errorf("invalid state: %s", raw), ErrCodeInvalidQuery)
		}
		filter.State = state
	}
	if filter.RecordID != "" && !validateRecordID(filter.RecordID) {
		return journal.Filter{}, badRequestCode(fmt.Errorf("invalid recordId"), ErrCodeInvalidRecordID)
	}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return journal.Filter{}, badRequestCode(fmt.Errorf("invalid limit"), ErrCodeInvalidQuery)
		}
		filter.Limit = limit
	}
	return filter, nil
}
