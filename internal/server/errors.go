package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"kinbridge/internal/api"
	"kinbridge/internal/attach"
	"kinbridge/internal/automation"
	"kinbridge/internal/config"
	"kinbridge/internal/kintone"
	"kinbridge/internal/notify"
)

const defaultJSONMaxBody = 1 << 20 // 1 MiB

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, status int, err error) {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	code := errorCode(status, err)
	numericCode := errorNumericCode(status, err)
	message := err.Error()

	fields := []any{"status", status, "code", code, "error_code", numericCode, "error", err}
	if r != nil {
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
		if id := requestIDFromContext(r.Context()); id != "" {
			fields = append(fields, "request_id", id)
		}
	}

	switch {
	case status >= 500:
		s.log().Error("request error", fields...)
		if !errorExposed(err) {
			message = "internal error"
		}
	case status >= 400 && shouldWarnClientError(status):
		s.log().Warn("request rejected", fields...)
	case status >= 400:
		s.log().Debug("request rejected", fields...)
	}

	s.writeJSON(w, status, api.ErrorResponse{Error: message, Code: code, ErrorCode: numericCode})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

// apiError carries the HTTP mapping of a failure. Messages of exposed 5xx
// errors reach the caller; all other 5xx messages are replaced.
type apiError struct {
	status  int
	code    string
	errCode int
	expose  bool
	err     error
}

func (e apiError) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error {
	return e.err
}

func makeAPIError(status int, code string, errCode int, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	var existing apiError
	if errors.As(err, &existing) {
		if existing.status != 0 {
			return existing
		}
	}

	return apiError{status: status, code: code, errCode: errCode, err: err}
}

func exposed(err error) error {
	var apiErr apiError
	if errors.As(err, &apiErr) {
		apiErr.expose = true
		return apiErr
	}
	return err
}

func badRequest(err error) error {
	return badRequestCode(err, ErrCodeInvalidArgument)
}

func badRequestCode(err error, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, err)
}

func notFoundCode(err error, code int) error {
	return makeAPIError(http.StatusNotFound, "not_found", code, err)
}

func unauthorized(err error) error {
	return makeAPIError(http.StatusUnauthorized, "unauthorized", ErrCodeUnauthorized, err)
}

func internalError(err error) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeInternal, err)
}

func configurationMissing(err error) error {
	return exposed(makeAPIError(http.StatusInternalServerError, "configuration_missing", ErrCodeConfigurationMissing, err))
}

func upstreamUnavailable(err error) error {
	return exposed(makeAPIError(http.StatusInternalServerError, "upstream_unavailable", ErrCodeUpstreamUnavailable, err))
}

func uploadFailed(err error) error {
	return exposed(makeAPIError(http.StatusInternalServerError, "upload_failed", ErrCodeUploadFailed, err))
}

func attachFailed(err error) error {
	return exposed(makeAPIError(http.StatusInternalServerError, "attach_failed", ErrCodeAttachFailed, err))
}

// classifyError maps domain and upstream failures to their HTTP form.
// Errors already carrying a mapping pass through.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.status != 0 {
		return apiErr
	}

	switch {
	case errors.Is(err, config.ErrMissing), errors.Is(err, notify.ErrNotConfigured):
		return configurationMissing(err)
	case errors.Is(err, attach.ErrUploadFailed):
		return uploadFailed(err)
	case errors.Is(err, attach.ErrRecordUpdateFailed):
		return attachFailed(err)
	case errors.Is(err, kintone.ErrNotFound):
		return notFoundCode(fmt.Errorf("not found"), ErrCodeRecordNotFound)
	case isUpstreamError(err):
		return upstreamUnavailable(err)
	default:
		return internalError(err)
	}
}

func isUpstreamError(err error) bool {
	var kintoneErr *kintone.ResponseError
	var notifyErr *notify.ResponseError
	var automationErr *automation.ResponseError
	var netErr net.Error
	switch {
	case errors.As(err, &kintoneErr), errors.As(err, &notifyErr), errors.As(err, &automationErr):
		return true
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return true
	default:
		return false
	}
}

func errorExposed(err error) bool {
	var apiErr apiError
	return errors.As(err, &apiErr) && apiErr.expose
}

func httpStatusFromError(err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) {
		return apiErr.status
	}
	return http.StatusInternalServerError
}

func errorCode(status int, err error) string {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.code != "" {
		return apiErr.code
	}
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusInternalServerError:
		return "internal"
	default:
		return ""
	}
}

func errorNumericCode(status int, err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.errCode > 0 {
		return apiErr.errCode
	}
	return defaultErrorCodeByStatus(status)
}

func shouldWarnClientError(status int) bool {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
		return true
	default:
		return false
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, defaultJSONMaxBody)
	return json.NewDecoder(r.Body).Decode(dst)
}

func classifyDecodeJSONError(err error) error {
	if err == nil {
		return nil
	}

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return badRequestCode(fmt.Errorf("invalid JSON payload"), ErrCodeInvalidJSON)
	}

	return badRequestCode(err, ErrCodeInvalidJSON)
}

func classifyMultipartError(err error) error {
	if err == nil {
		return nil
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) || strings.Contains(strings.ToLower(err.Error()), "request body too large") {
		return badRequestCode(fmt.Errorf("request body too large"), ErrCodeRequestTooLarge)
	}
	return badRequestCode(err, ErrCodeInvalidMultipart)
}

func (s *Server) decodeJSONReq(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyDecodeJSONError(err))
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	err = classifyError(err)
	s.writeErrorReq(w, r, httpStatusFromError(err), err)
}
