package server

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"kinbridge/internal/api"
	"kinbridge/internal/attach"
	"kinbridge/internal/config"
	"kinbridge/internal/formdata"
	"kinbridge/internal/notify"
)

const (
	invoiceFileField     = "file"
	invoiceRecordIDField = "recordId"
	invoiceOrigNameField = "origName"
)

func (s *Server) handleAttachInvoice(w http.ResponseWriter, r *http.Request) {
	if s.attacher == nil {
		s.writeServiceError(w, r, &config.MissingError{Keys: []string{"kintone.inbound_app_id"}})
		return
	}

	maxBody, maxMemory := s.uploadLimits()
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	recordID, err := requireRecordID(r.FormValue(invoiceRecordIDField))
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	file, header, err := r.FormFile(invoiceFileField)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired))
		return
	}
	defer file.Close()

	buffered := bufio.NewReader(file)
	peek, _ := buffered.Peek(512)
	contentType := firstNonEmpty(header.Header.Get("Content-Type"), http.DetectContentType(peek))
	data, err := io.ReadAll(buffered)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, classifyMultipartError(err))
		return
	}

	part := formdata.Part{
		Filename:    firstNonEmpty(r.FormValue(invoiceOrigNameField), header.Filename),
		ContentType: contentType,
		Data:        data,
	}
	result, err := s.attacher.Attach(r.Context(), attach.AttachInput{RecordID: recordID, Part: part})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, api.AttachResponse{
		OK:        true,
		RecordID:  result.RecordID,
		FileField: result.FieldCode,
		Mode:      string(result.Mode),
		FileKey:   result.FileKey,
		Backend:   result.Backend,
		AttemptID: result.AttemptID,
		Upstream:  result.Upstream,
	})
}

func (s *Server) handleNotifyInvoice(w http.ResponseWriter, r *http.Request) {
	var req api.NotifyRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}
	recordID, err := requireRecordID(req.RecordID)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	fileName, err := requireParam("fileName", req.FileName)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}
	if s.chat == nil {
		s.writeServiceError(w, r, &config.MissingError{Keys: []string{"slack.webhook_url"}})
		return
	}

	upload, err := s.directory.InvoiceUpload(r.Context(), recordID, fileName, strings.TrimSpace(req.UserName))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.chat.Send(r.Context(), notify.InvoiceUploadMessage(upload)); err != nil {
		s.writeServiceError(w, r, fmt.Errorf("notify invoice upload: %w", err))
		return
	}
	s.writeJSON(w, http.StatusOK, api.OKResponse{OK: true})
}

func (s *Server) uploadLimits() (maxBody, maxMemory int64) {
	maxBody = s.cfg.Attachments.MaxUploadBytes
	if maxBody <= 0 {
		maxBody = config.DefaultAttachmentMaxUploadBytes
	}
	maxMemory = s.cfg.Attachments.MultipartMaxMemory
	if maxMemory <= 0 {
		maxMemory = config.DefaultAttachmentMultipartMaxMemory
	}
	return maxBody, maxMemory
}
