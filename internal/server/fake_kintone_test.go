package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"kinbridge/internal/attach"
	"kinbridge/internal/config"
	"kinbridge/internal/kintone"
	"kinbridge/internal/notify"
)

type updateCall struct {
	App    string                     `json:"app"`
	ID     string                     `json:"id"`
	Record map[string]json.RawMessage `json:"record"`
}

type uploadCall struct {
	Filename    string
	ContentType string
	Data        string
}

// fakeKintone serves the record store endpoints used by the handlers and
// records every call.
type fakeKintone struct {
	t *testing.T

	mu          sync.Mutex
	calls       int
	queries     []string
	updates     []updateCall
	uploads     []uploadCall
	records     map[string][]map[string]any // app id -> query result
	record      map[string]any              // GET record.json
	getStatus   int
	queryStatus int
	upStatus    int
	fileKey     string
}

func newFakeKintone(t *testing.T) (*fakeKintone, *httptest.Server) {
	t.Helper()
	fake := &fakeKintone{t: t, records: map[string][]map[string]any{}, fileKey: "new"}
	srv := httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(srv.Close)
	return fake, srv
}

func (f *fakeKintone) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/k/v1/records.json" && r.Method == http.MethodGet:
		f.queries = append(f.queries, r.URL.Query().Get("query"))
		if f.queryStatus != 0 {
			w.WriteHeader(f.queryStatus)
			_, _ = io.WriteString(w, `{"message":"maintenance"}`)
			return
		}
		records := f.records[r.URL.Query().Get("app")]
		if records == nil {
			records = []map[string]any{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"records": records})
	case r.URL.Path == "/k/v1/record.json" && r.Method == http.MethodGet:
		if f.getStatus != 0 {
			w.WriteHeader(f.getStatus)
			_, _ = io.WriteString(w, `{"code":"GAIA_RE01","message":"missing"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"record": f.record})
	case r.URL.Path == "/k/v1/record.json" && r.Method == http.MethodPut:
		var call updateCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			f.t.Errorf("decode update: %v", err)
		}
		f.updates = append(f.updates, call)
		_, _ = io.WriteString(w, `{"revision":"2"}`)
	case r.URL.Path == "/k/v1/file.json" && r.Method == http.MethodPost:
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			f.t.Errorf("parse upload: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			f.t.Errorf("upload file part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		_ = file.Close()
		f.uploads = append(f.uploads, uploadCall{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        string(data),
		})
		if f.upStatus != 0 {
			w.WriteHeader(f.upStatus)
			_, _ = io.WriteString(w, `{"message":"upload rejected"}`)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"fileKey": f.fileKey})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeKintone) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func field(value any) map[string]any {
	return map[string]any{"value": value}
}

type fakeChat struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (c *fakeChat) Send(_ context.Context, msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return c.err
}

type fakePush struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (p *fakePush) Push(_ context.Context, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
	return p.err
}

func testConfig(baseURL string) *config.Config {
	cfg := config.Default()
	cfg.Kintone = config.KintoneConfig{
		BaseURL:         baseURL,
		UIDAppID:        "1",
		UIDAPIToken:     "uid-token",
		InboundAppID:    "12",
		InboundAPIToken: "inbound-token",
	}
	return &cfg
}

type testServer struct {
	srv     *Server
	fake    *fakeKintone
	chat    *fakeChat
	push    *fakePush
	handler http.Handler
}

func newTestServer(t *testing.T, mutate func(*Options)) *testServer {
	t.Helper()
	fake, upstream := newFakeKintone(t)
	cfg := testConfig(upstream.URL)
	client := kintone.NewClient(cfg.Kintone.BaseURL, cfg.Timeout())
	chat := &fakeChat{}
	push := &fakePush{}

	opts := Options{
		Config:  cfg,
		Records: client,
		Attacher: attach.New(client, nil, attach.Options{
			App:         kintone.App{ID: cfg.Kintone.InboundAppID, Token: cfg.Kintone.InboundAPIToken},
			FieldCode:   cfg.Attachments.Field,
			Mode:        attach.ModeFromAppend(cfg.Attachments.Append),
			StatusField: cfg.Attachments.UploadedField,
			StatusValue: cfg.Attachments.UploadedValue,
		}, nil),
		Chat: chat,
		Push: push,
	}
	if mutate != nil {
		mutate(&opts)
	}
	srv := New(opts)
	return &testServer{srv: srv, fake: fake, chat: chat, push: push, handler: srv.Handler()}
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
