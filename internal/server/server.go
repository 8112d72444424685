package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"kinbridge/internal/attach"
	"kinbridge/internal/config"
	"kinbridge/internal/journal"
	"kinbridge/internal/kintone"
	"kinbridge/internal/notify"
)

const (
	allowRemoteEnvKey = "KINBRIDGE_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 60 * time.Second
	writeTimeout      = 90 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// RecordStore is the record store surface used by the handlers.
type RecordStore interface {
	QueryRecords(ctx context.Context, app kintone.App, query string) ([]kintone.Record, error)
	GetRecord(ctx context.Context, app kintone.App, id string) (kintone.Record, error)
	UpdateRecord(ctx context.Context, app kintone.App, id string, updates kintone.Updates) error
	RecordURL(app kintone.App, id string) string
}

// ChatNotifier posts chat messages.
type ChatNotifier interface {
	Send(ctx context.Context, msg notify.Message) error
}

// PushNotifier pushes text messages.
type PushNotifier interface {
	Push(ctx context.Context, text string) error
}

// AttemptLister reads the attach journal.
type AttemptLister interface {
	List(ctx context.Context, filter journal.Filter) ([]attach.Attempt, error)
}

// Options wires a Server. Push and Attempts may be nil.
type Options struct {
	Addr     string
	Config   *config.Config
	FieldMap config.FieldMap
	Records  RecordStore
	Attacher attach.Backend
	Chat     ChatNotifier
	Push     PushNotifier
	Attempts AttemptLister
	Logger   *slog.Logger
}

// Server wraps HTTP handlers for the bridge API.
type Server struct {
	addr      string
	cfg       *config.Config
	directory *Directory
	attacher  attach.Backend
	chat      ChatNotifier
	push      PushNotifier
	attempts  AttemptLister
	tokenHash string
	logger    *slog.Logger
}

// New creates a new server instance.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := opts.Config
	if cfg == nil {
		defaults := config.Default()
		cfg = &defaults
	}
	fields := opts.FieldMap
	if fields == (config.FieldMap{}) {
		fields = config.DefaultFieldMap()
	}

	return &Server{
		addr:      opts.Addr,
		cfg:       cfg,
		directory: NewDirectory(opts.Records, cfg, fields),
		attacher:  opts.Attacher,
		chat:      opts.Chat,
		push:      opts.Push,
		attempts:  opts.Attempts,
		tokenHash: strings.TrimSpace(cfg.APITokenHash),
		logger:    logger,
	}
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.withAuth(s.routes()))
}

// ListenAndServe starts the HTTP server and shuts it down when ctx ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.log().Info("starting server", "addr", s.addr, "attach_backend", s.cfg.AttachBackend, "auth", s.tokenHash != "")
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.log().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ListenAddr returns the host:port to bind for a listen address or URL.
// Non-loopback hosts require KINBRIDGE_ALLOW_REMOTE=true.
func ListenAddr(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("listen address is required")
	}
	if u, err := url.Parse(addr); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}
	return addr, nil
}

// isAllowedListenHost treats an empty host (all interfaces) as remote.
func isAllowedListenHost(host string) bool {
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
