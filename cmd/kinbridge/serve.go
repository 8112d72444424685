package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kinbridge/internal/attach"
	"kinbridge/internal/automation"
	"kinbridge/internal/config"
	"kinbridge/internal/journal"
	"kinbridge/internal/kintone"
	"kinbridge/internal/notify"
	"kinbridge/internal/server"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the kinbridge API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg == nil {
				return fmt.Errorf("config not initialized")
			}

			logger := slog.Default().With("component", "server")

			addr, err := server.ListenAddr(cfg.ListenAddr)
			if err != nil {
				return err
			}

			fields, err := config.LoadFieldMap(cfg.FieldMapPath)
			if err != nil {
				return err
			}

			var (
				attempts   server.AttemptLister
				attachJour attach.Journal
			)
			if cfg.JournalPath != "" {
				logger.Info("opening attach journal", "path", cfg.JournalPath)
				j, err := journal.Open(cfg.JournalPath)
				if err != nil {
					return err
				}
				defer j.Close()
				attempts, attachJour = j, j
			}

			records := kintone.NewClient(cfg.Kintone.BaseURL, cfg.Timeout())
			backend, err := newAttachBackend(cfg, records, attachJour, logger)
			if err != nil {
				return err
			}

			opts := server.Options{
				Addr:     addr,
				Config:   cfg,
				FieldMap: fields,
				Records:  records,
				Attacher: backend,
				Attempts: attempts,
				Logger:   logger,
			}
			if cfg.Slack.WebhookURL != "" {
				opts.Chat = notify.NewSlack(cfg.Slack.WebhookURL, cfg.Timeout())
			} else {
				logger.Warn("slack.webhook_url not set; invoice notifications are disabled")
			}
			if cfg.LINEEnabled() {
				opts.Push = notify.NewLINE(notify.LINEOptions{
					ChannelAccessToken: cfg.LINE.ChannelAccessToken,
					TargetID:           cfg.LINE.TargetID,
					PushURL:            cfg.LINE.PushURL,
					Timeout:            cfg.Timeout(),
				})
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return server.New(opts).ListenAndServe(ctx)
		},
	}
}

// newAttachBackend selects the attach path. A deployment missing the
// settings of its backend still starts; attach requests then fail with a
// configuration error naming the missing keys.
func newAttachBackend(cfg *config.Config, records *kintone.Client, j attach.Journal, logger *slog.Logger) (attach.Backend, error) {
	mode := attach.ModeFromAppend(cfg.Attachments.Append)
	switch cfg.AttachBackend {
	case config.BackendWebhook:
		if err := cfg.RequireAutomation(); err != nil {
			logger.Warn("automation webhook not configured", "error", err)
			return unconfiguredBackend{err: err}, nil
		}
		return automation.New(automation.Options{
			WebhookURL:  cfg.Automation.WebhookURL,
			BearerToken: cfg.Automation.BearerToken,
			FieldCode:   cfg.Attachments.Field,
			Mode:        mode,
			Timeout:     cfg.Timeout(),
		}, j, logger.With("backend", attach.BackendWebhook)), nil
	case config.BackendDirect, "":
		if err := cfg.RequireInboundApp(); err != nil {
			logger.Warn("inbound app not configured", "error", err)
			return unconfiguredBackend{err: err}, nil
		}
		return attach.New(records, j, attach.Options{
			App:         kintone.App{ID: cfg.Kintone.InboundAppID, Token: cfg.Kintone.InboundAPIToken},
			FieldCode:   cfg.Attachments.Field,
			Mode:        mode,
			StatusField: cfg.Attachments.UploadedField,
			StatusValue: cfg.Attachments.UploadedValue,
		}, logger.With("backend", attach.BackendDirect)), nil
	default:
		return nil, fmt.Errorf("unknown attach_backend %q", cfg.AttachBackend)
	}
}

type unconfiguredBackend struct {
	err error
}

func (b unconfiguredBackend) Attach(context.Context, attach.AttachInput) (attach.Result, error) {
	return attach.Result{}, b.err
}
