// Package config loads kinbridge settings from TOML files and environment
// overrides, and the deployment field map from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultListenAddr    = "127.0.0.1:7480"
	DefaultAPIURL        = "http://127.0.0.1:7480"
	DefaultLogLevel      = "info"
	DefaultHTTPTimeout   = 15 * time.Second
	DefaultAttachBackend = BackendDirect

	DefaultAttachmentField              = "invoiceFile"
	DefaultAttachmentAppend             = true
	DefaultAttachmentUploadedField      = "uploadFlag"
	DefaultAttachmentUploadedValue      = "済"
	DefaultAttachmentMaxUploadBytes     = int64(50 * 1024 * 1024)
	DefaultAttachmentMultipartMaxMemory = int64(8 * 1024 * 1024)

	BackendDirect  = "direct"
	BackendWebhook = "webhook"

	FileName = ".kinbridge.toml"

	configDirEnvKey          = "KINBRIDGE_CONFIG_DIR"
	trustProjectConfigEnvKey = "KINBRIDGE_TRUST_PROJECT_CONFIG"
)

// ErrMissing marks a required setting that is not configured.
var ErrMissing = errors.New("configuration missing")

// MissingError names the unset keys needed by one operation.
type MissingError struct {
	Keys []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissing, strings.Join(e.Keys, ", "))
}

// Is makes errors.Is(err, ErrMissing) match.
func (e *MissingError) Is(target error) bool {
	return target == ErrMissing
}

// KintoneConfig holds record store hosts, apps and tokens.
type KintoneConfig struct {
	BaseURL         string `toml:"base_url"`
	UIDAppID        string `toml:"uid_app_id"`
	UIDAPIToken     string `toml:"uid_api_token"`
	InboundAppID    string `toml:"inbound_app_id"`
	InboundAPIToken string `toml:"inbound_api_token"`
}

// AttachmentConfig defines how uploaded files are attached to records.
type AttachmentConfig struct {
	Field              string `toml:"field"`
	Append             bool   `toml:"append"`
	UploadedField      string `toml:"uploaded_field"`
	UploadedValue      string `toml:"uploaded_value"`
	MaxUploadBytes     int64  `toml:"max_upload_bytes"`
	MultipartMaxMemory int64  `toml:"multipart_max_memory"`
}

// SlackConfig holds the chat webhook.
type SlackConfig struct {
	WebhookURL string `toml:"webhook_url"`
}

// LINEConfig holds the messaging push credentials.
type LINEConfig struct {
	ChannelAccessToken string `toml:"channel_access_token"`
	TargetID           string `toml:"target_id"`
	PushURL            string `toml:"push_url"`
}

// AutomationConfig holds the delegated attach webhook.
type AutomationConfig struct {
	WebhookURL  string `toml:"webhook_url"`
	BearerToken string `toml:"bearer_token"`
}

// Config defines runtime configuration for kinbridge.
type Config struct {
	ListenAddr    string `toml:"listen_addr"`
	APIURL        string `toml:"api_url"`
	LogLevel      string `toml:"log_level"`
	HTTPTimeout   string `toml:"http_timeout"`
	AttachBackend string `toml:"attach_backend"`
	JournalPath   string `toml:"journal_path"`
	FieldMapPath  string `toml:"field_map_path"`
	APITokenHash  string `toml:"api_token_hash"`

	Kintone     KintoneConfig    `toml:"kintone"`
	Attachments AttachmentConfig `toml:"attachments"`
	Slack       SlackConfig      `toml:"slack"`
	LINE        LINEConfig       `toml:"line"`
	Automation  AutomationConfig `toml:"automation"`

	TrustedProjectConfigPath string `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		ListenAddr:    DefaultListenAddr,
		APIURL:        DefaultAPIURL,
		LogLevel:      DefaultLogLevel,
		HTTPTimeout:   DefaultHTTPTimeout.String(),
		AttachBackend: DefaultAttachBackend,
		Attachments: AttachmentConfig{
			Field:              DefaultAttachmentField,
			Append:             DefaultAttachmentAppend,
			UploadedField:      DefaultAttachmentUploadedField,
			UploadedValue:      DefaultAttachmentUploadedValue,
			MaxUploadBytes:     DefaultAttachmentMaxUploadBytes,
			MultipartMaxMemory: DefaultAttachmentMultipartMaxMemory,
		},
	}
}

// Timeout returns the outbound HTTP timeout. Unparseable or non-positive
// values fall back to DefaultHTTPTimeout.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.HTTPTimeout))
	if err != nil || d <= 0 {
		return DefaultHTTPTimeout
	}
	return d
}

// Validate checks values that cannot be defaulted silently.
func (c *Config) Validate() error {
	switch c.AttachBackend {
	case BackendDirect, BackendWebhook:
	default:
		return fmt.Errorf("attach_backend must be %q or %q, got %q", BackendDirect, BackendWebhook, c.AttachBackend)
	}
	if raw := strings.TrimSpace(c.HTTPTimeout); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return fmt.Errorf("http_timeout must be a positive duration, got %q", c.HTTPTimeout)
		}
	}
	return nil
}

// RequireUIDApp checks the settings needed to query the uid master app.
func (c *Config) RequireUIDApp() error {
	return require(
		setting{"kintone.base_url", c.Kintone.BaseURL},
		setting{"kintone.uid_app_id", c.Kintone.UIDAppID},
		setting{"kintone.uid_api_token", c.Kintone.UIDAPIToken},
	)
}

// RequireInboundApp checks the settings needed to read and write inbound records.
func (c *Config) RequireInboundApp() error {
	return require(
		setting{"kintone.base_url", c.Kintone.BaseURL},
		setting{"kintone.inbound_app_id", c.Kintone.InboundAppID},
		setting{"kintone.inbound_api_token", c.Kintone.InboundAPIToken},
	)
}

// RequireSlack checks the chat webhook setting.
func (c *Config) RequireSlack() error {
	return require(setting{"slack.webhook_url", c.Slack.WebhookURL})
}

// RequireAutomation checks the automation webhook setting.
func (c *Config) RequireAutomation() error {
	return require(setting{"automation.webhook_url", c.Automation.WebhookURL})
}

// LINEEnabled reports whether cancel requests are pushed to the messaging API.
func (c *Config) LINEEnabled() bool {
	return strings.TrimSpace(c.LINE.ChannelAccessToken) != "" && strings.TrimSpace(c.LINE.TargetID) != ""
}

type setting struct {
	key   string
	value string
}

func require(settings ...setting) error {
	var missing []string
	for _, s := range settings {
		if strings.TrimSpace(s.value) == "" {
			missing = append(missing, s.key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &MissingError{Keys: missing}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, FileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, FileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, FileName), nil
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, FileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, FileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	cfg.applyEnv()
	cfg.normalizeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var stringEnv = []struct {
	key    string
	target func(*Config) *string
}{
	{"KINTONE_BASE_URL", func(c *Config) *string { return &c.Kintone.BaseURL }},
	{"KINTONE_UID_APP_ID", func(c *Config) *string { return &c.Kintone.UIDAppID }},
	{"KINTONE_UID_API_TOKEN", func(c *Config) *string { return &c.Kintone.UIDAPIToken }},
	{"KINTONE_INBOUND_APP_ID", func(c *Config) *string { return &c.Kintone.InboundAppID }},
	{"KINTONE_INBOUND_API_TOKEN", func(c *Config) *string { return &c.Kintone.InboundAPIToken }},
	{"KINTONE_FILE_FIELD", func(c *Config) *string { return &c.Attachments.Field }},
	{"KINTONE_UPLOADED_FIELD", func(c *Config) *string { return &c.Attachments.UploadedField }},
	{"KINTONE_UPLOADED_VALUE", func(c *Config) *string { return &c.Attachments.UploadedValue }},
	{"SLACK_WEBHOOK_URL", func(c *Config) *string { return &c.Slack.WebhookURL }},
	{"LINE_CHANNEL_ACCESS_TOKEN", func(c *Config) *string { return &c.LINE.ChannelAccessToken }},
	{"LINE_TARGET_ID", func(c *Config) *string { return &c.LINE.TargetID }},
	{"AUTOMATION_WEBHOOK_URL", func(c *Config) *string { return &c.Automation.WebhookURL }},
	{"AUTOMATION_BEARER_TOKEN", func(c *Config) *string { return &c.Automation.BearerToken }},
	{"KINBRIDGE_LISTEN_ADDR", func(c *Config) *string { return &c.ListenAddr }},
	{"KINBRIDGE_API_URL", func(c *Config) *string { return &c.APIURL }},
	{"KINBRIDGE_LOG_LEVEL", func(c *Config) *string { return &c.LogLevel }},
	{"KINBRIDGE_HTTP_TIMEOUT", func(c *Config) *string { return &c.HTTPTimeout }},
	{"KINBRIDGE_ATTACH_BACKEND", func(c *Config) *string { return &c.AttachBackend }},
	{"KINBRIDGE_JOURNAL", func(c *Config) *string { return &c.JournalPath }},
	{"KINBRIDGE_FIELD_MAP", func(c *Config) *string { return &c.FieldMapPath }},
	{"KINBRIDGE_API_TOKEN_HASH", func(c *Config) *string { return &c.APITokenHash }},
}

func (c *Config) applyEnv() {
	for _, env := range stringEnv {
		if value := strings.TrimSpace(os.Getenv(env.key)); value != "" {
			*env.target(c) = value
		}
	}
	if raw := strings.TrimSpace(os.Getenv("KINTONE_FILE_APPEND")); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			c.Attachments.Append = parsed
		}
	}
}

func (c *Config) normalizeDefaults() {
	c.AttachBackend = strings.ToLower(strings.TrimSpace(c.AttachBackend))
	if c.AttachBackend == "" {
		c.AttachBackend = DefaultAttachBackend
	}
	c.Kintone.BaseURL = strings.TrimRight(strings.TrimSpace(c.Kintone.BaseURL), "/")
	if strings.TrimSpace(c.ListenAddr) == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = DefaultAPIURL
	}
	if strings.TrimSpace(c.Attachments.Field) == "" {
		c.Attachments.Field = DefaultAttachmentField
	}
	if c.Attachments.MaxUploadBytes <= 0 {
		c.Attachments.MaxUploadBytes = DefaultAttachmentMaxUploadBytes
	}
	if c.Attachments.MultipartMaxMemory <= 0 {
		c.Attachments.MultipartMaxMemory = DefaultAttachmentMultipartMaxMemory
	}
}
