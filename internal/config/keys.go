package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var allowedKeys = []string{
	"listen_addr",
	"api_url",
	"log_level",
	"http_timeout",
	"attach_backend",
	"journal_path",
	"field_map_path",
	"api_token_hash",
	"kintone.base_url",
	"kintone.uid_app_id",
	"kintone.uid_api_token",
	"kintone.inbound_app_id",
	"kintone.inbound_api_token",
	"attachments.field",
	"attachments.append",
	"attachments.uploaded_field",
	"attachments.uploaded_value",
	"attachments.max_upload_bytes",
	"attachments.multipart_max_memory",
	"slack.webhook_url",
	"line.channel_access_token",
	"line.target_id",
	"line.push_url",
	"automation.webhook_url",
	"automation.bearer_token",
}

var secretKeys = map[string]struct{}{
	"kintone.uid_api_token":     {},
	"kintone.inbound_api_token": {},
	"line.channel_access_token": {},
	"automation.bearer_token":   {},
}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// IsSecretKey reports whether a key holds a credential.
func IsSecretKey(key string) bool {
	_, ok := secretKeys[key]
	return ok
}

// Get returns the value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "listen_addr":
		return c.ListenAddr, nil
	case "api_url":
		return c.APIURL, nil
	case "log_level":
		return c.LogLevel, nil
	case "http_timeout":
		return c.HTTPTimeout, nil
	case "attach_backend":
		return c.AttachBackend, nil
	case "journal_path":
		return c.JournalPath, nil
	case "field_map_path":
		return c.FieldMapPath, nil
	case "api_token_hash":
		return c.APITokenHash, nil
	case "kintone.base_url":
		return c.Kintone.BaseURL, nil
	case "kintone.uid_app_id":
		return c.Kintone.UIDAppID, nil
	case "kintone.uid_api_token":
		return c.Kintone.UIDAPIToken, nil
	case "kintone.inbound_app_id":
		return c.Kintone.InboundAppID, nil
	case "kintone.inbound_api_token":
		return c.Kintone.InboundAPIToken, nil
	case "attachments.field":
		return c.Attachments.Field, nil
	case "attachments.append":
		return strconv.FormatBool(c.Attachments.Append), nil
	case "attachments.uploaded_field":
		return c.Attachments.UploadedField, nil
	case "attachments.uploaded_value":
		return c.Attachments.UploadedValue, nil
	case "attachments.max_upload_bytes":
		return strconv.FormatInt(c.Attachments.MaxUploadBytes, 10), nil
	case "attachments.multipart_max_memory":
		return strconv.FormatInt(c.Attachments.MultipartMaxMemory, 10), nil
	case "slack.webhook_url":
		return c.Slack.WebhookURL, nil
	case "line.channel_access_token":
		return c.LINE.ChannelAccessToken, nil
	case "line.target_id":
		return c.LINE.TargetID, nil
	case "line.push_url":
		return c.LINE.PushURL, nil
	case "automation.webhook_url":
		return c.Automation.WebhookURL, nil
	case "automation.bearer_token":
		return c.Automation.BearerToken, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	// Config files may hold tokens.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "attachments.max_upload_bytes", "attachments.multipart_max_memory":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "attachments.append":
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be true or false", key)
		}
		return parsed, nil
	case "http_timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("%s must be a positive duration such as 15s", key)
		}
		return value, nil
	case "attach_backend":
		value = strings.ToLower(value)
		if value != BackendDirect && value != BackendWebhook {
			return nil, fmt.Errorf("%s must be %q or %q", key, BackendDirect, BackendWebhook)
		}
		return value, nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}
