package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Message is a chat webhook payload. Text is the notification fallback shown
// when Blocks cannot be rendered.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks,omitempty"`
}

// Block is one layout block.
type Block struct {
	Type     string      `json:"type"`
	Text     *TextObject `json:"text,omitempty"`
	Elements []Element   `json:"elements,omitempty"`
}

// TextObject is a plain_text or mrkdwn text.
type TextObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// Element is an interactive element inside an actions block.
type Element struct {
	Type string      `json:"type"`
	Text *TextObject `json:"text,omitempty"`
	URL  string      `json:"url,omitempty"`
}

// SectionBlock returns a section with markdown text.
func SectionBlock(markdown string) Block {
	return Block{Type: "section", Text: &TextObject{Type: "mrkdwn", Text: markdown}}
}

// LinkButtonBlock returns an actions block holding one link button.
func LinkButtonBlock(label, url string) Block {
	return Block{
		Type: "actions",
		Elements: []Element{{
			Type: "button",
			Text: &TextObject{Type: "plain_text", Text: label, Emoji: true},
			URL:  url,
		}},
	}
}

// Slack posts to an incoming webhook URL.
type Slack struct {
	webhookURL string
	http       *http.Client
}

// NewSlack creates a webhook notifier. An empty URL yields a notifier whose
// Send returns ErrNotConfigured.
func NewSlack(webhookURL string, timeout time.Duration) *Slack {
	return &Slack{
		webhookURL: strings.TrimSpace(webhookURL),
		http:       newHTTPClient(timeout),
	}
}

// Send posts msg.
func (s *Slack) Send(ctx context.Context, msg Message) error {
	if s == nil || s.webhookURL == "" {
		return fmt.Errorf("%w: slack webhook url", ErrNotConfigured)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return fmt.Errorf("message text is required")
	}
	return postJSON(ctx, s.http, "slack", s.webhookURL, nil, msg)
}
