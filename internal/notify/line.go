package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultLINEPushURL is the messaging push endpoint.
const DefaultLINEPushURL = "https://api.line.me/v2/bot/message/push"

// LINEOptions configures the push client.
type LINEOptions struct {
	ChannelAccessToken string
	TargetID           string
	PushURL            string
	Timeout            time.Duration
}

// LINE pushes text messages to one fixed target.
type LINE struct {
	token    string
	targetID string
	pushURL  string
	http     *http.Client
}

type linePush struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewLINE creates a push client.
func NewLINE(opts LINEOptions) *LINE {
	pushURL := strings.TrimSpace(opts.PushURL)
	if pushURL == "" {
		pushURL = DefaultLINEPushURL
	}
	return &LINE{
		token:    strings.TrimSpace(opts.ChannelAccessToken),
		targetID: strings.TrimSpace(opts.TargetID),
		pushURL:  pushURL,
		http:     newHTTPClient(opts.Timeout),
	}
}

// Configured reports whether both token and target are set.
func (l *LINE) Configured() bool {
	return l != nil && l.token != "" && l.targetID != ""
}

// Push sends one text message.
func (l *LINE) Push(ctx context.Context, text string) error {
	if !l.Configured() {
		return fmt.Errorf("%w: line channel access token and target id", ErrNotConfigured)
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+l.token)
	return postJSON(ctx, l.http, "line", l.pushURL, header, linePush{
		To:       l.targetID,
		Messages: []lineMessage{{Type: "text", Text: text}},
	})
}
