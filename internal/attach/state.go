package attach

import (
	"context"
	"time"
)

// State is one step of an attach attempt.
type State string

const (
	StateReceived     State = "received"
	StateUploading    State = "uploading"
	StateUploaded     State = "uploaded"
	StateReconciling  State = "reconciling"
	StateAttached     State = "attached"
	StateUploadFailed State = "upload_failed"
	StateAttachFailed State = "attach_failed"
)

var validStates = map[State]struct{}{
	StateReceived:     {},
	StateUploading:    {},
	StateUploaded:     {},
	StateReconciling:  {},
	StateAttached:     {},
	StateUploadFailed: {},
	StateAttachFailed: {},
}

// ParseState validates a state name.
func ParseState(raw string) (State, bool) {
	state := State(raw)
	_, ok := validStates[state]
	return state, ok
}

// Terminal reports whether no further transition follows.
func (s State) Terminal() bool {
	return s == StateAttached || s.Failed()
}

// Failed reports whether s is a failure exit.
func (s State) Failed() bool {
	return s == StateUploadFailed || s == StateAttachFailed
}

// Attempt is the journaled record of one attach request.
type Attempt struct {
	ID        string    `json:"id"`
	RecordID  string    `json:"recordId"`
	FileName  string    `json:"fileName"`
	Mode      string    `json:"mode"`
	Backend   string    `json:"backend"`
	State     State     `json:"state"`
	FileKey   string    `json:"fileKey,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Journal records attach attempts and their transitions.
type Journal interface {
	Begin(ctx context.Context, attempt Attempt) error
	Transition(ctx context.Context, id string, state State, fileKey, errMsg string) error
}

type nopJournal struct{}

func (nopJournal) Begin(context.Context, Attempt) error { return nil }

func (nopJournal) Transition(context.Context, string, State, string, string) error { return nil }
