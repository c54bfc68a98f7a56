package actions

import "context"

// PendingAction is one fire-and-forget mutation waiting in the queue. It is
// removed after it settles, exactly once, before the next action starts.
type PendingAction struct {
	ID        string
	Op        func(ctx context.Context) (any, error)
	OnSuccess func(result any)
	OnError   func(err error)

	SuccessMessage string
	ErrorMessage   string
}

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyInfo    NotificationKind = "info"
)

// Notification is an ephemeral user-facing message, dropped after a short
// display window or on explicit dismissal.
type Notification struct {
	ID      string           `json:"id"`
	Message string           `json:"message"`
	Kind    NotificationKind `json:"kind"`
}
