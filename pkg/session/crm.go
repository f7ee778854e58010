package session

import (
	"context"

	casefile "github.com/goliatone/go-casefile"
)

// CRMPusher mirrors a persisted case document into an external CRM. Pushes
// run in the background after each save; a failed push is logged and dropped,
// never retried, and never blocks or fails the edit that triggered it.
type CRMPusher interface {
	Push(ctx context.Context, doc casefile.Document) error
}

// CRMPusherFunc adapts a function to the CRMPusher interface.
type CRMPusherFunc func(ctx context.Context, doc casefile.Document) error

func (f CRMPusherFunc) Push(ctx context.Context, doc casefile.Document) error {
	return f(ctx, doc)
}
