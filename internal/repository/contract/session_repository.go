package contract

import (
	"context"

	"incentive-agent-be/pkg/store"
)

type ISessionRepository interface {
	// Get fetches a session; (nil, nil) when absent or expired.
	Get(ctx context.Context, id string) (*store.Session, error)

	// Save persists the session and refreshes its expiry.
	Save(ctx context.Context, session *store.Session) error
}
