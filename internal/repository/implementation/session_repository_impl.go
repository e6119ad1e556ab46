package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"incentive-agent-be/internal/repository/contract"
	"incentive-agent-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "assistant:session:"

type sessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository stores sessions in Redis with a sliding expiry:
// every save resets the TTL.
func NewSessionRepository(client *redis.Client, ttl time.Duration) contract.ISessionRepository {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &sessionRepository{client: client, ttl: ttl}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*store.Session, error) {
	data, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var session store.Session
	if err := json.Unmarshal(data, &session); err != nil {
		// A corrupt payload is treated as absent so the conversation can
		// restart instead of being stuck.
		return nil, nil
	}
	session.Backfill()
	return &session, nil
}

func (r *sessionRepository) Save(ctx context.Context, session *store.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+session.ID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}
