package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// StateStore keeps OAuth handshake state between redirect and callback.
// Key format: oauth:state:<state>
type StateStore struct {
	client redis.Cmdable
}

func NewStateStore(client redis.Cmdable) *StateStore {
	return &StateStore{client: client}
}

func (s *StateStore) Save(ctx context.Context, key string, state ports.OAuthState, ttl time.Duration) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode oauth state: %w", err)
	}
	if err := s.client.Set(ctx, stateKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("save oauth state: %w", err)
	}
	return nil
}

// Take reads and deletes the state in one command.
func (s *StateStore) Take(ctx context.Context, key string) (*ports.OAuthState, error) {
	raw, err := s.client.GetDel(ctx, stateKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrInvalidOAuthState
	}
	if err != nil {
		return nil, fmt.Errorf("take oauth state: %w", err)
	}

	var state ports.OAuthState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, domain.ErrInvalidOAuthState
	}
	return &state, nil
}

func stateKey(key string) string {
	return "oauth:state:" + key
}
