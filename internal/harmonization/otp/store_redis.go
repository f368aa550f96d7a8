package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "bankops/pkg/domain"
	"bankops/pkg/platform/sentinel"
)

// keyRetention keeps expired records around long enough for Confirm to
// report Expired instead of NotFound, then lets Redis reclaim them.
const keyRetention = 24 * time.Hour

// RedisStore persists issued codes in Redis so OTP state survives process
// restarts and is shared across replicas.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func key(requestID id.HarmonizationID) string {
	return "harmonization:otp:" + requestID.String()
}

func (s *RedisStore) Save(ctx context.Context, requestID id.HarmonizationID, issued Issued) error {
	payload, err := json.Marshal(issued)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	retention := time.Until(issued.ExpiresAt) + keyRetention
	if err := s.client.Set(ctx, key(requestID), payload, retention).Err(); err != nil {
		return fmt.Errorf("store otp record: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, requestID id.HarmonizationID) (Issued, error) {
	payload, err := s.client.Get(ctx, key(requestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Issued{}, sentinel.ErrNotFound
		}
		return Issued{}, fmt.Errorf("load otp record: %w", err)
	}
	var issued Issued
	if err := json.Unmarshal(payload, &issued); err != nil {
		return Issued{}, fmt.Errorf("decode otp record: %w", err)
	}
	return issued, nil
}

func (s *RedisStore) Delete(ctx context.Context, requestID id.HarmonizationID) error {
	if err := s.client.Del(ctx, key(requestID)).Err(); err != nil {
		return fmt.Errorf("delete otp record: %w", err)
	}
	return nil
}
