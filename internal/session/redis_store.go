package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "callsession:"

// RedisStore persists sessions as JSON records in Redis.
//
// UpdateStatus is a plain read-modify-write with no version check, so
// concurrent writers to the same call id race and the last one wins. That gap
// is part of the relay's stated contract; a CAS layer would sit here if one
// is ever added.
type RedisStore struct {
	rdb *redis.Client

	// ttl applies to records written via Put. Zero means no expiry.
	// Status updates preserve whatever TTL the provisioner set.
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func key(callID string) string { return keyPrefix + callID }

func (s *RedisStore) Get(ctx context.Context, callID string) (Session, error) {
	if callID == "" {
		return Session{}, ErrNotFound
	}
	raw, err := s.rdb.Get(ctx, key(callID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("session: redis get: %w", err)
	}
	var out Session
	if err := json.Unmarshal(raw, &out); err != nil {
		return Session{}, fmt.Errorf("session: decode record for call %s: %w", callID, err)
	}
	if out.CallID == "" {
		out.CallID = callID
	}
	return out, nil
}

func (s *RedisStore) Put(ctx context.Context, sess Session) error {
	if sess.CallID == "" {
		return errors.New("session: call id required")
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session: encode record: %w", err)
	}
	if err := s.rdb.Set(ctx, key(sess.CallID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) UpdateStatus(ctx context.Context, callID string, u StatusUpdate) error {
	cur, err := s.Get(ctx, callID)
	if err != nil {
		return err
	}
	cur.Apply(u)
	raw, err := json.Marshal(cur)
	if err != nil {
		return fmt.Errorf("session: encode record: %w", err)
	}
	// KeepTTL so a provisioner-set expiry survives status writes.
	if err := s.rdb.Set(ctx, key(callID), raw, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, callID string) error {
	if callID == "" {
		return ErrNotFound
	}
	if err := s.rdb.Del(ctx, key(callID)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}
