package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "devices:"

// storedRegistration is the wire shape for a registration in Redis. It exists
// so the push token round-trips through storage while staying out of the
// Registration JSON used in API responses.
type storedRegistration struct {
	UserID    string `json:"user_id"`
	DeviceID  string `json:"device_id"`
	PushToken string `json:"push_token"`
	Platform  string `json:"platform,omitempty"`
	UpdatedAt int64  `json:"updated_at_unix,omitempty"`
}

// RedisRegistry keeps one hash per user, field = device id, value = JSON
// registration record.
type RedisRegistry struct {
	rdb *redis.Client
}

func NewRedisRegistry(rdb *redis.Client) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

func key(userID string) string { return keyPrefix + userID }

func (r *RedisRegistry) List(ctx context.Context, userID string) ([]Registration, error) {
	if userID == "" {
		return nil, errors.New("registry: user id required")
	}
	fields, err := r.rdb.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("registry: redis hgetall: %w", err)
	}

	out := make([]Registration, 0, len(fields))
	for deviceID, raw := range fields {
		var sr storedRegistration
		if err := json.Unmarshal([]byte(raw), &sr); err != nil {
			// A corrupt record must not make the whole user unreachable.
			continue
		}
		reg := Registration{
			UserID:    userID,
			DeviceID:  deviceID,
			PushToken: sr.PushToken,
			Platform:  sr.Platform,
		}
		if sr.UpdatedAt > 0 {
			reg.UpdatedAt = unixTime(sr.UpdatedAt)
		}
		out = append(out, reg)
	}

	// HGETALL ordering is unspecified; impose the contract ordering here.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].DeviceID < out[j].DeviceID
	})
	return out, nil
}

func (r *RedisRegistry) Put(ctx context.Context, reg Registration) error {
	if reg.UserID == "" || reg.DeviceID == "" {
		return errors.New("registry: user id and device id required")
	}
	sr := storedRegistration{
		UserID:    reg.UserID,
		DeviceID:  reg.DeviceID,
		PushToken: reg.PushToken,
		Platform:  reg.Platform,
	}
	if !reg.UpdatedAt.IsZero() {
		sr.UpdatedAt = reg.UpdatedAt.Unix()
	}
	raw, err := json.Marshal(sr)
	if err != nil {
		return fmt.Errorf("registry: encode record: %w", err)
	}
	if err := r.rdb.HSet(ctx, key(reg.UserID), reg.DeviceID, raw).Err(); err != nil {
		return fmt.Errorf("registry: redis hset: %w", err)
	}
	return nil
}

func unixTime(sec int64) time.Time { return time.Unix(sec, 0).UTC() }
