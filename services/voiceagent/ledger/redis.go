// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisKeyPrefix namespaces attempt keys.
const RedisKeyPrefix = "transfer:attempt:"

// Redis stores attempts as JSON strings with an expiry.
//
// Thread Safety: Safe for concurrent use.
type Redis struct {
	rdb   *redis.Client
	ttl   time.Duration
	owned bool
}

// OpenRedis connects to url (redis://...) and pings it.
func OpenRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("ledger: parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ledger: connect to redis: %w", err)
	}
	r := NewRedis(rdb, ttl)
	r.owned = true
	return r, nil
}

// NewRedis wraps an existing client. The caller keeps ownership.
func NewRedis(rdb *redis.Client, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttlOrDefault(ttl)}
}

// Record implements Ledger.
func (r *Redis) Record(ctx context.Context, a Attempt) error {
	if err := validate(a); err != nil {
		return err
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("ledger: encode attempt: %w", err)
	}
	if err := r.rdb.Set(ctx, RedisKeyPrefix+a.CallID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("ledger: save attempt: %w", err)
	}
	return nil
}

// Latest implements Ledger.
func (r *Redis) Latest(ctx context.Context, callID string) (Attempt, error) {
	data, err := r.rdb.Get(ctx, RedisKeyPrefix+callID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Attempt{}, ErrNotFound
	}
	if err != nil {
		return Attempt{}, fmt.Errorf("ledger: load attempt: %w", err)
	}
	var a Attempt
	if err := json.Unmarshal(data, &a); err != nil {
		return Attempt{}, fmt.Errorf("ledger: decode attempt: %w", err)
	}
	return a, nil
}

// Close implements Ledger.
func (r *Redis) Close() error {
	if !r.owned {
		return nil
	}
	return r.rdb.Close()
}
