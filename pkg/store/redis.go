package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dome317/lead-intelligence-bot/pkg/core/types"
)

const (
	leadsKey  = "leads:all"
	notifsKey = "leads:notifications"
)

// RedisStore is the durable backend: two keys, each holding a JSON-encoded
// newest-first list. An insert is a read-modify-write of both whole lists,
// so concurrent writers from separate processes can lose updates (last
// writer wins). That window is an accepted limitation of the design, not a
// correctness guarantee — single-process writes are serialized by wmu.
type RedisStore struct {
	client *redis.Client
	wmu    chan struct{} // write slot
}

// NewRedis connects to the Redis instance at url (redis:// form).
func NewRedis(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	s := &RedisStore{
		client: redis.NewClient(opts),
		wmu:    make(chan struct{}, 1),
	}
	s.wmu <- struct{}{}
	return s, nil
}

// Ping verifies connectivity; called once at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) AddLead(ctx context.Context, lead types.Lead) (types.Lead, error) {
	lead.ID = NewID("lead")
	notifs := NotificationsFor(lead)

	select {
	case <-s.wmu:
		defer func() { s.wmu <- struct{}{} }()
	case <-ctx.Done():
		return types.Lead{}, ctx.Err()
	}

	leads, err := getList[types.Lead](ctx, s.client, leadsKey)
	if err != nil {
		return types.Lead{}, err
	}
	existing, err := getList[types.Notification](ctx, s.client, notifsKey)
	if err != nil {
		return types.Lead{}, err
	}

	leads = append([]types.Lead{lead}, leads...)
	existing = append(notifs, existing...)

	// Both keys go out in one pipeline so a reader polling right after the
	// call sees the lead together with its notifications.
	pipe := s.client.Pipeline()
	if err := setList(ctx, pipe, leadsKey, leads); err != nil {
		return types.Lead{}, err
	}
	if err := setList(ctx, pipe, notifsKey, existing); err != nil {
		return types.Lead{}, err
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return types.Lead{}, fmt.Errorf("write lead lists: %w", err)
	}
	return lead, nil
}

func (s *RedisStore) AddNotification(ctx context.Context, n types.Notification) error {
	select {
	case <-s.wmu:
		defer func() { s.wmu <- struct{}{} }()
	case <-ctx.Done():
		return ctx.Err()
	}

	notifs, err := getList[types.Notification](ctx, s.client, notifsKey)
	if err != nil {
		return err
	}
	notifs = append([]types.Notification{n}, notifs...)
	return setList(ctx, s.client, notifsKey, notifs)
}

func (s *RedisStore) Leads(ctx context.Context) ([]types.Lead, error) {
	return getList[types.Lead](ctx, s.client, leadsKey)
}

func (s *RedisStore) Notifications(ctx context.Context) ([]types.Notification, error) {
	return getList[types.Notification](ctx, s.client, notifsKey)
}

func (s *RedisStore) Stats(ctx context.Context) (types.Stats, error) {
	leads, err := s.Leads(ctx)
	if err != nil {
		return types.Stats{}, err
	}
	return types.ComputeStats(leads), nil
}

// setter is satisfied by both the client and a pipeline.
type setter interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

func getList[T any](ctx context.Context, c *redis.Client, key string) ([]T, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return out, nil
}

func setList[T any](ctx context.Context, c setter, key string, list []T) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.Set(ctx, key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
