// Package store persists reports and taxonomy sets in Redis.
//
// Layout mirrors the production key-value schema: one `report:<id>` key per
// report holding the JSON envelope, plus the `companies` and `sectors` sets
// for user-contributed taxonomy entries.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lavoroonesto/api/internal/report"
)

// ErrNotFound is returned when a report id has no stored record.
var ErrNotFound = errors.New("report not found")

const (
	reportKeyPrefix = "report:"

	// SetCompanies and SetSectors name the taxonomy sets.
	SetCompanies = "companies"
	SetSectors   = "sectors"
)

// RedisStore implements report and taxonomy persistence over Redis.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection. A missing or
// malformed URL fails here so the caller can surface it as a configuration
// error rather than a generic fetch failure.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	if redisURL == "" {
		return nil, errors.New("redis url is not configured")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client.
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func reportKey(id string) string {
	return reportKeyPrefix + id
}

// ListReports returns every stored report. Order is unspecified; callers
// sort. Records that disappear between SCAN and MGET are skipped.
func (s *RedisStore) ListReports(ctx context.Context) ([]report.Report, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, reportKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan reports: %w", err)
	}
	if len(keys) == 0 {
		return []report.Report{}, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load reports: %w", err)
	}

	reports := make([]report.Report, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			continue
		}
		r, err := report.Decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode stored report: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// GetReport loads a single report or ErrNotFound.
func (s *RedisStore) GetReport(ctx context.Context, id string) (report.Report, error) {
	raw, err := s.client.Get(ctx, reportKey(id)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", id, err)
	}
	r, err := report.Decode([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("decode stored report %s: %w", id, err)
	}
	return r, nil
}

// PutReport upserts a report with full-replace semantics.
func (s *RedisStore) PutReport(ctx context.Context, r report.Report) error {
	data, err := report.Encode(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := s.client.Set(ctx, reportKey(r.Common().ID), data, 0).Err(); err != nil {
		return fmt.Errorf("save report %s: %w", r.Common().ID, err)
	}
	return nil
}

// DeleteReport removes a report. Deleting an absent id is not an error.
func (s *RedisStore) DeleteReport(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, reportKey(id)).Err(); err != nil {
		return fmt.Errorf("delete report %s: %w", id, err)
	}
	return nil
}

// AddToSet adds a value to a taxonomy set. Set semantics deduplicate.
func (s *RedisStore) AddToSet(ctx context.Context, set, value string) error {
	if err := s.client.SAdd(ctx, set, value).Err(); err != nil {
		return fmt.Errorf("add %q to set %s: %w", value, set, err)
	}
	return nil
}

// ListSet returns the members of a taxonomy set, order unspecified.
func (s *RedisStore) ListSet(ctx context.Context, set string) ([]string, error) {
	members, err := s.client.SMembers(ctx, set).Result()
	if err != nil {
		return nil, fmt.Errorf("read set %s: %w", set, err)
	}
	return members, nil
}

// Ping checks if Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
