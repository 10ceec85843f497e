package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage is a byte-value cache over Redis. It implements
// isolation.CacheBackend and isolation.PrefixDeleter; every key is stored
// under the configured prefix.
type Storage struct {
	db            redis.UniversalClient
	prefix        string
	scanBatchSize int64
}

func NewStorage(client redis.UniversalClient, cfg Config) *Storage {
	s := &Storage{db: client, prefix: cfg.KeyPrefix, scanBatchSize: cfg.ScanBatchSize}
	if s.scanBatchSize <= 0 {
		s.scanBatchSize = 500
	}
	return s
}

// Get returns false for missing keys.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	val, err := s.db.Get(ctx, s.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}
	return val, true, nil
}

// Set stores val. A zero ttl means no expiration.
func (s *Storage) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.db.Set(ctx, s.prefix+key, val, ttl).Err()
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.db.Del(ctx, s.prefix+key).Err()
}

// DeletePrefix removes every key starting with prefix. It uses SCAN so the
// server is never blocked.
func (s *Storage) DeletePrefix(ctx context.Context, prefix string) error {
	if prefix == "" {
		return ErrEmptyKey
	}
	iter := s.db.Scan(ctx, 0, escapePattern(s.prefix+prefix)+"*", s.scanBatchSize).Iterator()
	batch := make([]string, 0, s.scanBatchSize)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if int64(len(batch)) >= s.scanBatchSize {
			if err := s.db.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return s.db.Del(ctx, batch...).Err()
	}
	return nil
}

// escapePattern escapes glob metacharacters for SCAN MATCH.
func escapePattern(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '*', '?', '[', ']', '\\':
			out = append(out, '\\', c)
		default:
			out = append(out, c)
		}
	}
	return string(out)
}
