package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound возвращается, когда ключа нет в хранилище
var ErrNotFound = errors.New("cache: key not found")

// Entry is a cached upstream response. Value is the JSON encoding of the
// normalized payload so every backend can hold it.
type Entry struct {
	Key      string          `json:"key"`
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"stored_at"`
	TTL      time.Duration   `json:"ttl"`
}

// IsFresh reports now - StoredAt < TTL.
func (e *Entry) IsFresh(now time.Time) bool {
	return now.Sub(e.StoredAt) < e.TTL
}

func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Store keeps entries past their TTL; stale entries are the fallback when
// upstream fails, so expiry is decided by the reader.
type Store interface {
	Get(ctx context.Context, key string) (*Entry, error)
	Set(ctx context.Context, entry *Entry) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
}
