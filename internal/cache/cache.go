// Package cache stores decoded upstream answers under hierarchical keys.
// Keys are lists of components; invalidating a key removes every entry whose
// key starts with the same components, for every session subject.
package cache

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/sort-storage/admin/internal/metrics"
)

// ErrMiss is returned by Store.Get when no live entry exists.
var ErrMiss = errors.New("cache miss")

// Key is an ordered list of components, e.g. {"admin-orders", "pending"}.
type Key []string

func K(parts ...string) Key { return Key(parts) }

// Prefix is the encoded form used for prefix matching. The trailing
// separator keeps "storage-locations" from matching "storage-locations-x".
func (k Key) Prefix() string {
	var b strings.Builder
	b.WriteByte('/')
	for _, p := range k {
		b.WriteString(url.PathEscape(p))
		b.WriteByte('/')
	}
	return b.String()
}

func (k Key) String() string {
	return strings.Join(k, "/")
}

// Encode returns the storage key for one subject's entry.
func (k Key) Encode(subject string) string {
	return k.Prefix() + "?" + url.QueryEscape(subject)
}

// HasPrefix reports whether every component of prefix matches k in order.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, p := range prefix {
		if k[i] != p {
			return false
		}
	}
	return true
}

// Store is satisfied by *MemoryStore and *RedisStore.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix and returns how
	// many were removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)
}

// Cache scopes a Store to session subjects and records hit/miss metrics.
type Cache struct {
	store Store
}

func New(store Store) *Cache {
	return &Cache{store: store}
}

func (c *Cache) Get(ctx context.Context, subject string, key Key) ([]byte, bool, error) {
	data, err := c.store.Get(ctx, key.Encode(subject))
	if errors.Is(err, ErrMiss) {
		metrics.CacheMiss()
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	metrics.CacheHit()
	return data, true, nil
}

func (c *Cache) Set(ctx context.Context, subject string, key Key, value []byte, ttl time.Duration) error {
	return c.store.Set(ctx, key.Encode(subject), value, ttl)
}

// Invalidate removes every entry under each key, across all subjects.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) (int, error) {
	total := 0
	var errs []error
	for _, k := range keys {
		n, err := c.store.DeletePrefix(ctx, k.Prefix())
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	metrics.CacheInvalidated(total)
	return total, errors.Join(errs...)
}
