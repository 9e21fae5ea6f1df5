// Package warehouse defines the narrow capability the Drift Detector
// consumes: resolve a qualified table identifier to a Schema. Vendor
// bindings (BigQuery, Snowflake, Postgres, ...) live outside the core and
// satisfy this single-method interface.
package warehouse

import (
	"context"
	"fmt"
	"sync"

	"github.com/tanzil7890/schemarefly/internal/types"
)

// TableID names a fully qualified warehouse table: database (optional for
// dialects without one), schema, and table.
type TableID struct {
	Database string
	Schema   string
	Table    string
}

func (t TableID) String() string {
	if t.Database != "" {
		return fmt.Sprintf("%s.%s.%s", t.Database, t.Schema, t.Table)
	}
	return fmt.Sprintf("%s.%s", t.Schema, t.Table)
}

// NotFoundError reports that no such table exists in the warehouse.
type NotFoundError struct {
	Table TableID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("table %s not found in warehouse", e.Table)
}

// Connector is the single-method capability the Drift Detector depends on.
// Implementations are expected to apply their own timeouts/retries;
// Connector itself makes no promises beyond "return a Schema or an error".
type Connector interface {
	TableSchema(ctx context.Context, table TableID) (types.Schema, error)
}

// CachedConnector wraps a Connector with a TTL-bounded metadata cache, so
// repeated drift runs against the same table don't refetch on every
// invocation within the TTL window. It is the single place where warehouse
// impurity (network) is contained; reads are guarded by an RWMutex so it
// is safe for concurrent read-mostly access.
type CachedConnector struct {
	next Connector
	ttl  int64 // nanoseconds; compared against a caller-supplied clock
	now  func() int64

	mu    sync.RWMutex
	cache map[TableID]cacheEntry
}

type cacheEntry struct {
	schema    types.Schema
	fetchedAt int64
}

// NewCachedConnector wraps next with a TTL cache. now is injected so tests
// can control the clock instead of depending on wall time.
func NewCachedConnector(next Connector, ttl int64, now func() int64) *CachedConnector {
	return &CachedConnector{next: next, ttl: ttl, now: now, cache: map[TableID]cacheEntry{}}
}

// TableSchema entries expire on read: a hit older than the TTL is
// treated as a miss and triggers a refetch rather than being evicted on a
// separate timer.
func (c *CachedConnector) TableSchema(ctx context.Context, table TableID) (types.Schema, error) {
	c.mu.RLock()
	e, ok := c.cache[table]
	c.mu.RUnlock()
	if ok && c.now()-e.fetchedAt < c.ttl {
		return e.schema, nil
	}
	schema, err := c.next.TableSchema(ctx, table)
	if err != nil {
		return types.Schema{}, err
	}
	c.mu.Lock()
	c.cache[table] = cacheEntry{schema: schema, fetchedAt: c.now()}
	c.mu.Unlock()
	return schema, nil
}

// Invalidate drops a cached entry, forcing the next TableSchema call to
// refetch regardless of TTL.
func (c *CachedConnector) Invalidate(table TableID) {
	c.mu.Lock()
	delete(c.cache, table)
	c.mu.Unlock()
}
