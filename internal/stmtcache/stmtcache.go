// Package stmtcache implements the prepared-statement lifecycle: per-SQL-text
// use counting with threshold promotion from the unnamed statement to a
// named, server-prepared one, an LRU cache of named statements bounded by
// capacity, and lazy batched eviction (closed statement names accumulate
// until the next Sync gives a natural place to flush them).
package stmtcache

import (
	"container/list"
	"sync"
)

// DefaultThreshold is the use count at which the cache promotes a distinct
// SQL text to a named, server-side prepared statement; the uses before it
// go through the unnamed statement.
const DefaultThreshold = 5

// Entry is one cached prepared statement.
type Entry struct {
	Name       string
	SQL        string
	ParamOIDs  []uint32
	uses       int
	named      bool
	elem       *list.Element
}

// Named reports whether this entry has been promoted and actually has a
// live server-side Parse under Name.
func (e *Entry) Named() bool { return e.named }

// Uses reports how many times this SQL text has been executed so far.
func (e *Entry) Uses() int { return e.uses }

// Cache is an LRU cache of prepared statements, keyed by SQL text, bounded
// to Capacity named entries. A single Cache instance belongs to one Conn;
// like the rest of the driver core, it is not safe for concurrent use by
// two goroutines driving the same connection at once, but it does protect
// its own bookkeeping with a mutex since the adapter layer's pool may hand
// this Conn to different goroutines serially.
type Cache struct {
	mu sync.Mutex

	Threshold int
	Capacity  int

	bySQL map[string]*Entry
	order *list.List // list.Element.Value is *Entry, most-recently-used at Back

	nextID int

	// pendingClose accumulates server statement names evicted from the
	// cache but not yet closed on the wire, so the caller can batch one
	// Close message per evicted name at the next convenient Sync boundary
	// instead of round-tripping immediately.
	pendingClose []string
}

func New(threshold, capacity int) *Cache {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if capacity <= 0 {
		capacity = 100
	}
	return &Cache{
		Threshold: threshold,
		Capacity:  capacity,
		bySQL:     make(map[string]*Entry),
		order:     list.New(),
	}
}

// Lookup returns the cache entry for sql, creating a fresh (unnamed, zero
// uses) one if this is the first time this text has been seen.
func (c *Cache) Lookup(sql string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.bySQL[sql]; ok {
		c.order.MoveToBack(e.elem)
		return e
	}

	e := &Entry{SQL: sql}
	e.elem = c.order.PushBack(e)
	c.bySQL[sql] = e
	return e
}

// RecordUse increments e's use count and reports whether this use just
// crossed the promotion threshold, i.e. whether the caller must now send a
// Parse under a freshly assigned name instead of the unnamed statement.
func (c *Cache) RecordUse(e *Entry) (shouldPromote bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.uses++
	return !e.named && e.uses >= c.Threshold
}

// Promote assigns e a server-side statement name and evicts the
// least-recently-used named entry if that pushes the cache over Capacity.
// It returns the assigned name; the names of evicted entries are queued
// for TakePendingClose.
func (c *Cache) Promote(e *Entry, paramOIDs []uint32) (name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	e.Name = statementName(c.nextID)
	e.ParamOIDs = paramOIDs
	e.named = true

	c.evictLocked()
	return e.Name
}

func (c *Cache) namedCountLocked() int {
	n := 0
	for el := c.order.Front(); el != nil; el = el.Next() {
		if el.Value.(*Entry).named {
			n++
		}
	}
	return n
}

func (c *Cache) evictLocked() {
	for c.namedCountLocked() > c.Capacity {
		el := c.order.Front()
		for el != nil && !el.Value.(*Entry).named {
			el = el.Next()
		}
		if el == nil {
			return
		}
		e := el.Value.(*Entry)
		c.order.Remove(el)
		delete(c.bySQL, e.SQL)
		c.pendingClose = append(c.pendingClose, e.Name)
	}
}

// TakePendingClose returns and clears the server statement names evicted
// since the last call, for the caller to fold into the next Close/Sync
// round trip.
func (c *Cache) TakePendingClose() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := c.pendingClose
	c.pendingClose = nil
	return names
}

// Reset drops all cached state, as required after the underlying
// connection is replaced (a server-prepared statement lives only as long
// as the session that Parsed it).
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.bySQL = make(map[string]*Entry)
	c.order = list.New()
	c.pendingClose = nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func statementName(id int) string {
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	if id == 0 {
		return "pgwire_stmt_0"
	}
	var buf [16]byte
	i := len(buf)
	for id > 0 {
		i--
		buf[i] = digits[id%len(digits)]
		id /= len(digits)
	}
	return "pgwire_stmt_" + string(buf[i:])
}
