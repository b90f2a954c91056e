package workflow

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrKeyNotFound is returned by typed context access when the key is
	// absent.
	ErrKeyNotFound = errors.New("context key not found")
	// ErrTypeMismatch is returned by typed context access when the stored
	// value has a different type than requested.
	ErrTypeMismatch = errors.New("context value type mismatch")
)

// MergeStrategy controls how key collisions are resolved when merging one
// context into another.
type MergeStrategy int

const (
	// MergeSkip keeps the destination value on collision.
	MergeSkip MergeStrategy = iota
	// MergeOverwrite replaces the destination value on collision.
	MergeOverwrite
	// MergeError aborts the merge on the first collision.
	MergeError
)

func (s MergeStrategy) String() string {
	switch s {
	case MergeSkip:
		return "skip"
	case MergeOverwrite:
		return "overwrite"
	case MergeError:
		return "error"
	default:
		return "unknown"
	}
}

// Context is the shared mutable state threaded through a workflow tree.
// The caller creates it once, every node receives the same reference, and
// steps communicate by writing keys that later steps read. The engine never
// resets or replaces it.
//
// Map access is internally synchronized so concurrent combinators can touch
// the same context without races. Logical isolation between parallel
// branches is a separate, explicit choice (see Parallel and Clone).
type Context struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewContext creates an empty workflow context.
func NewContext() *Context {
	return &Context{data: make(map[string]any)}
}

// NewContextFrom creates a context seeded with a shallow copy of init.
func NewContextFrom(init map[string]any) *Context {
	c := &Context{data: make(map[string]any, len(init))}
	for k, v := range init {
		c.data[k] = v
	}
	return c
}

// Put stores value under key, replacing any previous value.
func (c *Context) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Get returns the value stored under key.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Has reports whether key is present.
func (c *Context) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.data[key]
	return ok
}

// Delete removes key and reports whether it was present.
func (c *Context) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	delete(c.data, key)
	return ok
}

// Keys returns all keys in sorted order.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of stored keys.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Snapshot returns a shallow copy of the current contents.
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = v
	}
	return out
}

// Clone returns an independent context holding a shallow copy of the
// current contents. Values are shared, the key space is not.
func (c *Context) Clone() *Context {
	return NewContextFrom(c.Snapshot())
}

// Merge copies every key of other into c, resolving collisions per
// strategy, and returns the colliding keys in sorted order. With MergeError
// the first collision aborts the merge; keys already copied stay copied.
func (c *Context) Merge(other *Context, strategy MergeStrategy) ([]string, error) {
	if other == nil || other == c {
		return nil, nil
	}
	incoming := other.Snapshot()
	keys := make([]string, 0, len(incoming))
	for k := range incoming {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	c.mu.Lock()
	defer c.mu.Unlock()
	var collisions []string
	for _, k := range keys {
		if _, exists := c.data[k]; exists {
			collisions = append(collisions, k)
			switch strategy {
			case MergeError:
				return collisions, fmt.Errorf("merge collision on key %q", k)
			case MergeSkip:
				continue
			}
		}
		c.data[k] = incoming[k]
	}
	return collisions, nil
}

// Value returns the value stored under key as type T. It fails with
// ErrKeyNotFound when the key is absent and ErrTypeMismatch when the stored
// value is not a T.
func Value[T any](c *Context, key string) (T, error) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: key %s holds %T", ErrTypeMismatch, key, v)
	}
	return t, nil
}

// ValueOr returns the value stored under key as type T, or def when the
// key is absent or holds a different type.
func ValueOr[T any](c *Context, key string, def T) T {
	v, err := Value[T](c, key)
	if err != nil {
		return def
	}
	return v
}

// Scope is a key-prefixing view over a parent context. Every operation
// delegates to the same backing store under "<name>." keys, so scoped and
// unscoped access observe the same data. A scope has no lifecycle of its
// own.
type Scope struct {
	parent *Context
	name   string
}

// Scope returns a view of c under the given name prefix.
func (c *Context) Scope(name string) *Scope {
	return &Scope{parent: c, name: name}
}

// Scope returns a nested view, with the child name appended to the parent
// prefix.
func (s *Scope) Scope(name string) *Scope {
	return &Scope{parent: s.parent, name: s.name + "." + name}
}

// Name returns the full prefix of this scope.
func (s *Scope) Name() string { return s.name }

// Key returns the backing-store key for key within this scope.
func (s *Scope) Key(key string) string { return s.name + "." + key }

// Put stores value under the scoped key.
func (s *Scope) Put(key string, value any) { s.parent.Put(s.Key(key), value) }

// Get returns the value stored under the scoped key.
func (s *Scope) Get(key string) (any, bool) { return s.parent.Get(s.Key(key)) }

// Has reports whether the scoped key is present.
func (s *Scope) Has(key string) bool { return s.parent.Has(s.Key(key)) }

// Delete removes the scoped key and reports whether it was present.
func (s *Scope) Delete(key string) bool { return s.parent.Delete(s.Key(key)) }

// Keys returns the keys of this scope, prefix stripped, in sorted order.
func (s *Scope) Keys() []string {
	prefix := s.name + "."
	var keys []string
	for _, k := range s.parent.Keys() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, strings.TrimPrefix(k, prefix))
		}
	}
	return keys
}
