// Package tree provides the in-memory configuration tree: a mapping from
// string keys to typed values, optionally bound to a write-ahead journal.
//
// When a tree is bound, every mutation is appended to the journal before it
// becomes visible. A failed append leaves the tree unchanged.
package tree

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/leapstack-labs/configx/pkg/value"
)

var (
	// ErrKeyNotFound is returned by Get when the key is absent.
	ErrKeyNotFound = errors.New("key not found")

	// ErrEmptyKey is returned when a mutation names the empty key.
	ErrEmptyKey = errors.New("key must not be empty")

	// ErrInvalidUTF8 is returned when a key or string value is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
)

// Journal durably records mutations before a bound tree applies them.
// Implementations must not return until the record is durable.
type Journal interface {
	AppendSet(key string, v value.Value) error
	AppendDelete(key string) error
}

// Tree is a concurrency-safe key/value map. Mutations are serialized;
// reads may run concurrently and never observe a partial mutation.
type Tree struct {
	mu      sync.RWMutex
	entries map[string]value.Value
	journal Journal
}

// New returns an empty tree with no durability.
func New() *Tree {
	return &Tree{entries: make(map[string]value.Value)}
}

// NewBound returns an empty tree whose mutations are logged through j.
func NewBound(j Journal) *Tree {
	t := New()
	t.journal = j
	return t
}

// Bind attaches j as the tree's journal, replacing any previous one.
// Passing nil unbinds the tree.
func (t *Tree) Bind(j Journal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal = j
}

// Bound reports whether the tree logs mutations through a journal.
func (t *Tree) Bound() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.journal != nil
}

// Set stores v under key and returns the previous value, or Null if the key
// was absent.
func (t *Tree) Set(key string, v value.Value) (value.Value, error) {
	if err := checkKey(key); err != nil {
		return value.Null(), err
	}
	if !v.ValidUTF8() {
		return value.Null(), fmt.Errorf("%w: value for key %q", ErrInvalidUTF8, key)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.journal != nil {
		if err := t.journal.AppendSet(key, v); err != nil {
			return value.Null(), fmt.Errorf("log set %q: %w", key, err)
		}
	}

	prev := t.entries[key]
	t.entries[key] = v
	return prev, nil
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if !utf8.ValidString(key) {
		return fmt.Errorf("%w: key %q", ErrInvalidUTF8, key)
	}
	return nil
}

// Get returns the value stored under key.
func (t *Tree) Get(key string) (value.Value, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.entries[key]
	if !ok {
		return value.Null(), fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	return v, nil
}

// GetSafe returns the value stored under key, or Null if it is absent.
// It never creates an entry.
func (t *Tree) GetSafe(key string) value.Value {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[key]
}

// Has reports whether key is present.
func (t *Tree) Has(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[key]
	return ok
}

// Delete removes key and reports whether it was present. Deleting an absent
// key is a no-op and writes nothing to the journal.
func (t *Tree) Delete(key string) (bool, error) {
	if err := checkKey(key); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[key]; !ok {
		return false, nil
	}

	if t.journal != nil {
		if err := t.journal.AppendDelete(key); err != nil {
			return false, fmt.Errorf("log delete %q: %w", key, err)
		}
	}

	delete(t.entries, key)
	return true, nil
}

// Len returns the number of entries.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Keys returns all keys in sorted order.
func (t *Tree) Keys() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.entries))
}

// Snapshot returns a copy of all entries.
func (t *Tree) Snapshot() map[string]value.Value {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return maps.Clone(t.entries)
}

// Restore replaces the tree's contents with entries without journaling.
// It is used when rebuilding state from durable storage.
func (t *Tree) Restore(entries map[string]value.Value) {
	restored := make(map[string]value.Value, len(entries))
	for k, v := range entries {
		restored[k] = v
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = restored
}

// Freeze calls fn with a copy of all entries while holding off mutations.
// Reads already admitted proceed, but once a writer is waiting new readers
// queue behind it until fn returns. A journal checkpoint runs inside fn so
// that no mutation can slip between the copy and the journal reset.
func (t *Tree) Freeze(fn func(entries map[string]value.Value) error) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return fn(maps.Clone(t.entries))
}
