package env

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Capacity is the most effective entries a bootstrapped environment may hold.
const Capacity = 64

var (
	ErrCapacity = errors.New("environment table is full")
	ErrReleased = errors.New("environment table was released")
)

// Table is an ordered set of owned "name=value" strings with a hard capacity.
// Its identity is its pointer: two tables with the same content are still
// different tables.
type Table struct {
	entries  []string
	capacity int
	released bool
}

// NewTable returns an empty table that accepts at most capacity entries.
func NewTable(capacity int) *Table {
	return &Table{capacity: capacity}
}

// FromEnviron snapshots an os.Environ-style list into a table sized to fit it.
// Strings without '=' are dropped.
func FromEnviron(environ []string) *Table {
	t := &Table{entries: make([]string, 0, len(environ))}
	for _, kv := range environ {
		if !strings.Contains(kv, "=") {
			continue
		}
		t.entries = append(t.entries, strings.Clone(kv))
	}
	t.capacity = len(t.entries)
	return t
}

// Append adds one entry, failing once the table is at capacity.
func (t *Table) Append(e Entry) error {
	if t.released {
		return ErrReleased
	}
	if len(t.entries) >= t.capacity {
		return fmt.Errorf("%w: more than %d entries", ErrCapacity, t.capacity)
	}
	t.entries = append(t.entries, e.String())
	return nil
}

// Len counts every appended entry, duplicates included.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

func (t *Table) Cap() int {
	if t == nil {
		return 0
	}
	return t.capacity
}

// Entries returns the entries in insertion order.
func (t *Table) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, 0, len(t.entries))
	for _, kv := range t.entries {
		name, value, _ := strings.Cut(kv, "=")
		out = append(out, Entry{Name: name, Value: value})
	}
	return out
}

// Environ returns the table as "name=value" strings, keeping only the first
// occurrence of each name.
func (t *Table) Environ() []string {
	if t == nil {
		return []string{}
	}
	seen := make(map[string]struct{}, len(t.entries))
	out := make([]string, 0, len(t.entries))
	for _, kv := range t.entries {
		name, _, _ := strings.Cut(kv, "=")
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, kv)
	}
	return out
}

// Names returns the distinct names, sorted.
func (t *Table) Names() []string {
	var names []string
	for _, kv := range t.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup returns the value of the first entry called name.
func (t *Table) Lookup(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, kv := range t.entries {
		if n, v, _ := strings.Cut(kv, "="); n == name {
			return v, true
		}
	}
	return "", false
}

// Release drops every owned string and marks the table unusable. It reports
// false if the table had already been released.
func (t *Table) Release() bool {
	if t == nil || t.released {
		return false
	}
	clear(t.entries)
	t.entries = nil
	t.released = true
	return true
}

func (t *Table) Released() bool { return t != nil && t.released }

// Snapshot copies t into a lookup that stays valid after t is released.
func Snapshot(t *Table) LookupFunc {
	values := make(map[string]string, t.Len())
	for _, e := range t.Entries() {
		if _, dup := values[e.Name]; !dup {
			values[e.Name] = e.Value
		}
	}
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}
