// Package proc keeps a table of named, read-only pseudo-files whose
// contents are produced on demand, and exposes them as an afero.Fs.
package proc

import (
	"errors"
	"sort"
	"sync"
)

var (
	ErrInvalidName = errors.New("proc: invalid entry name")
	ErrExist       = errors.New("proc: entry already registered")
	ErrNotExist    = errors.New("proc: entry not registered")
)

// Entry is a pseudo-file. Read fills buf with the bytes found at offset
// and returns how many it wrote; 0 means end of file.
type Entry struct {
	Name string
	Read func(buf []byte, offset int64) int
}

// Table is a set of entries keyed by name.
type Table struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

func NewTable() *Table {
	return &Table{entries: make(map[string]*Entry)}
}

// Register adds e to the table. Names must be non-empty, free of '/' and
// not already taken.
func (t *Table) Register(e *Entry) error {
	if e == nil || e.Read == nil || !validName(e.Name) {
		return ErrInvalidName
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.entries[e.Name]; ok {
		return ErrExist
	}
	t.entries[e.Name] = e
	return nil
}

// Unregister removes e. The entry must be the one that was registered
// under its name.
func (t *Table) Unregister(e *Entry) error {
	if e == nil || e.Name == "" {
		return ErrInvalidName
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.entries[e.Name]; !ok || cur != e {
		return ErrNotExist
	}
	delete(t.entries, e.Name)
	return nil
}

func (t *Table) Find(name string) *Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.entries[name]
}

// Entries returns the registered entries sorted by name.
func (t *Table) Entries() []*Entry {
	t.mu.RLock()
	list := make([]*Entry, 0, len(t.entries))
	for _, e := range t.entries {
		list = append(list, e)
	}
	t.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			return false
		}
	}
	return true
}

// Contents reads the whole entry, up to limit bytes.
func Contents(e *Entry, limit int) []byte {
	var (
		out = make([]byte, 0, 512)
		buf = make([]byte, 512)
	)
	for len(out) < limit {
		n := e.Read(buf, int64(len(out)))
		if n <= 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
