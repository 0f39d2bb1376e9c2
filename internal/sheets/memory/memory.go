// Package memory keeps extracts in process memory. It backs tests and the
// "memory" data backend, which can be seeded from CSV files.
package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"painel/internal/core"
	"painel/internal/sheets"
	"painel/internal/sheets/file"
)

var (
	_ sheets.TableReader = (*Store)(nil)
	_ sheets.TableWriter = (*Store)(nil)
	_ sheets.SourceNamer = (*Store)(nil)
)

type Store struct {
	mu     sync.Mutex
	tables map[core.Kind]core.Table
	reads  int
}

func New(tables map[core.Kind]core.Table) *Store {
	s := &Store{tables: make(map[core.Kind]core.Table, len(tables))}
	for k, t := range tables {
		s.tables[k] = cloneTable(t)
	}
	return s
}

// NewFromFiles seeds the store with "<kind>.csv" files found in base.
// Missing files leave that extract empty.
func NewFromFiles(ctx context.Context, base string) (*Store, error) {
	s := New(nil)
	for _, kind := range core.Kinds() {
		path := filepath.Join(base, string(kind)+".csv")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		t, err := file.ReadFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", kind, err)
		}
		s.tables[kind] = t
	}
	return s, nil
}

// ReadTable returns a copy of the stored extract. An extract never written
// reads as an empty table.
func (s *Store) ReadTable(_ context.Context, kind core.Kind) (core.Table, error) {
	if _, err := core.ParseKind(string(kind)); err != nil {
		return core.Table{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return cloneTable(s.tables[kind]), nil
}

func (s *Store) WriteTable(_ context.Context, kind core.Kind, t core.Table) error {
	if _, err := core.ParseKind(string(kind)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[kind] = cloneTable(t)
	return nil
}

func (s *Store) SourceName() string { return fmt.Sprintf("memory:%p", s) }

// Reads returns how many extracts were read so far.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func cloneTable(t core.Table) core.Table {
	out := core.Table{Header: append([]string(nil), t.Header...)}
	if t.Rows != nil {
		out.Rows = make([][]string, len(t.Rows))
		for i, r := range t.Rows {
			out.Rows[i] = append([]string(nil), r...)
		}
	}
	return out
}
