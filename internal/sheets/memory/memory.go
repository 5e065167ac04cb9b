package memory

import (
	"context"
	"sync"

	ports "salesboard/internal/sheets"
)

// Store is an in-memory TableReader. It backs DATA_SOURCE=memory and the
// tests that need a spreadsheet without the network.
type Store struct {
	mu    sync.Mutex
	table ports.Table
	reads int
}

var _ ports.TableReader = (*Store)(nil)

func New(name string, values [][]string) *Store {
	return &Store{table: ports.Table{Name: name, Values: copyRows(values)}}
}

// ReadTable returns a copy of the stored table.
func (s *Store) ReadTable(_ context.Context) (ports.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return ports.Table{Name: s.table.Name, Values: copyRows(s.table.Values)}, nil
}

// Reads reports how many times the table was read.
func (s *Store) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func copyRows(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, row := range in {
		out[i] = append([]string(nil), row...)
	}
	return out
}
