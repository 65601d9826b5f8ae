// Package memory is an in-process spreadsheet used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"finsheet/internal/sheets"
	"finsheet/internal/sheets/grid"
)

type Store struct {
	mu    sync.Mutex
	order []string
	tabs  map[string]*grid.Grid
}

var _ sheets.Store = (*Store)(nil)

// New returns a store holding the given empty partitions, in order.
func New(partitions ...string) *Store {
	s := &Store{tabs: map[string]*grid.Grid{}}
	for _, p := range partitions {
		s.order = append(s.order, p)
		s.tabs[p] = grid.New()
	}
	return s
}

func (s *Store) ReadValues(_ context.Context, partition string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.tab(partition)
	if err != nil {
		return nil, err
	}
	return g.Values(), nil
}

func (s *Store) ReadFormatting(_ context.Context, partition string) ([][]sheets.CellFormat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.tab(partition)
	if err != nil {
		return nil, err
	}
	return g.Formats(), nil
}

// BatchWrite applies ops to a copy and swaps it in, so a failed batch leaves the partition untouched.
func (s *Store) BatchWrite(_ context.Context, partition string, ops []sheets.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.tab(partition)
	if err != nil {
		return err
	}
	next := grid.FromRows(g.Rows())
	if err := next.Apply(ops...); err != nil {
		return err
	}
	s.tabs[partition] = next
	return nil
}

func (s *Store) ListPartitions(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...), nil
}

func (s *Store) CreatePartition(_ context.Context, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tabs[label]; ok {
		return fmt.Errorf("%w: %q", sheets.ErrPartitionExists, label)
	}
	s.order = append(s.order, label)
	s.tabs[label] = grid.New()
	return nil
}

// Cells returns the raw cells of a partition, formulas unevaluated.
func (s *Store) Cells(partition string) ([][]sheets.Cell, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.tab(partition)
	if err != nil {
		return nil, err
	}
	return g.Rows(), nil
}

func (s *Store) tab(partition string) (*grid.Grid, error) {
	g, ok := s.tabs[partition]
	if !ok {
		return nil, fmt.Errorf("%w: %q", sheets.ErrPartitionNotFound, partition)
	}
	return g, nil
}
