package conversion

import (
	"context"
	"sync"

	"github.com/kaushal/skillcredits/pkg/domain/conversion"
)

// RateProvider supplies the current rate table.
type RateProvider interface {
	Rates(ctx context.Context) (conversion.RateTable, error)
	// SetRates replaces or adds the given rates; other tickers keep their rate.
	SetRates(ctx context.Context, rates conversion.RateTable) error
}

// StaticRates is a RateProvider backed by configuration, updatable in memory.
type StaticRates struct {
	mu    sync.RWMutex
	table conversion.RateTable
}

// NewStaticRates copies table; a nil table means conversion.DefaultRates.
func NewStaticRates(table conversion.RateTable) *StaticRates {
	if table == nil {
		table = conversion.DefaultRates
	}
	return &StaticRates{table: table.Merge(nil)}
}

func (s *StaticRates) Rates(context.Context) (conversion.RateTable, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table.Merge(nil), nil
}

func (s *StaticRates) SetRates(_ context.Context, rates conversion.RateTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = s.table.Merge(rates)
	return nil
}
