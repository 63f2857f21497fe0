// Package memory provides an in-memory Store for tests and local
// development. All tables are guarded by read-write mutexes and hand
// out deep copies, so callers can never mutate stored state in place.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/inventory"
)

// Store is the in-memory implementation of inventory.Store.
type Store struct {
	vehicles *vehicleTable
	prices   *priceTable
	syncs    *syncTable
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		vehicles: &vehicleTable{records: make(map[string]*inventory.Vehicle)},
		prices:   &priceTable{entries: make(map[string][]inventory.PriceEntry)},
		syncs:    &syncTable{},
	}
}

// Vehicles returns the vehicle repository.
func (s *Store) Vehicles() inventory.Repository { return s.vehicles }

// Prices returns the price history ledger.
func (s *Store) Prices() inventory.Ledger { return s.prices }

// Syncs returns the sync log.
func (s *Store) Syncs() inventory.SyncLog { return s.syncs }

// Close is a no-op for memory stores.
func (s *Store) Close() error { return nil }

// vehicleTable is a concurrent-safe map of vehicles keyed by VIN.
type vehicleTable struct {
	mu      sync.RWMutex
	records map[string]*inventory.Vehicle
}

// Get returns a copy of the vehicle for the VIN.
func (t *vehicleTable) Get(_ context.Context, vin string) (*inventory.Vehicle, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v, ok := t.records[vin]
	if !ok {
		return nil, errors.NewNotFoundError("vehicle", vin)
	}
	return v.Clone(), nil
}

// Put inserts or replaces the record for v.VIN.
func (t *vehicleTable) Put(_ context.Context, v *inventory.Vehicle) error {
	if v == nil || v.VIN == "" {
		return errors.NewValidationError("vin", "must not be empty")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records[v.VIN] = v.Clone()
	return nil
}

// List scans all records matching the filter.
func (t *vehicleTable) List(_ context.Context, f inventory.Filter) ([]*inventory.Vehicle, error) {
	t.mu.RLock()
	matched := make([]*inventory.Vehicle, 0, len(t.records))
	for _, v := range t.records {
		if f.Matches(v) {
			matched = append(matched, v.Clone())
		}
	}
	t.mu.RUnlock()

	switch f.Order {
	case inventory.OrderPriceAsc:
		sort.SliceStable(matched, func(i, j int) bool {
			pi, pj := matched[i].Price, matched[j].Price
			switch {
			case pi == nil && pj == nil:
				return matched[i].VIN < matched[j].VIN
			case pi == nil:
				return false
			case pj == nil:
				return true
			case *pi != *pj:
				return *pi < *pj
			}
			return matched[i].VIN < matched[j].VIN
		})
	default:
		sort.SliceStable(matched, func(i, j int) bool {
			if !matched[i].DateScraped.Equal(matched[j].DateScraped) {
				return matched[i].DateScraped.After(matched[j].DateScraped)
			}
			return matched[i].VIN < matched[j].VIN
		})
	}
	return matched, nil
}

// Count returns the number of records with the given status.
func (t *vehicleTable) Count(_ context.Context, status inventory.Status) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if status == "" {
		return len(t.records), nil
	}
	n := 0
	for _, v := range t.records {
		if v.Status == status {
			n++
		}
	}
	return n, nil
}

// SetPrediction writes the predictor-owned fields only.
func (t *vehicleTable) SetPrediction(_ context.Context, vin string, predicted, difference int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.records[vin]
	if !ok {
		return errors.NewNotFoundError("vehicle", vin)
	}
	v.PredictedPrice = inventory.Int(predicted)
	v.PriceDifference = inventory.Int(difference)
	return nil
}

// priceTable is the append-only price timeline.
type priceTable struct {
	mu      sync.RWMutex
	entries map[string][]inventory.PriceEntry
}

// Append records a price observation.
func (t *priceTable) Append(_ context.Context, vin string, price int, ts time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[vin] = append(t.entries[vin], inventory.PriceEntry{
		VIN:       vin,
		Price:     price,
		Timestamp: ts,
	})
	return nil
}

// History returns the timeline for a VIN ascending by timestamp.
func (t *priceTable) History(_ context.Context, vin string) ([]inventory.PriceEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	history := make([]inventory.PriceEntry, len(t.entries[vin]))
	copy(history, t.entries[vin])
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Timestamp.Before(history[j].Timestamp)
	})
	return history, nil
}

// syncTable is the append-only sync log.
type syncTable struct {
	mu      sync.RWMutex
	entries []*inventory.SyncEntry
}

// Append stores one run's entry.
func (t *syncTable) Append(_ context.Context, e *inventory.SyncEntry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	clone := *e
	t.entries = append(t.entries, &clone)
	return nil
}

// Latest returns the most recent entry.
func (t *syncTable) Latest(_ context.Context) (*inventory.SyncEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.entries) == 0 {
		return nil, errors.NewNotFoundError("sync entry", "latest")
	}
	latest := t.entries[0]
	for _, e := range t.entries[1:] {
		if e.Timestamp.After(latest.Timestamp) {
			latest = e
		}
	}
	clone := *latest
	return &clone, nil
}

// Recent returns up to limit entries descending by timestamp.
func (t *syncTable) Recent(_ context.Context, limit int, source string) ([]*inventory.SyncEntry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	recent := make([]*inventory.SyncEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if source != "" && e.Source != source {
			continue
		}
		clone := *e
		recent = append(recent, &clone)
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}
