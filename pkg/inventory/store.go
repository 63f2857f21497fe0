package inventory

import (
	"context"
	"strings"
	"time"
)

// Order selects the sort applied to List results.
type Order int

const (
	// OrderScrapedDesc sorts newest-scraped first (inventory listings).
	OrderScrapedDesc Order = iota
	// OrderPriceAsc sorts cheapest first (search results).
	OrderPriceAsc
)

// Filter narrows a repository scan. Zero value matches everything.
// String filters are case-insensitive substring matches, mirroring the
// search surface; range bounds are inclusive and nil means unbounded.
type Filter struct {
	Status       Status
	Make         string
	Model        string
	FuelType     string
	Transmission string
	YearMin      *int
	YearMax      *int
	PriceMin     *int
	PriceMax     *int
	Order        Order
}

// Matches reports whether the vehicle satisfies every set predicate.
// Backends without native filtering evaluate this during their scan.
func (f Filter) Matches(v *Vehicle) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if !containsFold(v.Make, f.Make) ||
		!containsFold(v.Model, f.Model) ||
		!containsFold(v.FuelType, f.FuelType) ||
		!containsFold(v.Transmission, f.Transmission) {
		return false
	}
	if f.YearMin != nil && (v.Year == nil || *v.Year < *f.YearMin) {
		return false
	}
	if f.YearMax != nil && (v.Year == nil || *v.Year > *f.YearMax) {
		return false
	}
	if f.PriceMin != nil && (v.Price == nil || *v.Price < *f.PriceMin) {
		return false
	}
	if f.PriceMax != nil && (v.Price == nil || *v.Price > *f.PriceMax) {
		return false
	}
	return true
}

func containsFold(have, want string) bool {
	if want == "" {
		return true
	}
	return strings.Contains(strings.ToLower(have), strings.ToLower(want))
}

// Repository is the keyed vehicle store. VIN is the sole identity and
// uniqueness is enforced on write; records are never physically deleted.
type Repository interface {
	// Get returns the vehicle for the VIN, or errors.ErrNotFound.
	Get(ctx context.Context, vin string) (*Vehicle, error)

	// Put inserts or fully replaces the record for v.VIN.
	Put(ctx context.Context, v *Vehicle) error

	// List scans records matching the filter, sorted per Filter.Order.
	List(ctx context.Context, f Filter) ([]*Vehicle, error)

	// Count returns the number of records with the given status,
	// or all records when status is empty.
	Count(ctx context.Context, status Status) (int, error)

	// SetPrediction writes the predictor-owned fields for a VIN. It
	// touches nothing else and creates no audit entries.
	SetPrediction(ctx context.Context, vin string, predicted, difference int) error
}

// Ledger is the append-only per-vehicle price timeline.
type Ledger interface {
	// Append records a price observation. No dedup, no mutation.
	Append(ctx context.Context, vin string, price int, ts time.Time) error

	// History returns all entries for the VIN ascending by timestamp.
	History(ctx context.Context, vin string) ([]PriceEntry, error)
}

// SyncLog is the append-only reconciliation audit trail.
type SyncLog interface {
	// Append stores one completed run's entry.
	Append(ctx context.Context, e *SyncEntry) error

	// Latest returns the most recent entry, or errors.ErrNotFound when
	// no run has ever completed.
	Latest(ctx context.Context) (*SyncEntry, error)

	// Recent returns up to limit entries descending by timestamp,
	// optionally filtered by source tag.
	Recent(ctx context.Context, limit int, source string) ([]*SyncEntry, error)
}

// Store bundles the three persistence surfaces behind one backend.
type Store interface {
	Vehicles() Repository
	Prices() Ledger
	Syncs() SyncLog
	Close() error
}
