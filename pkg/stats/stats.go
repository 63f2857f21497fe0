// Package stats computes read-only aggregates over the inventory.
// Everything here is a pure function of one repository scan; nothing is
// mutated and results may lag an in-flight sync, which is acceptable.
package stats

import (
	"context"
	"math"

	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/inventory"
)

// Range is an inclusive min/max pair. Zeroes when no samples exist.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Inventory summarizes the active fleet.
type Inventory struct {
	TotalActive  int            `json:"total_active"`
	TotalRemoved int            `json:"total_removed"`
	AvgPrice     int            `json:"avg_price"`
	AvgMileage   int            `json:"avg_mileage"`
	PriceRange   Range          `json:"price_range"`
	YearRange    Range          `json:"year_range"`
	Makes        map[string]int `json:"makes"`
	Models       map[string]int `json:"models"`
}

// Snapshot aggregates the currently active records: counts, rounded
// averages (0 when there are no samples), price and year ranges, and
// frequency counts grouped by make and by model.
func Snapshot(ctx context.Context, repo inventory.Repository) (*Inventory, error) {
	active, err := repo.List(ctx, inventory.Filter{Status: inventory.StatusActive})
	if err != nil {
		return nil, errors.NewPersistenceError("active scan", err)
	}
	removed, err := repo.Count(ctx, inventory.StatusRemoved)
	if err != nil {
		return nil, errors.NewPersistenceError("count", err)
	}

	summary := &Inventory{
		TotalActive:  len(active),
		TotalRemoved: removed,
		Makes:        make(map[string]int),
		Models:       make(map[string]int),
	}

	var prices, mileages, years []int
	for _, v := range active {
		if v.Price != nil && *v.Price > 0 {
			prices = append(prices, *v.Price)
		}
		if v.Mileage != nil && *v.Mileage > 0 {
			mileages = append(mileages, *v.Mileage)
		}
		if v.Year != nil && *v.Year > 0 {
			years = append(years, *v.Year)
		}
		summary.Makes[orUnknown(v.Make)]++
		summary.Models[orUnknown(v.Model)]++
	}

	summary.AvgPrice = roundedMean(prices)
	summary.AvgMileage = roundedMean(mileages)
	summary.PriceRange = bounds(prices)
	summary.YearRange = bounds(years)

	return summary, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}

func roundedMean(samples []int) int {
	if len(samples) == 0 {
		return 0
	}
	sum := 0
	for _, n := range samples {
		sum += n
	}
	return int(math.Round(float64(sum) / float64(len(samples))))
}

func bounds(samples []int) Range {
	if len(samples) == 0 {
		return Range{}
	}
	r := Range{Min: samples[0], Max: samples[0]}
	for _, n := range samples[1:] {
		if n < r.Min {
			r.Min = n
		}
		if n > r.Max {
			r.Max = n
		}
	}
	return r
}
