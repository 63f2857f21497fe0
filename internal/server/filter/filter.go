// Package filter provides query parameter parsing for the vehicle API
// endpoints. It translates URL query strings into inventory filters plus
// pagination, rejecting malformed values instead of silently ignoring them.
package filter

import (
	"net/http"
	"strconv"

	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/inventory"
)

// Params holds the parsed query parameters for vehicle listing endpoints.
type Params struct {
	Filter         inventory.Filter
	IncludeRemoved bool
	Limit          int
	Offset         int
}

// DefaultLimit is applied when no limit query parameter is given.
const DefaultLimit = 100

// MaxLimit caps the limit query parameter.
const MaxLimit = 1000

// ParseVehicleParams extracts vehicle filter parameters from an HTTP request.
// Malformed numeric values yield a ValidationError naming the offending field.
func ParseVehicleParams(r *http.Request) (Params, error) {
	q := r.URL.Query()

	p := Params{
		Filter: inventory.Filter{
			Make:         q.Get("make"),
			Model:        q.Get("model"),
			FuelType:     q.Get("fuel_type"),
			Transmission: q.Get("transmission"),
		},
		Limit: DefaultLimit,
	}

	switch q.Get("sort") {
	case "", "date_scraped":
		p.Filter.Order = inventory.OrderScrapedDesc
	case "price":
		p.Filter.Order = inventory.OrderPriceAsc
	default:
		return p, errors.NewValidationError("sort", "must be one of: date_scraped, price")
	}

	if v := q.Get("include_removed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return p, errors.NewValidationError("include_removed", "must be a boolean")
		}
		p.IncludeRemoved = b
	}
	if !p.IncludeRemoved {
		p.Filter.Status = inventory.StatusActive
	}

	for _, rng := range []struct {
		key  string
		dest **int
	}{
		{"year_min", &p.Filter.YearMin},
		{"year_max", &p.Filter.YearMax},
		{"price_min", &p.Filter.PriceMin},
		{"price_max", &p.Filter.PriceMax},
	} {
		v := q.Get(rng.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return p, errors.NewValidationError(rng.key, "must be an integer")
		}
		*rng.dest = &n
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, errors.NewValidationError("limit", "must be a positive integer")
		}
		p.Limit = n
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return p, errors.NewValidationError("offset", "must be a non-negative integer")
		}
		p.Offset = n
	}

	return p, nil
}

// Page applies limit and offset to a vehicle slice, returning the page and
// the pre-pagination total.
func (p Params) Page(vehicles []*inventory.Vehicle) ([]*inventory.Vehicle, int) {
	total := len(vehicles)
	if p.Offset >= total {
		return []*inventory.Vehicle{}, total
	}
	end := p.Offset + p.Limit
	if end > total {
		end = total
	}
	return vehicles[p.Offset:end], total
}
