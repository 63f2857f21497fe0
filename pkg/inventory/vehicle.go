// Package inventory defines the vehicle inventory domain model: the
// vehicle record itself, the append-only price history and sync log
// entries, the fixed field comparison table used by reconciliation, and
// the storage interfaces the rest of the system programs against.
package inventory

import (
	"time"
)

// Status models a vehicle's presence in the dealership inventory.
// Records are never hard-deleted; absence from a snapshot flips the
// status to removed, and reappearance flips it back.
type Status string

const (
	// StatusActive means the vehicle was present in the most recent snapshot.
	StatusActive Status = "active"
	// StatusRemoved means the vehicle disappeared from a snapshot.
	StatusRemoved Status = "removed"
)

// Vehicle is a single inventory record, uniquely keyed by VIN.
// Optional numeric attributes are pointers so that "absent" and "zero"
// stay distinguishable; optional string attributes are empty when unknown.
type Vehicle struct {
	VIN   string `json:"vin" yaml:"vin"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`

	Price   *int `json:"price,omitempty" yaml:"price,omitempty"`
	Mileage *int `json:"mileage,omitempty" yaml:"mileage,omitempty"`
	Year    *int `json:"year,omitempty" yaml:"year,omitempty"`

	Make          string `json:"make,omitempty" yaml:"make,omitempty"`
	Model         string `json:"model,omitempty" yaml:"model,omitempty"`
	Trim          string `json:"trim,omitempty" yaml:"trim,omitempty"`
	BodyStyle     string `json:"body_style,omitempty" yaml:"body_style,omitempty"`
	FuelType      string `json:"fuel_type,omitempty" yaml:"fuel_type,omitempty"`
	Transmission  string `json:"transmission,omitempty" yaml:"transmission,omitempty"`
	Drivetrain    string `json:"drivetrain,omitempty" yaml:"drivetrain,omitempty"`
	Engine        string `json:"engine,omitempty" yaml:"engine,omitempty"`
	ExteriorColor string `json:"exterior_color,omitempty" yaml:"exterior_color,omitempty"`
	InteriorColor string `json:"interior_color,omitempty" yaml:"interior_color,omitempty"`

	Status Status `json:"status" yaml:"status,omitempty"`

	CreatedAt   time.Time  `json:"created_at" yaml:"created_at,omitempty"`
	DateScraped time.Time  `json:"date_scraped" yaml:"date_scraped,omitempty"`
	LastSeen    time.Time  `json:"last_seen" yaml:"last_seen,omitempty"`
	RemovedAt   *time.Time `json:"removed_at,omitempty" yaml:"removed_at,omitempty"`

	// Prediction fields are written only by the predictor write path,
	// never by reconciliation.
	PredictedPrice  *int `json:"predicted_price,omitempty" yaml:"predicted_price,omitempty"`
	PriceDifference *int `json:"price_difference,omitempty" yaml:"price_difference,omitempty"`
}

// Active reports whether the vehicle is currently listed.
func (v *Vehicle) Active() bool {
	return v.Status == StatusActive
}

// Clone returns a deep copy of the vehicle.
func (v *Vehicle) Clone() *Vehicle {
	c := *v
	c.Price = cloneInt(v.Price)
	c.Mileage = cloneInt(v.Mileage)
	c.Year = cloneInt(v.Year)
	c.PredictedPrice = cloneInt(v.PredictedPrice)
	c.PriceDifference = cloneInt(v.PriceDifference)
	if v.RemovedAt != nil {
		t := *v.RemovedAt
		c.RemovedAt = &t
	}
	return &c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	n := *p
	return &n
}

// Int returns a pointer to n, for building optional fields in literals.
func Int(n int) *int {
	return &n
}

// PriceEntry is one point on a vehicle's price timeline. Entries are
// append-only and ordered ascending by timestamp per VIN.
type PriceEntry struct {
	VIN       string    `json:"vin"`
	Price     int       `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncEntry is the immutable audit record of one reconciliation run.
type SyncEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`

	TotalScraped int `json:"total_scraped"`
	Added        int `json:"added"`
	Updated      int `json:"updated"`
	Removed      int `json:"removed"`
	Unchanged    int `json:"unchanged"`
	TotalActive  int `json:"total_active"`

	AddedDetails   []AddedDetail   `json:"added_details"`
	UpdatedDetails []UpdatedDetail `json:"updated_details"`
	RemovedDetails []RemovedDetail `json:"removed_details"`
}

// AddedDetail identifies a vehicle inserted during a run.
type AddedDetail struct {
	VIN   string `json:"vin"`
	Title string `json:"title,omitempty"`
}

// UpdatedDetail records which fields changed on an existing vehicle,
// keyed by field name with the old and new values.
type UpdatedDetail struct {
	VIN    string           `json:"vin"`
	Title  string           `json:"title,omitempty"`
	Fields map[Field]Change `json:"fields"`
}

// RemovedDetail identifies a vehicle marked removed during a run.
type RemovedDetail struct {
	VIN   string `json:"vin"`
	Title string `json:"title,omitempty"`
}
