package memory

import (
	"context"
	"testing"
	"time"

	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/inventory"
)

func TestVehicleTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := New()

	_, err := store.Vehicles().Get(ctx, "A1")
	if !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	v := &inventory.Vehicle{
		VIN:    "A1",
		Status: inventory.StatusActive,
		Price:  inventory.Int(30000),
	}
	if err := store.Vehicles().Put(ctx, v); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Stored copy must be isolated from the caller's struct.
	*v.Price = 1
	got, err := store.Vehicles().Get(ctx, "A1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if *got.Price != 30000 {
		t.Errorf("expected stored price 30000, got %d", *got.Price)
	}

	if err := store.Vehicles().Put(ctx, &inventory.Vehicle{}); err == nil {
		t.Error("expected error for empty vin")
	}
}

func TestVehicleTableListOrdering(t *testing.T) {
	ctx := context.Background()
	store := New()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seed := []*inventory.Vehicle{
		{VIN: "A1", Status: inventory.StatusActive, Price: inventory.Int(30000), DateScraped: base},
		{VIN: "B2", Status: inventory.StatusActive, Price: inventory.Int(20000), DateScraped: base.Add(time.Hour)},
		{VIN: "C3", Status: inventory.StatusActive, DateScraped: base.Add(2 * time.Hour)},
		{VIN: "D4", Status: inventory.StatusRemoved, Price: inventory.Int(10000), DateScraped: base},
	}
	for _, v := range seed {
		if err := store.Vehicles().Put(ctx, v); err != nil {
			t.Fatalf("put %s: %v", v.VIN, err)
		}
	}

	active, err := store.Vehicles().List(ctx, inventory.Filter{Status: inventory.StatusActive})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 3 {
		t.Fatalf("expected 3 active, got %d", len(active))
	}
	// Newest scraped first.
	if active[0].VIN != "C3" || active[2].VIN != "A1" {
		t.Errorf("unexpected scrape ordering: %s, %s, %s", active[0].VIN, active[1].VIN, active[2].VIN)
	}

	byPrice, err := store.Vehicles().List(ctx, inventory.Filter{
		Status: inventory.StatusActive,
		Order:  inventory.OrderPriceAsc,
	})
	if err != nil {
		t.Fatalf("list by price: %v", err)
	}
	// Cheapest first, priceless records last.
	if byPrice[0].VIN != "B2" || byPrice[2].VIN != "C3" {
		t.Errorf("unexpected price ordering: %s, %s, %s", byPrice[0].VIN, byPrice[1].VIN, byPrice[2].VIN)
	}

	n, err := store.Vehicles().Count(ctx, inventory.StatusActive)
	if err != nil || n != 3 {
		t.Errorf("expected 3 active, got %d (%v)", n, err)
	}
	total, err := store.Vehicles().Count(ctx, "")
	if err != nil || total != 4 {
		t.Errorf("expected 4 total, got %d (%v)", total, err)
	}
}

func TestSetPrediction(t *testing.T) {
	ctx := context.Background()
	store := New()

	if err := store.Vehicles().SetPrediction(ctx, "A1", 1, 2); !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	v := &inventory.Vehicle{VIN: "A1", Status: inventory.StatusActive, Price: inventory.Int(30000)}
	if err := store.Vehicles().Put(ctx, v); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Vehicles().SetPrediction(ctx, "A1", 31000, 1000); err != nil {
		t.Fatalf("set prediction: %v", err)
	}

	got, err := store.Vehicles().Get(ctx, "A1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.PredictedPrice == nil || *got.PredictedPrice != 31000 {
		t.Errorf("predicted price not written: %+v", got.PredictedPrice)
	}
	if got.PriceDifference == nil || *got.PriceDifference != 1000 {
		t.Errorf("price difference not written: %+v", got.PriceDifference)
	}
	// Everything else untouched.
	if *got.Price != 30000 || got.Status != inventory.StatusActive {
		t.Error("SetPrediction touched non-prediction fields")
	}
}

func TestPriceTable(t *testing.T) {
	ctx := context.Background()
	store := New()

	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i, price := range []int{30000, 28500, 28500} {
		if err := store.Prices().Append(ctx, "A1", price, ts.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	history, err := store.Prices().History(ctx, "A1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	// Append-only: no dedup even for repeated prices.
	if len(history) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].Timestamp.Before(history[i-1].Timestamp) {
			t.Error("history not ascending by timestamp")
		}
	}

	empty, err := store.Prices().History(ctx, "unknown")
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty history, got %v (%v)", empty, err)
	}
}

func TestSyncTable(t *testing.T) {
	ctx := context.Background()
	store := New()

	if _, err := store.Syncs().Latest(ctx); !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sources := []string{"manual", "scheduled", "manual"}
	for i, source := range sources {
		err := store.Syncs().Append(ctx, &inventory.SyncEntry{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Source:    source,
			Added:     i,
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	latest, err := store.Syncs().Latest(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Added != 2 {
		t.Errorf("wrong latest entry: %+v", latest)
	}

	recent, err := store.Syncs().Recent(ctx, 2, "")
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || !recent[0].Timestamp.After(recent[1].Timestamp) {
		t.Errorf("recent not limited/descending: %+v", recent)
	}

	manual, err := store.Syncs().Recent(ctx, 10, "manual")
	if err != nil || len(manual) != 2 {
		t.Fatalf("expected 2 manual entries, got %d (%v)", len(manual), err)
	}
}
