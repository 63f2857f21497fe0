// Package reconcile implements the snapshot reconciliation engine: it
// compares one observed inventory snapshot against persisted state,
// classifies every vehicle as added, updated, removed, or unchanged,
// maintains the price history ledger, and appends one immutable sync
// log entry per run.
//
// The three writes a record can trigger (vehicle upsert, ledger append,
// sync log append) are not wrapped in a cross-write transaction. A run
// that dies mid-flight leaves partial state behind; re-running the same
// snapshot is idempotent and heals it, which is the documented recovery
// strategy.
//
// A Reconciler assumes it is never invoked concurrently against the
// same store; exclusivity is the pipeline coordinator's job.
package reconcile

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/inventory"
	"github.com/lotwatch/lotwatch/pkg/logging"
)

// Reconciler merges snapshots into a Store.
type Reconciler struct {
	store         inventory.Store
	clock         func() time.Time
	guardFraction float64
	logger        *zerolog.Logger
}

// New creates a Reconciler over the given store.
func New(store inventory.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:  store,
		clock:  time.Now,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run reconciles one snapshot against the store and returns the sync
// log entry it appended. Candidates without a VIN are skipped; duplicate
// VINs within the snapshot resolve last-write-wins. On an upstream
// rejection (snapshot guard) nothing has been written; on a persistence
// error the writes applied so far remain in place.
func (r *Reconciler) Run(ctx context.Context, snapshot []inventory.Vehicle, source string) (*inventory.SyncEntry, error) {
	now := r.clock().UTC()
	repo := r.store.Vehicles()

	// Collapse duplicate VINs, keeping the last occurrence's values and
	// the first occurrence's position.
	order := make([]string, 0, len(snapshot))
	candidates := make(map[string]*inventory.Vehicle, len(snapshot))
	for i := range snapshot {
		vin := snapshot[i].VIN
		if vin == "" {
			continue
		}
		if _, seen := candidates[vin]; !seen {
			order = append(order, vin)
		}
		candidates[vin] = &snapshot[i]
	}

	if err := r.checkGuard(ctx, source, len(order)); err != nil {
		return nil, err
	}

	entry := &inventory.SyncEntry{
		Timestamp:      now,
		Source:         source,
		TotalScraped:   len(snapshot),
		AddedDetails:   []inventory.AddedDetail{},
		UpdatedDetails: []inventory.UpdatedDetail{},
		RemovedDetails: []inventory.RemovedDetail{},
	}

	for _, vin := range order {
		candidate := candidates[vin]
		existing, err := repo.Get(ctx, vin)
		switch {
		case errors.IsNotFound(err):
			if err := r.insert(ctx, candidate, now, entry); err != nil {
				return nil, err
			}
		case err != nil:
			return nil, errors.NewPersistenceError("get", err)
		default:
			if err := r.update(ctx, existing, candidate, now, entry); err != nil {
				return nil, err
			}
		}
	}

	if err := r.removeMissing(ctx, candidates, now, entry); err != nil {
		return nil, err
	}

	active, err := repo.Count(ctx, inventory.StatusActive)
	if err != nil {
		return nil, errors.NewPersistenceError("count", err)
	}
	entry.TotalActive = active

	if err := r.store.Syncs().Append(ctx, entry); err != nil {
		return nil, errors.NewPersistenceError("sync log append", err)
	}

	r.logger.Info().
		Str("source", source).
		Int("total_scraped", entry.TotalScraped).
		Int("added", entry.Added).
		Int("updated", entry.Updated).
		Int("removed", entry.Removed).
		Int("unchanged", entry.Unchanged).
		Int("total_active", entry.TotalActive).
		Msg("Sync complete")

	return entry, nil
}

// checkGuard rejects suspiciously small snapshots before any writes.
// Absence of a previous run disables the guard for that run.
func (r *Reconciler) checkGuard(ctx context.Context, source string, usable int) error {
	if r.guardFraction <= 0 {
		return nil
	}
	prev, err := r.store.Syncs().Latest(ctx)
	if errors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return errors.NewPersistenceError("sync log latest", err)
	}
	if prev.TotalActive == 0 {
		return nil
	}
	minimum := int(math.Ceil(r.guardFraction * float64(prev.TotalActive)))
	if usable < minimum {
		return errors.NewUpstreamError(source,
			fmt.Sprintf("snapshot rejected: %d usable candidates, previous active %d, minimum %d",
				usable, prev.TotalActive, minimum), nil)
	}
	return nil
}

func (r *Reconciler) insert(ctx context.Context, candidate *inventory.Vehicle, now time.Time, entry *inventory.SyncEntry) error {
	v := candidate.Clone()
	v.Status = inventory.StatusActive
	v.CreatedAt = now
	v.DateScraped = now
	v.LastSeen = now
	v.RemovedAt = nil
	v.PredictedPrice = nil
	v.PriceDifference = nil

	if err := r.store.Vehicles().Put(ctx, v); err != nil {
		return errors.NewPersistenceError("insert", err)
	}
	if v.Price != nil {
		if err := r.store.Prices().Append(ctx, v.VIN, *v.Price, now); err != nil {
			return errors.NewPersistenceError("price append", err)
		}
	}

	entry.Added++
	entry.AddedDetails = append(entry.AddedDetails, inventory.AddedDetail{
		VIN:   v.VIN,
		Title: v.Title,
	})
	r.logger.Info().Str("vin", v.VIN).Msg("Added new vehicle")
	return nil
}

func (r *Reconciler) update(ctx context.Context, existing, candidate *inventory.Vehicle, now time.Time, entry *inventory.SyncEntry) error {
	diff := inventory.Diff(existing, candidate)

	// Always refresh presence, even without field changes. A previously
	// removed vehicle that reappears goes active here; its removed_at is
	// retained as history.
	title := existing.Title
	if title == "" {
		title = existing.VIN
	}

	updated := existing.Clone()
	diff.Apply(updated)
	updated.Status = inventory.StatusActive
	updated.LastSeen = now

	if err := r.store.Vehicles().Put(ctx, updated); err != nil {
		return errors.NewPersistenceError("update", err)
	}

	if len(diff) == 0 {
		entry.Unchanged++
		return nil
	}

	if diff.Has(inventory.FieldPrice) && updated.Price != nil {
		if err := r.store.Prices().Append(ctx, updated.VIN, *updated.Price, now); err != nil {
			return errors.NewPersistenceError("price append", err)
		}
	}

	entry.Updated++
	entry.UpdatedDetails = append(entry.UpdatedDetails, inventory.UpdatedDetail{
		VIN:    updated.VIN,
		Title:  title,
		Fields: diff.Changes(),
	})
	r.logger.Info().
		Str("vin", updated.VIN).
		Int("fields", len(diff)).
		Msg("Updated vehicle")
	return nil
}

// removeMissing marks every active record absent from the snapshot as
// removed. Runs strictly after all per-record updates, so a candidate
// VIN can never be updated and removed in the same run.
func (r *Reconciler) removeMissing(ctx context.Context, candidates map[string]*inventory.Vehicle, now time.Time, entry *inventory.SyncEntry) error {
	active, err := r.store.Vehicles().List(ctx, inventory.Filter{Status: inventory.StatusActive})
	if err != nil {
		return errors.NewPersistenceError("active scan", err)
	}
	for _, v := range active {
		if _, seen := candidates[v.VIN]; seen {
			continue
		}
		removed := v.Clone()
		removed.Status = inventory.StatusRemoved
		ts := now
		removed.RemovedAt = &ts
		if err := r.store.Vehicles().Put(ctx, removed); err != nil {
			return errors.NewPersistenceError("remove", err)
		}
		entry.Removed++
		entry.RemovedDetails = append(entry.RemovedDetails, inventory.RemovedDetail{
			VIN:   v.VIN,
			Title: v.Title,
		})
		r.logger.Info().Str("vin", v.VIN).Msg("Marked vehicle as removed")
	}
	return nil
}
