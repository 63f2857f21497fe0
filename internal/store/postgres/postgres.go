// Package postgres provides the pgx-backed inventory Store. All three
// surfaces live in one database: a vehicles table keyed uniquely by
// VIN with secondary indexes on status, price, year, and (make, model),
// an append-only price_history table, and an append-only sync_logs
// table with JSONB detail columns. Nothing is ever physically deleted.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lotwatch/lotwatch/pkg/errors"
	"github.com/lotwatch/lotwatch/pkg/inventory"
)

const schema = `
CREATE TABLE IF NOT EXISTS vehicles (
	vin              TEXT PRIMARY KEY,
	title            TEXT NOT NULL DEFAULT '',
	price            BIGINT,
	mileage          BIGINT,
	year             INT,
	make             TEXT NOT NULL DEFAULT '',
	model            TEXT NOT NULL DEFAULT '',
	trim             TEXT NOT NULL DEFAULT '',
	body_style       TEXT NOT NULL DEFAULT '',
	fuel_type        TEXT NOT NULL DEFAULT '',
	transmission     TEXT NOT NULL DEFAULT '',
	drivetrain       TEXT NOT NULL DEFAULT '',
	engine           TEXT NOT NULL DEFAULT '',
	exterior_color   TEXT NOT NULL DEFAULT '',
	interior_color   TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	date_scraped     TIMESTAMPTZ NOT NULL,
	last_seen        TIMESTAMPTZ NOT NULL,
	removed_at       TIMESTAMPTZ,
	predicted_price  BIGINT,
	price_difference BIGINT
);
CREATE INDEX IF NOT EXISTS vehicles_status_idx     ON vehicles (status);
CREATE INDEX IF NOT EXISTS vehicles_price_idx      ON vehicles (price);
CREATE INDEX IF NOT EXISTS vehicles_year_idx       ON vehicles (year DESC);
CREATE INDEX IF NOT EXISTS vehicles_make_model_idx ON vehicles (make, model);

CREATE TABLE IF NOT EXISTS price_history (
	vin        TEXT NOT NULL,
	price      BIGINT NOT NULL,
	observed_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS price_history_vin_idx ON price_history (vin, observed_at);

CREATE TABLE IF NOT EXISTS sync_logs (
	run_at          TIMESTAMPTZ PRIMARY KEY,
	source          TEXT NOT NULL DEFAULT '',
	total_scraped   INT NOT NULL,
	added           INT NOT NULL,
	updated         INT NOT NULL,
	removed         INT NOT NULL,
	unchanged       INT NOT NULL,
	total_active    INT NOT NULL,
	added_details   JSONB NOT NULL DEFAULT '[]',
	updated_details JSONB NOT NULL DEFAULT '[]',
	removed_details JSONB NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS sync_logs_source_idx ON sync_logs (source, run_at DESC);
`

const vehicleColumns = `vin, title, price, mileage, year, make, model, trim,
	body_style, fuel_type, transmission, drivetrain, engine,
	exterior_color, interior_color, status, created_at, date_scraped,
	last_seen, removed_at, predicted_price, price_difference`

// Store is the Postgres implementation of inventory.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database, ensures the schema, and returns the store.
func New(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Vehicles returns the vehicle repository.
func (s *Store) Vehicles() inventory.Repository { return &vehicleRepo{pool: s.pool} }

// Prices returns the price history ledger.
func (s *Store) Prices() inventory.Ledger { return &priceLedger{pool: s.pool} }

// Syncs returns the sync log.
func (s *Store) Syncs() inventory.SyncLog { return &syncLog{pool: s.pool} }

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type vehicleRepo struct {
	pool *pgxpool.Pool
}

func (r *vehicleRepo) Get(ctx context.Context, vin string) (*inventory.Vehicle, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE vin = $1`, vin)
	v, err := scanVehicle(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NewNotFoundError("vehicle", vin)
	}
	if err != nil {
		return nil, fmt.Errorf("querying vehicle %s: %w", vin, err)
	}
	return v, nil
}

func (r *vehicleRepo) Put(ctx context.Context, v *inventory.Vehicle) error {
	if v == nil || v.VIN == "" {
		return errors.NewValidationError("vin", "must not be empty")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO vehicles (`+vehicleColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
		ON CONFLICT (vin) DO UPDATE SET
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			mileage = EXCLUDED.mileage,
			year = EXCLUDED.year,
			make = EXCLUDED.make,
			model = EXCLUDED.model,
			trim = EXCLUDED.trim,
			body_style = EXCLUDED.body_style,
			fuel_type = EXCLUDED.fuel_type,
			transmission = EXCLUDED.transmission,
			drivetrain = EXCLUDED.drivetrain,
			engine = EXCLUDED.engine,
			exterior_color = EXCLUDED.exterior_color,
			interior_color = EXCLUDED.interior_color,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			date_scraped = EXCLUDED.date_scraped,
			last_seen = EXCLUDED.last_seen,
			removed_at = EXCLUDED.removed_at,
			predicted_price = EXCLUDED.predicted_price,
			price_difference = EXCLUDED.price_difference`,
		v.VIN, v.Title, v.Price, v.Mileage, v.Year, v.Make, v.Model, v.Trim,
		v.BodyStyle, v.FuelType, v.Transmission, v.Drivetrain, v.Engine,
		v.ExteriorColor, v.InteriorColor, v.Status, v.CreatedAt, v.DateScraped,
		v.LastSeen, v.RemovedAt, v.PredictedPrice, v.PriceDifference)
	if err != nil {
		return fmt.Errorf("upserting vehicle %s: %w", v.VIN, err)
	}
	return nil
}

func (r *vehicleRepo) List(ctx context.Context, f inventory.Filter) ([]*inventory.Vehicle, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.Make != "" {
		where = append(where, "make ILIKE "+arg("%"+f.Make+"%"))
	}
	if f.Model != "" {
		where = append(where, "model ILIKE "+arg("%"+f.Model+"%"))
	}
	if f.FuelType != "" {
		where = append(where, "fuel_type ILIKE "+arg("%"+f.FuelType+"%"))
	}
	if f.Transmission != "" {
		where = append(where, "transmission ILIKE "+arg("%"+f.Transmission+"%"))
	}
	if f.YearMin != nil {
		where = append(where, "year >= "+arg(*f.YearMin))
	}
	if f.YearMax != nil {
		where = append(where, "year <= "+arg(*f.YearMax))
	}
	if f.PriceMin != nil {
		where = append(where, "price >= "+arg(*f.PriceMin))
	}
	if f.PriceMax != nil {
		where = append(where, "price <= "+arg(*f.PriceMax))
	}

	query := `SELECT ` + vehicleColumns + ` FROM vehicles`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	switch f.Order {
	case inventory.OrderPriceAsc:
		query += " ORDER BY price ASC NULLS LAST, vin ASC"
	default:
		query += " ORDER BY date_scraped DESC, vin ASC"
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing vehicles: %w", err)
	}
	defer rows.Close()

	var vehicles []*inventory.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning vehicle: %w", err)
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, rows.Err()
}

func (r *vehicleRepo) Count(ctx context.Context, status inventory.Status) (int, error) {
	query := `SELECT COUNT(*) FROM vehicles`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, string(status))
	}
	var n int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting vehicles: %w", err)
	}
	return n, nil
}

func (r *vehicleRepo) SetPrediction(ctx context.Context, vin string, predicted, difference int) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE vehicles SET predicted_price = $2, price_difference = $3 WHERE vin = $1`,
		vin, predicted, difference)
	if err != nil {
		return fmt.Errorf("updating prediction for %s: %w", vin, err)
	}
	if tag.RowsAffected() == 0 {
		return errors.NewNotFoundError("vehicle", vin)
	}
	return nil
}

// scanVehicle reads one row in vehicleColumns order.
func scanVehicle(row pgx.Row) (*inventory.Vehicle, error) {
	var v inventory.Vehicle
	err := row.Scan(
		&v.VIN, &v.Title, &v.Price, &v.Mileage, &v.Year, &v.Make, &v.Model,
		&v.Trim, &v.BodyStyle, &v.FuelType, &v.Transmission, &v.Drivetrain,
		&v.Engine, &v.ExteriorColor, &v.InteriorColor, &v.Status,
		&v.CreatedAt, &v.DateScraped, &v.LastSeen, &v.RemovedAt,
		&v.PredictedPrice, &v.PriceDifference)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

type priceLedger struct {
	pool *pgxpool.Pool
}

func (l *priceLedger) Append(ctx context.Context, vin string, price int, ts time.Time) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO price_history (vin, price, observed_at) VALUES ($1, $2, $3)`,
		vin, price, ts)
	if err != nil {
		return fmt.Errorf("appending price for %s: %w", vin, err)
	}
	return nil
}

func (l *priceLedger) History(ctx context.Context, vin string) ([]inventory.PriceEntry, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT vin, price, observed_at FROM price_history WHERE vin = $1 ORDER BY observed_at ASC`,
		vin)
	if err != nil {
		return nil, fmt.Errorf("querying price history for %s: %w", vin, err)
	}
	defer rows.Close()

	var history []inventory.PriceEntry
	for rows.Next() {
		var e inventory.PriceEntry
		if err := rows.Scan(&e.VIN, &e.Price, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning price entry: %w", err)
		}
		history = append(history, e)
	}
	return history, rows.Err()
}

type syncLog struct {
	pool *pgxpool.Pool
}

const syncColumns = `run_at, source, total_scraped, added, updated, removed,
	unchanged, total_active, added_details, updated_details, removed_details`

func (l *syncLog) Append(ctx context.Context, e *inventory.SyncEntry) error {
	added, err := json.Marshal(e.AddedDetails)
	if err != nil {
		return fmt.Errorf("encoding added details: %w", err)
	}
	updated, err := json.Marshal(e.UpdatedDetails)
	if err != nil {
		return fmt.Errorf("encoding updated details: %w", err)
	}
	removed, err := json.Marshal(e.RemovedDetails)
	if err != nil {
		return fmt.Errorf("encoding removed details: %w", err)
	}
	_, err = l.pool.Exec(ctx, `
		INSERT INTO sync_logs (`+syncColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.Timestamp, e.Source, e.TotalScraped, e.Added, e.Updated, e.Removed,
		e.Unchanged, e.TotalActive, added, updated, removed)
	if err != nil {
		return fmt.Errorf("appending sync entry: %w", err)
	}
	return nil
}

func (l *syncLog) Latest(ctx context.Context) (*inventory.SyncEntry, error) {
	row := l.pool.QueryRow(ctx,
		`SELECT `+syncColumns+` FROM sync_logs ORDER BY run_at DESC LIMIT 1`)
	e, err := scanSyncEntry(row)
	if err == pgx.ErrNoRows {
		return nil, errors.NewNotFoundError("sync entry", "latest")
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest sync entry: %w", err)
	}
	return e, nil
}

func (l *syncLog) Recent(ctx context.Context, limit int, source string) ([]*inventory.SyncEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + syncColumns + ` FROM sync_logs`
	args := []any{}
	if source != "" {
		query += ` WHERE source = $1`
		args = append(args, source)
	}
	query += fmt.Sprintf(` ORDER BY run_at DESC LIMIT %d`, limit)

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sync entries: %w", err)
	}
	defer rows.Close()

	var entries []*inventory.SyncEntry
	for rows.Next() {
		e, err := scanSyncEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sync entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanSyncEntry(row pgx.Row) (*inventory.SyncEntry, error) {
	var (
		e       inventory.SyncEntry
		added   []byte
		updated []byte
		removed []byte
	)
	err := row.Scan(&e.Timestamp, &e.Source, &e.TotalScraped, &e.Added,
		&e.Updated, &e.Removed, &e.Unchanged, &e.TotalActive,
		&added, &updated, &removed)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(added, &e.AddedDetails); err != nil {
		return nil, fmt.Errorf("decoding added details: %w", err)
	}
	if err := json.Unmarshal(updated, &e.UpdatedDetails); err != nil {
		return nil, fmt.Errorf("decoding updated details: %w", err)
	}
	if err := json.Unmarshal(removed, &e.RemovedDetails); err != nil {
		return nil, fmt.Errorf("decoding removed details: %w", err)
	}
	return &e, nil
}
