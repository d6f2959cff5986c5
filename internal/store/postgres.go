package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/pjm-brief/internal/failure"
	"github.com/sells-group/pjm-brief/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresReader.
// pgxmock.PgxPoolIface satisfies it in tests.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresReader implements Reader using pgxpool.
type PostgresReader struct {
	pool   Pool
	schema string
	table  string
	ident  string
}

const (
	pgLatestDate = `SELECT timestamp::date FROM {table} WHERE timestamp IS NOT NULL ORDER BY timestamp DESC LIMIT 1`

	pgRecords = `SELECT node_name, COALESCE(zone, ''),
	COALESCE(lmp, 0)::float8, COALESCE(energy_component, 0)::float8,
	COALESCE(congestion_component, 0)::float8, COALESCE(loss_component, 0)::float8,
	timestamp
FROM {table}
WHERE timestamp::date = $1
ORDER BY lmp DESC NULLS LAST, node_name, timestamp
LIMIT $2`

	pgZoneStats = `SELECT COALESCE(zone, ''), COUNT(*),
	COALESCE(ROUND(AVG(lmp)::numeric, 2), 0)::float8 AS avg_lmp,
	COALESCE(ROUND(MIN(lmp)::numeric, 2), 0)::float8,
	COALESCE(ROUND(MAX(lmp)::numeric, 2), 0)::float8,
	COALESCE(ROUND(AVG(congestion_component)::numeric, 2), 0)::float8,
	COALESCE(ROUND(MAX(congestion_component)::numeric, 2), 0)::float8
FROM {table}
WHERE timestamp::date = $1
GROUP BY zone
ORDER BY avg_lmp DESC, 1`

	pgTables = `SELECT table_name FROM information_schema.tables
WHERE table_schema = $1 ORDER BY table_name`

	pgColumns = `SELECT column_name, data_type FROM information_schema.columns
WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`

	pgRange = `SELECT MIN(timestamp), MAX(timestamp), COUNT(*) FROM {table}`
)

// NewPostgres opens a small pool against connString and verifies it with a ping.
func NewPostgres(ctx context.Context, connString, schema, table string) (*PostgresReader, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "postgres: parse config")
	}
	cfg.MaxConns = 2
	cfg.MinConns = 0
	cfg.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, failure.Wrap(err, failure.DataAccess, "postgres: ping")
	}
	return newPostgresReader(pool, schema, table), nil
}

func newPostgresReader(pool Pool, schema, table string) *PostgresReader {
	schema = orDefault(schema, DefaultSchema)
	table = orDefault(table, DefaultTable)
	return &PostgresReader{
		pool:   pool,
		schema: schema,
		table:  table,
		ident:  pgx.Identifier{schema, table}.Sanitize(),
	}
}

func (r *PostgresReader) Ping(ctx context.Context) error {
	return failure.Wrap(r.pool.Ping(ctx), failure.DataAccess, "postgres: ping")
}

func (r *PostgresReader) Close() error {
	r.pool.Close()
	return nil
}

// LatestSnapshot returns the top records and zone statistics for the most
// recent date present in the table.
func (r *PostgresReader) LatestSnapshot(ctx context.Context) (*model.Snapshot, error) {
	date, err := r.latestDate(ctx)
	if err != nil {
		return nil, err
	}

	records, err := r.records(ctx, date, RecordLimit)
	if err != nil {
		return nil, err
	}

	zones, err := r.zoneStats(ctx, date)
	if err != nil {
		return nil, err
	}

	zap.L().Info("postgres: snapshot loaded",
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("records", len(records)),
		zap.Int("zones", len(zones)),
	)
	return &model.Snapshot{Date: date, Records: records, Zones: zones}, nil
}

func (r *PostgresReader) latestDate(ctx context.Context) (time.Time, error) {
	var d time.Time
	err := r.pool.QueryRow(ctx, bind(pgLatestDate, r.ident)).Scan(&d)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, failure.New(failure.NoDataAvailable, "postgres: no price data in "+r.schema+"."+r.table)
	}
	if err != nil {
		return time.Time{}, failure.Wrap(err, failure.DataAccess, "postgres: latest date")
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
}

func (r *PostgresReader) records(ctx context.Context, date time.Time, limit int) ([]model.PriceRecord, error) {
	rows, err := r.pool.Query(ctx, bind(pgRecords, r.ident), date, limit)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "postgres: query records")
	}
	defer rows.Close()

	var out []model.PriceRecord
	for rows.Next() {
		var (
			p                       model.PriceRecord
			lmp, energy, cong, loss float64
		)
		if err := rows.Scan(&p.Node, &p.Zone, &lmp, &energy, &cong, &loss, &p.Timestamp); err != nil {
			return nil, failure.Wrap(err, failure.DataAccess, "postgres: scan record")
		}
		p.LMP = decimal.NewFromFloat(lmp)
		p.Energy = decimal.NewFromFloat(energy)
		p.Congestion = decimal.NewFromFloat(cong)
		p.Loss = decimal.NewFromFloat(loss)
		out = append(out, p)
	}
	return out, failure.Wrap(rows.Err(), failure.DataAccess, "postgres: iterate records")
}

func (r *PostgresReader) zoneStats(ctx context.Context, date time.Time) ([]model.ZoneStatistic, error) {
	rows, err := r.pool.Query(ctx, bind(pgZoneStats, r.ident), date)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "postgres: query zone stats")
	}
	defer rows.Close()

	var out []model.ZoneStatistic
	for rows.Next() {
		var (
			z                             model.ZoneStatistic
			avg, lo, hi, avgCong, maxCong float64
		)
		if err := rows.Scan(&z.Zone, &z.Records, &avg, &lo, &hi, &avgCong, &maxCong); err != nil {
			return nil, failure.Wrap(err, failure.DataAccess, "postgres: scan zone stats")
		}
		z.AvgLMP = decimal.NewFromFloat(avg)
		z.MinLMP = decimal.NewFromFloat(lo)
		z.MaxLMP = decimal.NewFromFloat(hi)
		z.AvgCongestion = decimal.NewFromFloat(avgCong)
		z.MaxCongestion = decimal.NewFromFloat(maxCong)
		out = append(out, z)
	}
	return out, failure.Wrap(rows.Err(), failure.DataAccess, "postgres: iterate zone stats")
}

// Tables lists the tables in the configured schema.
func (r *PostgresReader) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, pgTables, r.schema)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "postgres: list tables")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, failure.Wrap(err, failure.DataAccess, "postgres: scan table name")
		}
		out = append(out, name)
	}
	return out, failure.Wrap(rows.Err(), failure.DataAccess, "postgres: iterate tables")
}

// Profile describes the price table: columns, timestamp range, row count,
// and up to sampleSize of the highest-priced rows on the latest date.
func (r *PostgresReader) Profile(ctx context.Context, sampleSize int) (*model.TableProfile, error) {
	prof := &model.TableProfile{Table: r.schema + "." + r.table}

	rows, err := r.pool.Query(ctx, pgColumns, r.schema, r.table)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "postgres: list columns")
	}
	for rows.Next() {
		var c model.Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			rows.Close()
			return nil, failure.Wrap(err, failure.DataAccess, "postgres: scan column")
		}
		prof.Columns = append(prof.Columns, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "postgres: iterate columns")
	}

	if err := r.pool.QueryRow(ctx, bind(pgRange, r.ident)).Scan(&prof.Earliest, &prof.Latest, &prof.RowCount); err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "postgres: timestamp range")
	}

	if prof.Latest == nil || sampleSize <= 0 {
		return prof, nil
	}
	l := prof.Latest.UTC()
	day := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
	prof.Sample, err = r.records(ctx, day, sampleSize)
	if err != nil {
		return nil, err
	}
	return prof, nil
}
