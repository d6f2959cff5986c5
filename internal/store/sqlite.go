package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/pjm-brief/internal/failure"
	"github.com/sells-group/pjm-brief/internal/model"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// SQLiteReader implements Reader over a local SQLite extract of the price
// table. SQLite has no schemas, so only the table name is used.
type SQLiteReader struct {
	db    *sql.DB
	table string
	ident string
}

const (
	liteLatestDate = `SELECT date(timestamp) FROM {table} WHERE timestamp IS NOT NULL ORDER BY timestamp DESC LIMIT 1`

	liteRecords = `SELECT node_name, COALESCE(zone, ''),
	COALESCE(lmp, 0), COALESCE(energy_component, 0),
	COALESCE(congestion_component, 0), COALESCE(loss_component, 0),
	strftime('%Y-%m-%d %H:%M:%S', timestamp)
FROM {table}
WHERE date(timestamp) = ?
ORDER BY lmp DESC, node_name, timestamp
LIMIT ?`

	liteZoneStats = `SELECT COALESCE(zone, ''), COUNT(*),
	COALESCE(ROUND(AVG(lmp), 2), 0) AS avg_lmp,
	COALESCE(ROUND(MIN(lmp), 2), 0),
	COALESCE(ROUND(MAX(lmp), 2), 0),
	COALESCE(ROUND(AVG(congestion_component), 2), 0),
	COALESCE(ROUND(MAX(congestion_component), 2), 0)
FROM {table}
WHERE date(timestamp) = ?
GROUP BY zone
ORDER BY avg_lmp DESC, 1`

	liteTables = `SELECT name FROM sqlite_master
WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`

	liteColumns = `SELECT name, type FROM pragma_table_info(?) ORDER BY cid`

	liteRange = `SELECT MIN(strftime('%Y-%m-%d %H:%M:%S', timestamp)),
	MAX(strftime('%Y-%m-%d %H:%M:%S', timestamp)), COUNT(*) FROM {table}`
)

// NewSQLite opens the SQLite file at path.
func NewSQLite(path, table string) (*SQLiteReader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, failure.New(failure.DataAccess, "sqlite: database.path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, failure.Wrap(err, failure.DataAccess, "sqlite: exec PRAGMA busy_timeout")
	}

	table = orDefault(table, DefaultTable)
	return &SQLiteReader{
		db:    db,
		table: table,
		ident: `"` + strings.ReplaceAll(table, `"`, `""`) + `"`,
	}, nil
}

func (r *SQLiteReader) Ping(ctx context.Context) error {
	return failure.Wrap(r.db.PingContext(ctx), failure.DataAccess, "sqlite: ping")
}

func (r *SQLiteReader) Close() error {
	return r.db.Close()
}

// LatestSnapshot returns the top records and zone statistics for the most
// recent date present in the table.
func (r *SQLiteReader) LatestSnapshot(ctx context.Context) (*model.Snapshot, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, bind(liteLatestDate, r.ident)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, failure.New(failure.NoDataAvailable, "sqlite: no price data in "+r.table)
	}
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "sqlite: latest date")
	}
	date, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "sqlite: parse latest date")
	}

	records, err := r.records(ctx, date, RecordLimit)
	if err != nil {
		return nil, err
	}
	zones, err := r.zoneStats(ctx, date)
	if err != nil {
		return nil, err
	}

	zap.L().Info("sqlite: snapshot loaded",
		zap.String("date", raw),
		zap.Int("records", len(records)),
		zap.Int("zones", len(zones)),
	)
	return &model.Snapshot{Date: date, Records: records, Zones: zones}, nil
}

func (r *SQLiteReader) records(ctx context.Context, date time.Time, limit int) ([]model.PriceRecord, error) {
	rows, err := r.db.QueryContext(ctx, bind(liteRecords, r.ident), date.Format("2006-01-02"), limit)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "sqlite: query records")
	}
	defer rows.Close()

	var out []model.PriceRecord
	for rows.Next() {
		var (
			p                       model.PriceRecord
			lmp, energy, cong, loss float64
			ts                      string
		)
		if err := rows.Scan(&p.Node, &p.Zone, &lmp, &energy, &cong, &loss, &ts); err != nil {
			return nil, failure.Wrap(err, failure.DataAccess, "sqlite: scan record")
		}
		if p.Timestamp, err = time.Parse(sqliteTimeLayout, ts); err != nil {
			return nil, failure.Wrap(err, failure.DataAccess, "sqlite: parse timestamp")
		}
		p.LMP = decimal.NewFromFloat(lmp)
		p.Energy = decimal.NewFromFloat(energy)
		p.Congestion = decimal.NewFromFloat(cong)
		p.Loss = decimal.NewFromFloat(loss)
		out = append(out, p)
	}
	return out, failure.Wrap(rows.Err(), failure.DataAccess, "sqlite: iterate records")
}

func (r *SQLiteReader) zoneStats(ctx context.Context, date time.Time) ([]model.ZoneStatistic, error) {
	rows, err := r.db.QueryContext(ctx, bind(liteZoneStats, r.ident), date.Format("2006-01-02"))
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "sqlite: query zone stats")
	}
	defer rows.Close()

	var out []model.ZoneStatistic
	for rows.Next() {
		var (
			z                             model.ZoneStatistic
			avg, lo, hi, avgCong, maxCong float64
		)
		if err := rows.Scan(&z.Zone, &z.Records, &avg, &lo, &hi, &avgCong, &maxCong); err != nil {
			return nil, failure.Wrap(err, failure.DataAccess, "sqlite: scan zone stats")
		}
		z.AvgLMP = decimal.NewFromFloat(avg)
		z.MinLMP = decimal.NewFromFloat(lo)
		z.MaxLMP = decimal.NewFromFloat(hi)
		z.AvgCongestion = decimal.NewFromFloat(avgCong)
		z.MaxCongestion = decimal.NewFromFloat(maxCong)
		out = append(out, z)
	}
	return out, failure.Wrap(rows.Err(), failure.DataAccess, "sqlite: iterate zone stats")
}

// Tables lists user tables in the database file.
func (r *SQLiteReader) Tables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, liteTables)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "sqlite: list tables")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, failure.Wrap(err, failure.DataAccess, "sqlite: scan table name")
		}
		out = append(out, name)
	}
	return out, failure.Wrap(rows.Err(), failure.DataAccess, "sqlite: iterate tables")
}

// Profile describes the price table the same way PostgresReader.Profile does.
func (r *SQLiteReader) Profile(ctx context.Context, sampleSize int) (*model.TableProfile, error) {
	prof := &model.TableProfile{Table: r.table}

	rows, err := r.db.QueryContext(ctx, liteColumns, r.table)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "sqlite: list columns")
	}
	for rows.Next() {
		var c model.Column
		if err := rows.Scan(&c.Name, &c.Type); err != nil {
			rows.Close()
			return nil, failure.Wrap(err, failure.DataAccess, "sqlite: scan column")
		}
		prof.Columns = append(prof.Columns, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "sqlite: iterate columns")
	}

	var earliest, latest sql.NullString
	if err := r.db.QueryRowContext(ctx, bind(liteRange, r.ident)).Scan(&earliest, &latest, &prof.RowCount); err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "sqlite: timestamp range")
	}
	if prof.Earliest, err = parseNullTime(earliest); err != nil {
		return nil, err
	}
	if prof.Latest, err = parseNullTime(latest); err != nil {
		return nil, err
	}

	if prof.Latest == nil || sampleSize <= 0 {
		return prof, nil
	}
	l := *prof.Latest
	day := time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
	prof.Sample, err = r.records(ctx, day, sampleSize)
	if err != nil {
		return nil, err
	}
	return prof, nil
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := time.Parse(sqliteTimeLayout, s.String)
	if err != nil {
		return nil, failure.Wrap(err, failure.DataAccess, "sqlite: parse timestamp")
	}
	return &t, nil
}
