// Package store reads PJM real-time prices from a relational database.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/pjm-brief/internal/model"
)

// RecordLimit caps the number of price records fetched for the analysis day.
const RecordLimit = 100

// Default table location.
const (
	DefaultSchema = "pjm_data"
	DefaultTable  = "realtime_prices"
)

// PriceReader fetches the most recent trading day.
type PriceReader interface {
	LatestSnapshot(ctx context.Context) (*model.Snapshot, error)
	Ping(ctx context.Context) error
	Close() error
}

// Inspector describes the database for the inspect and check commands.
type Inspector interface {
	Tables(ctx context.Context) ([]string, error)
	Profile(ctx context.Context, sampleSize int) (*model.TableProfile, error)
	Ping(ctx context.Context) error
}

// Options selects and configures a backend.
type Options struct {
	Driver string // "postgres" or "sqlite"
	DSN    string // postgres connection string
	Path   string // sqlite file path
	Schema string
	Table  string
}

// Open connects to the configured backend. The returned value implements
// both PriceReader and Inspector.
func Open(ctx context.Context, opts Options) (Reader, error) {
	switch strings.ToLower(opts.Driver) {
	case "", "postgres", "postgresql":
		r, err := NewPostgres(ctx, opts.DSN, opts.Schema, opts.Table)
		if err != nil {
			return nil, err
		}
		return r, nil
	case "sqlite":
		r, err := NewSQLite(opts.Path, opts.Table)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, eris.Errorf("store: unsupported driver %q", opts.Driver)
	}
}

// Reader is a PriceReader that can also inspect its table.
type Reader interface {
	PriceReader
	Inspector
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

// bind substitutes the quoted table identifier into a query template.
func bind(query, ident string) string {
	return strings.ReplaceAll(query, "{table}", ident)
}
