// Package sink pushes the local lead collection to an external database so
// it can be worked from a CRM or reporting tool.
package sink

import (
	"context"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"neuralflow/internal/domain"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
	DriverMongoDB  Driver = "mongodb"
)

const DefaultTable = "leads"

// Config locates the external database. The password is never part of the
// config; callers fetch it from the secret store.
type Config struct {
	Driver   Driver `koanf:"driver" json:"driver"`
	Host     string `koanf:"host" json:"host"`
	Port     int    `koanf:"port" json:"port"`
	Database string `koanf:"database" json:"database"`
	Username string `koanf:"username" json:"username"`
	SSLMode  string `koanf:"ssl_mode" json:"sslMode"`
	// Path is the file for the sqlite driver.
	Path string `koanf:"path" json:"path"`
	// URI overrides Host/Port for mongodb (mongodb:// or mongodb+srv://).
	URI   string `koanf:"uri" json:"uri"`
	Table string `koanf:"table" json:"table"`
}

// Sink receives full snapshots of the lead collection. UpsertLeads must be
// idempotent: pushing the same leads twice leaves one row per id.
type Sink interface {
	Ping(ctx context.Context) error
	UpsertLeads(ctx context.Context, leads []domain.Lead) (int, error)
	Close() error
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// New opens the sink described by cfg.
func New(cfg Config, password string, log *zap.Logger) (Sink, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if !identRe.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}
	log = log.Named("sink").With(zap.String("driver", string(cfg.Driver)))

	switch cfg.Driver {
	case DriverSQLite:
		if cfg.Path == "" {
			return nil, fmt.Errorf("sqlite sink: path required")
		}
		return newSQLSink(sqliteDialect, cfg.Path+"?_journal_mode=WAL&_busy_timeout=5000", cfg.Table, log)
	case DriverMySQL:
		return newSQLSink(mysqlDialect, buildMySQLDSN(cfg, password), cfg.Table, log)
	case DriverPostgres:
		return newSQLSink(postgresDialect, buildPostgresDSN(cfg, password), cfg.Table, log)
	case DriverMongoDB:
		return newMongoSink(cfg, password, log)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}
