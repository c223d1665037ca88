package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"neuralflow/internal/domain"
)

var leadColumns = []string{
	"id", "email", "type", "message", "status",
	"referral_code", "referred_by", "referral_count", "created_at",
}

// dialect captures the DDL and upsert syntax that differ between engines.
type dialect struct {
	driverName  string
	createTable string // %s is the table name
	placeholder func(i int) string
	upsertTail  func(cols []string) string
}

// sqlSink implements Sink for database/sql drivers.
type sqlSink struct {
	d     dialect
	db    *sql.DB
	table string
	log   *zap.Logger

	mu    sync.Mutex
	ready bool
}

func newSQLSink(d dialect, dsn, table string, log *zap.Logger) (*sqlSink, error) {
	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlSink{d: d, db: db, table: table, log: log}, nil
}

func (s *sqlSink) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *sqlSink) ensureTable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(s.d.createTable, s.table)); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	s.ready = true
	return nil
}

func (s *sqlSink) upsertSQL() string {
	ph := make([]string, len(leadColumns))
	for i := range leadColumns {
		ph[i] = s.d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) %s",
		s.table,
		strings.Join(leadColumns, ", "),
		strings.Join(ph, ", "),
		s.d.upsertTail(leadColumns[1:]),
	)
}

// UpsertLeads writes leads in a single transaction.
func (s *sqlSink) UpsertLeads(ctx context.Context, leads []domain.Lead) (int, error) {
	if err := s.ensureTable(ctx); err != nil {
		return 0, err
	}
	if len(leads) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.upsertSQL())
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, l := range leads {
		_, err := stmt.ExecContext(ctx,
			l.ID, l.Email, string(l.Type), l.Message, string(l.Status),
			l.ReferralCode, l.ReferredBy, l.ReferralCount, l.Timestamp.UTC(),
		)
		if err != nil {
			return 0, fmt.Errorf("upsert lead %s: %w", l.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.log.Info("leads upserted", zap.String("table", s.table), zap.Int("count", len(leads)))
	return len(leads), nil
}

func (s *sqlSink) Close() error {
	return s.db.Close()
}

// ── Dialects ───────────────────────────────────────────────

func questionMark(int) string { return "?" }

func excludedTail(cols []string) string {
	set := make([]string, len(cols))
	for i, c := range cols {
		set[i] = c + " = excluded." + c
	}
	return "ON CONFLICT (id) DO UPDATE SET " + strings.Join(set, ", ")
}

var sqliteDialect = dialect{
	driverName: "sqlite",
	createTable: `CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		type TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		referral_code TEXT NOT NULL DEFAULT '',
		referred_by TEXT NOT NULL DEFAULT '',
		referral_count INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
	placeholder: questionMark,
	upsertTail:  excludedTail,
}

var postgresDialect = dialect{
	driverName: "postgres",
	createTable: `CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		type TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		referral_code TEXT NOT NULL DEFAULT '',
		referred_by TEXT NOT NULL DEFAULT '',
		referral_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
	upsertTail:  excludedTail,
}

var mysqlDialect = dialect{
	driverName: "mysql",
	createTable: `CREATE TABLE IF NOT EXISTS %s (
		id VARCHAR(64) PRIMARY KEY,
		email VARCHAR(320) NOT NULL,
		type VARCHAR(16) NOT NULL,
		message TEXT NOT NULL,
		status VARCHAR(16) NOT NULL,
		referral_code VARCHAR(16) NOT NULL,
		referred_by VARCHAR(16) NOT NULL,
		referral_count INT NOT NULL DEFAULT 0,
		created_at DATETIME(3) NOT NULL
	) CHARACTER SET utf8mb4`,
	placeholder: questionMark,
	upsertTail: func(cols []string) string {
		set := make([]string, len(cols))
		for i, c := range cols {
			set[i] = c + " = VALUES(" + c + ")"
		}
		return "ON DUPLICATE KEY UPDATE " + strings.Join(set, ", ")
	},
}
