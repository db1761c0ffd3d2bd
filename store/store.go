package store

import (
	"database/sql"
	"fmt"

	"inboundcore/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DB is the plan database. Queries are written with ? placeholders and
// dialect fragments, and go through Q before execution.
type DB struct {
	*sql.DB
	dialect Dialect
}

// Open connects with the configured driver and applies its schema.
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	var (
		d          Dialect
		driverName string
		dsn        string
	)
	switch cfg.Driver {
	case "sqlite":
		d, driverName = sqliteDialect{}, "sqlite"
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", cfg.SQLite.Path)
	case "postgres":
		pg := cfg.Postgres
		d, driverName = postgresDialect{}, "pgx"
		dsn = fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
			pg.Host, pg.Port, pg.Database, pg.User, pg.Password, pg.SSLMode)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.Name(), err)
	}
	if d.Name() == "sqlite" {
		// SQLite takes a single writer.
		sqlDB.SetMaxOpenConns(1)
	}
	if _, err := sqlDB.Exec(d.schema()); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate %s: %w", d.Name(), err)
	}
	return &DB{DB: sqlDB, dialect: d}, nil
}

func (db *DB) Dialect() Dialect { return db.dialect }

// Q adapts a ? placeholder query to the open dialect.
func (db *DB) Q(query string) string { return db.dialect.Rebind(query) }
