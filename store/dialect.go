package store

import (
	"fmt"
	"strings"
	"time"
)

// Dialect is what differs between the SQLite and PostgreSQL renditions of
// the same query.
type Dialect interface {
	Name() string
	Now() string
	BoolTrue() string
	Rebind(query string) string
	schema() string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string               { return "sqlite" }
func (sqliteDialect) Now() string                { return "datetime('now','localtime')" }
func (sqliteDialect) BoolTrue() string           { return "1" }
func (sqliteDialect) Rebind(query string) string { return query }
func (sqliteDialect) schema() string             { return schemaSQLite }

type postgresDialect struct{}

func (postgresDialect) Name() string               { return "postgres" }
func (postgresDialect) Now() string                { return "NOW()" }
func (postgresDialect) BoolTrue() string           { return "TRUE" }
func (postgresDialect) Rebind(query string) string { return Rebind(query) }
func (postgresDialect) schema() string             { return schemaPostgres }

// parseTime converts a scanned timestamp value to time.Time.
// SQLite returns strings, Postgres returns time.Time.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case []byte:
		return parseTime(string(t))
	case string:
		if t == "" {
			return time.Time{}
		}
		for _, layout := range []string{
			"2006-01-02 15:04:05",
			time.RFC3339Nano,
			"2006-01-02 15:04:05-07:00",
			"2006-01-02 15:04:05.999999-07:00",
		} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed
			}
		}
	}
	return time.Time{}
}

// Rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func Rebind(query string) string {
	n := 0
	var b strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
