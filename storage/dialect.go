package storage

import (
	"errors"
	"strconv"
	"strings"

	"github.com/lib/pq"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

type dialect struct {
	driver    string
	dollar    bool
	forUpdate string
}

const (
	// DriverSQLite ...
	DriverSQLite = "sqlite"

	// DriverPostgres ...
	DriverPostgres = "postgres"

	pqUniqueViolation = "23505"
)

var dialects = map[string]dialect{
	DriverSQLite:   {driver: "sqlite"},
	DriverPostgres: {driver: "postgres", dollar: true, forUpdate: " FOR UPDATE"},
}

// rebind rewrites '?' placeholders into the driver's bind syntax.
func (d dialect) rebind(query string) string {
	if !d.dollar {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r != '?' {
			b.WriteRune(r)
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
