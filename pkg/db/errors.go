package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint failure from
// Postgres (pgx or lib/pq) or SQLite. When names are given the failing
// constraint must match one of them. SQLite reports index columns rather than
// index names, so callers pass both the constraint name and the column text.
func IsUniqueViolation(err error, names ...string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) && pgxErr.Code == pgUniqueViolation {
		return matchesName(pgxErr.ConstraintName, names, false)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgUniqueViolation {
		return matchesName(pqErr.Constraint, names, false)
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") && !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return matchesName(msg, names, true)
}

func matchesName(got string, names []string, partial bool) bool {
	if len(names) == 0 {
		return true
	}
	for _, name := range names {
		if name == "" {
			return true
		}
		if got == name || (partial && strings.Contains(got, name)) {
			return true
		}
	}
	return false
}
