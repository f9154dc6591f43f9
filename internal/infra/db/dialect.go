package db

import (
	"strconv"
	"strings"
)

// Dialect is the SQL flavour; its value is also the database/sql driver name.
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

func (d Dialect) Valid() bool { return d == Postgres || d == MySQL }

// Rebind rewrites ? placeholders to $1..$n for Postgres. Queries in this
// package never contain a literal '?'.
func (d Dialect) Rebind(q string) string {
	if d != Postgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Upsert renders the conflict clause that overwrites cols on a key clash.
func (d Dialect) Upsert(key []string, cols ...string) string {
	sets := make([]string, len(cols))
	for i, c := range cols {
		if d == Postgres {
			sets[i] = c + "=EXCLUDED." + c
		} else {
			sets[i] = c + "=VALUES(" + c + ")"
		}
	}
	if d == Postgres {
		return "ON CONFLICT (" + strings.Join(key, ", ") + ") DO UPDATE SET\n  " + strings.Join(sets, ",\n  ")
	}
	return "ON DUPLICATE KEY UPDATE\n  " + strings.Join(sets, ",\n  ")
}

// IgnoreConflict renders a clause that turns a duplicate insert into a no-op
// affecting zero rows.
func (d Dialect) IgnoreConflict(key string) string {
	if d == Postgres {
		return "ON CONFLICT (" + key + ") DO NOTHING"
	}
	return "ON DUPLICATE KEY UPDATE " + key + "=" + key
}

// placeholders returns "?, ?, ?" for n values.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
