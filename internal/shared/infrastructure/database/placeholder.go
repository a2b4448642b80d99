package database

import "strconv"

// Placeholder returns the positional bind-parameter token for the i'th
// argument (1-based) in the dialect of d. PostgreSQL uses numbered
// "$1, $2, ..." tokens; SQLite (via database/sql) uses a bare "?" for every
// position. Repositories shared across both drivers build their query
// strings through this so one query template serves both backends.
func Placeholder(d Driver, i int) string {
	if d == DriverPostgres {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

// Placeholders returns n sequential placeholder tokens starting at 1, e.g.
// for Postgres: "$1", "$2", "$3".
func Placeholders(d Driver, n int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = Placeholder(d, i+1)
	}
	return out
}

// ValuesClause returns n comma-joined placeholder tokens suitable for an
// INSERT ... VALUES(...) clause, e.g. for Postgres: "$1, $2, $3".
func ValuesClause(d Driver, n int) string {
	out := Placeholder(d, 1)
	for i := 2; i <= n; i++ {
		out += ", " + Placeholder(d, i)
	}
	return out
}
