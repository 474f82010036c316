package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

// OpenDB opens a private in-memory sqlite database carrying schema, it is closed when
// the test ends.
func OpenDB(t testing.TB, schema string) *sql.DB {
	t.Helper()

	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// every connection to :memory: opens a separate database
	sqlite.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlite.Close()
	})

	if schema != "" {
		_, err = sqlite.Exec(schema)
		if err != nil {
			t.Fatal(err)
		}
	}
	return sqlite
}
