package configutil

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Database points either at a local sqlite file or at a remote libsql server.
type Database struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config Database) Enabled() bool {
	return config.File != "" || config.Url != ""
}

func (config Database) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		return config.openRemote()
	}
	if config.File == "" {
		return nil, fmt.Errorf("neither a database file nor a url was specified")
	}
	return config.openFile()
}

func (config Database) openRemote() (*sql.DB, error) {
	dsn := config.Url
	if config.AuthToken != "" {
		dsn = fmt.Sprintf("%s?authToken=%s", config.Url, config.AuthToken)
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", config.Url, err)
	}
	return db, nil
}

func (config Database) openFile() (*sql.DB, error) {
	if config.File != ":memory:" {
		dir := filepath.Dir(config.File)
		err := os.MkdirAll(dir, 0755)
		if err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", config.File)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer, see
	// https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
