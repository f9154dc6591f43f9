package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Connect opens a pool for the dialect's driver and pings it.
func Connect(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("unsupported database driver %q", d)
	}
	db, err := sql.Open(string(d), dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
