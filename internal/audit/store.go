// Copyright (c) 2026 Sarvesh Kapre
// secretive-x - hardware-backed SSH key inventory
// This source code is licensed under the MIT license found in the LICENSE file.

// package audit keeps a local, append-only log of mutating operations. The
// log is stored in a database selected by configuration: sqlite for single
// machines, postgres or mysql for shared deployments, or none to disable
// auditing entirely. Entries record who did what, never key material.
package audit // import "github.com/sarveshkapre/secretive-x/internal/audit"

import (
	"context"
	"database/sql"
	"fmt"
	"os/user"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // database/sql driver: mysql
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver: pgx
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite" // database/sql driver: sqlite

	"github.com/sarveshkapre/secretive-x/internal/model"
)

// Store writes and reads audit log entries.
type Store interface {
	// LogAction records one entry attributed to the current OS user.
	LogAction(action, details string) error

	// AllEntries returns every entry, newest first.
	AllEntries() ([]model.AuditLogEntry, error)

	Close() error
}

// entryModel maps the audit_log table.
type entryModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int    `bun:"id,pk,autoincrement"`
	Timestamp     string `bun:"timestamp"`
	Username      string `bun:"username"`
	Action        string `bun:"action"`
	Details       string `bun:"details"`
}

// NewStore opens the configured database, runs migrations and returns a
// ready store. dbType "none" returns a store that discards everything.
func NewStore(dbType, dsn string) (Store, error) {
	if dbType == "none" {
		return NopStore{}, nil
	}

	driverName := dbType
	// The pgx stdlib driver registers itself as "pgx".
	if dbType == "postgres" {
		driverName = "pgx"
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	// An in-memory sqlite database exists per connection; force a single
	// connection so the schema stays visible. Tests rely on ":memory:".
	if dbType == "sqlite" && strings.Contains(dsn, ":memory:") {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	if err := RunMigrations(sqlDB, dbType); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &bunStore{bun: createBunDB(sqlDB, dbType)}, nil
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

type bunStore struct {
	bun *bun.DB
}

func (s *bunStore) LogAction(action, details string) error {
	entry := &entryModel{
		Timestamp: time.Now().UTC().Format("2006-01-02 15:04:05"),
		Username:  currentUsername(),
		Action:    action,
		Details:   details,
	}
	_, err := s.bun.NewInsert().Model(entry).Exec(context.Background())
	return MapDBError(err)
}

func (s *bunStore) AllEntries() ([]model.AuditLogEntry, error) {
	var rows []entryModel
	err := s.bun.NewSelect().Model(&rows).OrderExpr("timestamp DESC, id DESC").Scan(context.Background())
	if err != nil {
		return nil, MapDBError(err)
	}
	out := make([]model.AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.AuditLogEntry{ID: r.ID, Timestamp: r.Timestamp, Username: r.Username, Action: r.Action, Details: r.Details})
	}
	return out, nil
}

func (s *bunStore) Close() error {
	return s.bun.Close()
}

// currentUsername resolves the OS user, stripping a Windows domain prefix.
func currentUsername() string {
	curUser, err := user.Current()
	if err != nil {
		return "unknown"
	}
	if parts := strings.Split(curUser.Username, `\`); len(parts) > 1 {
		return parts[1]
	}
	return curUser.Username
}

// NopStore satisfies Store without persisting anything. Used when the
// database is configured off.
type NopStore struct{}

func (NopStore) LogAction(action, details string) error { return nil }

func (NopStore) AllEntries() ([]model.AuditLogEntry, error) { return nil, nil }

func (NopStore) Close() error { return nil }
