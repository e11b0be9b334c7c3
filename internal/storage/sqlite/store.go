// Package sqlite is a single-file implementation of the repository
// interfaces for local development and small installations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/kanflow/movedigest/internal/repository"
)

// Store wraps access to the SQLite database. It implements both
// repository.Directory and repository.PendingEmailRepository.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

var (
	_ repository.Directory              = (*Store)(nil)
	_ repository.PendingEmailRepository = (*Store)(nil)
)

// Open initializes a new SQLite store and creates the schema.
// Transactions start with BEGIN IMMEDIATE so a claim holds the write lock
// from its first read; concurrent claimers in other processes wait.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3",
		fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_txlock=immediate", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, now: func() time.Time { return time.Now().UTC() }, logger: logger}
	if err := s.migrate(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("sqlite store opened", zap.String("path", dbPath))
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks that the database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT,
            email TEXT NOT NULL UNIQUE
        );`,
		`CREATE TABLE IF NOT EXISTS workspaces (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS workspace_members (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            workspace_id INTEGER NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
            user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
            email TEXT NOT NULL,
            role TEXT NOT NULL DEFAULT 'member',
            status TEXT NOT NULL DEFAULT 'invited',
            deleted_at DATETIME
        );`,
		`CREATE TABLE IF NOT EXISTS boards (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            workspace_id INTEGER NOT NULL REFERENCES workspaces(id) ON DELETE CASCADE,
            name TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS lists (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            board_id INTEGER NOT NULL REFERENCES boards(id) ON DELETE CASCADE,
            name TEXT NOT NULL,
            email_assignees_on_move INTEGER NOT NULL DEFAULT 0,
            email_leaders_on_move INTEGER NOT NULL DEFAULT 0,
            minimum_role TEXT NOT NULL DEFAULT 'member',
            deleted_at DATETIME
        );`,
		`CREATE TABLE IF NOT EXISTS cards (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            public_id TEXT NOT NULL UNIQUE,
            list_id INTEGER NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
            title TEXT NOT NULL,
            deleted_at DATETIME
        );`,
		`CREATE TABLE IF NOT EXISTS card_to_workspace_members (
            card_id INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
            workspace_member_id INTEGER NOT NULL REFERENCES workspace_members(id) ON DELETE CASCADE,
            PRIMARY KEY (card_id, workspace_member_id)
        );`,
		`CREATE TABLE IF NOT EXISTS pending_card_move_email (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            type TEXT NOT NULL CHECK (type IN ('assignee', 'leader')),
            recipient_user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            recipient_email TEXT NOT NULL,
            card_id INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
            card_title TEXT NOT NULL,
            card_public_id TEXT NOT NULL,
            from_list_id INTEGER NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
            from_list_name TEXT NOT NULL,
            to_list_id INTEGER NOT NULL REFERENCES lists(id) ON DELETE CASCADE,
            to_list_name TEXT NOT NULL,
            moved_by_user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
            moved_by_name TEXT,
            board_name TEXT NOT NULL,
            created_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_pending_created_at ON pending_card_move_email(created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_members_workspace ON workspace_members(workspace_id, role);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// isForeignKeyViolation reports whether err is SQLite's FK constraint error.
func isForeignKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
