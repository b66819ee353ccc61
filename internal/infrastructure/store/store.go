package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// SQLiteStore 以 modernc.org/sqlite 實作商品、食譜與冰箱儲存
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.Mutex // 序列化 migration
	once sync.Once  // _migrations 只建立一次
}

// Open 開啟資料庫並套用所有 migration
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	s, err := New(path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx, schemaName, migrations); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// New 開啟（或建立）SQLite 資料庫並套用 WAL 等 pragma
func New(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// 單一寫入連線；WAL 允許並行讀取
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA cache_size=-20000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// DB 回傳底層 *sql.DB
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Ping 健康檢查用
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Tx 在交易中執行 fn；fn 回傳 nil 時提交，否則回滾
func (s *SQLiteStore) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}

// Migrate 執行尚未套用的 migration，已套用者記錄在 _migrations
func (s *SQLiteStore) Migrate(ctx context.Context, name string, ms []Migration) error {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range ms {
		applied, err := s.isMigrationApplied(ctx, name, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		if err := s.applyMigration(ctx, name, m); err != nil {
			return fmt.Errorf("migration %s/%d (%s): %w", name, m.Version, m.Description, err)
		}
	}

	return nil
}

// Close 關閉資料庫連線
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureMigrationsTable(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		_, err = s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS _migrations (
				schema_name TEXT     NOT NULL,
				version     INTEGER  NOT NULL,
				description TEXT     NOT NULL,
				applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (schema_name, version)
			)
		`)
	})
	return err
}

func (s *SQLiteStore) isMigrationApplied(ctx context.Context, name string, version int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM _migrations WHERE schema_name = ? AND version = ?",
		name, version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migration %s/%d: %w", name, version, err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) applyMigration(ctx context.Context, name string, m Migration) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		if err := m.Up(tx); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO _migrations (schema_name, version, description) VALUES (?, ?, ?)",
			name, m.Version, m.Description,
		)
		return err
	})
}
