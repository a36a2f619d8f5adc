package store

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the local/dev Document Store adapter, kept from the
// teacher's sqlite dependency. SQLite has no row-level lock, so a
// per-document in-process mutex held for the whole of RunEditTransaction
// provides the exclusive per-document hold the Store contract requires.
// The store uses a single database connection, so statements for
// different documents also run one at a time.
type SQLiteStore struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSQLiteStore opens uri ("file:path.db" or ":memory:") and applies
// pending migrations.
func NewSQLiteStore(uri string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", uri)
	if err != nil {
		return nil, storageFailuref("open sqlite: %v", err)
	}
	// A single shared connection keeps ":memory:" sessions coherent and
	// avoids SQLITE_BUSY from concurrent writers on the same file.
	db.SetMaxOpenConns(1)

	if err := applyMigrations(db, sqliteMigrations, "migrations/sqlite", "?, ?, ?"); err != nil {
		db.Close()
		return nil, storageFailuref("migrate: %v", err)
	}
	return &SQLiteStore{db: db, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) lockFor(documentID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[documentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[documentID] = l
	}
	return l
}

// CreateDocument inserts a new document row at version 0, or returns the
// existing one if id is already taken.
func (s *SQLiteStore) CreateDocument(ctx context.Context, id, title, ownerID string) (*Document, error) {
	if existing, err := s.GetDocument(ctx, id); err == nil {
		return existing, nil
	}

	now := time.Now().Unix()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, content, version, owner_id, created_at, updated_at)
		VALUES (?, ?, '', 0, ?, ?, ?)
	`, id, title, ownerID, now, now); err != nil {
		return nil, storageFailuref("create document %q: %v", id, err)
	}
	return s.GetDocument(ctx, id)
}

// GetDocument reads the document's current state without locking.
func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	var d Document
	var createdAt, updatedAt int64
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, version, owner_id, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)
	if err := row.Scan(&d.ID, &d.Title, &d.Content, &d.Version, &d.OwnerID, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundf("document %q", id)
		}
		return nil, storageFailuref("get document %q: %v", id, err)
	}
	d.CreatedAt = time.Unix(createdAt, 0)
	d.UpdatedAt = time.Unix(updatedAt, 0)
	return &d, nil
}

// ListOperations returns the full operation log for id in applied_version ascending order.
func (s *SQLiteStore) ListOperations(ctx context.Context, id string) ([]*Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, user_id, base_version, position, insert_text, delete_len, applied_version, created_at
		FROM operations WHERE document_id = ? ORDER BY applied_version ASC
	`, id)
	if err != nil {
		return nil, storageFailuref("list operations for %q: %v", id, err)
	}
	defer rows.Close()
	return scanSQLiteOperations(rows)
}

// RunEditTransaction takes the per-document in-process mutex, then opens
// a transaction (the driver's default deferred BEGIN), so the row-lock
// contract spec §4.2/§5 requires holds within this process even though
// SQLite itself only locks at file granularity.
func (s *SQLiteStore) RunEditTransaction(ctx context.Context, documentID string, baseVersion int64, fn TxFunc) (*Operation, int64, error) {
	lock := s.lockFor(documentID)
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, storageFailuref("begin transaction: %v", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var content string
	var version int64
	row := tx.QueryRowContext(ctx, `SELECT content, version FROM documents WHERE id = ?`, documentID)
	if err := row.Scan(&content, &version); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, notFoundf("document %q", documentID)
		}
		return nil, 0, storageFailuref("read document %q: %v", documentID, err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, document_id, user_id, base_version, position, insert_text, delete_len, applied_version, created_at
		FROM operations WHERE document_id = ? AND applied_version > ? ORDER BY applied_version ASC
	`, documentID, baseVersion)
	if err != nil {
		return nil, version, storageFailuref("collect missed operations: %v", err)
	}
	missed, err := scanSQLiteOperations(rows)
	rows.Close()
	if err != nil {
		return nil, version, err
	}

	newContent, newVersion, op, err := fn(content, version, missed)
	if err != nil {
		return nil, version, err
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET content = ?, version = ?, updated_at = ? WHERE id = ?
	`, newContent, newVersion, now.Unix(), documentID); err != nil {
		return nil, version, storageFailuref("update document %q: %v", documentID, err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO operations (document_id, user_id, base_version, position, insert_text, delete_len, applied_version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, documentID, op.UserID, op.BaseVersion, op.Position, op.InsertText, op.DeleteLen, newVersion, now.Unix())
	if err != nil {
		return nil, version, storageFailuref("insert operation: %v", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, version, storageFailuref("read inserted operation id: %v", err)
	}

	op.ID = id
	op.DocumentID = documentID
	op.AppliedVersion = newVersion
	op.CreatedAt = now

	if err := tx.Commit(); err != nil {
		return nil, version, storageFailuref("commit: %v", err)
	}

	return op, newVersion, nil
}

func scanSQLiteOperations(rows *sql.Rows) ([]*Operation, error) {
	var ops []*Operation
	for rows.Next() {
		var op Operation
		var createdAt int64
		if err := rows.Scan(&op.ID, &op.DocumentID, &op.UserID, &op.BaseVersion, &op.Position,
			&op.InsertText, &op.DeleteLen, &op.AppliedVersion, &createdAt); err != nil {
			return nil, storageFailuref("scan operation: %v", err)
		}
		op.CreatedAt = time.Unix(createdAt, 0)
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, storageFailuref("iterate operations: %v", err)
	}
	return ops, nil
}
