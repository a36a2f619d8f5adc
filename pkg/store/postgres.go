package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore is the production Document Store adapter: a real
// row-level exclusive lock (`SELECT ... FOR UPDATE`) backs
// RunEditTransaction, grounded on original_source's SQLAlchemy
// `.with_for_update()` usage in app/api/v1/routes/websocket.py.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool against dsn and applies
// pending migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := applyMigrations(db, postgresMigrations, "migrations/postgres", "$1, $2, $3"); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// CreateDocument inserts a new document row at version 0.
func (s *PostgresStore) CreateDocument(ctx context.Context, id, title, ownerID string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, title, content, version, owner_id)
		VALUES ($1, $2, '', 0, $3)
		ON CONFLICT (id) DO UPDATE SET id = documents.id
		RETURNING id, title, content, version, owner_id, created_at, updated_at
	`, id, title, ownerID)

	var d Document
	if err := row.Scan(&d.ID, &d.Title, &d.Content, &d.Version, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, storageFailuref("create document %q: %v", id, err)
	}
	return &d, nil
}

// GetDocument reads the document's current state without locking.
func (s *PostgresStore) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, version, owner_id, created_at, updated_at
		FROM documents WHERE id = $1
	`, id)

	var d Document
	if err := row.Scan(&d.ID, &d.Title, &d.Content, &d.Version, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, notFoundf("document %q", id)
		}
		return nil, storageFailuref("get document %q: %v", id, err)
	}
	return &d, nil
}

// ListOperations returns the full operation log for id in applied_version ascending order.
func (s *PostgresStore) ListOperations(ctx context.Context, id string) ([]*Operation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, user_id, base_version, position, insert_text, delete_len, applied_version, created_at
		FROM operations WHERE document_id = $1 ORDER BY applied_version ASC
	`, id)
	if err != nil {
		return nil, storageFailuref("list operations for %q: %v", id, err)
	}
	defer rows.Close()
	return scanOperations(rows)
}

// RunEditTransaction takes SELECT ... FOR UPDATE on the document row for
// the duration of the transaction — any concurrent transaction on the
// same document_id blocks here until this one commits or rolls back
// (spec §4.2, §5).
func (s *PostgresStore) RunEditTransaction(ctx context.Context, documentID string, baseVersion int64, fn TxFunc) (*Operation, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, storageFailuref("begin transaction: %v", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	var content string
	var version int64
	err = tx.QueryRowContext(ctx, `
		SELECT content, version FROM documents WHERE id = $1 FOR UPDATE
	`, documentID).Scan(&content, &version)
	if err == sql.ErrNoRows {
		return nil, 0, notFoundf("document %q", documentID)
	}
	if err != nil {
		return nil, 0, storageFailuref("lock document %q: %v", documentID, err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, document_id, user_id, base_version, position, insert_text, delete_len, applied_version, created_at
		FROM operations WHERE document_id = $1 AND applied_version > $2 ORDER BY applied_version ASC
	`, documentID, baseVersion)
	if err != nil {
		return nil, version, storageFailuref("collect missed operations: %v", err)
	}
	missed, err := scanOperations(rows)
	rows.Close()
	if err != nil {
		return nil, version, err
	}

	newContent, newVersion, op, err := fn(content, version, missed)
	if err != nil {
		return nil, version, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET content = $1, version = $2, updated_at = now() WHERE id = $3
	`, newContent, newVersion, documentID); err != nil {
		return nil, version, storageFailuref("update document %q: %v", documentID, err)
	}

	row := tx.QueryRowContext(ctx, `
		INSERT INTO operations (document_id, user_id, base_version, position, insert_text, delete_len, applied_version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, documentID, op.UserID, op.BaseVersion, op.Position, op.InsertText, op.DeleteLen, newVersion)
	if err := row.Scan(&op.ID, &op.CreatedAt); err != nil {
		return nil, version, storageFailuref("insert operation: %v", err)
	}
	op.DocumentID = documentID
	op.AppliedVersion = newVersion

	if err := tx.Commit(); err != nil {
		return nil, version, storageFailuref("commit: %v", err)
	}

	return op, newVersion, nil
}

func scanOperations(rows *sql.Rows) ([]*Operation, error) {
	var ops []*Operation
	for rows.Next() {
		var op Operation
		if err := rows.Scan(&op.ID, &op.DocumentID, &op.UserID, &op.BaseVersion, &op.Position,
			&op.InsertText, &op.DeleteLen, &op.AppliedVersion, &op.CreatedAt); err != nil {
			return nil, storageFailuref("scan operation: %v", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, storageFailuref("iterate operations: %v", err)
	}
	return ops, nil
}
