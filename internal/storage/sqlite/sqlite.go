// Package sqlite provides a SQLite-backed implementation of the
// storage.Store document contract, plus team membership and notification
// persistence for the surrounding collaborator interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/si14444/roomie-backend/internal/models"
	"github.com/si14444/roomie-backend/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite. Bill documents are
// stored as JSON so targeted field updates and whole-document replacement
// operate on the same representation the subscribers consume.
type SQLiteStore struct {
	db        *sql.DB
	watchers  *watcherRegistry
	publishMu sync.Mutex
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL keeps readers unblocked while a mutation commits.
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, watchers: newWatcherRegistry()}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.watchers.closeAll()
	return s.db.Close()
}

// CreateBill persists a new bill document.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.TeamID == "" {
		return fmt.Errorf("%w: bill has no team id", storage.ErrSync)
	}
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}

	doc, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("failed to encode bill: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO bills (id, team_id, doc, updated_at) VALUES (?, ?, ?, ?)",
		bill.ID, bill.TeamID, string(doc), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bill: %w", err)
	}

	s.publishSnapshot(bill.TeamID)
	return nil
}

// GetBill retrieves the current document for one bill.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT doc FROM bills WHERE id = ?", billID,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, billID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}

	bill := &models.Bill{}
	if err := json.Unmarshal([]byte(doc), bill); err != nil {
		return nil, fmt.Errorf("failed to decode bill %s: %w", billID, err)
	}
	return bill, nil
}

// ListBills retrieves all bill documents for a team, oldest first.
func (s *SQLiteStore) ListBills(ctx context.Context, teamID string) ([]models.Bill, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT doc FROM bills WHERE team_id = ? ORDER BY json_extract(doc, '$.createdAt'), id",
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list bills: %w", err)
	}
	defer rows.Close()

	var bills []models.Bill
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan bill: %w", err)
		}
		var bill models.Bill
		if err := json.Unmarshal([]byte(doc), &bill); err != nil {
			return nil, fmt.Errorf("failed to decode bill: %w", err)
		}
		bills = append(bills, bill)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bills: %w", err)
	}
	return bills, nil
}

// UpdateBillField applies a targeted update to one dotted path inside the
// bill document, e.g. "payments.<memberId>". The read-modify-write runs
// in a single transaction so two members updating different sub-keys
// never overwrite each other's change.
func (s *SQLiteStore) UpdateBillField(ctx context.Context, billID, path string, value any) error {
	if path == "" {
		return fmt.Errorf("%w: empty field path", storage.ErrSync)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var teamID, doc string
	err = tx.QueryRowContext(ctx,
		"SELECT team_id, doc FROM bills WHERE id = ?", billID,
	).Scan(&teamID, &doc)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, billID)
	}
	if err != nil {
		return fmt.Errorf("failed to load bill for update: %w", err)
	}

	updated, err := setDocumentField([]byte(doc), path, value)
	if err != nil {
		return fmt.Errorf("failed to update field %q: %w", path, err)
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE bills SET doc = ?, updated_at = ? WHERE id = ?",
		string(updated), time.Now().UnixMilli(), billID,
	); err != nil {
		return fmt.Errorf("failed to write bill: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.publishSnapshot(teamID)
	return nil
}

// ReplaceBillDocument overwrites the whole bill document atomically.
func (s *SQLiteStore) ReplaceBillDocument(ctx context.Context, bill *models.Bill) error {
	doc, err := json.Marshal(bill)
	if err != nil {
		return fmt.Errorf("failed to encode bill: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE bills SET doc = ?, updated_at = ? WHERE id = ?",
		string(doc), time.Now().UnixMilli(), bill.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to replace bill: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check replace result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, bill.ID)
	}

	s.publishSnapshot(bill.TeamID)
	return nil
}

// DeleteBillDocument removes the bill document. The delete and the
// team-id lookup are one statement, so a concurrent delete of the same
// bill reads as not found instead of publishing a second snapshot.
func (s *SQLiteStore) DeleteBillDocument(ctx context.Context, billID string) error {
	var teamID string
	err := s.db.QueryRowContext(ctx,
		"DELETE FROM bills WHERE id = ? RETURNING team_id", billID,
	).Scan(&teamID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, billID)
	}
	if err != nil {
		return fmt.Errorf("failed to delete bill: %w", err)
	}

	s.publishSnapshot(teamID)
	return nil
}

// setDocumentField sets a dotted path inside a JSON document, creating
// intermediate objects as needed. The value is round-tripped through JSON
// so callers can pass domain structs directly.
func setDocumentField(doc []byte, path string, value any) ([]byte, error) {
	var root map[string]any
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var jsonValue any
	if err := json.Unmarshal(encoded, &jsonValue); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}

	parts := strings.Split(path, ".")
	node := root
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = jsonValue

	return json.Marshal(root)
}
