package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"wuauser/internal/model"
)

// ErrSlotTaken means an active booking already overlaps the requested window.
var ErrSlotTaken = errors.New("slot already taken")

// Store wraps sql.DB for the scheduling service.
type Store struct {
	*sql.DB
}

// New opens the database at path and runs migrations.
func New(path string) (*Store, error) {
	// WAL for concurrent readers; _txlock=immediate takes the write lock at
	// BEGIN so the check-and-insert in CreateBooking serializes; _loc=auto
	// keeps timestamps in local time so calendar-day queries match
	// wall-clock slot times.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_loc=auto"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if path == ":memory:" {
		// Each pool connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := createTables(db); err != nil {
		return nil, err
	}
	return &Store{db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT UNIQUE NOT NULL,
			pet_name TEXT NOT NULL,
			client_name TEXT,
			client_phone TEXT,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			duration_minutes INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'confirmed',
			comment TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_bookings_times ON bookings(start_time, end_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}

// CreateBooking inserts a booking and fills in its ID and timestamps. The
// overlap check and the insert run in a single immediate transaction, so
// two concurrent writers cannot both claim the same window: the loser gets
// ErrSlotTaken.
func (s *Store) CreateBooking(ctx context.Context, b *model.Booking) error {
	if b.Status == "" {
		b.Status = model.StatusConfirmed
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	taken, err := slotTaken(ctx, tx, b.StartTime, b.EndTime())
	if err != nil {
		return fmt.Errorf("check slot: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO bookings (
			reference, pet_name, client_name, client_phone,
			start_time, end_time, duration_minutes, status, comment,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Reference, b.PetName, b.ClientName, b.ClientPhone,
		b.StartTime, b.EndTime(), b.DurationMinutes, b.Status, b.Comment,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking: %w", err)
	}
	b.ID = id
	return nil
}

// GetByReference returns a booking by its public reference.
func (s *Store) GetByReference(ctx context.Context, reference string) (*model.Booking, error) {
	row := s.QueryRowContext(ctx, `
		SELECT id, reference, pet_name, client_name, client_phone,
		       start_time, duration_minutes, status, comment, created_at, updated_at
		FROM bookings
		WHERE reference = ?
		LIMIT 1`,
		reference,
	)
	return scanBooking(row)
}

// ListForDate returns all active bookings for a calendar day, ordered by
// start time. Canceled bookings are excluded.
func (s *Store) ListForDate(ctx context.Context, date time.Time) ([]model.Booking, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	rows, err := s.QueryContext(ctx, `
		SELECT id, reference, pet_name, client_name, client_phone,
		       start_time, duration_minutes, status, comment, created_at, updated_at
		FROM bookings
		WHERE start_time >= ? AND start_time < ?
		AND status != 'canceled'
		ORDER BY start_time`,
		startOfDay, endOfDay,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// CancelByReference marks a booking canceled.
func (s *Store) CancelByReference(ctx context.Context, reference string) error {
	res, err := s.ExecContext(ctx, `
		UPDATE bookings
		SET status = 'canceled', updated_at = ?
		WHERE reference = ? AND status != 'canceled'`,
		time.Now(), reference,
	)
	if err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsSlotTaken checks if any active booking overlaps [start, end).
func (s *Store) IsSlotTaken(ctx context.Context, start, end time.Time) (bool, error) {
	return slotTaken(ctx, s.DB, start, end)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func slotTaken(ctx context.Context, q querier, start, end time.Time) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE start_time < ? AND end_time > ?
		AND status != 'canceled'`,
		end, start,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*model.Booking, error) {
	var b model.Booking
	var clientName, clientPhone, comment sql.NullString
	err := row.Scan(
		&b.ID, &b.Reference, &b.PetName, &clientName, &clientPhone,
		&b.StartTime, &b.DurationMinutes, &b.Status, &comment, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if clientName.Valid {
		b.ClientName = clientName.String
	}
	if clientPhone.Valid {
		b.ClientPhone = clientPhone.String
	}
	if comment.Valid {
		b.Comment = comment.String
	}
	return &b, nil
}

// Backup copies the database file to dest.
func (s *Store) Backup(srcPath, dest string) error {
	source, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("open source db: %w", err)
	}
	defer source.Close()

	destination, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer destination.Close()

	if _, err := io.Copy(destination, source); err != nil {
		return fmt.Errorf("copy db: %w", err)
	}
	return nil
}

// CleanupBackups deletes backup files older than retention. Returns the
// number of files deleted.
func (s *Store) CleanupBackups(dir string, retention time.Duration) (int, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-retention)
	deleted := 0
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		info, err := file.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, file.Name())); err == nil {
				deleted++
			}
		}
	}
	return deleted, nil
}
