package ledger

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/commentsweep/quota-server/app/domain/entities"
)

// SQLiteStore persists day records in an SQLite database. Rows accumulate
// one per provider day, which doubles as a usage history.
type SQLiteStore struct {
	db  *sql.DB
	dsn string
}

// NewSQLiteStore opens the database at dsn.
// The driver "sqlite3" must be registered by the application importing this
// package, typically by a blank import like `_ "github.com/mattn/go-sqlite3"`.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	return &SQLiteStore{db: db, dsn: dsn}, nil
}

// Init creates the quota_days table if it does not exist.
func (s *SQLiteStore) Init() error {
	query := `
    CREATE TABLE IF NOT EXISTS quota_days (
        date TEXT PRIMARY KEY,
        total_used INTEGER NOT NULL DEFAULT 0,
        last_reset TIMESTAMP NOT NULL
    );`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create quota_days table: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// LoadLatest returns the newest day record by date key.
func (s *SQLiteStore) LoadLatest() (*entities.DayRecord, error) {
	query := `SELECT date, total_used, last_reset FROM quota_days
              ORDER BY date DESC LIMIT 1;`
	row := s.db.QueryRow(query)

	var rec entities.DayRecord
	err := row.Scan(&rec.Date, &rec.TotalUsed, &rec.LastReset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrDayRecordNotFound
		}
		return nil, fmt.Errorf("load latest day record: %w", err)
	}
	return &rec, nil
}

// Save upserts the record for its day key.
func (s *SQLiteStore) Save(rec *entities.DayRecord) error {
	query := `
    INSERT INTO quota_days (date, total_used, last_reset)
    VALUES (?, ?, ?)
    ON CONFLICT(date) DO UPDATE SET
        total_used = excluded.total_used,
        last_reset = excluded.last_reset;`

	if _, err := s.db.Exec(query, rec.Date, rec.TotalUsed, rec.LastReset); err != nil {
		return fmt.Errorf("save day record %s: %w", rec.Date, err)
	}
	return nil
}
