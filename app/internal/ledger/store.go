package ledger

import (
	"github.com/commentsweep/quota-server/app/domain/entities"
)

// Store persists the daily ledger record. Implementations keep one record
// per provider day; only the latest is ever read back.
type Store interface {
	// Init performs any necessary initialization (e.g. table creation).
	Init() error
	// Close performs cleanup tasks (e.g. closing the DB connection).
	Close() error

	// LoadLatest returns the most recent persisted day record, or
	// entities.ErrDayRecordNotFound when nothing has been persisted yet.
	LoadLatest() (*entities.DayRecord, error)
	// Save upserts the record for its day.
	Save(rec *entities.DayRecord) error
}
