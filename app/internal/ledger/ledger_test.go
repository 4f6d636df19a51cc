package ledger_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commentsweep/quota-server/app/domain/entities"
	"github.com/commentsweep/quota-server/app/internal/epoch"
	"github.com/commentsweep/quota-server/app/internal/ledger"
)

// noon UTC is 05:00 provider-local on 2025-06-01.
var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// failingStore returns errors from every operation.
type failingStore struct{}

func (failingStore) Init() error  { return nil }
func (failingStore) Close() error { return nil }
func (failingStore) LoadLatest() (*entities.DayRecord, error) {
	return nil, errors.New("disk on fire")
}
func (failingStore) Save(*entities.DayRecord) error { return errors.New("disk on fire") }

func TestLedger_LoadAbsentStartsAtZero(t *testing.T) {
	led := ledger.New(ledger.NewMemoryStore(), zerolog.Nop())
	led.Load(testNow)

	assert.Equal(t, int64(0), led.TotalUsed())
	assert.Equal(t, epoch.DayKey(testNow), led.Date())
}

func TestLedger_LoadSameDayRestoresTotal(t *testing.T) {
	store := ledger.NewMemoryStore()
	require.NoError(t, store.Save(&entities.DayRecord{
		Date:      epoch.DayKey(testNow),
		TotalUsed: 4200,
		LastReset: testNow.Add(-4 * time.Hour),
	}))

	led := ledger.New(store, zerolog.Nop())
	led.Load(testNow)

	assert.Equal(t, int64(4200), led.TotalUsed())
}

func TestLedger_LoadStaleRecordStartsFresh(t *testing.T) {
	store := ledger.NewMemoryStore()
	require.NoError(t, store.Save(&entities.DayRecord{
		Date:      "2025-05-30",
		TotalUsed: 9999,
		LastReset: testNow.Add(-48 * time.Hour),
	}))

	led := ledger.New(store, zerolog.Nop())
	led.Load(testNow)

	assert.Equal(t, int64(0), led.TotalUsed())
	assert.Equal(t, epoch.DayKey(testNow), led.Date())
}

func TestLedger_RecordUsedPersists(t *testing.T) {
	store := ledger.NewMemoryStore()
	led := ledger.New(store, zerolog.Nop())
	led.Load(testNow)

	led.RecordUsed(900)
	led.RecordUsed(100)
	assert.Equal(t, int64(1000), led.TotalUsed())

	rec, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, int64(1000), rec.TotalUsed)
	assert.Equal(t, epoch.DayKey(testNow), rec.Date)
}

func TestLedger_NonPositiveDeltaIgnored(t *testing.T) {
	led := ledger.New(ledger.NewMemoryStore(), zerolog.Nop())
	led.Load(testNow)

	led.RecordUsed(0)
	led.RecordUsed(-50)
	assert.Equal(t, int64(0), led.TotalUsed())
}

func TestLedger_CheckDayReset(t *testing.T) {
	store := ledger.NewMemoryStore()
	led := ledger.New(store, zerolog.Nop())
	led.Load(testNow)
	led.RecordUsed(5000)

	// Same day: idempotent no-op.
	assert.False(t, led.CheckDayReset(testNow.Add(time.Hour)))
	assert.Equal(t, int64(5000), led.TotalUsed())

	// Next provider day: total zeroes and the new key persists.
	next := testNow.Add(24 * time.Hour)
	assert.True(t, led.CheckDayReset(next))
	assert.Equal(t, int64(0), led.TotalUsed())
	assert.Equal(t, epoch.DayKey(next), led.Date())

	rec, err := store.LoadLatest()
	require.NoError(t, err)
	assert.Equal(t, epoch.DayKey(next), rec.Date)
	assert.Equal(t, int64(0), rec.TotalUsed)

	// Second call on the new day changes nothing.
	assert.False(t, led.CheckDayReset(next))
}

func TestLedger_PersistFailureDegradesToMemory(t *testing.T) {
	led := ledger.New(failingStore{}, zerolog.Nop())
	led.Load(testNow)

	// The in-memory value stays authoritative despite the broken store.
	led.RecordUsed(700)
	assert.Equal(t, int64(700), led.TotalUsed())

	assert.True(t, led.CheckDayReset(testNow.Add(24*time.Hour)))
	assert.Equal(t, int64(0), led.TotalUsed())
}
