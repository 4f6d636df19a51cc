package ledger_test

import (
	"testing"
	"time"

	"github.com/commentsweep/quota-server/app/domain/entities"
	"github.com/commentsweep/quota-server/app/internal/ledger"
)

func TestMemoryStore_Empty(t *testing.T) {
	store := ledger.NewMemoryStore()
	if err := store.Init(); err != nil {
		t.Errorf("Init() error = %v, wantErr nil", err)
	}

	if _, err := store.LoadLatest(); err != entities.ErrDayRecordNotFound {
		t.Errorf("LoadLatest() error = %v, want %v", err, entities.ErrDayRecordNotFound)
	}
}

func TestMemoryStore_SaveReturnsCopy(t *testing.T) {
	store := ledger.NewMemoryStore()

	rec := &entities.DayRecord{Date: "2025-06-01", TotalUsed: 100, LastReset: time.Now()}
	if err := store.Save(rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Mutating the caller's record must not affect the stored copy.
	rec.TotalUsed = 999

	got, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest() error = %v", err)
	}
	if got.TotalUsed != 100 {
		t.Errorf("LoadLatest() TotalUsed = %v, want 100", got.TotalUsed)
	}

	// And mutating the loaded record must not affect a later load.
	got.TotalUsed = 555
	again, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest() error = %v", err)
	}
	if again.TotalUsed != 100 {
		t.Errorf("LoadLatest() after mutation TotalUsed = %v, want 100", again.TotalUsed)
	}
}
