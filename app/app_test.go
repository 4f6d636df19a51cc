package app_test

import (
	"testing"

	"github.com/commentsweep/quota-server/app/app"
	"github.com/commentsweep/quota-server/app/internal/ledger"
)

func TestNewApp_MemoryStore(t *testing.T) {
	t.Setenv("LEDGER_STORE", "memory")

	a, err := app.NewApp()
	if err != nil {
		t.Fatalf("NewApp() failed: %v", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}()

	if a.Config == nil {
		t.Error("App.Config is nil")
	}
	if _, ok := a.Store.(*ledger.MemoryStore); !ok {
		t.Errorf("Expected Store to be *MemoryStore, got %T", a.Store)
	}
	if a.Ledger == nil {
		t.Error("App.Ledger is nil")
	}
	if a.Quota == nil {
		t.Error("App.Quota is nil")
	}

	snap := a.Quota.Status()
	if snap.DailyLimit != a.Config.Quota.DailyLimit {
		t.Errorf("Status() DailyLimit = %d, want %d", snap.DailyLimit, a.Config.Quota.DailyLimit)
	}
}

func TestNewApp_SQLiteStore(t *testing.T) {
	t.Setenv("LEDGER_STORE", "sqlite")
	t.Setenv("LEDGER_SQLITE_DSN", t.TempDir()+"/quota.db")

	a, err := app.NewApp()
	if err != nil {
		t.Fatalf("NewApp() failed: %v", err)
	}
	defer a.Close()

	if _, ok := a.Store.(*ledger.SQLiteStore); !ok {
		t.Errorf("Expected Store to be *SQLiteStore, got %T", a.Store)
	}
}
