// Package testutil provides shared test helpers for setting up state
// stores.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/state"
	"github.com/SysAdminDoc/NextDNS-Control-Panel/internal/store"
)

// TestStore creates a temporary SQLite store that is automatically
// cleaned up.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "panel-test.db")
	db, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestState loads panel state backed by a temporary store.
func TestState(t *testing.T) *state.State {
	t.Helper()
	st, err := state.Load(TestStore(t), "")
	if err != nil {
		t.Fatal(err)
	}
	return st
}
