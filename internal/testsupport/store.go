package testsupport

import (
	"context"
	"testing"

	"reconciler/internal/config"
	"reconciler/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedRecords imports keys into st in order.
func SeedRecords(t testing.TB, st *store.Store, keys ...string) {
	t.Helper()

	if _, err := st.ImportRecords(context.Background(), keys); err != nil {
		t.Fatalf("store.ImportRecords: %v", err)
	}
}
