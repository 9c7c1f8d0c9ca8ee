package testsupport

import (
	"testing"

	"cdpflow/internal/config"
	"cdpflow/internal/history"
)

// MustOpenHistory opens the history store configured by cfg and registers
// cleanup with the test.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
