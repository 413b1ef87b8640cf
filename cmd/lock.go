package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/siphon-dl/siphon/internal/config"
)

// historyLock serialises writes to the history ledger across concurrent
// siphon processes (sqlite's single-writer model doesn't tolerate
// uncoordinated concurrent writers well without WAL tuning this CLI
// doesn't attempt).
var historyLock = flock.New(lockPath())

func lockPath() string {
	return filepath.Join(config.GetSiphonDir(), "siphon.lock")
}

// withHistoryLock runs fn while holding the single-instance file lock
// around the state directory, so two `siphon get` invocations running at
// once don't race on history.db.
func withHistoryLock(fn func() error) error {
	if err := config.EnsureDirs(); err != nil {
		return fmt.Errorf("ensuring state dir: %w", err)
	}

	if err := historyLock.Lock(); err != nil {
		return fmt.Errorf("acquiring history lock: %w", err)
	}
	defer historyLock.Unlock()

	return fn()
}
