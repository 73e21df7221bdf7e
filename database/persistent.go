package database

import (
	"database/sql"
	"errors"
	"sync"
)

// persistent connections shared between managers, keyed by engine and descriptor.
var (
	persistentMu      sync.Mutex
	persistentHandles = map[string]*sql.DB{}
)

func acquirePersistent(key string) *sql.DB {
	persistentMu.Lock()
	defer persistentMu.Unlock()
	return persistentHandles[key]
}

// storePersistent registers conn under key. If another manager won the race, conn is
// closed and the registered handle is returned instead.
func storePersistent(key string, conn *sql.DB) *sql.DB {
	persistentMu.Lock()
	defer persistentMu.Unlock()
	if existing, ok := persistentHandles[key]; ok {
		_ = conn.Close()
		return existing
	}
	persistentHandles[key] = conn
	return conn
}

// ClosePersistent closes every shared persistent connection. Call it once at process
// shutdown; managers still holding a closed handle fail their next statement.
func ClosePersistent() error {
	persistentMu.Lock()
	defer persistentMu.Unlock()

	var errs []error
	for key, conn := range persistentHandles {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(persistentHandles, key)
	}
	return errors.Join(errs...)
}
