// Package devcache is the single process-wide device-identity cache keyed
// by host:port, backed by buntdb so entries survive process restarts.
package devcache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"
)

// staleAfter is the window after which a cached device is considered stale.
const staleAfter = 24 * time.Hour

// Entry is one cached device identity.
type Entry struct {
	DeviceName   string    `json:"deviceName"`
	RootPath     string    `json:"rootPath"`
	IdentityPath string    `json:"identityPath"`
	LastSeen     time.Time `json:"lastSeen"`
	LastActivity time.Time `json:"lastActivity,omitempty"` // most recent matrix crosspoint touch
}

// Valid reports whether the entry is within the staleness window. Stale
// entries are reported invalid, never deleted.
func (e Entry) Valid(now time.Time) bool {
	return now.Sub(e.LastSeen) < staleAfter
}

// Cache wraps a buntdb store. It holds no lock of its own: each call runs
// as one buntdb transaction (buntdb serializes writers internally), giving
// the critical section a narrow, trivial shape: one read-modify-write per
// call.
type Cache struct {
	db *buntdb.DB
}

// Open opens (creating if absent) the on-disk cache at path. Pass ":memory:"
// for a process-local, non-persistent cache (tests).
func Open(path string) (*Cache, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "devcache: open")
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

func key(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }

// Get returns the entry for host:port and whether it exists. A stale entry
// is still returned with ok=true; use Entry.Valid to test staleness.
func (c *Cache) Get(host string, port int) (Entry, bool, error) {
	var e Entry
	found := false
	err := c.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(key(host, port))
		if err == buntdb.ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if jerr := json.Unmarshal([]byte(val), &e); jerr != nil {
			return jerr
		}
		found = true
		return nil
	})
	if err != nil {
		return Entry{}, false, errors.Wrap(err, "devcache: get")
	}
	return e, found, nil
}

// Put records or refreshes an entry's identity and lastSeen=now.
func (c *Cache) Put(host string, port int, deviceName, rootPath, identityPath string) error {
	return c.db.Update(func(tx *buntdb.Tx) error {
		e := Entry{
			DeviceName: deviceName, RootPath: rootPath, IdentityPath: identityPath,
			LastSeen: time.Now(),
		}
		if existing, err := tx.Get(key(host, port)); err == nil {
			var prev Entry
			if jerr := json.Unmarshal([]byte(existing), &prev); jerr == nil {
				e.LastActivity = prev.LastActivity
			}
		}
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(key(host, port), string(data), nil)
		return err
	})
}

// TouchActivity sets host:port's LastActivity to the current wall-clock
// time; it fails if no entry exists for host:port yet.
func (c *Cache) TouchActivity(host string, port int) error {
	return c.db.Update(func(tx *buntdb.Tx) error {
		existing, err := tx.Get(key(host, port))
		if err != nil {
			return err
		}
		var e Entry
		if err := json.Unmarshal([]byte(existing), &e); err != nil {
			return err
		}
		e.LastActivity = time.Now()
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		_, _, err = tx.Set(key(host, port), string(data), nil)
		return err
	})
}

// ActivityAge returns how long ago LastActivity was recorded, or zero if
// the crosspoint has never been touched.
func ActivityAge(e Entry) time.Duration {
	if e.LastActivity.IsZero() {
		return 0
	}
	return time.Since(e.LastActivity)
}
