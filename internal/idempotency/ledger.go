// Package idempotency provides a BoltDB-backed ledger of transaction ids
// whose round-up has already been applied.
//
// The engine itself is not idempotent: invoking it twice for the same
// transaction applies the contribution twice. The ledger gives the service
// layer its at-most-once guarantee: Reserve is a check-before-insert, so a
// replayed transaction id is detected before any allocation happens. All
// entries live in a single file, no external database process is required.
package idempotency

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "github.com/boltdb/bolt"
)

const bucketName = "applied_transactions"

// Ledger wraps a BoltDB database recording which transactions have had
// their round-up applied.
type Ledger struct {
	db *bolt.DB
}

// Open opens (or creates) the ledger database at the given path and ensures
// the bucket exists. Creating the bucket is safe to run on every startup.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger bucket: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close releases the database file lock.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Reserve records the transaction id as applied ONLY if it is not present
// yet. Returns true when the reservation was taken, false when the id was
// already applied (the caller must skip the round-up).
func (l *Ledger) Reserve(transactionID string) (bool, error) {
	reserved := false
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if b.Get([]byte(transactionID)) != nil {
			return nil
		}
		reserved = true
		return b.Put([]byte(transactionID), []byte(time.Now().UTC().Format(time.RFC3339Nano)))
	})
	if err != nil {
		return false, fmt.Errorf("reserve %s: %w", transactionID, err)
	}
	return reserved, nil
}

// Applied reports whether the transaction id is recorded in the ledger.
// Pure read, always idempotent.
func (l *Ledger) Applied(transactionID string) (bool, error) {
	var found bool
	err := l.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket([]byte(bucketName)).Get([]byte(transactionID)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", transactionID, err)
	}
	return found, nil
}

// Release removes a reservation. Used when downstream persistence failed
// after the id was reserved, so a retry can apply the round-up.
func (l *Ledger) Release(transactionID string) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(transactionID))
	})
	if err != nil {
		return fmt.Errorf("release %s: %w", transactionID, err)
	}
	return nil
}
