package repositories

import (
	goerrors "errors"

	"github.com/dgraph-io/badger/v4"
)

// txnRetryLimit bounds how often an aborted transaction is re-executed.
// A conflict clears as soon as the competing commit lands, so the limit is
// only reached if the store itself is wedged.
const txnRetryLimit = 32

// update runs fn in a read-write transaction and re-runs it whenever
// badger's optimistic concurrency aborts the commit. Every write path that
// reads before writing (sequence counters, uniqueness probes) must go
// through this: two ordinary concurrent writes to the same chat or handle
// would otherwise surface badger's conflict error to the caller.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < txnRetryLimit; i++ {
		err = db.Update(fn)
		if !goerrors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}
