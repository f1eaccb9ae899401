// Package storage persists wallet and contract state across restarts. The
// VTXO repository and contract repository are logically single-writer per
// process; writes carry a monotonic last-sync-time and a write that would
// regress it is rejected as a stale write rather than silently applied, so a
// background poller racing the foreground wallet can detect it lost.
package storage

import "errors"

var (
	ErrStaleWrite = errors.New("storage: write is older than the stored state")
	ErrNotFound   = errors.New("storage: not found")
)
