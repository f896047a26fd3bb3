// Package persist implements the durable-storage slot for the store's
// durable subset: one named record written on every mutation and read back
// once at startup.
package persist

import "github.com/starford/notemaster/internal/models"

// Slot is the local durable storage abstraction. Implementations hold exactly
// one record per slot key.
type Slot interface {
	// Load reads the persisted snapshot. The bool is false when the slot is
	// empty (first run) or its content cannot be decoded; both cases leave the
	// store at empty defaults.
	Load() (models.Snapshot, bool, error)
	// Save serializes and writes the snapshot. Identical repeated writes are
	// idempotent.
	Save(models.Snapshot) error
	Close() error
}
