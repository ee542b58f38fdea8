package store

import (
	"context"
	"errors"
	"time"

	"github.com/fleetsight/pulse/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrVersionConflict is returned when a version-checked write observes a row
// whose stored version differs from the in-memory version, or when a racing
// insert claims the primary key first. Callers treat both the same way: the
// row changed underneath them and must be re-read.
var ErrVersionConflict = errors.New("version conflict")

// EventStore defines the contract for machine event data access.
//
// SaveAll and SaveOne are version-checked: each presented row must either not
// exist yet (inserted at version 0) or still carry the version the caller
// read (updated with version+1). Any miss yields ErrVersionConflict. SaveAll
// is all-or-nothing and must run inside a transaction supplied by the caller.
type EventStore interface {
	GetByID(ctx context.Context, eventID string) (*model.MachineEvent, error)
	ListByIDs(ctx context.Context, eventIDs []string) (map[string]*model.MachineEvent, error)
	SaveAll(ctx context.Context, events []*model.MachineEvent) error
	SaveOne(ctx context.Context, event *model.MachineEvent) error
	ListByMachineAndRange(ctx context.Context, machineID string, start, end time.Time) ([]model.MachineEvent, error)
	TopDefectLines(ctx context.Context, start, end time.Time, byFactory bool) ([]model.DefectLineStats, error)
	SumKnownDefects(ctx context.Context) (int64, error)
}
