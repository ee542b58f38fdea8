package model

import "time"

// DefectCountUnknown marks events whose defect count was not reported by the
// machine. Unknown rows are excluded from every defect aggregation.
const DefectCountUnknown = -1

// MachineEvent is one reported cycle from one machine, uniquely identified by
// EventID. ReceivedTime is the conflict-resolution clock: between two events
// with the same ID, the one with the later ReceivedTime wins.
//
// Version is nil for events that have never been persisted. The store assigns
// 0 on insert and increments it on every accepted mutation.
type MachineEvent struct {
	EventID      string
	MachineID    string
	FactoryID    string
	EventTime    time.Time
	ReceivedTime time.Time
	DurationMs   int64
	DefectCount  int
	Version      *int64
}

// SamePayload reports whether e and other carry the same payload.
// ReceivedTime and Version are bookkeeping, not payload.
func (e *MachineEvent) SamePayload(other *MachineEvent) bool {
	if other == nil {
		return false
	}
	return e.DurationMs == other.DurationMs &&
		e.DefectCount == other.DefectCount &&
		e.EventTime.Equal(other.EventTime) &&
		e.MachineID == other.MachineID &&
		e.FactoryID == other.FactoryID
}

// ApplyPayload copies incoming's payload fields and ReceivedTime onto e,
// preserving e's stored Version so the next write stays version-checked.
func (e *MachineEvent) ApplyPayload(incoming *MachineEvent) {
	e.DurationMs = incoming.DurationMs
	e.DefectCount = incoming.DefectCount
	e.EventTime = incoming.EventTime
	e.MachineID = incoming.MachineID
	e.FactoryID = incoming.FactoryID
	e.ReceivedTime = incoming.ReceivedTime
}
