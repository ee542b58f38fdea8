package model

import "time"

// MachineStats is the health summary for one machine over a half-open window.
type MachineStats struct {
	MachineID     string
	Start         time.Time
	End           time.Time
	EventsCount   int64
	DefectsCount  int64
	AvgDefectRate float64
	Status        string
}

// DefectLineStats is one aggregation row from the store: a line identifier
// with its defect total (unknown counts excluded) and event count.
type DefectLineStats struct {
	LineID       string
	TotalDefects int64
	EventCount   int64
}

// TopDefectLine is a DefectLineStats row enriched with the derived
// defects-per-event percentage.
type TopDefectLine struct {
	LineID         string
	TotalDefects   int64
	EventCount     int64
	DefectsPercent float64
}
