package dto

import (
	"time"

	"github.com/fleetsight/pulse/internal/model"
)

type MachineStatsResponse struct {
	MachineID     string    `json:"machineId"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	EventsCount   int64     `json:"eventsCount"`
	DefectsCount  int64     `json:"defectsCount"`
	AvgDefectRate float64   `json:"avgDefectRate"`
	Status        string    `json:"status"`
}

func NewMachineStatsResponse(stats *model.MachineStats) MachineStatsResponse {
	return MachineStatsResponse{
		MachineID:     stats.MachineID,
		Start:         stats.Start,
		End:           stats.End,
		EventsCount:   stats.EventsCount,
		DefectsCount:  stats.DefectsCount,
		AvgDefectRate: stats.AvgDefectRate,
		Status:        stats.Status,
	}
}

type TopDefectLineResponse struct {
	LineID         string  `json:"lineId"`
	TotalDefects   int64   `json:"totalDefects"`
	EventCount     int64   `json:"eventCount"`
	DefectsPercent float64 `json:"defectsPercent"`
}

func NewTopDefectLineResponses(lines []model.TopDefectLine) []TopDefectLineResponse {
	result := make([]TopDefectLineResponse, 0, len(lines))
	for _, line := range lines {
		result = append(result, TopDefectLineResponse{
			LineID:         line.LineID,
			TotalDefects:   line.TotalDefects,
			EventCount:     line.EventCount,
			DefectsPercent: line.DefectsPercent,
		})
	}
	return result
}

type DefectsTotalResponse struct {
	TotalDefects int64 `json:"totalDefects"`
}
