package dto

import (
	"time"

	"github.com/fleetsight/pulse/internal/model"
	"github.com/fleetsight/pulse/internal/service"
)

// MachineEventRequest is one element of the POST /events/batch body.
// receivedTime is optional; the pipeline assigns the server clock when it is
// absent. A missing defectCount means zero defects, not unknown; senders
// report unknown explicitly as -1.
type MachineEventRequest struct {
	EventID      string     `json:"eventId"`
	MachineID    string     `json:"machineId"`
	FactoryID    string     `json:"factoryId"`
	EventTime    time.Time  `json:"eventTime"`
	ReceivedTime *time.Time `json:"receivedTime,omitempty"`
	DurationMs   int64      `json:"durationMs"`
	DefectCount  int        `json:"defectCount"`
}

func (r *MachineEventRequest) ToModel() *model.MachineEvent {
	ev := &model.MachineEvent{
		EventID:     r.EventID,
		MachineID:   r.MachineID,
		FactoryID:   r.FactoryID,
		EventTime:   r.EventTime,
		DurationMs:  r.DurationMs,
		DefectCount: r.DefectCount,
	}
	if r.ReceivedTime != nil {
		ev.ReceivedTime = *r.ReceivedTime
	}
	return ev
}

type BatchIngestResponse struct {
	Accepted   int         `json:"accepted"`
	Deduped    int         `json:"deduped"`
	Updated    int         `json:"updated"`
	Rejected   int         `json:"rejected"`
	Rejections []Rejection `json:"rejections"`
}

type Rejection struct {
	EventID string `json:"eventId"`
	Reason  string `json:"reason"`
}

func NewBatchIngestResponse(result *service.BatchResult) BatchIngestResponse {
	rejections := make([]Rejection, 0, len(result.Rejections))
	for _, r := range result.Rejections {
		rejections = append(rejections, Rejection{EventID: r.EventID, Reason: r.Reason})
	}
	return BatchIngestResponse{
		Accepted:   result.Accepted,
		Deduped:    result.Deduped,
		Updated:    result.Updated,
		Rejected:   result.Rejected,
		Rejections: rejections,
	}
}
