package service

import (
	"strings"
	"time"

	"github.com/fleetsight/pulse/internal/model"
)

// Rejection reasons reported on the batch response. The first three come out
// of validation; the last two out of the upsert engine.
const (
	ReasonMissingEventID     = "MISSING_EVENT_ID"
	ReasonInvalidDuration    = "INVALID_DURATION"
	ReasonEventInFuture      = "EVENT_IN_FUTURE"
	ReasonConcurrencyFailure = "CONCURRENCY_FAILURE"
	ReasonInternalError      = "INTERNAL_ERROR"
)

const (
	// maxDurationMs caps a cycle at six hours; anything longer is sensor noise.
	maxDurationMs = int64(6 * time.Hour / time.Millisecond)

	// maxFutureSkew tolerates clock drift between machines and the server.
	maxFutureSkew = 15 * time.Minute
)

// ValidateEvent checks a candidate event against the ingestion rules and
// returns the rejection reason, or "" when the event is acceptable. It is
// pure: no store I/O, no mutation of the event. A missing ReceivedTime is not
// a rejection; the facade defaults it before coalescing.
func ValidateEvent(ev *model.MachineEvent, now time.Time) string {
	if strings.TrimSpace(ev.EventID) == "" {
		return ReasonMissingEventID
	}
	if ev.DurationMs < 0 || ev.DurationMs > maxDurationMs {
		return ReasonInvalidDuration
	}
	if ev.EventTime.After(now.Add(maxFutureSkew)) {
		return ReasonEventInFuture
	}
	return ""
}
