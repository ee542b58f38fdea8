package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment, so ingestion and stats
// code never has to repeat batch/machine identifiers on each log line.
type LogFields struct {
	BatchID   *int64  // Ingestion batch correlation ID
	EventID   *string // Event being processed
	MachineID *string // Machine the request concerns
	FactoryID *string // Factory / line the request concerns
	Component string  // Component name (e.g., "pulse.ingest")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.BatchID != nil {
		result.BatchID = next.BatchID
	}
	if next.EventID != nil {
		result.EventID = next.EventID
	}
	if next.MachineID != nil {
		result.MachineID = next.MachineID
	}
	if next.FactoryID != nil {
		result.FactoryID = next.FactoryID
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline.
func Ptr[T any](v T) *T {
	return &v
}
