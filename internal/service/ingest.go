package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetsight/pulse/common/id"
	"github.com/fleetsight/pulse/common/logger"
	"github.com/fleetsight/pulse/internal/model"
	"github.com/fleetsight/pulse/internal/store"
)

// BatchResult is the outcome of one ProcessBatch invocation. For every
// completed batch, Accepted+Updated+Deduped+Rejected equals the input length.
type BatchResult struct {
	Accepted   int
	Deduped    int
	Updated    int
	Rejected   int
	Rejections []Rejection
}

type Rejection struct {
	EventID string
	Reason  string
}

func (r *BatchResult) addRejection(eventID, reason string) {
	r.Rejected++
	r.Rejections = append(r.Rejections, Rejection{EventID: eventID, Reason: reason})
}

// IngestService is the single entry point of the ingestion pipeline:
// validation, in-batch coalescing, and the two-stage upsert engine.
type IngestService interface {
	ProcessBatch(ctx context.Context, events []*model.MachineEvent) *BatchResult
}

type ingestService struct {
	events     store.EventStore
	txRunner   TxRunner
	maxRetries int
	logger     *slog.Logger
}

func NewIngestService(events store.EventStore, txRunner TxRunner, maxRetries int, log *slog.Logger) IngestService {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if log == nil {
		log = slog.Default()
	}
	return &ingestService{
		events:     events,
		txRunner:   txRunner,
		maxRetries: maxRetries,
		logger:     log,
	}
}

// ProcessBatch validates and persists a batch. Concurrent invocations are
// safe: batches racing on the same event ID are reconciled by the
// version-checked writes underneath, with the latest ReceivedTime winning.
func (s *ingestService) ProcessBatch(ctx context.Context, events []*model.MachineEvent) *BatchResult {
	result := &BatchResult{Rejections: []Rejection{}}
	now := time.Now().UTC()

	batchID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{BatchID: &batchID, Component: "pulse.ingest"})

	valid := make([]*model.MachineEvent, 0, len(events))
	for _, ev := range events {
		if reason := ValidateEvent(ev, now); reason != "" {
			result.addRejection(ev.EventID, reason)
			continue
		}
		if ev.ReceivedTime.IsZero() {
			ev.ReceivedTime = now
		}
		valid = append(valid, ev)
	}

	winners, inBatchDeduped := CoalesceBatch(valid)
	result.Deduped += inBatchDeduped

	if len(winners) == 0 {
		return result
	}

	if err := s.bulkUpsert(ctx, winners, result); err != nil {
		s.logger.WarnContext(ctx, "bulk upsert failed, falling back to per-row upserts",
			"error", err, "rows", len(winners))

		// Discard the bulk stage's tallies and let the per-row stage
		// re-derive everything from the same winner set. Validation
		// rejections survive; the in-batch dedupe count is re-derived from
		// the coalescer's output, which is unchanged.
		result.Accepted, result.Updated, result.Deduped = 0, 0, inBatchDeduped

		for _, w := range winners {
			s.upsertWithRetry(ctx, w, result)
		}
	}

	s.logger.InfoContext(ctx, "batch processed",
		"input", len(events), "accepted", result.Accepted, "updated", result.Updated,
		"deduped", result.Deduped, "rejected", result.Rejected)
	return result
}

// bulkUpsert is the optimistic stage: one prefetch round-trip, in-memory
// classification, one transactional bulk write. Its tallies reach the result
// only after the write commits, so a failed bulk write leaves the result
// untouched for the fallback stage.
func (s *ingestService) bulkUpsert(ctx context.Context, winners []*model.MachineEvent, result *BatchResult) error {
	ids := make([]string, len(winners))
	for i, w := range winners {
		ids[i] = w.EventID
	}

	existing, err := s.events.ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("prefetching events: %w", err)
	}

	var staged []*model.MachineEvent
	accepted, updated, deduped := 0, 0, 0

	for _, w := range winners {
		current, ok := existing[w.EventID]
		if !ok {
			staged = append(staged, w)
			accepted++
			continue
		}
		switch {
		case !w.ReceivedTime.After(current.ReceivedTime):
			// Stale delivery: the stored state is already newer or equal.
			deduped++
		case w.SamePayload(current):
			// Identical retry with a newer clock: nothing to write.
			deduped++
		default:
			current.ApplyPayload(w)
			staged = append(staged, current)
			updated++
		}
	}

	if len(staged) > 0 {
		if err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
			return sp.Events().SaveAll(ctx, staged)
		}); err != nil {
			return fmt.Errorf("bulk write: %w", err)
		}
	}

	result.Accepted += accepted
	result.Updated += updated
	result.Deduped += deduped
	return nil
}

// upsertWithRetry is the fallback stage for a single winner: re-read,
// classify, and write inside a fresh transaction, retrying on version
// conflicts. Rows are strictly isolated; a failure here never touches the
// rest of the batch.
func (s *ingestService) upsertWithRetry(ctx context.Context, incoming *model.MachineEvent, result *BatchResult) {
	evCtx := logger.WithLogFields(ctx, logger.LogFields{EventID: logger.Ptr(incoming.EventID)})

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		outcome, err := s.attemptUpsert(evCtx, incoming)
		if err == nil {
			switch outcome {
			case outcomeAccepted:
				result.Accepted++
			case outcomeUpdated:
				result.Updated++
			case outcomeDeduped:
				result.Deduped++
			}
			return
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			s.logger.ErrorContext(evCtx, "upsert failed", "error", err, "attempt", attempt)
			result.addRejection(incoming.EventID, ReasonInternalError)
			return
		}
		s.logger.DebugContext(evCtx, "version conflict, retrying", "attempt", attempt)
	}

	result.addRejection(incoming.EventID, ReasonConcurrencyFailure)
}

type upsertOutcome int

const (
	outcomeAccepted upsertOutcome = iota
	outcomeUpdated
	outcomeDeduped
)

func (s *ingestService) attemptUpsert(ctx context.Context, incoming *model.MachineEvent) (upsertOutcome, error) {
	var outcome upsertOutcome

	err := s.txRunner.WithTx(ctx, func(sp StoreProvider) error {
		events := sp.Events()

		existing, err := events.GetByID(ctx, incoming.EventID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if existing == nil {
			fresh := *incoming
			fresh.Version = nil
			if err := events.SaveOne(ctx, &fresh); err != nil {
				return err
			}
			outcome = outcomeAccepted
			return nil
		}

		switch {
		case !incoming.ReceivedTime.After(existing.ReceivedTime):
			outcome = outcomeDeduped
		case incoming.SamePayload(existing):
			outcome = outcomeDeduped
		default:
			existing.ApplyPayload(incoming)
			if err := events.SaveOne(ctx, existing); err != nil {
				return err
			}
			outcome = outcomeUpdated
		}
		return nil
	})

	return outcome, err
}
