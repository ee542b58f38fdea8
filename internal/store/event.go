package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fleetsight/pulse/internal/model"
)

type eventStore struct {
	q Querier
}

func newEventStore(q Querier) EventStore {
	return &eventStore{q: q}
}

const eventColumns = `event_id, event_time, received_time, machine_id, factory_id, duration_ms, defect_count, version`

const insertEventSQL = `
INSERT INTO machine_events (event_id, event_time, received_time, machine_id, factory_id, duration_ms, defect_count, version)
VALUES ($1, $2, $3, $4, $5, $6, $7, 0)`

const updateEventSQL = `
UPDATE machine_events
SET event_time = $2, received_time = $3, machine_id = $4, factory_id = $5,
    duration_ms = $6, defect_count = $7, version = version + 1
WHERE event_id = $1 AND version = $8`

func (s *eventStore) GetByID(ctx context.Context, eventID string) (*model.MachineEvent, error) {
	row := s.q.QueryRow(ctx, `SELECT `+eventColumns+` FROM machine_events WHERE event_id = $1`, eventID)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return ev, nil
}

// ListByIDs fetches all requested rows in a single round-trip. IDs with no
// stored row are simply absent from the result map.
func (s *eventStore) ListByIDs(ctx context.Context, eventIDs []string) (map[string]*model.MachineEvent, error) {
	result := make(map[string]*model.MachineEvent, len(eventIDs))
	if len(eventIDs) == 0 {
		return result, nil
	}

	rows, err := s.q.Query(ctx, `SELECT `+eventColumns+` FROM machine_events WHERE event_id = ANY($1)`, eventIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result[ev.EventID] = ev
	}
	return result, rows.Err()
}

// SaveAll writes every row version-checked in one pipelined batch. The first
// stale row or racing insert fails the whole call with ErrVersionConflict;
// the surrounding transaction makes the batch all-or-nothing.
func (s *eventStore) SaveAll(ctx context.Context, events []*model.MachineEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, ev := range events {
		queueSave(batch, ev)
	}

	results := s.q.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		tag, err := results.Exec()
		if err != nil {
			if isUniqueViolation(err) {
				return ErrVersionConflict
			}
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrVersionConflict
		}
	}
	return results.Close()
}

func (s *eventStore) SaveOne(ctx context.Context, event *model.MachineEvent) error {
	if event.Version == nil {
		_, err := s.q.Exec(ctx, insertEventSQL,
			event.EventID, event.EventTime, event.ReceivedTime, event.MachineID,
			event.FactoryID, event.DurationMs, event.DefectCount)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrVersionConflict
			}
			return err
		}
		v := int64(0)
		event.Version = &v
		return nil
	}

	tag, err := s.q.Exec(ctx, updateEventSQL,
		event.EventID, event.EventTime, event.ReceivedTime, event.MachineID,
		event.FactoryID, event.DurationMs, event.DefectCount, *event.Version)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	*event.Version++
	return nil
}

// ListByMachineAndRange scans the (machine_id, event_time) index over the
// half-open window [start, end).
func (s *eventStore) ListByMachineAndRange(ctx context.Context, machineID string, start, end time.Time) ([]model.MachineEvent, error) {
	rows, err := s.q.Query(ctx, `
SELECT `+eventColumns+`
FROM machine_events
WHERE machine_id = $1 AND event_time >= $2 AND event_time < $3`,
		machineID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.MachineEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ev)
	}
	return result, rows.Err()
}

// TopDefectLines aggregates defects per line over [start, end), ordered by
// defect total descending. Unknown defect counts contribute 0 to the sum but
// still count as events. Grouping falls on factory_id when byFactory is set,
// machine_id otherwise.
func (s *eventStore) TopDefectLines(ctx context.Context, start, end time.Time, byFactory bool) ([]model.DefectLineStats, error) {
	groupCol := "machine_id"
	if byFactory {
		groupCol = "factory_id"
	}

	rows, err := s.q.Query(ctx, `
SELECT `+groupCol+` AS line_id,
       SUM(CASE WHEN defect_count >= 0 THEN defect_count ELSE 0 END)::bigint AS total_defects,
       COUNT(*)::bigint AS event_count
FROM machine_events
WHERE event_time >= $1 AND event_time < $2
GROUP BY `+groupCol+`
ORDER BY total_defects DESC`,
		start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.DefectLineStats
	for rows.Next() {
		var row model.DefectLineStats
		if err := rows.Scan(&row.LineID, &row.TotalDefects, &row.EventCount); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (s *eventStore) SumKnownDefects(ctx context.Context) (int64, error) {
	var total int64
	err := s.q.QueryRow(ctx, `
SELECT COALESCE(SUM(defect_count), 0)::bigint
FROM machine_events
WHERE defect_count >= 0`).Scan(&total)
	return total, err
}

func queueSave(batch *pgx.Batch, ev *model.MachineEvent) {
	if ev.Version == nil {
		batch.Queue(insertEventSQL,
			ev.EventID, ev.EventTime, ev.ReceivedTime, ev.MachineID,
			ev.FactoryID, ev.DurationMs, ev.DefectCount)
		return
	}
	batch.Queue(updateEventSQL,
		ev.EventID, ev.EventTime, ev.ReceivedTime, ev.MachineID,
		ev.FactoryID, ev.DurationMs, ev.DefectCount, *ev.Version)
}

func scanEvent(row pgx.Row) (*model.MachineEvent, error) {
	var ev model.MachineEvent
	var version int64
	err := row.Scan(&ev.EventID, &ev.EventTime, &ev.ReceivedTime, &ev.MachineID,
		&ev.FactoryID, &ev.DurationMs, &ev.DefectCount, &version)
	if err != nil {
		return nil, err
	}
	ev.Version = &version
	return &ev, nil
}

// 23505 is Postgres unique_violation: a racing insert won the primary key.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
