package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fleetsight/pulse/internal/model"
	"github.com/fleetsight/pulse/internal/service"
	"github.com/fleetsight/pulse/internal/store"
)

// fakeEventStore is an in-memory EventStore that enforces the same
// version-check semantics as the Postgres implementation: inserts are guarded
// by the primary key, updates by WHERE version = ?, and SaveAll is
// all-or-nothing. Error injection fields let specs force conflicts and
// infrastructure failures per event ID.
type fakeEventStore struct {
	mu   sync.Mutex
	rows map[string]*model.MachineEvent

	listByIDsErrs []error          // popped per ListByIDs call
	saveAllErrs   []error          // popped per SaveAll call
	conflictsByID map[string]int   // next N SaveOne calls for this ID conflict
	errsByID      map[string]error // sticky SaveOne failure for this ID

	listMachineErr error
	topLinesErr    error
	sumErr         error
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		rows:          map[string]*model.MachineEvent{},
		conflictsByID: map[string]int{},
		errsByID:      map[string]error{},
	}
}

func uniqueID(prefix string, i int) string {
	return fmt.Sprintf("%s-%d", prefix, i)
}

func cloneEvent(ev *model.MachineEvent) *model.MachineEvent {
	c := *ev
	if ev.Version != nil {
		v := *ev.Version
		c.Version = &v
	}
	return &c
}

// stored returns a copy of the persisted row, or nil.
func (f *fakeEventStore) stored(eventID string) *model.MachineEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.rows[eventID]
	if !ok {
		return nil
	}
	return cloneEvent(ev)
}

func (f *fakeEventStore) seed(ev *model.MachineEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := cloneEvent(ev)
	if stored.Version == nil {
		v := int64(0)
		stored.Version = &v
	}
	f.rows[stored.EventID] = stored
}

func (f *fakeEventStore) GetByID(ctx context.Context, eventID string) (*model.MachineEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ev, ok := f.rows[eventID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneEvent(ev), nil
}

func (f *fakeEventStore) ListByIDs(ctx context.Context, eventIDs []string) (map[string]*model.MachineEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.listByIDsErrs) > 0 {
		err := f.listByIDsErrs[0]
		f.listByIDsErrs = f.listByIDsErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	result := make(map[string]*model.MachineEvent, len(eventIDs))
	for _, id := range eventIDs {
		if ev, ok := f.rows[id]; ok {
			result[id] = cloneEvent(ev)
		}
	}
	return result, nil
}

func (f *fakeEventStore) SaveAll(ctx context.Context, events []*model.MachineEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saveAllErrs) > 0 {
		err := f.saveAllErrs[0]
		f.saveAllErrs = f.saveAllErrs[1:]
		if err != nil {
			return err
		}
	}
	// All-or-nothing: validate every row before touching any.
	for _, ev := range events {
		if err := f.check(ev); err != nil {
			return err
		}
	}
	for _, ev := range events {
		f.apply(ev)
	}
	return nil
}

func (f *fakeEventStore) SaveOne(ctx context.Context, ev *model.MachineEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errsByID[ev.EventID]; err != nil {
		return err
	}
	if n := f.conflictsByID[ev.EventID]; n > 0 {
		f.conflictsByID[ev.EventID] = n - 1
		return store.ErrVersionConflict
	}
	if err := f.check(ev); err != nil {
		return err
	}
	f.apply(ev)
	return nil
}

func (f *fakeEventStore) check(ev *model.MachineEvent) error {
	current, exists := f.rows[ev.EventID]
	if ev.Version == nil {
		if exists {
			return store.ErrVersionConflict
		}
		return nil
	}
	if !exists || *current.Version != *ev.Version {
		return store.ErrVersionConflict
	}
	return nil
}

func (f *fakeEventStore) apply(ev *model.MachineEvent) {
	stored := cloneEvent(ev)
	if stored.Version == nil {
		v := int64(0)
		stored.Version = &v
	} else {
		*stored.Version++
	}
	f.rows[ev.EventID] = stored
}

func (f *fakeEventStore) ListByMachineAndRange(ctx context.Context, machineID string, start, end time.Time) ([]model.MachineEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listMachineErr != nil {
		return nil, f.listMachineErr
	}
	var result []model.MachineEvent
	for _, ev := range f.rows {
		if ev.MachineID != machineID {
			continue
		}
		if ev.EventTime.Before(start) || !ev.EventTime.Before(end) {
			continue
		}
		result = append(result, *cloneEvent(ev))
	}
	return result, nil
}

func (f *fakeEventStore) TopDefectLines(ctx context.Context, start, end time.Time, byFactory bool) ([]model.DefectLineStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.topLinesErr != nil {
		return nil, f.topLinesErr
	}
	byLine := map[string]*model.DefectLineStats{}
	for _, ev := range f.rows {
		if ev.EventTime.Before(start) || !ev.EventTime.Before(end) {
			continue
		}
		lineID := ev.MachineID
		if byFactory {
			lineID = ev.FactoryID
		}
		row, ok := byLine[lineID]
		if !ok {
			row = &model.DefectLineStats{LineID: lineID}
			byLine[lineID] = row
		}
		row.EventCount++
		if ev.DefectCount >= 0 {
			row.TotalDefects += int64(ev.DefectCount)
		}
	}
	result := make([]model.DefectLineStats, 0, len(byLine))
	for _, row := range byLine {
		result = append(result, *row)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].TotalDefects > result[j].TotalDefects
	})
	return result, nil
}

func (f *fakeEventStore) SumKnownDefects(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sumErr != nil {
		return 0, f.sumErr
	}
	var total int64
	for _, ev := range f.rows {
		if ev.DefectCount >= 0 {
			total += int64(ev.DefectCount)
		}
	}
	return total, nil
}

// fakeTxRunner hands the callback a provider over the same fake store. Specs
// that need to fail the transactional path inject errors on the store itself.
type fakeTxRunner struct {
	events *fakeEventStore
}

func (r *fakeTxRunner) WithTx(ctx context.Context, fn func(sp service.StoreProvider) error) error {
	return fn(&fakeStoreProvider{events: r.events})
}

type fakeStoreProvider struct {
	events *fakeEventStore
}

func (p *fakeStoreProvider) Events() store.EventStore {
	return p.events
}
