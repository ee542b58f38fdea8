package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/fleetsight/pulse/common/logger"
	"github.com/fleetsight/pulse/core/config"
	"github.com/fleetsight/pulse/internal/cache"
	"github.com/fleetsight/pulse/internal/model"
	"github.com/fleetsight/pulse/internal/store"
)

const (
	StatusHealthy = "Healthy"
	StatusWarning = "Warning"
)

// StatsService answers read-only analytics over the event store.
type StatsService interface {
	MachineStats(ctx context.Context, machineID string, start, end time.Time) (*model.MachineStats, error)
	TopDefectLines(ctx context.Context, start, end time.Time, limit int, factoryID string) ([]model.TopDefectLine, error)
	TotalKnownDefects(ctx context.Context) (int64, error)
}

type statsService struct {
	events store.EventStore
	cache  *cache.StatsCache
	policy config.StatsConfig
	logger *slog.Logger
}

// NewStatsService builds the aggregator. cache may be nil; every read then
// goes straight to the store.
func NewStatsService(events store.EventStore, statsCache *cache.StatsCache, policy config.StatsConfig, log *slog.Logger) StatsService {
	if log == nil {
		log = slog.Default()
	}
	return &statsService{
		events: events,
		cache:  statsCache,
		policy: policy,
		logger: log,
	}
}

// MachineStats summarizes one machine over the half-open window [start, end):
// event count, known-defect total, and a defects-per-hour rate labelled
// against the configured warning threshold.
func (s *statsService) MachineStats(ctx context.Context, machineID string, start, end time.Time) (*model.MachineStats, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{MachineID: logger.Ptr(machineID), Component: "pulse.stats"})

	key := fmt.Sprintf("stats:machine:%s:%d:%d", machineID, start.UnixNano(), end.UnixNano())
	var cached model.MachineStats
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	events, err := s.events.ListByMachineAndRange(ctx, machineID, start, end)
	if err != nil {
		return nil, fmt.Errorf("listing machine events: %w", err)
	}

	var totalDefects int64
	for _, ev := range events {
		if ev.DefectCount >= 0 {
			totalDefects += int64(ev.DefectCount)
		}
	}

	hours := end.Sub(start).Hours()
	if hours < s.policy.MinWindowHours {
		hours = s.policy.MinWindowHours
	}

	rate := 0.0
	if len(events) > 0 {
		rate = float64(totalDefects) / hours
	}

	status := StatusHealthy
	if rate >= s.policy.WarnRate {
		status = StatusWarning
	}

	stats := &model.MachineStats{
		MachineID:     machineID,
		Start:         start,
		End:           end,
		EventsCount:   int64(len(events)),
		DefectsCount:  totalDefects,
		AvgDefectRate: roundHalfUp(rate, 1),
		Status:        status,
	}
	s.cache.Set(ctx, key, stats)
	return stats, nil
}

// TopDefectLines ranks lines by known-defect total over [start, end),
// truncated to limit. With a factoryID the aggregation groups by factory and
// returns only that factory's row; otherwise it groups by machine, one row
// per line.
func (s *statsService) TopDefectLines(ctx context.Context, start, end time.Time, limit int, factoryID string) ([]model.TopDefectLine, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "pulse.stats"})
	if factoryID != "" {
		ctx = logger.WithLogFields(ctx, logger.LogFields{FactoryID: logger.Ptr(factoryID)})
	}
	if limit <= 0 {
		limit = s.policy.DefaultTopLimit
	}

	key := fmt.Sprintf("stats:lines:%s:%d:%d:%d", factoryID, start.UnixNano(), end.UnixNano(), limit)
	var cached []model.TopDefectLine
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	rows, err := s.events.TopDefectLines(ctx, start, end, factoryID != "")
	if err != nil {
		return nil, fmt.Errorf("aggregating defect lines: %w", err)
	}

	lines := make([]model.TopDefectLine, 0, limit)
	for _, row := range rows {
		if factoryID != "" && row.LineID != factoryID {
			continue
		}
		if len(lines) == limit {
			break
		}

		percent := 0.0
		if row.EventCount > 0 {
			percent = float64(row.TotalDefects) * 100.0 / float64(row.EventCount)
		}
		lines = append(lines, model.TopDefectLine{
			LineID:         row.LineID,
			TotalDefects:   row.TotalDefects,
			EventCount:     row.EventCount,
			DefectsPercent: roundHalfUp(percent, 2),
		})
	}

	s.cache.Set(ctx, key, lines)
	return lines, nil
}

// TotalKnownDefects sums defect counts across the whole store, excluding
// unknown (-1) rows.
func (s *statsService) TotalKnownDefects(ctx context.Context) (int64, error) {
	return s.events.SumKnownDefects(ctx)
}

// roundHalfUp rounds to the given number of decimal places with halves going
// up. The rates and percentages here are never negative, so math.Round's
// half-away-from-zero is exactly half-up.
func roundHalfUp(v float64, places int) float64 {
	factor := math.Pow10(places)
	return math.Round(v*factor) / factor
}
