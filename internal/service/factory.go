package service

import (
	"log/slog"

	"github.com/fleetsight/pulse/core/config"
	"github.com/fleetsight/pulse/internal/cache"
	"github.com/fleetsight/pulse/internal/store"
)

type Services struct {
	stores     *store.Stores
	txRunner   TxRunner
	statsCache *cache.StatsCache
	ingestCfg  config.IngestConfig
	statsCfg   config.StatsConfig
	logger     *slog.Logger
}

type ServicesConfig struct {
	Stores     *store.Stores
	TxRunner   TxRunner
	StatsCache *cache.StatsCache
	Ingest     config.IngestConfig
	Stats      config.StatsConfig
	Logger     *slog.Logger
}

func NewServices(cfg ServicesConfig) *Services {
	return &Services{
		stores:     cfg.Stores,
		txRunner:   cfg.TxRunner,
		statsCache: cfg.StatsCache,
		ingestCfg:  cfg.Ingest,
		statsCfg:   cfg.Stats,
		logger:     cfg.Logger,
	}
}

func (s *Services) Ingest() IngestService {
	return NewIngestService(s.stores.Events(), s.txRunner, s.ingestCfg.MaxRetries, s.logger)
}

func (s *Services) Stats() StatsService {
	return NewStatsService(s.stores.Events(), s.statsCache, s.statsCfg, s.logger)
}
