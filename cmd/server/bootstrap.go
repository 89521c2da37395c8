package main

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/indyforge/groupindustry/internal/config"
	"github.com/indyforge/groupindustry/internal/models"
	"github.com/indyforge/groupindustry/internal/services"
	"github.com/indyforge/groupindustry/internal/utils"
	"github.com/indyforge/groupindustry/pkg/logger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	db           *gorm.DB
	rdb          *redis.Client
	projects     *services.ProjectService
	members      *services.MemberService
	ledger       *services.ContributionLedger
	sales        *services.SaleService
	distribution *services.DistributionService
	exports      *services.ExportService
	priceRefresh *services.PriceRefreshService
	taskQueue    services.TaskQueue
	worker       *services.Worker
}

// bootstrap initializes all application dependencies: database, redis, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}
	db := models.GetDB()

	rdb := connectRedis(&cfg.Redis)
	var locker *redislock.Client
	if rdb != nil {
		locker = redislock.New(rdb)
	}

	prices := services.NewPriceProvider(&cfg.Pricing, rdb)
	trees := services.NewHTTPTreeBuilder(&cfg.TreeBuilder)

	projects := services.NewProjectService(db, cfg, trees, prices, services.NewItemTypeBlacklistResolver(db))
	ledger := services.NewContributionLedger(db, &cfg.Industry, prices, locker)
	distribution := services.NewDistributionService(db)

	priceRefresh := services.NewPriceRefreshService(db, prices, cfg.Pricing.RefreshCron)
	if err := priceRefresh.StartScheduler(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start price refresh scheduler")
	}

	// Uses Redis if enabled, otherwise processes in-process
	processor := services.AutoDetectProcessor(ledger)
	taskQueue := services.InitTaskQueue(cfg)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(processor)
	}

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(processor)
			if err := worker.Start(); err != nil {
				logger.Warn().Err(err).Msg("Failed to start worker")
			}
		}
	}

	return &appServices{
		db:           db,
		rdb:          rdb,
		projects:     projects,
		members:      services.NewMemberService(db),
		ledger:       ledger,
		sales:        services.NewSaleService(db),
		distribution: distribution,
		exports:      services.NewExportService(projects, distribution),
		priceRefresh: priceRefresh,
		taskQueue:    taskQueue,
		worker:       worker,
	}
}

// connectRedis returns nil when Redis is disabled or unreachable; the price
// cache and submission locks are skipped in that case.
func connectRedis(cfg *config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Addr).Msg("Redis unreachable, price cache and locks disabled")
		rdb.Close()
		return nil
	}
	logger.Infof("[Redis] Connected to %s", cfg.Addr)
	return rdb
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.priceRefresh.StopScheduler()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		s.taskQueue.Close()
	}
	if s.rdb != nil {
		s.rdb.Close()
	}
}
