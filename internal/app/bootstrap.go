package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"fieldaudit/internal/business"
	"fieldaudit/internal/business/detect"
	"fieldaudit/pkg/config"
	"fieldaudit/pkg/infra/mysql"
	"fieldaudit/pkg/infra/redis"
	"fieldaudit/pkg/logger"
)

// Infra 进程共用的外部依赖
type Infra struct {
	DAO   *mysql.EvidenceDAO
	Redis *goredis.Client // 未配置 redis.addr 时为 nil
}

// NewInfra 初始化 MySQL 与 Redis
// 返回的 cleanup 负责关闭连接
func NewInfra(ctx context.Context, cfg *config.Config, log logger.Logger) (*Infra, func(), error) {
	db, err := mysql.Open(mysql.Options{
		DSN:             cfg.MySQL.DSN,
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		AutoMigrate:     cfg.MySQL.AutoMigrate,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Infof(ctx, "[Bootstrap] MySQL connected")

	infra := &Infra{DAO: mysql.NewEvidenceDAO(db)}
	cleanup := func() {
		if err := mysql.Close(db); err != nil {
			log.Warnf(context.Background(), "[Bootstrap] Close mysql failed: %v", err)
		}
	}

	if cfg.Redis.Addr == "" {
		log.Warnf(ctx, "[Bootstrap] redis.addr not set, run lock and notifications disabled")
		return infra, cleanup, nil
	}

	client, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	log.Infof(ctx, "[Bootstrap] Redis connected: %s", cfg.Redis.Addr)

	infra.Redis = client
	closeDB := cleanup
	cleanup = func() {
		_ = client.Close()
		closeDB()
	}

	return infra, cleanup, nil
}

// NewDetectionService 按配置组装检测服务
func NewDetectionService(cfg *config.Config, infra *Infra, log logger.Logger) (*business.DetectionService, error) {
	thresholds := cfg.Detection.Thresholds

	deps := business.DetectionServiceDeps{
		Store:      infra.DAO,
		Flags:      infra.DAO,
		Composite:  detect.NewCompositeHandler(thresholds, cfg.Detection.Parallel, log),
		Logger:     log,
		WindowDays: cfg.Detection.WindowDays,
		Location:   thresholds.Location,
	}
	if infra.Redis != nil {
		deps.Locker = redis.NewRunLock(infra.Redis, cfg.Detection.RunLockKey, cfg.Detection.RunLockTTL)
		deps.Notifier = redis.NewPubSub(infra.Redis, cfg.Detection.NotifyChannel)
	}

	svc, err := business.NewDetectionService(deps)
	if err != nil {
		return nil, fmt.Errorf("create detection service: %w", err)
	}
	return svc, nil
}
