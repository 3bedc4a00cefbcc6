package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docuchat/internal/config"
	"docuchat/internal/model"
	redisClient "docuchat/internal/platform/redis"
	sqliteClient "docuchat/internal/platform/sqlite"
	"docuchat/internal/storage"
)

type App struct {
	Config *config.Config
	DB     *gorm.DB
	Redis  *redis.Client // nil when no addr is configured
	Files  *storage.Store

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	db, err := sqliteClient.New(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.Session{}, &model.Interaction{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	files, err := storage.New(cfg.Storage.PDFDir)
	if err != nil {
		return nil, err
	}

	var redisCli *redis.Client
	if cfg.Redis.Addr != "" {
		redisCli, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
	}

	return &App{
		Config:    cfg,
		DB:        db,
		Redis:     redisCli,
		Files:     files,
		StartedAt: time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
