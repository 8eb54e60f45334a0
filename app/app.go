package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"habit-tracker/config"
	"habit-tracker/database"
	"habit-tracker/logger"
	"habit-tracker/store"
)

// App 配置、日志和已加载数据的 Store
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *store.Store

	closers []func() error
}

// Open 读取配置，初始化日志和存储后端，并加载 Record
func Open(ctx context.Context, configPath string, overrides ...func(*config.Config)) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: l}

	var p store.Persister
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		db, err := database.New(cfg.Storage.SQLitePath, l)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		p = db
	default:
		p = store.NewFilePersister(cfg.Storage.Path)
	}

	a.Store = store.New(p, store.WithLogger(l))
	a.Store.Load(ctx)

	l.Info("Habit store ready",
		zap.String("backend", a.Store.Backend()),
		zap.Int("habits", len(a.Store.Habits())),
	)
	return a, nil
}

// Close 关闭存储后端并刷新日志
func (a *App) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = a.Logger.Sync()
	return firstErr
}
