// internal/storage/postgres/postgres.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/launchpad/internal/storage"
	"github.com/rovshanmuradov/launchpad/internal/storage/models"
)

const migrationLockID = 4201

// gormLogger routes gorm output through zap.
type gormLogger struct {
	zapLogger     *zap.Logger
	logLevel      logger.LogLevel
	slowThreshold time.Duration
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger:     zapLogger,
		logLevel:      logger.Warn,
		slowThreshold: 200 * time.Millisecond,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
	case elapsed > l.slowThreshold && l.logLevel >= logger.Warn:
		l.zapLogger.Warn("slow query", fields...)
	case l.logLevel >= logger.Info:
		l.zapLogger.Debug("trace", fields...)
	}
}

// Options tunes the connection pool.
type Options struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// historyStorage implements storage.HistoryStore on postgres.
type historyStorage struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStorage opens the history database.
func NewStorage(dsn string, opts Options, zapLogger *zap.Logger) (storage.HistoryStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return &historyStorage{db: db, logger: zapLogger.Named("history")}, nil
}

// RunMigrations creates or updates the history tables under an advisory lock.
func (p *historyStorage) RunMigrations() error {
	var lockObtained bool
	if err := p.db.Raw("SELECT pg_try_advisory_lock(?)", migrationLockID).Scan(&lockObtained).Error; err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !lockObtained {
		return fmt.Errorf("another migration is in progress")
	}
	defer p.db.Exec("SELECT pg_advisory_unlock(?)", migrationLockID)

	err := p.db.AutoMigrate(
		&models.Trade{},
		&models.Curve{},
		&models.Migration{},
		&models.ConfigChange{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	p.logger.Info("History schema up to date")
	return nil
}

// Close releases the connection pool.
func (p *historyStorage) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}

// SaveTrade is idempotent on EventID so redelivered events are harmless.
func (p *historyStorage) SaveTrade(ctx context.Context, trade *models.Trade) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(trade).Error
}

func (p *historyStorage) ListTrades(ctx context.Context, mint string, limit, offset int) ([]*models.Trade, error) {
	var trades []*models.Trade
	err := p.db.WithContext(ctx).
		Where("mint = ?", mint).
		Order("executed_at desc, id desc").
		Limit(limit).
		Offset(offset).
		Find(&trades).Error
	return trades, err
}

func (p *historyStorage) SaveCurve(ctx context.Context, curve *models.Curve) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "mint"}}, DoNothing: true}).
		Create(curve).Error
}

func (p *historyStorage) GetCurve(ctx context.Context, mint string) (*models.Curve, error) {
	var curve models.Curve
	err := p.db.WithContext(ctx).Where("mint = ?", mint).First(&curve).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &curve, nil
}

func (p *historyStorage) MarkCurveComplete(ctx context.Context, mint string, reserves models.ReserveSnapshot) error {
	now := time.Now().UTC()
	return p.db.WithContext(ctx).Model(&models.Curve{}).
		Where("mint = ?", mint).
		Updates(map[string]interface{}{
			"complete":               true,
			"completed_at":           &now,
			"virtual_sol_reserves":   reserves.VirtualSolReserves,
			"virtual_token_reserves": reserves.VirtualTokenReserves,
			"real_sol_reserves":      reserves.RealSolReserves,
			"real_token_reserves":    reserves.RealTokenReserves,
		}).Error
}

func (p *historyStorage) SaveMigration(ctx context.Context, migration *models.Migration) error {
	return p.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "mint"}}, DoNothing: true}).
		Create(migration).Error
}

func (p *historyStorage) GetMigration(ctx context.Context, mint string) (*models.Migration, error) {
	var migration models.Migration
	err := p.db.WithContext(ctx).Where("mint = ?", mint).First(&migration).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &migration, nil
}

func (p *historyStorage) MarkMigrationLocked(ctx context.Context, mint, escrow string) error {
	now := time.Now().UTC()
	return p.db.WithContext(ctx).Model(&models.Migration{}).
		Where("mint = ?", mint).
		Updates(map[string]interface{}{
			"escrow":    escrow,
			"locked_at": &now,
		}).Error
}

func (p *historyStorage) SaveConfigChange(ctx context.Context, change *models.ConfigChange) error {
	return p.db.WithContext(ctx).Create(change).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}
