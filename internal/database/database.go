package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/n1kh11p/blokt-sub000/internal/config"
	"github.com/n1kh11p/blokt-sub000/internal/logger"
	"github.com/n1kh11p/blokt-sub000/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Models lists every table managed by AutoMigrate, in dependency order.
var Models = []any{
	&models.Organization{},
	&models.User{},
	&models.Project{},
	&models.Task{},
	&models.SafetyAlert{},
	&models.Video{},
}

// DSN builds the driver-specific connection string. DB_URL wins when set.
func DSN(cfg *config.Config) string {
	if cfg.DBURL != "" {
		return cfg.DBURL
	}
	switch cfg.DBDriver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&clientFoundRows=true",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	case "sqlite":
		return cfg.DBName
	default:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	}
}

// Dialector picks the gorm dialector for the configured driver.
func Dialector(cfg *config.Config) gorm.Dialector {
	dsn := DSN(cfg)
	switch cfg.DBDriver {
	case "mysql":
		return mysql.Open(dsn)
	case "sqlite":
		return sqlite.Open(dsn)
	default:
		return postgres.Open(dsn)
	}
}

// Connect opens the database and tunes the connection pool.
func Connect(cfg *config.Config, log *slog.Logger) (*gorm.DB, error) {
	db, err := Open(Dialector(cfg), log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("Database connection established", slog.String("driver", cfg.DBDriver))
	return db, nil
}

// Open wraps gorm.Open with the shared configuration. Tests use it with sqlite
// and sqlmock dialectors.
func Open(dialector gorm.Dialector, log *slog.Logger) (*gorm.DB, error) {
	return gorm.Open(dialector, &gorm.Config{
		Logger:         logger.NewGormAdapter(logger.Module(log, "database"), 200*time.Millisecond),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
}

// Migrate creates or updates every table and the supporting indexes.
func Migrate(db *gorm.DB, log *slog.Logger) error {
	log.Info("Running database migrations...")
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := AddIndexes(db, log); err != nil {
		return err
	}
	log.Info("Database migrations completed")
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
