// Package store persists claims, invoices and archived reconciliation runs
// through gorm, backed by SQLite or MySQL.
//
// A Store satisfies both reconciler source interfaces, so the engine can
// reconcile from a database exactly as it does from CSV files.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

// Supported drivers
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

const importBatchSize = 500

// Config selects and tunes the database connection
type Config struct {
	Driver       string        `mapstructure:"driver"`
	DSN          string        `mapstructure:"dsn"`
	LogLevel     string        `mapstructure:"log_level"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DefaultConfig returns a local SQLite file configuration
func DefaultConfig() *Config {
	return &Config{
		Driver:       DriverSQLite,
		DSN:          "reconciler.db",
		LogLevel:     "silent",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		ConnLifetime: time.Hour,
	}
}

// Validate checks the driver and DSN
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("database DSN cannot be empty")
	}
	return nil
}

func (c *Config) gormLogLevel() gormlogger.LogLevel {
	switch strings.ToLower(c.LogLevel) {
	case "error":
		return gormlogger.Error
	case "warn":
		return gormlogger.Warn
	case "info":
		return gormlogger.Info
	default:
		return gormlogger.Silent
	}
}

// Store is a migrated database handle
type Store struct {
	db     *gorm.DB
	driver string
	logger logger.Logger
}

// Open connects to the configured database and migrates the schema
func Open(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "db.driver", config.Driver, err)
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(config.gormLogLevel()),
	}

	var dialector gorm.Dialector
	switch config.Driver {
	case DriverMySQL:
		dialector = mysql.Open(config.DSN)
	default:
		dialector = sqlite.Open(config.DSN)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, errors.NetworkError(errors.CodeConnectionFailed, config.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.NetworkError(errors.CodeConnectionFailed, config.Driver, err)
	}
	if config.Driver == DriverSQLite {
		// SQLite allows a single writer, and every :memory: connection is a
		// separate database.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(config.ConnLifetime)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, errors.NetworkError(errors.CodeConnectionFailed, config.Driver, err)
	}

	if err := db.AutoMigrate(&ClaimRow{}, &InvoiceRow{}, &ReconciliationRun{}); err != nil {
		sqlDB.Close()
		return nil, errors.InternalError(errors.CodeUnexpectedError, "migrate database", err)
	}

	s := &Store{
		db:     db,
		driver: config.Driver,
		logger: logger.GetGlobalLogger().WithComponent("store").WithField("driver", config.Driver),
	}
	s.logger.Info("Database connected and migrated")
	return s, nil
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// String names the store in logs and errors
func (s *Store) String() string {
	return "database:" + s.driver
}

// ImportStats counts the rows written by ImportDataset
type ImportStats struct {
	Claims   int `json:"claims"`
	Invoices int `json:"invoices"`
}

// ImportDataset upserts claims and invoices by key in one transaction.
// Re-importing the same rows leaves the tables unchanged.
func (s *Store) ImportDataset(ctx context.Context, claims []models.Claim, invoices []models.Invoice) (*ImportStats, error) {
	claimRows := make([]ClaimRow, len(claims))
	for i, c := range claims {
		if err := validateClaim(s.String()+"/claims", i+1, &c); err != nil {
			return nil, err
		}
		claimRows[i] = claimRow(c)
	}
	invoiceRows := make([]InvoiceRow, len(invoices))
	for i, inv := range invoices {
		if err := validateInvoice(s.String()+"/invoices", i+1, &inv); err != nil {
			return nil, err
		}
		invoiceRows[i] = invoiceRow(inv)
	}

	tracker := logger.NewProgressTracker(logger.ProgressConfig{
		Operation: "import_dataset",
		Total:     int64(len(claimRows) + len(invoiceRows)),
		Logger:    s.logger,
	})

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(claimRows) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "claim_id"}},
				UpdateAll: true,
			}).CreateInBatches(&claimRows, importBatchSize).Error; err != nil {
				return fmt.Errorf("failed to import claims: %w", err)
			}
			tracker.Add(int64(len(claimRows)))
		}
		if len(invoiceRows) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "invoice_id"}},
				UpdateAll: true,
			}).CreateInBatches(&invoiceRows, importBatchSize).Error; err != nil {
				return fmt.Errorf("failed to import invoices: %w", err)
			}
			tracker.Add(int64(len(invoiceRows)))
		}
		return nil
	})
	if err != nil {
		tracker.CompleteWithError(err)
		return nil, errors.WriteError(errors.CodeOutputNotWritable, s.String(), err)
	}
	tracker.Complete()

	return &ImportStats{Claims: len(claimRows), Invoices: len(invoiceRows)}, nil
}

// LoadClaims returns every stored claim in import order
func (s *Store) LoadClaims(ctx context.Context) ([]models.Claim, error) {
	var rows []ClaimRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errors.DataLoadError(errors.CodeSourceQuery, s.String()+"/claims", err)
	}

	source := s.String() + "/claims"
	claims := make([]models.Claim, len(rows))
	for i, r := range rows {
		claims[i] = r.Claim()
		if err := validateClaim(source, i+1, &claims[i]); err != nil {
			return nil, err
		}
	}
	return claims, nil
}

// LoadInvoices returns every stored invoice in import order
func (s *Store) LoadInvoices(ctx context.Context) ([]models.Invoice, error) {
	var rows []InvoiceRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, errors.DataLoadError(errors.CodeSourceQuery, s.String()+"/invoices", err)
	}

	source := s.String() + "/invoices"
	invoices := make([]models.Invoice, len(rows))
	for i, r := range rows {
		invoices[i] = r.Invoice()
		if err := validateInvoice(source, i+1, &invoices[i]); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// SaveRun archives a finished run under a fresh id
func (s *Store) SaveRun(ctx context.Context, summary *models.Summary, meta RunMeta) (*ReconciliationRun, error) {
	if summary == nil {
		return nil, errors.New(errors.CategoryInternal, errors.CodeUnexpectedError, "summary cannot be nil")
	}
	encoded, err := json.Marshal(summary)
	if err != nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "encode summary", err)
	}

	run := &ReconciliationRun{
		ID:                   uuid.NewString(),
		Trigger:              meta.Trigger,
		ClaimsSource:         meta.ClaimsSource,
		InvoicesSource:       meta.InvoicesSource,
		OutputPath:           meta.OutputPath,
		DurationMS:           meta.Duration.Milliseconds(),
		TotalClaims:          summary.TotalClaims,
		Balanced:             summary.Balanced,
		Overpaid:             summary.Overpaid,
		Underpaid:            summary.Underpaid,
		TotalOverpaidAmount:  summary.TotalOverpaidAmount,
		TotalUnderpaidAmount: summary.TotalUnderpaidAmount,
		SummaryJSON:          string(encoded),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, errors.WriteError(errors.CodeOutputNotWritable, s.String()+"/reconciliation_runs", err)
	}

	s.logger.WithFields(logger.Fields{
		"run_id":  run.ID,
		"trigger": run.Trigger,
		"total":   run.TotalClaims,
	}).Info("Reconciliation run archived")
	return run, nil
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]ReconciliationRun, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var runs []ReconciliationRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, errors.DataLoadError(errors.CodeSourceQuery, s.String()+"/reconciliation_runs", err)
	}
	return runs, nil
}

// GetRun returns one archived run
func (s *Store) GetRun(ctx context.Context, id string) (*ReconciliationRun, error) {
	var run ReconciliationRun
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.DataLoadError(errors.CodeSourceQuery, s.String()+"/reconciliation_runs", err)
	}
	return &run, nil
}
