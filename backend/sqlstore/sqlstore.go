// Package sqlstore implements backend.Store on a single gorm-managed table.
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/suyash-sneo/prefstore/backend"
)

// Record maps to the prefstore_records table.
type Record struct {
	Key       string `gorm:"primaryKey"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName pins the table name regardless of naming strategy.
func (Record) TableName() string { return "prefstore_records" }

// Options configure the sqlite-backed store.
type Options struct {
	DSN string `yaml:"dsn"`
}

type Store struct {
	db *gorm.DB
}

var _ backend.Store = (*Store)(nil)

// OpenSQLite opens a sqlite database at opts.DSN and migrates the records table.
func OpenSQLite(opts Options) (*Store, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("sqlite dsn required")
	}
	db, err := gorm.Open(sqlite.Open(opts.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return New(db)
}

// New wraps an existing gorm handle and migrates the records table.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("migrate records: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var rec Record
	// Find instead of First so a miss is not logged as "record not found".
	result := s.db.WithContext(ctx).Where("key = ?", key).Limit(1).Find(&rec)
	if result.Error != nil {
		return nil, false, fmt.Errorf("failed to read key %s: %w", key, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	return rec.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	rec := Record{
		Key:       key,
		Value:     append([]byte{}, value...),
		UpdatedAt: time.Now().UTC(),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec)
	if result.Error != nil {
		return fmt.Errorf("failed to write key %s: %w", key, result.Error)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&Record{}).Error; err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := s.db.WithContext(ctx).Model(&Record{}).Order("key").Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

func (s *Store) RemoveMany(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("key IN ?", keys).Delete(&Record{}).Error; err != nil {
			return fmt.Errorf("failed to delete %d keys: %w", len(keys), err)
		}
		return nil
	})
}
