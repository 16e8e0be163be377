// Package store provides local persistence: SQLite for preferences,
// sessions, and the offline analysis mirror; BadgerDB for binary caches.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/doclexa/doclexa/internal/config"
	_ "github.com/glebarez/go-sqlite" // Pure Go SQLite driver
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const ratesSnapshotKey = "rates.snapshot"

// Store provides unified access to SQLite and BadgerDB
type Store struct {
	db     *gorm.DB
	badger *badger.DB
	config *config.StorageConfig
}

// New creates a new Store instance
func New(cfg *config.Config) (*Store, error) {
	sqlitePath := cfg.Storage.SQLitePath
	if sqlitePath == "" {
		sqlitePath = filepath.Join(cfg.Storage.DataDir, "doclexa.db")
	}

	// Open SQLite with optimizations
	sqliteDB, err := sql.Open("sqlite", sqlitePath+"?_journal=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=-64000")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	sqliteDB.SetMaxOpenConns(10)
	sqliteDB.SetMaxIdleConns(5)
	sqliteDB.SetConnMaxLifetime(time.Hour)

	db, err := gorm.Open(sqlite.Dialector{Conn: sqliteDB}, &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(
		&Preference{},
		&CachedSession{},
		&AnalysisRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	badgerPath := cfg.Storage.BadgerPath
	if badgerPath == "" {
		badgerPath = filepath.Join(cfg.Storage.DataDir, "badger")
	}

	badgerOpts := badger.DefaultOptions(badgerPath).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)

	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &Store{
		db:     db,
		badger: badgerDB,
		config: &cfg.Storage,
	}, nil
}

// Close closes all database connections
func (s *Store) Close() error {
	return s.badger.Close()
}

// DB returns the GORM database instance
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Badger returns the BadgerDB instance
func (s *Store) Badger() *badger.DB {
	return s.badger
}

// ==================== Preference Methods ====================

// GetPreference returns the stored value for key, or "" when absent.
func (s *Store) GetPreference(ctx context.Context, key string) (string, error) {
	var pref Preference
	err := s.db.WithContext(ctx).First(&pref, "key = ?", key).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return pref.Value, nil
}

// SetPreference upserts the value for key.
func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	pref := Preference{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Save(&pref).Error
}

// ==================== Session Methods ====================

// SaveSession stores the current backend session, replacing any previous one.
func (s *Store) SaveSession(ctx context.Context, session *CachedSession) error {
	session.ID = "current"
	session.UpdatedAt = time.Now()
	return s.db.WithContext(ctx).Save(session).Error
}

// LoadSession returns the cached session, or nil when none exists.
func (s *Store) LoadSession(ctx context.Context) (*CachedSession, error) {
	var session CachedSession
	err := s.db.WithContext(ctx).First(&session, "id = ?", "current").Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// ClearSession removes the cached session on sign-out.
func (s *Store) ClearSession(ctx context.Context) error {
	return s.db.WithContext(ctx).Delete(&CachedSession{}, "id = ?", "current").Error
}

// ==================== Analysis Mirror Methods ====================

// SaveAnalysis stores a local copy of a persisted analysis.
func (s *Store) SaveAnalysis(ctx context.Context, record *AnalysisRecord) error {
	return s.db.WithContext(ctx).Create(record).Error
}

// ListAnalyses returns the most recent analyses for a user, newest first.
func (s *Store) ListAnalyses(ctx context.Context, userID string, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var records []AnalysisRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

// ==================== Badger Cache Methods ====================

// LoadSnapshot returns the last-good exchange-rate table, if cached.
func (s *Store) LoadSnapshot() (map[string]float64, error) {
	var table map[string]float64
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ratesSnapshotKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &table)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return table, nil
}

// SaveSnapshot caches the exchange-rate table for the next startup.
func (s *Store) SaveSnapshot(table map[string]float64) error {
	data, err := json.Marshal(table)
	if err != nil {
		return err
	}
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ratesSnapshotKey), data)
	})
}

// PutBlob caches binary content (captured images) under a key.
func (s *Store) PutBlob(key string, data []byte) error {
	return s.badger.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("blob."+key), data)
	})
}

// GetBlob returns cached binary content, or nil when absent.
func (s *Store) GetBlob(key string) ([]byte, error) {
	var data []byte
	err := s.badger.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("blob." + key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
