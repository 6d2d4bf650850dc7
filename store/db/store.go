// Package db is the SQLite storage backend built on gorm.
package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/store"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

const defaultDBPath = "./guestenv.db"

var logger = zap.NewNop()

// Logger returns the package logger.
func Logger() *zap.Logger {
	return logger
}

// SetLogger replaces the package logger. A nil logger disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// DBStorage is one storage cell of a contract.
type DBStorage struct {
	Contract string `gorm:"column:contract_address;primaryKey;size:66"`
	Key      []byte `gorm:"column:storage_key;primaryKey;type:blob"`
	Value    []byte `gorm:"column:storage_value;type:blob;not null"`
}

// TableName specifies the table name for DBStorage
func (DBStorage) TableName() string {
	return "contract_storage"
}

// Store persists contract storage in SQLite.
type Store struct {
	db *gorm.DB
}

func init() {
	if err := store.Register(store.DBType, func(params map[string]any) (store.Store, error) {
		return Open(params)
	}); err != nil {
		panic(err)
	}
}

// Open opens (or creates) the database named by params["db_path"].
func Open(params map[string]any) (*Store, error) {
	dbPath := defaultDBPath
	if path, ok := params["db_path"].(string); ok && path != "" {
		dbPath = path
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&DBStorage{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Debug("storage database opened", zap.String("path", dbPath))
	return &Store{db: db}, nil
}

func (s *Store) Get(contract core.AccountID, key []byte) ([]byte, bool, error) {
	var cell DBStorage
	err := s.db.Where("contract_address = ? AND storage_key = ?", contract.String(), key).First(&cell).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get storage: %w", err)
	}
	return cell.Value, true, nil
}

func (s *Store) Set(contract core.AccountID, key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	cell := DBStorage{Contract: contract.String(), Key: key, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "contract_address"}, {Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"storage_value"}),
	}).Create(&cell).Error
	if err != nil {
		return fmt.Errorf("failed to set storage: %w", err)
	}
	return nil
}

func (s *Store) Delete(contract core.AccountID, key []byte) error {
	err := s.db.Where("contract_address = ? AND storage_key = ?", contract.String(), key).Delete(&DBStorage{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete storage: %w", err)
	}
	return nil
}

// Count returns the number of cells stored for contract.
func (s *Store) Count(contract core.AccountID) (int64, error) {
	var n int64
	err := s.db.Model(&DBStorage{}).Where("contract_address = ?", contract.String()).Count(&n).Error
	return n, err
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
