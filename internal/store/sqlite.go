package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Document is the single-table schema backing the SQLite store: one row
// per schema key, holding the serialized state document.
type Document struct {
	Key       string    `gorm:"primaryKey" json:"key"` // Schema key of the document
	Data      []byte    `gorm:"not null" json:"data"`  // Serialized JSON state
	UpdatedAt time.Time `json:"updated_at"`            // Last write timestamp
}

// TableName returns the database table name for the Document model.
func (Document) TableName() string {
	return "documents"
}

// SQLiteStore is a DocumentStore backed by a SQLite database file.
type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and
// runs the schema migration for the documents table.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&Document{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the document stored under key.
func (s *SQLiteStore) Load(key string) ([]byte, bool, error) {
	var doc Document
	err := s.db.First(&doc, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load document %q: %w", key, err)
	}
	return doc.Data, true, nil
}

// Save upserts the document under key.
func (s *SQLiteStore) Save(key string, doc []byte) error {
	record := Document{Key: key, Data: doc, UpdatedAt: time.Now()}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(&record).Error
	if err != nil {
		return fmt.Errorf("failed to save document %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
