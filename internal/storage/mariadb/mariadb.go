package mariadb

import (
	"context"
	"fmt"
	"time"

	"studio_site/internal/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// SyncWrite is one accepted POST /db. The remote store keeps only the last
// write, so this table is the only record of who replaced the document.
type SyncWrite struct {
	ID         int64     `json:"id" gorm:"primaryKey"`
	AdminEmail string    `json:"admin_email" gorm:"type:varchar(255);index"`
	Bytes      int       `json:"bytes"`
	Checksum   string    `json:"checksum" gorm:"type:char(64)"`
	CreatedAt  time.Time `json:"created_at"`
}

type Storage struct {
	DB *gorm.DB
}

func New(cfg config.Database) (*Storage, error) {
	const op = "storage.mariadb.New"

	db, err := gorm.Open(mysql.Open(cfg.GetDSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

func (s *Storage) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Storage) Migrate() error {
	const op = "storage.mariadb.Migrate"

	if err := s.DB.AutoMigrate(&SyncWrite{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Storage) RecordWrite(ctx context.Context, w *SyncWrite) error {
	const op = "storage.mariadb.RecordWrite"

	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}

	if err := s.DB.WithContext(ctx).Create(w).Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// RecentWrites returns the newest writes first.
func (s *Storage) RecentWrites(ctx context.Context, limit int) ([]SyncWrite, error) {
	const op = "storage.mariadb.RecentWrites"

	var writes []SyncWrite
	if err := s.DB.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&writes).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return writes, nil
}
