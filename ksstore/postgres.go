package ksstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// keyRecordModel is the gorm model backing the postgres key store.
// key_id is an autoincrement serial so concurrent KS replicas sharing one
// database still get monotonic, globally-unique ids.
type keyRecordModel struct {
	KeyID           uint32 `gorm:"primaryKey;autoIncrement"`
	PublicKey       []byte `gorm:"not null"`
	SealedSecretKey []byte `gorm:"not null"`
	CreatedAt       time.Time
	ExpiresAt       time.Time `gorm:"index"`
}

func (keyRecordModel) TableName() string { return "ks_key_records" }

// PostgresStore is the remote relational-database backend.
type PostgresStore struct {
	db *gorm.DB
}

// OpenPostgresStore connects to dsn and migrates the ks_key_records table.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("ksstore: open postgres: %w", err)
	}
	if err := db.AutoMigrate(&keyRecordModel{}); err != nil {
		return nil, fmt.Errorf("ksstore: auto migrate: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) (uint32, error) {
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	row := keyRecordModel{
		PublicKey:       rec.PublicKey,
		SealedSecretKey: rec.SealedSecretKey,
		CreatedAt:       created,
		ExpiresAt:       rec.ExpiresAt,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("ksstore: insert: %w", err)
	}
	return row.KeyID, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, keyID uint32) (Record, error) {
	var row keyRecordModel
	err := s.db.WithContext(ctx).First(&row, "key_id = ?", keyID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("ksstore: get: %w", err)
	}
	return Record{
		KeyID:           row.KeyID,
		PublicKey:       row.PublicKey,
		SealedSecretKey: row.SealedSecretKey,
		CreatedAt:       row.CreatedAt,
		ExpiresAt:       row.ExpiresAt,
	}, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&keyRecordModel{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("ksstore: count: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at != ? AND expires_at < ?", time.Time{}, cutoff).
		Delete(&keyRecordModel{})
	if res.Error != nil {
		return 0, fmt.Errorf("ksstore: prune: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *PostgresStore) HealthCheck(ctx context.Context) (Health, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return Health{}, fmt.Errorf("ksstore: underlying db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return Health{}, fmt.Errorf("ksstore: ping: %w", err)
	}
	count, err := s.Count(ctx)
	if err != nil {
		return Health{}, err
	}
	return Health{Backend: "postgres", KeyCount: count}, nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
