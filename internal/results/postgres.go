package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type gameResultRow struct {
	ID         uint           `gorm:"primaryKey"`
	RoomCode   string         `gorm:"size:6;not null;index:idx_room_finished"`
	Rounds     int            `gorm:"not null"`
	Winners    []string       `gorm:"serializer:json;type:jsonb;not null"`
	TopScore   int            `gorm:"not null"`
	Scores     map[string]int `gorm:"serializer:json;type:jsonb;not null"`
	FinishedAt time.Time      `gorm:"not null;index:idx_room_finished"`
}

func (gameResultRow) TableName() string { return "game_results" }

func toRow(r GameResult) gameResultRow {
	return gameResultRow{
		RoomCode:   r.RoomCode,
		Rounds:     r.Rounds,
		Winners:    r.Winners,
		TopScore:   r.TopScore,
		Scores:     r.Scores,
		FinishedAt: r.FinishedAt,
	}
}

func (row gameResultRow) result() GameResult {
	return GameResult{
		RoomCode:   row.RoomCode,
		Rounds:     row.Rounds,
		Winners:    row.Winners,
		TopScore:   row.TopScore,
		Scores:     row.Scores,
		FinishedAt: row.FinishedAt,
	}
}

// PostgresStore persists results through gorm.
type PostgresStore struct {
	db *gorm.DB
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to dsn and migrates the results table.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewPostgresStore(ctx, db)
}

// NewPostgresStore wraps an already opened gorm handle.
func NewPostgresStore(ctx context.Context, db *gorm.DB) (*PostgresStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&gameResultRow{}); err != nil {
		return nil, fmt.Errorf("migrate game_results: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Save(ctx context.Context, r GameResult) error {
	row := toRow(r)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert result for %s: %w", r.RoomCode, err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, roomCode string) (GameResult, error) {
	var row gameResultRow
	err := s.db.WithContext(ctx).
		Where("room_code = ?", roomCode).
		Order("finished_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return GameResult{}, ErrNotFound
	}
	if err != nil {
		return GameResult{}, fmt.Errorf("select result for %s: %w", roomCode, err)
	}
	return row.result(), nil
}

func (s *PostgresStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
