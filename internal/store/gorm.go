package store

import (
	"context"
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codeduels/duel-server/internal/apperr"
)

// GormStore backs the Store contract with postgres through gorm.
type GormStore struct {
	db *gorm.DB
}

func OpenGorm(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Duel{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Create(ctx context.Context, d *Duel) error {
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *GormStore) Get(ctx context.Context, id string) (*Duel, error) {
	var d Duel
	err := s.db.WithContext(ctx).First(&d, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("duel %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *GormStore) ListOngoing(ctx context.Context) ([]Duel, error) {
	var duels []Duel
	err := s.db.WithContext(ctx).
		Where("status <> ?", StatusCompleted).
		Order("created_at DESC").
		Find(&duels).Error
	return duels, err
}

func (s *GormStore) ListOngoingFor(ctx context.Context, identity string) ([]Duel, error) {
	var duels []Duel
	err := s.db.WithContext(ctx).
		Where("status <> ?", StatusCompleted).
		Where("challenger = ? OR opponent_email = ?", identity, identity).
		Order("created_at DESC").
		Find(&duels).Error
	return duels, err
}

func (s *GormStore) Activate(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Model(&Duel{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Update("status", StatusActive).Error
}

// Complete is the winner-race serialization point: a single UPDATE
// guarded by "status <> completed", so no matter how many instances
// race, exactly one row transition happens.
func (s *GormStore) Complete(ctx context.Context, id, winner string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&Duel{}).
		Where("id = ? AND status <> ?", id, StatusCompleted).
		Updates(map[string]any{"status": StatusCompleted, "winner": winner})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	// Zero rows: either already completed, or no such duel at all.
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&Duel{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
