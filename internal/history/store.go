// Package history persists finished game sessions.
package history

import (
	"context"
	"errors"

	"github.com/eygwak/voice-quiz/internal/game"
	"github.com/eygwak/voice-quiz/internal/shared"
	"gorm.io/gorm"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&GameSession{}, &WordResult{})
}

// Save implements the engine's recorder collaborator.
func (s *Store) Save(ctx context.Context, record *game.SessionRecord) error {
	return s.Create(ctx, fromRecord(record))
}

func (s *Store) Create(ctx context.Context, session *GameSession) error {
	if session.ID == "" {
		session.ID = shared.NewID("game_")
	}
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *Store) GetByID(ctx context.Context, id string) (*GameSession, error) {
	var session GameSession
	err := s.db.WithContext(ctx).Preload("Words").Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// List returns sessions newest first, optionally filtered by mode.
func (s *Store) List(ctx context.Context, mode shared.GameMode, limit int) ([]*GameSession, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Preload("Words").Order("ended_at DESC").Limit(limit)
	if mode != "" {
		q = q.Where("mode = ?", mode)
	}
	var sessions []*GameSession
	err := q.Find(&sessions).Error
	return sessions, err
}

// BestScore returns the highest score recorded for a mode, zero when no
// session exists.
func (s *Store) BestScore(ctx context.Context, mode shared.GameMode) (int, error) {
	var best *int
	err := s.db.WithContext(ctx).
		Model(&GameSession{}).
		Where("mode = ?", mode).
		Select("MAX(score)").
		Scan(&best).Error
	if err != nil {
		return 0, err
	}
	if best == nil {
		return 0, nil
	}
	return *best, nil
}
