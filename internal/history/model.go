package history

import (
	"time"

	"github.com/eygwak/voice-quiz/internal/game"
	"github.com/eygwak/voice-quiz/internal/shared"
)

// GameSession is the persisted form of one finished game.
type GameSession struct {
	ID           string          `gorm:"primaryKey" json:"id"`
	Mode         shared.GameMode `gorm:"not null;index" json:"mode"`
	CategoryID   string          `gorm:"not null;index" json:"category_id"`
	CategoryName string          `gorm:"not null" json:"category_name"`
	Score        int             `gorm:"not null" json:"score"`
	MaxScore     int             `gorm:"not null" json:"max_score"`
	PassCount    int             `gorm:"not null" json:"pass_count"`
	StartedAt    time.Time       `json:"started_at"`
	EndedAt      time.Time       `json:"ended_at"`
	Words        []WordResult    `gorm:"foreignKey:SessionID;constraint:OnDelete:CASCADE" json:"words"`
	CreatedAt    time.Time       `json:"created_at"`
}

// WordResult is one word's outcome within a session.
type WordResult struct {
	ID             uint               `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID      string             `gorm:"not null;index" json:"-"`
	Word           string             `gorm:"not null" json:"word"`
	Attempts       int                `json:"attempts"`
	Passed         bool               `json:"passed"`
	Correct        bool               `json:"correct"`
	UserTranscript string             `json:"user_transcript,omitempty"`
	AITranscript   string             `json:"ai_transcript,omitempty"`
	Judgment       game.Judgment      `gorm:"index" json:"judgment"`
	Hints          shared.StringSlice `gorm:"type:text" json:"hints,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// fromRecord maps the engine's finished record onto the storage rows.
func fromRecord(record *game.SessionRecord) *GameSession {
	session := &GameSession{
		ID:           record.ID,
		Mode:         record.Mode,
		CategoryID:   record.CategoryID,
		CategoryName: record.CategoryName,
		Score:        record.Score,
		MaxScore:     record.MaxScore,
		PassCount:    record.PassCount,
		StartedAt:    record.StartedAt,
		EndedAt:      record.EndedAt,
	}
	for _, w := range record.Words {
		session.Words = append(session.Words, WordResult{
			SessionID:      record.ID,
			Word:           w.Word,
			Attempts:       w.Attempts,
			Passed:         w.Passed,
			Correct:        w.Correct,
			UserTranscript: w.UserTranscript,
			AITranscript:   w.AITranscript,
			Judgment:       w.Judgment,
			Hints:          shared.StringSlice(w.Hints),
			Timestamp:      w.Timestamp,
		})
	}
	return session
}

func (s *GameSession) SuccessRate() float64 {
	if s.MaxScore <= 0 {
		return 0
	}
	return float64(s.Score) / float64(s.MaxScore)
}

func (s *GameSession) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}
