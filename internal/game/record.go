package game

import (
	"time"

	"github.com/eygwak/voice-quiz/internal/shared"
)

// WordResult is the per-word outcome captured into a session record.
type WordResult struct {
	Word           string
	Attempts       int
	Passed         bool
	Correct        bool
	UserTranscript string
	AITranscript   string
	Hints          []string
	Judgment       Judgment
	Timestamp      time.Time
}

// SessionRecord aggregates one finished game session. Built exactly once
// at finish; the engine hands it to the persistence collaborator and
// keeps no reference afterwards.
type SessionRecord struct {
	ID           string
	Mode         shared.GameMode
	CategoryID   string
	CategoryName string
	Score        int
	MaxScore     int
	PassCount    int
	StartedAt    time.Time
	EndedAt      time.Time
	Words        []WordResult
}

func NewSessionRecord(state *SessionState, categoryName string, maxScore int, words []WordResult) *SessionRecord {
	return &SessionRecord{
		ID:           shared.NewID("game_"),
		Mode:         state.Mode(),
		CategoryID:   state.CategoryID(),
		CategoryName: categoryName,
		Score:        state.Score(),
		MaxScore:     maxScore,
		PassCount:    state.PassCount(),
		StartedAt:    state.StartedAt(),
		EndedAt:      state.EndedAt(),
		Words:        words,
	}
}

func (r *SessionRecord) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

func (r *SessionRecord) SuccessRate() float64 {
	if r.MaxScore <= 0 {
		return 0
	}
	return float64(r.Score) / float64(r.MaxScore)
}
