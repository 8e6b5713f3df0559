package game

import (
	"time"

	"github.com/eygwak/voice-quiz/internal/shared"
)

type Phase string

const (
	PhaseReady    Phase = "ready"
	PhasePlaying  Phase = "playing"
	PhasePaused   Phase = "paused"
	PhaseFinished Phase = "finished"
)

const DefaultMaxPasses = 2

// SessionState tracks the lifecycle of one timed game session:
// ready -> playing <-> paused -> finished. Finished is terminal.
// Score only ever increases, and passes are capped.
type SessionState struct {
	phase      Phase
	mode       shared.GameMode
	categoryID string

	passCount int
	maxPasses int
	score     int

	startedAt time.Time
	endedAt   time.Time
	elapsed   time.Duration
}

func NewSessionState(mode shared.GameMode, categoryID string) *SessionState {
	return &SessionState{
		phase:      PhaseReady,
		mode:       mode,
		categoryID: categoryID,
		maxPasses:  DefaultMaxPasses,
	}
}

func (s *SessionState) Phase() Phase              { return s.phase }
func (s *SessionState) Mode() shared.GameMode     { return s.mode }
func (s *SessionState) CategoryID() string        { return s.categoryID }
func (s *SessionState) Score() int                { return s.score }
func (s *SessionState) PassCount() int            { return s.passCount }
func (s *SessionState) StartedAt() time.Time      { return s.startedAt }
func (s *SessionState) EndedAt() time.Time        { return s.endedAt }

func (s *SessionState) Start(now time.Time) bool {
	if s.phase != PhaseReady {
		return false
	}
	s.phase = PhasePlaying
	s.startedAt = now
	s.passCount = 0
	s.score = 0
	s.elapsed = 0
	return true
}

func (s *SessionState) Pause() bool {
	if s.phase != PhasePlaying {
		return false
	}
	s.phase = PhasePaused
	return true
}

func (s *SessionState) Resume() bool {
	if s.phase != PhasePaused {
		return false
	}
	s.phase = PhasePlaying
	return true
}

func (s *SessionState) Finish(now time.Time) bool {
	if s.phase != PhasePlaying && s.phase != PhasePaused {
		return false
	}
	s.phase = PhaseFinished
	s.endedAt = now
	return true
}

func (s *SessionState) CanPass() bool {
	return s.passCount < s.maxPasses
}

func (s *SessionState) UsePass() bool {
	if !s.CanPass() {
		return false
	}
	s.passCount++
	return true
}

func (s *SessionState) RemainingPasses() int {
	if s.passCount >= s.maxPasses {
		return 0
	}
	return s.maxPasses - s.passCount
}

func (s *SessionState) IncrementScore() {
	s.score++
}

func (s *SessionState) UpdateElapsed(d time.Duration) {
	s.elapsed = d
}

func (s *SessionState) Duration() time.Duration {
	if !s.startedAt.IsZero() && !s.endedAt.IsZero() {
		return s.endedAt.Sub(s.startedAt)
	}
	return s.elapsed
}

func (s *SessionState) IsActive() bool {
	return s.phase == PhasePlaying || s.phase == PhasePaused
}
