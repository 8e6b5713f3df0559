package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eygwak/voice-quiz/internal/game"
	"github.com/eygwak/voice-quiz/internal/shared"
)

const (
	hintErrorPlaceholder = "Error getting hint"

	successAdvanceDelay = 1 * time.Second
	retryResumeDelay    = 1500 * time.Millisecond
	releaseGraceWindow  = 500 * time.Millisecond
)

// DescribeEngine runs the mode where the AI describes the hidden word
// and the player guesses by voice. Answers arrive as transcripts,
// either free-running finals or push-to-talk captures.
type DescribeEngine struct {
	*core

	hinter   Hinter
	speaker  Speaker
	listener Listener

	hints        []string
	lastPartial  string
	holding      bool
	graceArmed   bool
	hintPaused   bool
	roundSettled bool

	// set when an advance delay elapses mid-pause; drained on Resume
	advanceHeld bool
	advanceGen  int
}

func NewDescribeEngine(category game.Category, hinter Hinter, speaker Speaker, listener Listener, recorder Recorder, observer Observer, clk clock.Clock, log *slog.Logger) (*DescribeEngine, error) {
	c, err := newCore(shared.ModeDescribe, category, clk, recorder, observer, log)
	if err != nil {
		return nil, err
	}
	e := &DescribeEngine{
		core:     c,
		hinter:   hinter,
		speaker:  speaker,
		listener: listener,
	}
	e.timer = game.NewTimer(game.DefaultRoundTime, c.clk, e.onTimerExpired)
	return e, nil
}

// Start begins play. Only valid from the ready phase.
func (e *DescribeEngine) Start() bool {
	e.mu.Lock()
	if !e.state.Start(e.clk.Now()) {
		e.mu.Unlock()
		return false
	}
	word, ok := e.nextWord()
	if !ok {
		e.mu.Unlock()
		return false
	}
	completed, total := e.deck.Completed(), e.deck.Total()
	e.mu.Unlock()

	e.timer.Start()
	e.observer.PhaseChanged(game.PhasePlaying)
	e.observer.RoundStarted(word, completed, total)
	e.requestHint()
	return true
}

// requestHint asks for the next clue asynchronously. A fetch error
// degrades to a spoken placeholder so the round keeps moving.
func (e *DescribeEngine) requestHint() {
	e.mu.Lock()
	if e.round == nil {
		e.mu.Unlock()
		return
	}
	captured := e.generation()
	word := e.round.Word
	prior := append([]string(nil), e.hints...)
	e.mu.Unlock()

	go func() {
		hint, err := e.hinter.Describe(context.Background(), word.Text, word.Taboo, prior)
		if err != nil {
			e.log.Warn("hint request failed", "word", word.Text, "error", err)
			hint = hintErrorPlaceholder
		}

		e.mu.Lock()
		if e.stale(captured) {
			e.mu.Unlock()
			return
		}
		e.hints = append(e.hints, hint)
		e.round.AddHint(hint)
		e.hintPaused = false
		e.mu.Unlock()

		e.observer.HintReady(hint)
		if err := e.speaker.Speak(hint); err != nil {
			e.log.Warn("failed to speak hint", "error", err)
		}
	}()
}

// HandlePartialTranscript keeps the freshest partial so a push-to-talk
// release can fall back to it.
func (e *DescribeEngine) HandlePartialTranscript(text string) {
	e.mu.Lock()
	e.lastPartial = text
	e.mu.Unlock()
}

// HandleFinalTranscript judges a completed utterance. During an armed
// grace window it counts as the push-to-talk capture.
func (e *DescribeEngine) HandleFinalTranscript(text string) {
	e.mu.Lock()
	if e.graceArmed {
		e.graceArmed = false
	}
	e.mu.Unlock()
	e.judgeAnswer(text)
}

// HoldToTalk opens the microphone for an explicit answer.
func (e *DescribeEngine) HoldToTalk() {
	e.mu.Lock()
	if !e.state.IsActive() || e.holding {
		e.mu.Unlock()
		return
	}
	e.holding = true
	e.lastPartial = ""
	e.mu.Unlock()

	if err := e.listener.Start(); err != nil {
		e.log.Warn("failed to start capture", "error", err)
	}
}

// ReleaseTalk closes the capture and waits a short grace window for the
// trailing final transcript; if none lands, the last partial is judged
// instead.
func (e *DescribeEngine) ReleaseTalk() {
	e.mu.Lock()
	if !e.holding {
		e.mu.Unlock()
		return
	}
	e.holding = false
	e.graceArmed = true
	e.mu.Unlock()

	e.listener.Stop()

	e.mu.Lock()
	e.after(releaseGraceWindow, func(captured int) {
		e.mu.Lock()
		if e.stale(captured) || !e.graceArmed {
			e.mu.Unlock()
			return
		}
		e.graceArmed = false
		fallback := e.lastPartial
		e.mu.Unlock()

		if fallback != "" {
			e.judgeAnswer(fallback)
		}
	})
	e.mu.Unlock()
}

func (e *DescribeEngine) judgeAnswer(text string) {
	e.mu.Lock()
	if e.round == nil || e.roundSettled || !e.state.IsActive() {
		e.mu.Unlock()
		return
	}
	word := e.round.Word
	judgment := game.Judge(text, word)
	e.round.AddAttempt(text, game.SourceUser, judgment)
	e.mu.Unlock()

	e.observer.AttemptJudged(text, game.SourceUser, judgment)

	switch judgment {
	case game.JudgmentCorrect:
		e.handleCorrect(text, word)
	default:
		e.handleMiss()
	}
}

func (e *DescribeEngine) handleCorrect(text string, word game.Word) {
	e.mu.Lock()
	if e.roundSettled {
		e.mu.Unlock()
		return
	}
	e.roundSettled = true
	e.state.IncrementScore()
	score := e.state.Score()
	e.recordResult(game.WordResult{
		Word:           word.Text,
		Attempts:       e.round.AttemptCount(),
		Correct:        true,
		UserTranscript: text,
		Hints:          append([]string(nil), e.round.HintsGiven...),
		Judgment:       game.JudgmentCorrect,
	})
	e.mu.Unlock()

	e.speaker.Stop()
	e.observer.ScoreChanged(score)

	e.mu.Lock()
	e.after(successAdvanceDelay, func(captured int) {
		e.advanceRound(captured)
	})
	e.mu.Unlock()
}

// handleMiss waits briefly, then either resumes the interrupted hint or
// asks for a fresh one.
func (e *DescribeEngine) handleMiss() {
	e.mu.Lock()
	e.after(retryResumeDelay, func(captured int) {
		e.mu.Lock()
		if e.stale(captured) || !e.state.IsActive() {
			e.mu.Unlock()
			return
		}
		paused := e.hintPaused
		e.hintPaused = false
		e.mu.Unlock()

		if paused {
			e.speaker.Resume()
		} else {
			e.requestHint()
		}
	})
	e.mu.Unlock()
}

// InterruptHint pauses hint playback while the player answers.
func (e *DescribeEngine) InterruptHint() {
	e.mu.Lock()
	e.hintPaused = true
	e.mu.Unlock()
	e.speaker.Pause()
}

// UsePass skips the current word without judgment. No-op once the pass
// budget is spent.
func (e *DescribeEngine) UsePass() bool {
	e.mu.Lock()
	if e.round == nil || e.roundSettled || !e.state.UsePass() {
		e.mu.Unlock()
		return false
	}
	word := e.round.Word
	e.recordResult(game.WordResult{
		Word:     word.Text,
		Attempts: e.round.AttemptCount(),
		Passed:   true,
		Hints:    append([]string(nil), e.round.HintsGiven...),
		Judgment: game.JudgmentPassed,
	})
	captured := e.generation()
	e.mu.Unlock()

	e.speaker.Stop()
	e.advanceRound(captured)
	return true
}

// advanceRound moves to the next word, or finishes when the deck is
// done. Fenced by the generation captured when the advance was decided.
func (e *DescribeEngine) advanceRound(captured int) {
	e.mu.Lock()
	if e.stale(captured) || !e.state.IsActive() {
		e.mu.Unlock()
		return
	}
	// A paused game holds its position; the advance lands on Resume.
	if e.state.Phase() == game.PhasePaused {
		e.advanceHeld = true
		e.advanceGen = captured
		e.mu.Unlock()
		return
	}
	e.advanceHeld = false
	e.invalidate()
	e.roundSettled = false
	e.hints = nil
	e.lastPartial = ""
	e.hintPaused = false

	word, ok := e.nextWord()
	if !ok {
		record := e.finishLocked()
		e.mu.Unlock()
		if record != nil {
			e.persist(record)
		}
		return
	}
	completed, total := e.deck.Completed(), e.deck.Total()
	e.mu.Unlock()

	e.observer.RoundStarted(word, completed, total)
	e.requestHint()
}

func (e *DescribeEngine) Pause() bool {
	e.mu.Lock()
	ok := e.state.Pause()
	e.mu.Unlock()
	if !ok {
		return false
	}
	e.timer.Pause()
	e.speaker.Pause()
	e.observer.PhaseChanged(game.PhasePaused)
	return true
}

func (e *DescribeEngine) Resume() bool {
	e.mu.Lock()
	ok := e.state.Resume()
	held := false
	var captured int
	if ok && e.advanceHeld {
		held = true
		captured = e.advanceGen
		e.advanceHeld = false
	}
	e.mu.Unlock()
	if !ok {
		return false
	}
	e.timer.Resume()
	e.speaker.Resume()
	e.observer.PhaseChanged(game.PhasePlaying)
	if held {
		e.advanceRound(captured)
	}
	return true
}

// Finish ends the session from playing or paused.
func (e *DescribeEngine) Finish() bool {
	e.mu.Lock()
	record := e.finishLocked()
	e.mu.Unlock()
	if record == nil {
		return false
	}
	e.speaker.Stop()
	e.listener.Stop()
	e.persist(record)
	return true
}

func (e *DescribeEngine) onTimerExpired() {
	e.Finish()
}

func (e *DescribeEngine) Snapshot() Snapshot {
	return e.snapshot()
}
