package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eygwak/voice-quiz/internal/game"
	"github.com/eygwak/voice-quiz/internal/shared"
)

const (
	guessErrorPlaceholder = "Error getting guess"

	// One guess per lull: the player has to stop talking this long
	// before the transcript is sent out.
	silenceBeforeGuess = 1 * time.Second
	// No guessing in the first moments of a round; early fragments are
	// too thin to be worth a request.
	guessWarmup = 3 * time.Second
	// Continuous-speech fallback: with no lull, guess anyway once this
	// many new words have accumulated.
	wordCountFallback = 7

	guessHistoryLimit   = 5
	penaltyAdvanceDelay = 1500 * time.Millisecond
	correctAdvanceDelay = 1500 * time.Millisecond
)

// GuessEngine runs the mode where the player describes the word and the
// AI guesses. The word is shown only to the player; the transcript is
// streamed out for guessing, and saying the word itself is a penalty.
type GuessEngine struct {
	*core

	guesser  Guesser
	speaker  Speaker
	listener Listener

	category string

	transcript     []string
	wordsAtTrigger int
	roundStart     time.Time
	inFlight       bool
	roundSettled   bool
	silenceTimer   *clock.Timer

	// most recent first, capped at guessHistoryLimit
	guessHistory []string

	// set when an advance delay elapses mid-pause; drained on Resume
	advanceHeld bool
	advanceGen  int
}

func NewGuessEngine(category game.Category, guesser Guesser, speaker Speaker, listener Listener, recorder Recorder, observer Observer, clk clock.Clock, log *slog.Logger) (*GuessEngine, error) {
	c, err := newCore(shared.ModeGuess, category, clk, recorder, observer, log)
	if err != nil {
		return nil, err
	}
	e := &GuessEngine{
		core:     c,
		guesser:  guesser,
		speaker:  speaker,
		listener: listener,
		category: category.Title,
	}
	e.timer = game.NewTimer(game.DefaultRoundTime, c.clk, e.onTimerExpired)
	return e, nil
}

func (e *GuessEngine) Start() bool {
	e.mu.Lock()
	if !e.state.Start(e.clk.Now()) {
		e.mu.Unlock()
		return false
	}
	word, ok := e.beginRound()
	if !ok {
		e.mu.Unlock()
		return false
	}
	completed, total := e.deck.Completed(), e.deck.Total()
	e.mu.Unlock()

	e.timer.Start()
	if err := e.listener.Start(); err != nil {
		e.log.Warn("failed to start transcription", "error", err)
	}
	e.observer.PhaseChanged(game.PhasePlaying)
	e.observer.RoundStarted(word, completed, total)
	return true
}

// beginRound resets the per-word accumulator state. Callers must hold
// e.mu.
func (e *GuessEngine) beginRound() (game.Word, bool) {
	word, ok := e.nextWord()
	if !ok {
		return game.Word{}, false
	}
	e.transcript = nil
	e.wordsAtTrigger = 0
	e.inFlight = false
	e.roundSettled = false
	e.guessHistory = nil
	e.roundStart = e.clk.Now()
	if e.silenceTimer != nil {
		e.silenceTimer.Stop()
		e.silenceTimer = nil
	}
	return word, true
}

// HandlePartialTranscript checks every partial for the hidden word.
// Saying it, or anything the judge scores as correct, forfeits the
// round.
func (e *GuessEngine) HandlePartialTranscript(text string) {
	if e.checkPenalty(text) {
		return
	}
	e.resetSilenceTimer()
}

// HandleFinalTranscript folds a completed utterance into the round
// transcript and re-evaluates the guess triggers.
func (e *GuessEngine) HandleFinalTranscript(text string) {
	if e.checkPenalty(text) {
		return
	}

	e.mu.Lock()
	if e.round == nil || e.roundSettled || !e.state.IsActive() {
		e.mu.Unlock()
		return
	}
	e.transcript = append(e.transcript, text)
	newWords := e.wordCount() - e.wordsAtTrigger
	fallback := newWords >= wordCountFallback && !e.inFlight
	e.mu.Unlock()

	if fallback {
		e.requestGuess()
		return
	}
	e.resetSilenceTimer()
}

func (e *GuessEngine) wordCount() int {
	n := 0
	for _, segment := range e.transcript {
		n += len(strings.Fields(segment))
	}
	return n
}

func (e *GuessEngine) pastWarmup() bool {
	return e.clk.Now().Sub(e.roundStart) >= guessWarmup
}

// checkPenalty reports true when the utterance forfeits the round.
func (e *GuessEngine) checkPenalty(text string) bool {
	e.mu.Lock()
	if e.round == nil || e.roundSettled || !e.state.IsActive() {
		e.mu.Unlock()
		return false
	}
	word := e.round.Word
	violated := game.ContainsWholeToken(text, word.Text) || game.Judge(text, word) == game.JudgmentCorrect
	if !violated {
		e.mu.Unlock()
		return false
	}

	e.roundSettled = true
	e.round.AddAttempt(text, game.SourceUser, game.JudgmentPenalty)
	e.transcript = append(e.transcript, text)
	e.recordResult(game.WordResult{
		Word:           word.Text,
		Attempts:       e.round.AttemptCount(),
		UserTranscript: strings.Join(e.transcript, " "),
		Judgment:       game.JudgmentPenalty,
	})
	e.transcript = nil
	e.stopSilenceTimer()
	e.after(penaltyAdvanceDelay, func(captured int) {
		e.advanceRound(captured)
	})
	e.mu.Unlock()

	e.observer.AttemptJudged(text, game.SourceUser, game.JudgmentPenalty)
	return true
}

// resetSilenceTimer re-arms the lull detector. Firing with unsent words
// past the warm-up triggers a guess.
func (e *GuessEngine) resetSilenceTimer() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.round == nil || e.roundSettled || !e.state.IsActive() {
		return
	}
	if e.silenceTimer != nil {
		e.silenceTimer.Stop()
	}
	captured := e.generation()
	e.silenceTimer = e.clk.AfterFunc(silenceBeforeGuess, func() {
		e.onSilence(captured)
	})
}

func (e *GuessEngine) stopSilenceTimer() {
	if e.silenceTimer != nil {
		e.silenceTimer.Stop()
		e.silenceTimer = nil
	}
}

func (e *GuessEngine) onSilence(captured int) {
	e.mu.Lock()
	if e.stale(captured) || e.roundSettled || e.inFlight || !e.state.IsActive() {
		e.mu.Unlock()
		return
	}
	// The warm-up only gates the round's first guess.
	newWords := e.wordCount() - e.wordsAtTrigger
	ready := newWords > 0 && (e.pastWarmup() || len(e.guessHistory) > 0)
	e.mu.Unlock()

	if ready {
		e.requestGuess()
	}
}

// requestGuess sends the accumulated transcript out for one guess. At
// most one request is in flight; late triggers are dropped.
func (e *GuessEngine) requestGuess() {
	e.mu.Lock()
	if e.inFlight || e.roundSettled || e.round == nil || !e.state.IsActive() {
		e.mu.Unlock()
		return
	}
	e.inFlight = true
	e.wordsAtTrigger = e.wordCount()
	captured := e.generation()
	transcript := strings.Join(e.transcript, " ")
	history := append([]string(nil), e.guessHistory...)
	e.mu.Unlock()

	go func() {
		guess, err := e.guesser.Guess(context.Background(), transcript, e.category, history)

		e.mu.Lock()
		if e.stale(captured) {
			e.mu.Unlock()
			return
		}
		e.inFlight = false

		if err != nil {
			e.mu.Unlock()
			e.log.Warn("guess request failed", "error", err)
			e.observer.GuessReady(guessErrorPlaceholder)
			return
		}
		if guess == "" {
			// Model declined; keep listening.
			e.mu.Unlock()
			return
		}

		e.guessHistory = append([]string{guess}, e.guessHistory...)
		if len(e.guessHistory) > guessHistoryLimit {
			e.guessHistory = e.guessHistory[:guessHistoryLimit]
		}
		word := e.round.Word
		correct := e.isCorrectGuess(guess, word)
		judgment := game.JudgmentIncorrect
		if correct {
			judgment = game.JudgmentCorrect
		}
		e.round.AddAttempt(guess, game.SourceAI, judgment)
		e.mu.Unlock()

		e.observer.GuessReady(guess)
		e.observer.AttemptJudged(guess, game.SourceAI, judgment)

		if correct {
			e.handleCorrectGuess(guess, word)
		}
	}()
}

// isCorrectGuess accepts a judge-correct guess, or one whose normalized
// form contains the normalized target outright. Guesses often arrive
// wrapped in a sentence ("Is it an elephant?").
func (e *GuessEngine) isCorrectGuess(guess string, word game.Word) bool {
	if game.Judge(guess, word) == game.JudgmentCorrect {
		return true
	}
	target := game.Normalize(word.Text)
	return target != "" && strings.Contains(game.Normalize(guess), target)
}

func (e *GuessEngine) handleCorrectGuess(guess string, word game.Word) {
	e.mu.Lock()
	if e.roundSettled {
		e.mu.Unlock()
		return
	}
	e.roundSettled = true
	e.stopSilenceTimer()
	e.state.IncrementScore()
	score := e.state.Score()
	e.recordResult(game.WordResult{
		Word:           word.Text,
		Attempts:       e.round.AttemptCount(),
		Correct:        true,
		UserTranscript: strings.Join(e.transcript, " "),
		AITranscript:   guess,
		Judgment:       game.JudgmentCorrect,
	})
	e.transcript = nil
	e.mu.Unlock()

	e.observer.ScoreChanged(score)
	if err := e.speaker.Speak("Got it!"); err != nil {
		e.log.Warn("failed to speak acknowledgment", "error", err)
	}

	e.mu.Lock()
	e.after(correctAdvanceDelay, func(captured int) {
		e.advanceRound(captured)
	})
	e.mu.Unlock()
}

// UsePass skips the word, keeping whatever was said so far in the
// record. No-op once the pass budget is spent.
func (e *GuessEngine) UsePass() bool {
	e.mu.Lock()
	if e.round == nil || e.roundSettled || !e.state.UsePass() {
		e.mu.Unlock()
		return false
	}
	word := e.round.Word
	e.recordResult(game.WordResult{
		Word:           word.Text,
		Attempts:       e.round.AttemptCount(),
		Passed:         true,
		UserTranscript: strings.Join(e.transcript, " "),
		Judgment:       game.JudgmentPassed,
	})
	e.transcript = nil
	e.stopSilenceTimer()
	captured := e.generation()
	e.mu.Unlock()

	e.advanceRound(captured)
	return true
}

func (e *GuessEngine) advanceRound(captured int) {
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

	word, ok := e.beginRound()
	if !ok {
		record := e.finishLocked()
		e.mu.Unlock()
		if record != nil {
			e.listener.Stop()
			e.persist(record)
		}
		return
	}
	completed, total := e.deck.Completed(), e.deck.Total()
	e.mu.Unlock()

	e.observer.RoundStarted(word, completed, total)
}

func (e *GuessEngine) Pause() bool {
	e.mu.Lock()
	ok := e.state.Pause()
	if ok {
		e.stopSilenceTimer()
	}
	e.mu.Unlock()
	if !ok {
		return false
	}
	e.timer.Pause()
	e.listener.Stop()
	e.observer.PhaseChanged(game.PhasePaused)
	return true
}

func (e *GuessEngine) Resume() bool {
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
	if err := e.listener.Start(); err != nil {
		e.log.Warn("failed to restart transcription", "error", err)
	}
	e.observer.PhaseChanged(game.PhasePlaying)
	if held {
		e.advanceRound(captured)
	}
	return true
}

// Finish ends the session, flushing any unrecorded transcript for the
// word in play.
func (e *GuessEngine) Finish() bool {
	e.mu.Lock()
	if e.round != nil && !e.roundSettled && len(e.transcript) > 0 {
		e.recordResult(game.WordResult{
			Word:           e.round.Word.Text,
			Attempts:       e.round.AttemptCount(),
			UserTranscript: strings.Join(e.transcript, " "),
			Judgment:       game.JudgmentIncorrect,
		})
		e.transcript = nil
	}
	e.stopSilenceTimer()
	record := e.finishLocked()
	e.mu.Unlock()
	if record == nil {
		return false
	}
	e.listener.Stop()
	e.speaker.Stop()
	e.persist(record)
	return true
}

func (e *GuessEngine) onTimerExpired() {
	e.Finish()
}

func (e *GuessEngine) Snapshot() Snapshot {
	return e.snapshot()
}
