// Package engine drives the per-session game loop for both play modes.
// All state is mutated under a single mutex; asynchronous work (hint and
// guess completions, scheduled advances) re-enters through callbacks
// that carry the generation token they were started with and silently
// discard themselves when the round has moved on.
package engine

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/eygwak/voice-quiz/internal/game"
	"github.com/eygwak/voice-quiz/internal/shared"
)

// Hinter produces a clue for the current word without revealing it.
type Hinter interface {
	Describe(ctx context.Context, word string, taboo, previousHints []string) (string, error)
}

// Guesser produces one direct guess from the transcript so far. An
// empty guess with a nil error means the model declined to commit.
type Guesser interface {
	Guess(ctx context.Context, transcriptSoFar, category string, previousGuesses []string) (string, error)
}

// Speaker plays synthesized speech to the player. Pause keeps the
// position so Resume can continue an interrupted utterance.
type Speaker interface {
	Speak(text string) error
	Stop()
	Pause()
	Resume()
}

// Listener controls microphone transcription. Start always supersedes
// any prior capture.
type Listener interface {
	Start() error
	Stop()
}

// Recorder persists the finished session.
type Recorder interface {
	Save(ctx context.Context, record *game.SessionRecord) error
}

// Observer receives game progress for the presentation layer. All
// methods are invoked while the engine lock is NOT held; callbacks may
// re-enter the engine.
type Observer interface {
	RoundStarted(word game.Word, completed, total int)
	ScoreChanged(score int)
	PhaseChanged(phase game.Phase)
	AttemptJudged(text string, source game.AttemptSource, judgment game.Judgment)
	HintReady(hint string)
	GuessReady(guess string)
	SessionFinished(record *game.SessionRecord)
}

// NopObserver satisfies Observer and ignores everything.
type NopObserver struct{}

func (NopObserver) RoundStarted(game.Word, int, int)                        {}
func (NopObserver) ScoreChanged(int)                                        {}
func (NopObserver) PhaseChanged(game.Phase)                                 {}
func (NopObserver) AttemptJudged(string, game.AttemptSource, game.Judgment) {}
func (NopObserver) HintReady(string)                                        {}
func (NopObserver) GuessReady(string)                                       {}
func (NopObserver) SessionFinished(*game.SessionRecord)                     {}

// core holds the state machinery both mode engines share: session
// phase, word deck, countdown, per-word results, and the generation
// token that fences off stale asynchronous completions.
type core struct {
	mu       sync.Mutex
	clk      clock.Clock
	log      *slog.Logger
	observer Observer
	recorder Recorder

	state   *game.SessionState
	deck    *game.Deck
	timer   *game.Timer
	round   *game.RoundState
	results []game.WordResult

	// gen invalidates in-flight effects. Incremented on every round
	// advance, pass, and finish; async callbacks compare their captured
	// value before touching state.
	gen int
}

func newCore(mode shared.GameMode, category game.Category, clk clock.Clock, recorder Recorder, observer Observer, log *slog.Logger) (*core, error) {
	if clk == nil {
		clk = clock.New()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	if log == nil {
		log = slog.Default()
	}

	deck, err := game.NewDeck(category, rand.New(rand.NewSource(clk.Now().UnixNano())))
	if err != nil {
		return nil, err
	}

	return &core{
		clk:      clk,
		log:      log,
		observer: observer,
		recorder: recorder,
		state:    game.NewSessionState(mode, category.ID),
		deck:     deck,
	}, nil
}

// generation returns the current token. Callers must hold c.mu.
func (c *core) generation() int { return c.gen }

// stale reports whether a captured token has been invalidated. Callers
// must hold c.mu.
func (c *core) stale(captured int) bool { return c.gen != captured }

// invalidate bumps the token, cancelling everything in flight. Callers
// must hold c.mu.
func (c *core) invalidate() { c.gen++ }

// after schedules fn on the engine clock, fenced by the current
// generation. fn runs without the lock; it must re-lock and re-check
// whatever it needs.
func (c *core) after(d time.Duration, fn func(captured int)) {
	captured := c.gen
	c.clk.AfterFunc(d, func() {
		fn(captured)
	})
}

// nextWord advances the deck and opens a new round. Callers must hold
// c.mu. Returns false when the deck is exhausted.
func (c *core) nextWord() (game.Word, bool) {
	word, err := c.deck.Next()
	if err != nil {
		return game.Word{}, false
	}
	c.round = game.NewRound(word, c.clk.Now())
	return word, true
}

// recordResult folds the finished round into the session results.
// Callers must hold c.mu.
func (c *core) recordResult(result game.WordResult) {
	result.Timestamp = c.clk.Now()
	c.results = append(c.results, result)
}

// finishLocked closes the session, stops the countdown, and builds the
// record. Returns nil when the session was not in a finishable phase.
// Callers must hold c.mu.
func (c *core) finishLocked() *game.SessionRecord {
	if !c.state.Finish(c.clk.Now()) {
		return nil
	}
	c.invalidate()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.state.UpdateElapsed(c.state.EndedAt().Sub(c.state.StartedAt()))
	return game.NewSessionRecord(c.state, c.deck.CategoryName(), c.deck.Total(), c.results)
}

// persist hands the record off outside the lock. Recorder errors are
// logged, not surfaced; the game is already over.
func (c *core) persist(record *game.SessionRecord) {
	if c.recorder != nil {
		if err := c.recorder.Save(context.Background(), record); err != nil {
			c.log.Error("failed to persist session record", "id", record.ID, "error", err)
		}
	}
	c.observer.PhaseChanged(game.PhaseFinished)
	c.observer.SessionFinished(record)
}

// Snapshot is a point-in-time view of the session for callers outside
// the engine goroutine.
type Snapshot struct {
	Phase           game.Phase
	Score           int
	PassesRemaining int
	WordsCompleted  int
	WordsTotal      int
	Remaining       time.Duration
}

func (c *core) snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		Phase:           c.state.Phase(),
		Score:           c.state.Score(),
		PassesRemaining: c.state.RemainingPasses(),
		WordsCompleted:  c.deck.Completed(),
		WordsTotal:      c.deck.Total(),
	}
	if c.timer != nil {
		snap.Remaining = c.timer.Remaining()
	}
	return snap
}
