package engine

import (
	"context"
	"sync"
	"time"

	"github.com/eygwak/voice-quiz/internal/game"
)

// Test doubles shared by both engine suites.

type fakeHinter struct {
	mu    sync.Mutex
	calls int
	fn    func(word string, taboo, prior []string) (string, error)
}

func (f *fakeHinter) Describe(_ context.Context, word string, taboo, prior []string) (string, error) {
	f.mu.Lock()
	f.calls++
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(word, taboo, prior)
	}
	return "a clue about " + word, nil
}

func (f *fakeHinter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeGuesser struct {
	mu        sync.Mutex
	calls     int
	histories [][]string
	fn        func(transcript, category string, prior []string) (string, error)
}

func (f *fakeGuesser) Guess(_ context.Context, transcript, category string, prior []string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.histories = append(f.histories, append([]string(nil), prior...))
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(transcript, category, prior)
	}
	return "", nil
}

func (f *fakeGuesser) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGuesser) lastHistory() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.histories) == 0 {
		return nil
	}
	return f.histories[len(f.histories)-1]
}

type fakeSpeaker struct {
	mu     sync.Mutex
	spoken []string
	ch     chan string
}

func newFakeSpeaker() *fakeSpeaker {
	return &fakeSpeaker{ch: make(chan string, 16)}
}

func (f *fakeSpeaker) Speak(text string) error {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
	select {
	case f.ch <- text:
	default:
	}
	return nil
}

func (f *fakeSpeaker) Stop()   {}
func (f *fakeSpeaker) Pause()  {}
func (f *fakeSpeaker) Resume() {}

func (f *fakeSpeaker) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

// waitFor blocks until the speaker emits something or the deadline
// passes, returning what it heard and whether anything arrived.
func (f *fakeSpeaker) waitFor(d time.Duration) (string, bool) {
	select {
	case text := <-f.ch:
		return text, true
	case <-time.After(d):
		return "", false
	}
}

type fakeListener struct {
	mu      sync.Mutex
	started int
	stopped int
}

func (f *fakeListener) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return nil
}

func (f *fakeListener) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []*game.SessionRecord
}

func (f *fakeRecorder) Save(_ context.Context, record *game.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return nil
}

func (f *fakeRecorder) last() *game.SessionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		return nil
	}
	return f.records[len(f.records)-1]
}

type observedRound struct {
	word      game.Word
	completed int
	total     int
}

type recordingObserver struct {
	NopObserver
	mu        sync.Mutex
	rounds    []observedRound
	judgments []game.Judgment
	scores    []int
	guesses   []string
}

func (o *recordingObserver) RoundStarted(word game.Word, completed, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rounds = append(o.rounds, observedRound{word, completed, total})
}

func (o *recordingObserver) ScoreChanged(score int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scores = append(o.scores, score)
}

func (o *recordingObserver) AttemptJudged(_ string, _ game.AttemptSource, judgment game.Judgment) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.judgments = append(o.judgments, judgment)
}

func (o *recordingObserver) GuessReady(guess string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.guesses = append(o.guesses, guess)
}

// waitGuesses polls until n guesses have been fully processed or the
// deadline passes.
func (o *recordingObserver) waitGuesses(n int, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		o.mu.Lock()
		got := len(o.guesses)
		o.mu.Unlock()
		if got >= n {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func (o *recordingObserver) roundCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.rounds)
}

func (o *recordingObserver) lastJudgment() (game.Judgment, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.judgments) == 0 {
		return "", false
	}
	return o.judgments[len(o.judgments)-1], true
}

func (o *recordingObserver) currentWord() (game.Word, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.rounds) == 0 {
		return game.Word{}, false
	}
	return o.rounds[len(o.rounds)-1].word, true
}

func singleWordCategory(word string, taboo ...string) game.Category {
	return game.Category{
		ID:    "cat_test",
		Title: "Test Words",
		Words: []game.Word{{Text: word, Taboo: taboo}},
	}
}

func multiWordCategory(words ...string) game.Category {
	c := game.Category{ID: "cat_test", Title: "Test Words"}
	for _, w := range words {
		c.Words = append(c.Words, game.Word{Text: w})
	}
	return c
}
