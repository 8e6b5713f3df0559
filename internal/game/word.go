package game

import "time"

// Word is one quiz entry. Loaded from static content and never mutated.
type Word struct {
	Text       string   `json:"word"`
	Synonyms   []string `json:"synonyms"`
	Taboo      []string `json:"taboo"`
	Difficulty int      `json:"difficulty"`
}

// Category groups words under a selectable topic.
type Category struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Words []Word `json:"words"`
}

type AttemptSource string

const (
	SourceUser AttemptSource = "user"
	SourceAI   AttemptSource = "ai"
)

// GuessAttempt records one judged answer within a round. Append-only.
type GuessAttempt struct {
	Text     string
	Source   AttemptSource
	Judgment Judgment
}

// RoundState tracks the play of a single word. Owned exclusively by the
// engine that created it; at most one round is active at a time.
type RoundState struct {
	Word       Word
	Attempts   []GuessAttempt
	HintsGiven []string
	StartedAt  time.Time
}

func NewRound(word Word, startedAt time.Time) *RoundState {
	return &RoundState{
		Word:      word,
		StartedAt: startedAt,
	}
}

func (r *RoundState) AddAttempt(text string, source AttemptSource, judgment Judgment) {
	r.Attempts = append(r.Attempts, GuessAttempt{
		Text:     text,
		Source:   source,
		Judgment: judgment,
	})
}

func (r *RoundState) AddHint(hint string) {
	r.HintsGiven = append(r.HintsGiven, hint)
}

func (r *RoundState) AttemptCount() int {
	return len(r.Attempts)
}

func (r *RoundState) LastJudgment() (Judgment, bool) {
	if len(r.Attempts) == 0 {
		return "", false
	}
	return r.Attempts[len(r.Attempts)-1].Judgment, true
}
