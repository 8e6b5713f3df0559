package game

import (
	"errors"
	"math/rand"
)

var (
	ErrNoWords       = errors.New("category has no words")
	ErrDeckExhausted = errors.New("no words left in deck")
)

// Deck hands out the words of one category in random order without
// repeats.
type Deck struct {
	categoryID   string
	categoryName string
	words        []Word
	used         map[int]bool
	rnd          *rand.Rand
	current      *Word
}

func NewDeck(category Category, rnd *rand.Rand) (*Deck, error) {
	if len(category.Words) == 0 {
		return nil, ErrNoWords
	}
	return &Deck{
		categoryID:   category.ID,
		categoryName: category.Title,
		words:        category.Words,
		used:         make(map[int]bool, len(category.Words)),
		rnd:          rnd,
	}, nil
}

func (d *Deck) HasMore() bool {
	return len(d.used) < len(d.words)
}

func (d *Deck) Next() (Word, error) {
	if !d.HasMore() {
		return Word{}, ErrDeckExhausted
	}

	var idx int
	for {
		if d.rnd != nil {
			idx = d.rnd.Intn(len(d.words))
		} else {
			idx = rand.Intn(len(d.words))
		}
		if !d.used[idx] {
			break
		}
	}

	d.used[idx] = true
	word := d.words[idx]
	d.current = &word
	return word, nil
}

func (d *Deck) Current() (Word, bool) {
	if d.current == nil {
		return Word{}, false
	}
	return *d.current, true
}

func (d *Deck) Total() int {
	return len(d.words)
}

func (d *Deck) Completed() int {
	return len(d.used)
}

func (d *Deck) CategoryID() string {
	return d.categoryID
}

func (d *Deck) CategoryName() string {
	return d.categoryName
}
