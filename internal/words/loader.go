// Package words loads the static category/word content the game draws
// from.
package words

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/eygwak/voice-quiz/internal/game"
)

var ErrCategoryNotFound = errors.New("category not found")

type Data struct {
	Version     int             `json:"version"`
	GeneratedAt string          `json:"generated_at"`
	Categories  []game.Category `json:"categories"`
}

func Load(r io.Reader) (*Data, error) {
	var data Data
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode words content: %w", err)
	}
	return &data, nil
}

func LoadFile(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open words content: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func (d *Data) Category(id string) (game.Category, error) {
	for _, c := range d.Categories {
		if c.ID == id {
			return c, nil
		}
	}
	return game.Category{}, fmt.Errorf("%w: %s", ErrCategoryNotFound, id)
}

func (d *Data) CategoryIDs() []string {
	ids := make([]string, len(d.Categories))
	for i, c := range d.Categories {
		ids[i] = c.ID
	}
	return ids
}
