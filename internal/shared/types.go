package shared

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value any) error {
	if value == nil {
		*s = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StringSlice", value)
	}

	return json.Unmarshal(bytes, s)
}

func NewID(prefix string) string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return prefix + hex.EncodeToString(b)
}

// GameMode selects which side of the quiz the AI plays.
type GameMode string

const (
	// ModeDescribe: the AI describes the word, the user guesses.
	ModeDescribe GameMode = "modeA"
	// ModeGuess: the user describes the word, the AI guesses.
	ModeGuess GameMode = "modeB"
)

func (m GameMode) String() string {
	return string(m)
}

func (m GameMode) Valid() bool {
	return m == ModeDescribe || m == ModeGuess
}

func (m GameMode) DisplayName() string {
	switch m {
	case ModeDescribe:
		return "AI Describes"
	case ModeGuess:
		return "You Describe"
	default:
		return string(m)
	}
}
