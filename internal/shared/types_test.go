package shared

import (
	"strings"
	"testing"
)

func TestStringSlice_Value(t *testing.T) {
	tests := []struct {
		name     string
		slice    StringSlice
		expected string
	}{
		{
			name:     "empty slice",
			slice:    StringSlice{},
			expected: "[]",
		},
		{
			name:     "nil slice",
			slice:    nil,
			expected: "[]",
		},
		{
			name:     "single item",
			slice:    StringSlice{"fruit"},
			expected: `["fruit"]`,
		},
		{
			name:     "multiple items",
			slice:    StringSlice{"fruit", "red", "round"},
			expected: `["fruit","red","round"]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.slice.Value()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			str, ok := result.([]byte)
			if !ok {
				s, ok := result.(string)
				if !ok {
					t.Fatalf("expected string or []byte, got %T", result)
				}
				str = []byte(s)
			}
			if string(str) != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, string(str))
			}
		})
	}
}

func TestStringSlice_Scan(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected StringSlice
		wantErr  bool
	}{
		{
			name:     "nil value",
			input:    nil,
			expected: nil,
		},
		{
			name:     "bytes",
			input:    []byte(`["a","b"]`),
			expected: StringSlice{"a", "b"},
		},
		{
			name:     "string",
			input:    `["apple"]`,
			expected: StringSlice{"apple"},
		},
		{
			name:    "unsupported type",
			input:   42,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s StringSlice
			err := s.Scan(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(s) != len(tt.expected) {
				t.Fatalf("expected %d items, got %d", len(tt.expected), len(s))
			}
			for i := range s {
				if s[i] != tt.expected[i] {
					t.Errorf("item %d: expected %s, got %s", i, tt.expected[i], s[i])
				}
			}
		})
	}
}

func TestNewID(t *testing.T) {
	id := NewID("round_")
	if !strings.HasPrefix(id, "round_") {
		t.Errorf("expected prefix round_, got %s", id)
	}
	if len(id) != len("round_")+32 {
		t.Errorf("expected 32 hex chars after prefix, got %d", len(id)-len("round_"))
	}

	other := NewID("round_")
	if id == other {
		t.Error("two generated IDs should not collide")
	}
}

func TestGameMode_Valid(t *testing.T) {
	if !ModeDescribe.Valid() {
		t.Error("modeA should be valid")
	}
	if !ModeGuess.Valid() {
		t.Error("modeB should be valid")
	}
	if GameMode("modeC").Valid() {
		t.Error("modeC should not be valid")
	}
	if GameMode("").Valid() {
		t.Error("empty mode should not be valid")
	}
}

func TestGameMode_DisplayName(t *testing.T) {
	if ModeDescribe.DisplayName() != "AI Describes" {
		t.Errorf("unexpected display name: %s", ModeDescribe.DisplayName())
	}
	if ModeGuess.DisplayName() != "You Describe" {
		t.Errorf("unexpected display name: %s", ModeGuess.DisplayName())
	}
}
