package relay

import (
	"strings"
	"testing"
)

func TestDescribePrompt(t *testing.T) {
	prompt := describePrompt("phone", []string{"call", "mobile"}, nil)

	if !strings.Contains(prompt, `"phone"`) {
		t.Error("prompt must name the target word")
	}
	if !strings.Contains(prompt, "call, mobile") {
		t.Error("prompt must list the taboo words")
	}
	if !strings.Contains(prompt, "NEVER say the target word") {
		t.Error("prompt must forbid revealing the word")
	}
	if strings.Contains(prompt, "Previous hints") {
		t.Error("no prior-hints section expected without hints")
	}
}

func TestDescribePromptWithPriorHints(t *testing.T) {
	prompt := describePrompt("phone", []string{"call"}, []string{"It rings.", "It fits in a pocket."})

	if !strings.Contains(prompt, "Previous hints you gave:") {
		t.Fatal("expected prior-hints section")
	}
	if !strings.Contains(prompt, "1. It rings.") || !strings.Contains(prompt, "2. It fits in a pocket.") {
		t.Errorf("expected numbered hints, got:\n%s", prompt)
	}
}

func TestGuessPrompt(t *testing.T) {
	prompt := guessPrompt("you hold it and it rings", "Objects", nil)

	if !strings.Contains(prompt, `"Objects"`) {
		t.Error("prompt must name the category")
	}
	if !strings.Contains(prompt, "you hold it and it rings") {
		t.Error("prompt must carry the transcript")
	}
	if !strings.Contains(prompt, "NEVER ask questions") {
		t.Error("prompt must forbid questions")
	}
	if strings.Contains(prompt, "Your previous guesses") {
		t.Error("no prior-guesses section expected without guesses")
	}
}

func TestGuessPromptWithPriorGuesses(t *testing.T) {
	prompt := guessPrompt("it rings", "Objects", []string{"doorbell", "alarm"})

	if !strings.Contains(prompt, "doorbell, alarm") {
		t.Errorf("expected prior guesses listed, got:\n%s", prompt)
	}
	if !strings.Contains(prompt, "previous guesses (all were incorrect or close)") {
		t.Error("expected prior-guesses context line")
	}
}
