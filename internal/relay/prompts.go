package relay

import (
	"fmt"
	"strings"
)

// describePrompt instructs the model to hint at the word without giving
// it away.
func describePrompt(word string, taboo, previousHints []string) string {
	tabooList := strings.Join(taboo, ", ")

	hintsContext := ""
	if len(previousHints) > 0 {
		var b strings.Builder
		for i, h := range previousHints {
			fmt.Fprintf(&b, "%d. %s\n", i+1, h)
		}
		hintsContext = "\n\nPrevious hints you gave:\n" + strings.TrimRight(b.String(), "\n")
	}

	return fmt.Sprintf(`You are the host of a speed quiz game. Describe the word %q so the user can guess it.

Rules:
- NEVER say the target word, its spelling, or direct synonyms
- NEVER use these taboo words: %s
- Use indirect, natural descriptions like "You use this when..." or "You usually see this in..."
- Keep descriptions SHORT (1-2 sentences)
- Give helpful hints based on what you said before%s

Provide ONE additional hint in English.`, word, tabooList, hintsContext)
}

// guessPrompt instructs the model to commit to a single direct guess.
func guessPrompt(transcript, category string, previousGuesses []string) string {
	guessesContext := ""
	if len(previousGuesses) > 0 {
		guessesContext = "\n\nYour previous guesses (all were incorrect or close):\n" + strings.Join(previousGuesses, ", ")
	}

	return fmt.Sprintf(`You are a player in a speed quiz game. The user is describing a word from the %q category.

User's description so far:
%q%s

Rules:
- NEVER ask questions like "Is it...?" or "Does it...?"
- ONLY make ONE direct guess in the format: "I think it is [WORD]" or simply "[WORD]"
- Make educated guesses based on the clues
- Try a different word if your previous guesses were wrong

Make your guess now in English (one word or short phrase only).`, category, transcript, guessesContext)
}
