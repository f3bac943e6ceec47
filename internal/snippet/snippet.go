// internal/snippet/snippet.go
//
// Snippet is the data leaf of a round: an immutable text sample with a
// ground-truth label telling whether a bot wrote it.

package snippet

import "strings"

// Snippet is one text sample shown to a player.
// IsBot is fixed when the snippet is created and never mutated.
type Snippet struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	IsBot  bool   `json:"is_bot"`
	Source string `json:"source,omitempty"`
}

// WordCount counts whitespace-separated words in the text.
func (s Snippet) WordCount() int {
	return len(strings.Fields(s.Text))
}

// Truth returns the display label of the ground truth ("BOT"/"HUMAN").
func (s Snippet) Truth() string {
	return Label(s.IsBot)
}

// Label maps a bot verdict to its display label.
func Label(isBot bool) string {
	if isBot {
		return "BOT"
	}
	return "HUMAN"
}
