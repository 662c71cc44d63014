package backend

import "strings"

// terminalPunctuation are the characters a complete spoken sentence ends in.
var terminalPunctuation = []string{".", "!", "?"}

// NormalizeTranscript trims a transcript and, if it does not already end in
// terminal punctuation, truncates it back to the rightmost sentence boundary.
// This guards against the upstream model returning a sentence cut off
// mid-word. If no boundary exists the transcript becomes empty.
// The function is idempotent.
func NormalizeTranscript(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	if isTerminal(text[len(text)-1]) {
		return text
	}

	// Take the rightmost occurrence across all three terminators
	cut := -1
	for _, p := range terminalPunctuation {
		if i := strings.LastIndex(text, p); i > cut {
			cut = i
		}
	}

	if cut < 0 {
		return ""
	}

	return strings.TrimSpace(text[:cut+1])
}

// EnsureSpeakerPrefix prepends "<speaker>: " unless the transcript already
// starts with the speaker name and a colon.
func EnsureSpeakerPrefix(speaker, text string) string {
	if speaker == "" {
		return text
	}

	if strings.HasPrefix(text, speaker+":") {
		return text
	}

	return speaker + ": " + text
}

func isTerminal(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}
