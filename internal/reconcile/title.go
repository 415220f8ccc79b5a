package reconcile

import "strings"

const (
	titleMaxLen = 80
	// A trim-to-space shorter than this truncates too aggressively; fall
	// back to the raw cut instead.
	titleMinLen = 40

	ellipsis = "..."
)

// DeriveTitle builds a display title from the session's first prompt. Prompts
// within the window are used verbatim; longer prompts are cut at the window
// and trimmed back to the last space when that keeps at least titleMinLen
// characters, avoiding mid-word truncation.
func DeriveTitle(prompt string) string {
	p := strings.TrimSpace(prompt)
	runes := []rune(p)
	if len(runes) <= titleMaxLen {
		return p
	}

	cut := runes[:titleMaxLen]
	for i := len(cut) - 1; i >= 0; i-- {
		if cut[i] != ' ' {
			continue
		}
		if i+1 >= titleMinLen {
			return string(cut[:i+1]) + ellipsis
		}
		break
	}
	return string(cut) + ellipsis
}
