package reconcile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTitle_ShortPromptVerbatim(t *testing.T) {
	prompt := strings.Repeat("a", 50)
	assert.Equal(t, prompt, DeriveTitle(prompt))
}

func TestDeriveTitle_ExactlyWindowVerbatim(t *testing.T) {
	prompt := strings.Repeat("a", 80)
	assert.Equal(t, prompt, DeriveTitle(prompt))
}

func TestDeriveTitle_TrimsToLastSpace(t *testing.T) {
	// 100 chars, the only space in the window is the 45th character.
	prompt := strings.Repeat("a", 44) + " " + strings.Repeat("b", 55)
	got := DeriveTitle(prompt)
	assert.Equal(t, prompt[:45]+"...", got)
}

func TestDeriveTitle_NoUsableSpace(t *testing.T) {
	// 100 chars with the only space before the 40th character: raw cut.
	prompt := strings.Repeat("a", 10) + " " + strings.Repeat("b", 89)
	got := DeriveTitle(prompt)
	assert.Equal(t, prompt[:80]+"...", got)
}

func TestDeriveTitle_NoSpaceAtAll(t *testing.T) {
	prompt := strings.Repeat("x", 120)
	assert.Equal(t, prompt[:80]+"...", DeriveTitle(prompt))
}

func TestDeriveTitle_TrimsWhitespace(t *testing.T) {
	assert.Equal(t, "fix bug", DeriveTitle("  fix bug\n"))
}
