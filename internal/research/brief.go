package research

import (
	"fmt"
	"os"
	"strings"
)

// LoadBrief reads the static research brief and caps it to maxChars so it
// cannot blow up the prompt.
func LoadBrief(path string, maxChars int) (string, error) {
	if path == "" {
		return "", nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read research brief: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if maxChars > 0 && len(text) > maxChars {
		if runes := []rune(text); len(runes) > maxChars {
			text = string(runes[:maxChars])
		}
	}
	return text, nil
}
