package insight

import (
	"errors"
	"log"
	"regexp"
	"strings"
)

// ErrInappropriateContent rejects a journal entry before any model call.
var ErrInappropriateContent = errors.New("journal entry rejected by content policy")

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`(\+?\d{1,3}[\s.\-])?\(?\d{3}\)?[\s.\-]?\d{3}[\s.\-]?\d{4}`)
	ssnPattern   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ \-]?){13,16}\b`)
)

// Terms that trip the content policy regardless of context. The product
// surfaces a support message for these instead of generating suggestions.
var blockedTerms = []string{
	"kill myself",
	"suicide",
	"self-harm",
	"self harm",
	"hurt someone",
	"kill someone",
}

// SecurityFilter masks PII and rejects inappropriate journal entries before
// the text reaches the language model.
type SecurityFilter struct{}

func NewSecurityFilter() *SecurityFilter {
	return &SecurityFilter{}
}

// Screen returns the journal text with PII masked, or
// ErrInappropriateContent when the entry trips the content policy.
func (f *SecurityFilter) Screen(text string) (string, error) {
	lower := strings.ToLower(text)
	for _, term := range blockedTerms {
		if strings.Contains(lower, term) {
			log.Printf("[Security] Journal entry rejected by content policy")
			return "", ErrInappropriateContent
		}
	}
	return f.maskPII(text), nil
}

// maskPII replaces detectable sensitive substrings with typed placeholders.
func (f *SecurityFilter) maskPII(text string) string {
	masked := text
	replaced := 0

	count := func(p *regexp.Regexp, placeholder string) {
		matches := p.FindAllString(masked, -1)
		if len(matches) > 0 {
			replaced += len(matches)
			masked = p.ReplaceAllString(masked, placeholder)
		}
	}

	count(emailPattern, "[EMAIL]")
	count(ssnPattern, "[SSN]")
	count(cardPattern, "[CARD]")
	count(phonePattern, "[PHONE]")

	if replaced > 0 {
		log.Printf("[Security] Masked %d PII substrings in journal entry", replaced)
	}
	return masked
}
