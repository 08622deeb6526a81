// Package sanitize cleans raw operator input before validation.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	scriptBlockPattern = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlTagPattern     = regexp.MustCompile(`<[^>]*>`)
	scriptPattern      = regexp.MustCompile(`(?i)javascript:|on\w+\s*=`)
	namePattern       = regexp.MustCompile(`[^\p{L}\p{M}' .-]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Text strips markup, control characters, and invalid UTF-8 from free text.
func Text(raw string) string {
	s := validUTF8(raw)
	s = scriptBlockPattern.ReplaceAllString(s, "")
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = scriptPattern.ReplaceAllString(s, "")
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// Name keeps only characters plausible in a person's name.
func Name(raw string) string {
	s := namePattern.ReplaceAllString(Text(raw), "")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// Address cleans a street address, keeping digits and common punctuation.
func Address(raw string) string {
	s := Text(raw)
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			return r
		case r == ',' || r == '.' || r == '#' || r == '-' || r == '/':
			return r
		default:
			return -1
		}
	}, s)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// Notes cleans free-text special requests, preserving line breaks.
func Notes(raw string) string {
	s := validUTF8(raw)
	s = scriptBlockPattern.ReplaceAllString(s, "")
	s = htmlTagPattern.ReplaceAllString(s, "")
	s = scriptPattern.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(whitespacePattern.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// validUTF8 drops invalid byte sequences rather than replacing them, so
// downstream length checks see only real characters.
func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == utf8.RuneError {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
