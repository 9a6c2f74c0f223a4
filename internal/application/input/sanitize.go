package input

import (
	"strconv"
	"strings"
)

// DefaultMaxDecimals is the fractional digit limit used when none is configured
const DefaultMaxDecimals = 6

// Edit is an accepted keystroke result: the cleaned text and the number it stands for
type Edit struct {
	Text  string
	Value float64
}

// Sanitize keeps digits and a single decimal separator. A comma counts as a dot,
// a leading dot becomes "0." and every dot after the first is dropped.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw) + 1)

	seenDot := false
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ',':
			if seenDot {
				continue
			}
			seenDot = true
			if b.Len() == 0 {
				b.WriteByte('0')
			}
			b.WriteByte('.')
		}
	}
	return b.String()
}

// FractionDigits counts the digits after the decimal separator of a sanitized string
func FractionDigits(s string) int {
	i := strings.IndexByte(s, '.')
	if i < 0 {
		return 0
	}
	return len(s) - i - 1
}

// Parse sanitizes raw and converts it to a number. An edit with more than maxDecimals
// fractional digits is dropped entirely (ok is false). An empty field parses as zero.
func Parse(raw string, maxDecimals int) (Edit, bool) {
	if maxDecimals <= 0 {
		maxDecimals = DefaultMaxDecimals
	}

	text := Sanitize(raw)
	if FractionDigits(text) > maxDecimals {
		return Edit{}, false
	}
	if text == "" {
		return Edit{}, true
	}

	value, err := strconv.ParseFloat(strings.TrimSuffix(text, "."), 64)
	if err != nil {
		return Edit{}, false
	}
	return Edit{Text: text, Value: value}, true
}
