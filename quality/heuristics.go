package quality

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPhraseRepeats is how often one three-word phrase may occur.
	MaxPhraseRepeats = 5
	// MaxSymbolRatio is the largest share of characters that may be neither
	// letters, digits nor whitespace.
	MaxSymbolRatio = 0.3
	// MaxAnnotationRatio is the largest share of characters that may be
	// bracketed non-speech annotations.
	MaxAnnotationRatio = 0.5

	shortChars = 50
	shortWords = 10
)

var annotationPattern = regexp.MustCompile(
	`(?i)[\[(][^\])]*\b(music|noise|silence|applause|laughter|laughs|inaudible|static|background|beep|crosstalk|blank_audio)\b[^\])]*[\])]`)

// Check runs the local heuristics and returns the first issue found.
func Check(text string) (issue string, bad bool) {
	trimmed := strings.TrimSpace(text)
	if isShortNoise(trimmed) {
		return "transcript is empty or contains no intelligible speech", true
	}
	if phrase, n := mostRepeatedTrigram(trimmed); n > MaxPhraseRepeats {
		return "phrase \"" + phrase + "\" repeats " + strconv.Itoa(n) + " times", true
	}
	if symbolRatio(trimmed) > MaxSymbolRatio {
		return "transcript is mostly symbols", true
	}
	if annotationRatio(trimmed) > MaxAnnotationRatio {
		return "transcript is mostly non-speech annotations", true
	}
	return "", false
}

func isShortNoise(s string) bool {
	if s == "" || s == "." {
		return true
	}
	if utf8.RuneCountInString(s) >= shortChars && len(strings.Fields(s)) >= shortWords {
		return false
	}
	return strings.Contains(strings.ToLower(s), "inaudible")
}

// mostRepeatedTrigram counts three-word phrases, ignoring case and
// punctuation.
func mostRepeatedTrigram(s string) (string, int) {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	counts := make(map[string]int)
	best, bestN := "", 0
	for i := 0; i+2 < len(words); i++ {
		key := words[i] + " " + words[i+1] + " " + words[i+2]
		counts[key]++
		if n := counts[key]; n > bestN {
			best, bestN = key, n
		}
	}
	return best, bestN
}

func symbolRatio(s string) float64 {
	total, symbols := 0, 0
	for _, r := range s {
		total++
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			symbols++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(symbols) / float64(total)
}

func annotationRatio(s string) float64 {
	total := utf8.RuneCountInString(s)
	if total == 0 {
		return 0
	}
	covered := 0
	for _, m := range annotationPattern.FindAllString(s, -1) {
		covered += utf8.RuneCountInString(m)
	}
	return float64(covered) / float64(total)
}
