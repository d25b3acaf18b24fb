package clarity

import (
	"math"
	"strings"
	"unicode"
)

// Words splits text into word tokens containing at least one letter or digit.
func Words(text string) []string {
	var out []string
	for _, f := range strings.Fields(text) {
		w := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
		})
		if strings.IndexFunc(w, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) >= 0 {
			out = append(out, w)
		}
	}
	return out
}

// sentenceCount counts runs of terminal punctuation; text without any is one sentence.
func sentenceCount(text string) int {
	n := 0
	inTerm := false
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if !inTerm {
				n++
			}
			inTerm = true
			continue
		}
		inTerm = false
	}
	trimmed := strings.TrimRightFunc(text, unicode.IsSpace)
	if last := lastRune(trimmed); last != '.' && last != '!' && last != '?' && trimmed != "" {
		n++
	}
	if n == 0 {
		n = 1
	}
	return n
}

func lastRune(s string) rune {
	r := []rune(s)
	if len(r) == 0 {
		return 0
	}
	return r[len(r)-1]
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}

// Syllables estimates English syllables by counting vowel groups, dropping
// a silent trailing "e" and keeping a floor of one.
func Syllables(word string) int {
	w := strings.ToLower(strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) }))
	if w == "" {
		return 0
	}
	runes := []rune(w)
	count := 0
	prevVowel := false
	for _, r := range runes {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	n := len(runes)
	if n > 2 && runes[n-1] == 'e' && !isVowel(runes[n-2]) && !(runes[n-2] == 'l' && !isVowel(runes[n-3])) {
		count--
	}
	if n > 2 && strings.HasSuffix(w, "es") && !isVowel(runes[n-3]) && runes[n-3] != 's' && runes[n-3] != 'x' && runes[n-3] != 'z' && runes[n-3] != 'c' && runes[n-3] != 'g' {
		count--
	}
	if count < 1 {
		count = 1
	}
	return count
}

// FleschKincaidGrade computes 0.39*(words/sentences) + 11.8*(syllables/words) - 15.59,
// rounded to one decimal.
func FleschKincaidGrade(text string) float64 {
	words := Words(text)
	if len(words) == 0 {
		return 0
	}
	syllables := 0
	for _, w := range words {
		syllables += Syllables(w)
	}
	wc := float64(len(words))
	grade := 0.39*(wc/float64(sentenceCount(text))) + 11.8*(float64(syllables)/wc) - 15.59
	return math.Round(grade*10) / 10
}
