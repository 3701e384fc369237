package squad

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token is a word or punctuation mark, with its byte offsets into the text it came from.
type Token struct {
	Text       string
	Start, End int
}

// Tokenize splits text at whitespace and separates punctuation into tokens of its own. Periods and
// commas between digits ("3.5", "1,000") and apostrophes and hyphens between letters ("don't",
// "well-known") stay inside their word.
func Tokenize(text string) []Token {
	var toks []Token
	start := -1

	flush := func(end int) {
		if start >= 0 {
			toks = append(toks, Token{Text: text[start:end], Start: start, End: end})
			start = -1
		}
	}

	for i, r := range text {
		switch {
		case unicode.IsSpace(r):
			flush(i)
		case isPunct(r) && !joins(text, i, r):
			flush(i)
			end := i + utf8.RuneLen(r)
			toks = append(toks, Token{Text: text[i:end], Start: i, End: end})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(text))

	return toks
}

func isPunct(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r)
}

// joins is true if the punctuation mark r at byte offset i belongs to the word around it.
func joins(text string, i int, r rune) bool {
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	next, _ := utf8.DecodeRuneInString(text[i+utf8.RuneLen(r):])

	switch r {
	case '.', ',':
		return unicode.IsDigit(prev) && unicode.IsDigit(next)
	case '\'', '’', '-':
		return unicode.IsLetter(prev) && unicode.IsLetter(next)
	}
	return false
}

// Words returns the lowercased text of every token, as used for vocabulary lookups.
func Words(toks []Token) []string {
	words := make([]string, len(toks))
	for i, t := range toks {
		words[i] = strings.ToLower(t.Text)
	}
	return words
}

// byteOffset converts a character offset in text into a byte offset. Offsets past the end give
// len(text).
func byteOffset(text string, chars int) int {
	n := 0
	for i := range text {
		if n == chars {
			return i
		}
		n++
	}
	return len(text)
}
