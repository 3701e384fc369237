package squad

import (
	"strings"
	"unicode"
)

// The coarse lexical tags given to every token. They are fed to the model as one-hot features.
const (
	TagWord int = iota
	TagCapitalized
	TagNumber
	TagPunct
	TagFunction

	NumTags int = iota
)

var functionWords = map[string]bool{}

func init() {
	list := `a an the and or but nor so yet of in on at to for from by with without about into onto
		over under between through during before after above below up down out off than as
		is are was were be been being am do does did have has had will would shall should can could
		may might must i you he she it we they me him her us them my your his its our their this
		that these those there here not no what which who whom whose when where why how`

	for _, w := range strings.Fields(list) {
		functionWords[w] = true
	}
}

// Tag returns the tag of a single token.
func Tag(tok string) int {
	var letters, digits, puncts int
	for _, r := range tok {
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		case isPunct(r):
			puncts++
		}
	}

	runes := []rune(tok)
	switch {
	case len(runes) == 0:
		return TagWord
	case puncts > 0 && letters == 0 && digits == 0:
		return TagPunct
	case digits > 0 && letters == 0:
		return TagNumber
	case functionWords[strings.ToLower(tok)]:
		return TagFunction
	case unicode.IsUpper(runes[0]):
		return TagCapitalized
	}
	return TagWord
}

// Tags returns the tag of every token.
func Tags(toks []Token) []int {
	tags := make([]int, len(toks))
	for i, t := range toks {
		tags[i] = Tag(t.Text)
	}
	return tags
}
