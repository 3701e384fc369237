package squad

// The reserved entries at the start of every Dictionary.
const (
	PadWord  string = "<pad>"
	UnkWord  string = "<unk>"
	PadIndex int    = 0
	UnkIndex int    = 1
)

// Dictionary maps words to vocabulary indexes. Index 0 is padding and index 1 stands for every
// word that is not in the dictionary.
type Dictionary struct {
	words []string
	index map[string]int
}

// NewDictionary returns a Dictionary holding only the reserved words.
func NewDictionary() *Dictionary {
	return DictionaryFrom(nil)
}

// DictionaryFrom rebuilds a Dictionary from the result of Words. The reserved words are added
// first if they are missing.
func DictionaryFrom(words []string) *Dictionary {
	d := &Dictionary{index: make(map[string]int, len(words)+2)}
	if len(words) < 2 || words[PadIndex] != PadWord || words[UnkIndex] != UnkWord {
		d.Add(PadWord)
		d.Add(UnkWord)
	}
	for _, w := range words {
		d.Add(w)
	}
	return d
}

// Add returns the index of word, adding it if it is new.
func (d *Dictionary) Add(word string) int {
	if i, ok := d.index[word]; ok {
		return i
	}

	d.index[word] = len(d.words)
	d.words = append(d.words, word)
	return len(d.words) - 1
}

// Index returns the index of word, or UnkIndex.
func (d *Dictionary) Index(word string) int {
	if i, ok := d.index[word]; ok {
		return i
	}
	return UnkIndex
}

// Word returns the word at index i. Indexes out of range give UnkWord.
func (d *Dictionary) Word(i int) string {
	if i < 0 || i >= len(d.words) {
		return UnkWord
	}
	return d.words[i]
}

// Len returns the vocabulary size.
func (d *Dictionary) Len() int {
	return len(d.words)
}

// Words returns every word in index order. The slice must not be modified.
func (d *Dictionary) Words() []string {
	return d.words
}

// lookup maps words to indexes, adding new ones if grow is true.
func (d *Dictionary) lookup(words []string, grow bool) []int {
	ids := make([]int, len(words))
	for i, w := range words {
		if grow {
			ids[i] = d.Add(w)
		} else {
			ids[i] = d.Index(w)
		}
	}
	return ids
}
