package dictionary

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/bitterfly/go-chaos/kategorie/game"
)

// Generic holds words that count for any category without its own list.
const Generic = "*"

// fuzzyMinLength is the shortest word that may be one edit away from a
// dictionary entry and still match.
const fuzzyMinLength = 5

// Dictionary is a word list per category, indexed by first letter.
type Dictionary struct {
	words map[string]map[rune][]string
	size  int
}

func New() *Dictionary {
	return &Dictionary{words: make(map[string]map[rune][]string)}
}

// Load reads a file of "category;word" lines. Blank lines and lines starting
// with # are skipped.
func Load(path string) (*Dictionary, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open dictionary %s: %w", path, err)
	}
	defer file.Close()

	d, err := Read(file)
	if err != nil {
		return nil, fmt.Errorf("error while reading dictionary %s: %w", path, err)
	}
	return d, nil
}

func Read(r io.Reader) (*Dictionary, error) {
	d := New()
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		category, word, ok := strings.Cut(text, ";")
		if !ok {
			return nil, fmt.Errorf("line %d: expected category;word", line)
		}
		d.Add(category, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dictionary) Add(category, word string) {
	category = game.Normalize(category)
	word = game.Normalize(word)
	if category == "" || word == "" {
		return
	}
	first, _ := utf8.DecodeRuneInString(word)
	if d.words[category] == nil {
		d.words[category] = make(map[rune][]string)
	}
	for _, w := range d.words[category][first] {
		if w == word {
			return
		}
	}
	d.words[category][first] = append(d.words[category][first], word)
	d.size++
}

// Len is the number of distinct (category, word) entries.
func (d *Dictionary) Len() int {
	return d.size
}

// IsValidWord reports whether word starts with letter and is listed for
// category, or for Generic when category has no list. Words of five or more
// letters also match an entry one edit away.
func (d *Dictionary) IsValidWord(word, category, letter string) bool {
	word = game.Normalize(word)
	letter = game.Normalize(letter)
	if word == "" || letter == "" || !strings.HasPrefix(word, letter) {
		return false
	}

	byLetter, ok := d.words[game.Normalize(category)]
	if !ok {
		byLetter = d.words[Generic]
	}
	first, _ := utf8.DecodeRuneInString(word)
	fuzzy := utf8.RuneCountInString(word) >= fuzzyMinLength
	for _, candidate := range byLetter[first] {
		if candidate == word {
			return true
		}
		if fuzzy && levenshtein.ComputeDistance(candidate, word) <= 1 {
			return true
		}
	}
	return false
}
