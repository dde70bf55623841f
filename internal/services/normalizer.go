package services

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// maxEditDistance bounds how far a typo may be from its correction.
const maxEditDistance = 2

// shorthand maps chat abbreviations to the word they stand for. An entry
// applies only when its expansion is in the vocabulary.
var shorthand = map[string]string{
	"r":   "are",
	"ur":  "your",
	"pls": "please",
	"plz": "please",
	"thx": "thanks",
}

// allowedDistance scales the edit budget with token length so short
// tokens are never pulled onto unrelated short words.
func allowedDistance(runes int) int {
	switch {
	case runes <= 2:
		return 0
	case runes <= 5:
		return 1
	default:
		return maxEditDistance
	}
}

// Normalizer corrects typos word by word against a fixed vocabulary.
// A Normalizer with no vocabulary returns its input unchanged.
type Normalizer struct {
	words []string // file order is preference order on ties
	known map[string]struct{}
}

func NewNormalizer(words []string) *Normalizer {
	n := &Normalizer{known: make(map[string]struct{}, len(words))}
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, dup := n.known[w]; dup {
			continue
		}
		n.known[w] = struct{}{}
		n.words = append(n.words, w)
	}
	return n
}

// LoadVocabulary reads one word per line; blank lines and # comments are skipped.
func LoadVocabulary(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary: %w", err)
	}
	defer f.Close()

	var words []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	return words, nil
}

func (n *Normalizer) Size() int {
	return len(n.words)
}

// Correct returns text with each whitespace-separated token replaced by its
// shorthand expansion or its closest vocabulary word within the token's
// edit budget.
func (n *Normalizer) Correct(text string) string {
	if n == nil || len(n.words) == 0 {
		return text
	}

	tokens := strings.Fields(text)
	for i, tok := range tokens {
		tokens[i] = n.correctToken(tok)
	}
	return strings.Join(tokens, " ")
}

func (n *Normalizer) correctToken(tok string) string {
	prefix, core, suffix := splitPunct(tok)
	if core == "" || strings.IndexFunc(core, unicode.IsDigit) >= 0 {
		return tok
	}

	lower := strings.ToLower(core)
	if _, ok := n.known[lower]; ok {
		return tok
	}

	best, ok := n.expand(lower)
	if !ok {
		best, ok = n.closest(lower)
	}
	if !ok {
		return tok
	}

	if r, _ := utf8.DecodeRuneInString(core); unicode.IsUpper(r) {
		best = capitalize(best)
	}
	return prefix + best + suffix
}

func (n *Normalizer) expand(word string) (string, bool) {
	full, ok := shorthand[word]
	if !ok {
		return "", false
	}
	_, known := n.known[full]
	return full, known
}

func (n *Normalizer) closest(word string) (string, bool) {
	wordLen := utf8.RuneCountInString(word)
	limit := allowedDistance(wordLen)
	if limit == 0 {
		return "", false
	}
	best := ""
	bestDist := limit + 1

	for _, candidate := range n.words {
		// length difference is a lower bound on the distance
		diff := utf8.RuneCountInString(candidate) - wordLen
		if diff < 0 {
			diff = -diff
		}
		if diff >= bestDist {
			continue
		}

		d := levenshtein.ComputeDistance(word, candidate)
		if d == 2 && transposed(word, candidate) {
			d = 1
		}
		if d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best, best != ""
}

// transposed reports whether a and b differ only by one swap of adjacent
// runes, which counts as a single typo.
func transposed(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	if len(ra) != len(rb) {
		return false
	}
	i := 0
	for i < len(ra) && ra[i] == rb[i] {
		i++
	}
	if i+1 >= len(ra) || ra[i] != rb[i+1] || ra[i+1] != rb[i] {
		return false
	}
	return string(ra[i+2:]) == string(rb[i+2:])
}

func splitPunct(tok string) (prefix, core, suffix string) {
	start := strings.IndexFunc(tok, func(r rune) bool { return !unicode.IsPunct(r) && !unicode.IsSymbol(r) })
	if start < 0 {
		return tok, "", ""
	}
	end := strings.LastIndexFunc(tok, func(r rune) bool { return !unicode.IsPunct(r) && !unicode.IsSymbol(r) })
	_, size := utf8.DecodeRuneInString(tok[end:])
	return tok[:start], tok[start : end+size], tok[end+size:]
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
