package suggest

import (
	"math"
	"slices"
	"strings"
	"unicode"
)

// stopWords are dropped before weighting.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "for": true, "from": true, "in": true, "into": true,
	"is": true, "it": true, "look": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "up": true, "use": true, "with": true, "your": true,
}

// tokenize lowercases text, drops hyphens so "T-shirt" and "tshirt" agree,
// splits on non-letters, removes stop words and a plural "s".
func tokenize(text string) []string {
	text = strings.ReplaceAll(strings.ToLower(text), "-", "")
	fields := strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) })

	tokens := fields[:0]
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = f[:len(f)-1]
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Vectorizer weights terms by smoothed inverse document frequency.
type Vectorizer struct {
	vocab map[string]int
	idf   []float64
}

// NewVectorizer fits the vocabulary and idf weights on docs.
func NewVectorizer(docs []string) *Vectorizer {
	df := map[string]int{}
	for _, doc := range docs {
		seen := map[string]bool{}
		for _, tok := range tokenize(doc) {
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	slices.Sort(terms)

	v := &Vectorizer{vocab: make(map[string]int, len(terms)), idf: make([]float64, len(terms))}
	n := float64(len(docs))
	for i, term := range terms {
		v.vocab[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return v
}

// Dim is the vector length.
func (v *Vectorizer) Dim() int { return len(v.idf) }

// Transform returns the L2-normalized tf-idf vector of text. Text without a
// known term yields the zero vector.
func (v *Vectorizer) Transform(text string) []float32 {
	weights := make([]float64, len(v.idf))
	for _, tok := range tokenize(text) {
		if i, ok := v.vocab[tok]; ok {
			weights[i] += v.idf[i]
		}
	}

	var norm float64
	for _, w := range weights {
		norm += w * w
	}
	out := make([]float32, len(weights))
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, w := range weights {
		out[i] = float32(w / norm)
	}
	return out
}

func isZero(vec []float32) bool {
	for _, x := range vec {
		if x != 0 {
			return false
		}
	}
	return true
}
