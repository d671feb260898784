package openimage

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// minWordRunes is the minimum rune count for a query word to count as a term.
// Words in Han, Hiragana or Katakana script are exempt.
const minWordRunes = 3

// stopWords are English, French and Russian function words ignored when
// matching a query against record text.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true,
	"le": true, "la": true, "les": true, "de": true, "du": true, "des": true,
	"et": true, "ou": true, "un": true, "une": true,
	"в": true, "на": true, "и": true, "из": true, "для": true,
	"что": true, "как": true, "это": true, "по": true, "от": true,
	"с": true, "о": true, "к": true, "не": true, "за": true,
	"или": true, "при": true, "без": true, "над": true, "через": true,
}

// WhitespaceTokenizer splits text on Unicode white space.
type WhitespaceTokenizer struct{}

// Tokenize implements Tokenizer.
func (WhitespaceTokenizer) Tokenize(text string) []string { return strings.Fields(text) }

// QueryTerms extracts the lowercased meaningful words of query. When every
// word is filtered out, all words are used instead.
func QueryTerms(tok Tokenizer, query string) []string {
	if tok == nil {
		tok = WhitespaceTokenizer{}
	}
	var all, terms []string
	for _, w := range tok.Tokenize(query) {
		w = strings.ToLower(strings.Trim(w, ".,;:!?\"'()[]{}«»—–-"))
		if w == "" {
			continue
		}
		all = append(all, w)
		if stopWords[w] {
			continue
		}
		if utf8.RuneCountInString(w) < minWordRunes && !hasCJK(w) {
			continue
		}
		terms = append(terms, w)
	}
	if len(terms) == 0 {
		return all
	}
	return terms
}

func hasCJK(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	return false
}

// IsRelevant reports whether any term occurs in the record's title or
// description, case-insensitively.
func IsRelevant(rec ImageRecord, terms []string) bool {
	text := strings.ToLower(rec.Title + " " + rec.Description)
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func filterRelevant(records []ImageRecord, terms []string) []ImageRecord {
	out := records[:0:0]
	for _, r := range records {
		if IsRelevant(r, terms) {
			out = append(out, r)
		}
	}
	return out
}
