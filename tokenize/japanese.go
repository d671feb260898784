// Package tokenize provides openimage.Tokenizer implementations beyond
// whitespace splitting.
package tokenize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/anatolykoptev/go-openimage"
)

// functionPOS are IPA parts of speech that never carry query meaning:
// particles, auxiliary verbs and symbols.
var functionPOS = map[string]bool{
	"助詞":   true,
	"助動詞":  true,
	"記号":   true,
	"フィラー": true,
}

// Japanese segments Japanese text with the kagome morphological analyzer
// and the IPA dictionary. Text without Japanese script is split on white
// space. Safe for concurrent use.
type Japanese struct {
	t *tokenizer.Tokenizer
}

// NewJapanese loads the IPA dictionary.
func NewJapanese() (*Japanese, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("kagome tokenizer: %w", err)
	}
	return &Japanese{t: t}, nil
}

// Tokenize implements openimage.Tokenizer.
func (j *Japanese) Tokenize(text string) []string {
	if !hasJapanese(text) {
		return strings.Fields(text)
	}
	var out []string
	for _, tok := range j.t.Tokenize(text) {
		if tok.Class == tokenizer.DUMMY {
			continue
		}
		surface := strings.TrimSpace(tok.Surface)
		if surface == "" {
			continue
		}
		if pos := tok.POS(); len(pos) > 0 && functionPOS[pos[0]] {
			continue
		}
		out = append(out, surface)
	}
	return out
}

func hasJapanese(s string) bool {
	for _, r := range s {
		if unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana) {
			return true
		}
	}
	return false
}

var _ openimage.Tokenizer = (*Japanese)(nil)
