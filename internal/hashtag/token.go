// Package hashtag detects "#term" tokens at the caret, suggests matching
// projects and rewrites the text when one is chosen.
package hashtag

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

// ErrNoActiveToken is returned when a selection is applied with the caret outside a #token.
var ErrNoActiveToken = errors.New("hashtag: caret is not inside a hashtag")

var tokenPattern = regexp.MustCompile(`#[\w-]*$`)

// Token is the hashtag under the caret. Start and End are rune offsets of the
// '#' and the caret; Term is the text between them, possibly empty.
type Token struct {
	Active bool   `json:"active"`
	Term   string `json:"term"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
}

// Detect finds the hashtag token that ends at caret, a rune offset into text.
// Out-of-range carets are clamped.
func Detect(text string, caret int) Token {
	runes := []rune(text)
	caret = clamp(caret, len(runes))

	prefix := string(runes[:caret])
	loc := tokenPattern.FindStringIndex(prefix)
	if loc == nil {
		return Token{}
	}

	return Token{
		Active: true,
		Term:   prefix[loc[0]+1:],
		Start:  utf8.RuneCountInString(prefix[:loc[0]]),
		End:    caret,
	}
}

// Selection is the result of choosing a suggestion.
type Selection struct {
	Text      string `json:"text"`
	Caret     int    `json:"caret"`
	ProjectID string `json:"project_id"`
}

// Apply replaces the token ending at caret with "#name " and places the caret
// after the separator. Text before the '#' and after the caret is kept verbatim.
func Apply(text string, caret int, c Candidate) (Selection, error) {
	tok := Detect(text, caret)
	if !tok.Active {
		return Selection{}, ErrNoActiveToken
	}

	runes := []rune(text)
	insert := []rune("#" + c.Name + " ")

	out := make([]rune, 0, len(runes)-(tok.End-tok.Start)+len(insert))
	out = append(out, runes[:tok.Start]...)
	out = append(out, insert...)
	out = append(out, runes[tok.End:]...)

	return Selection{
		Text:      string(out),
		Caret:     tok.Start + len(insert),
		ProjectID: c.ID,
	}, nil
}

func clamp(caret, n int) int {
	if caret < 0 {
		return 0
	}
	if caret > n {
		return n
	}
	return caret
}
