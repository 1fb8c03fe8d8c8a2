package hashtag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		caret int
		want  Token
	}{
		{"term at end", "hello #pro", 10, Token{Active: true, Term: "pro", Start: 6, End: 10}},
		{"bare hash", "#", 1, Token{Active: true, Term: "", Start: 0, End: 1}},
		{"hyphenated", "ship #my-app", 12, Token{Active: true, Term: "my-app", Start: 5, End: 12}},
		{"caret mid text", "see #proj here", 9, Token{Active: true, Term: "proj", Start: 4, End: 9}},
		{"space after tag", "hello #pro ", 11, Token{}},
		{"caret before hash", "hello #pro", 5, Token{}},
		{"no hash", "shipped the thing", 17, Token{}},
		{"caret past end is clamped", "x #ab", 100, Token{Active: true, Term: "ab", Start: 2, End: 5}},
		{"negative caret", "#ab", -3, Token{}},
		{"multibyte prefix", "héllo #ap", 9, Token{Active: true, Term: "ap", Start: 6, End: 9}},
		{"second tag wins", "#one #tw", 8, Token{Active: true, Term: "tw", Start: 5, End: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Detect(tt.text, tt.caret))
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	project := Candidate{ID: "p1", Name: "project-x"}

	t.Run("replaces the partial tag", func(t *testing.T) {
		sel, err := Apply("hello #pro", 10, project)
		require.NoError(t, err)
		assert.Equal(t, "hello #project-x ", sel.Text)
		assert.Equal(t, 17, sel.Caret)
		assert.Equal(t, "p1", sel.ProjectID)
	})

	t.Run("keeps text after the caret", func(t *testing.T) {
		sel, err := Apply("see #pr and more", 7, project)
		require.NoError(t, err)
		assert.Equal(t, "see #project-x  and more", sel.Text)
		assert.Equal(t, 15, sel.Caret)
	})

	t.Run("empty term", func(t *testing.T) {
		sel, err := Apply("#", 1, project)
		require.NoError(t, err)
		assert.Equal(t, "#project-x ", sel.Text)
		assert.Equal(t, 11, sel.Caret)
	})

	t.Run("caret counted in runes", func(t *testing.T) {
		sel, err := Apply("héllo #p", 8, project)
		require.NoError(t, err)
		assert.Equal(t, "héllo #project-x ", sel.Text)
		assert.Equal(t, 17, sel.Caret)
	})

	t.Run("no active token", func(t *testing.T) {
		_, err := Apply("hello world", 11, project)
		assert.ErrorIs(t, err, ErrNoActiveToken)
	})
}
