package evidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and splits on punctuation",
			text: "Login form accepts e-mail, always.",
			want: []string{"login", "form", "accepts", "e", "mail", "always"},
		},
		{
			name: "drops stopwords",
			text: "the session expires in a browser",
			want: []string{"session", "expires", "browser"},
		},
		{
			name: "keeps negation words",
			text: "users cannot delete the audit log",
			want: []string{"users", "cannot", "delete", "audit", "log"},
		},
		{
			name: "keeps numerals",
			text: "retries 3 times over 30 seconds",
			want: []string{"retries", "3", "times", "over", "30", "seconds"},
		},
		{
			name: "empty text",
			text: "",
			want: []string{},
		},
		{
			name: "only stopwords",
			text: "of the and a",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Tokens(tt.text))
		})
	}
}

func TestNegationMarkers(t *testing.T) {
	assert.Empty(t, NegationMarkers(Tokens("users can delete drafts")))

	markers := NegationMarkers(Tokens("never delete without confirmation, not even once"))
	assert.Equal(t, []string{"never", "not", "without"}, markers)

	// Duplicates collapse.
	markers = NegationMarkers(Tokens("no retries, no fallback"))
	assert.Equal(t, []string{"no"}, markers)
}

func TestTokenScorer_Score(t *testing.T) {
	s := TokenScorer{}

	t.Run("identical texts score 1", func(t *testing.T) {
		assert.Equal(t, 1.0, s.Score("session expires after 30 minutes", "session expires after 30 minutes"))
	})

	t.Run("disjoint texts score 0", func(t *testing.T) {
		assert.Equal(t, 0.0, s.Score("password reset link", "dashboard chart colors"))
	})

	t.Run("partial overlap", func(t *testing.T) {
		// {login, phone} vs {login, form, accepts, email}: 1 shared of 5.
		assert.InDelta(t, 0.2, s.Score("login with phone", "login form accepts email"), 1e-9)
	})

	t.Run("empty text scores 0", func(t *testing.T) {
		assert.Equal(t, 0.0, s.Score("", "anything at all"))
		assert.Equal(t, 0.0, s.Score("anything at all", ""))
		assert.Equal(t, 0.0, s.Score("", ""))
	})

	t.Run("word order does not matter", func(t *testing.T) {
		assert.Equal(t, 1.0, s.Score("cards stats show", "show stats cards"))
	})
}
