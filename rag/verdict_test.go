package rag_test

import (
	"errors"
	"testing"

	"github.com/BaSui01/cricketflow/rag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    bool
		wantErr bool
	}{
		{name: "yes", raw: `{"binary_score": "yes", "explanation": "mentions Kohli"}`, want: true},
		{name: "no", raw: `{"binary_score": "no"}`, want: false},
		{name: "upper case", raw: `{"binary_score": "YES"}`, want: true},
		{name: "code fence", raw: "```json\n{\"binary_score\": \"yes\"}\n```", want: true},
		{name: "surrounding whitespace", raw: "\n  {\"binary_score\": \"no\"}  \n", want: false},
		{name: "empty", raw: "", wantErr: true},
		{name: "plain text", raw: "yes", wantErr: true},
		{name: "missing score", raw: `{"explanation": "x"}`, wantErr: true},
		{name: "invalid score", raw: `{"binary_score": "maybe"}`, wantErr: true},
		{name: "wrong type", raw: `{"binary_score": true}`, wantErr: true},
		{name: "two objects", raw: `{"binary_score": "yes"} {"binary_score": "no"}`, wantErr: true},
		{name: "truncated", raw: `{"binary_score": "ye`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := rag.ParseVerdict(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, rag.ErrMalformedVerdict))
				assert.False(t, v.IsRelevant)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.IsRelevant)
		})
	}
}

func TestParseVerdict_KeepsExplanation(t *testing.T) {
	v, err := rag.ParseVerdict(`{"binary_score": "yes", "explanation": "contains run totals"}`)
	require.NoError(t, err)
	assert.Equal(t, "contains run totals", v.Explanation)
}

func TestParseYesNo(t *testing.T) {
	for raw, want := range map[string]bool{"yes": true, "Yes.": true, " NO ": false, "'no'": false} {
		v, err := rag.ParseYesNo(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, v.IsRelevant, raw)
	}

	_, err := rag.ParseYesNo("probably")
	assert.ErrorIs(t, err, rag.ErrMalformedVerdict)
}

func TestSourcePrivileged(t *testing.T) {
	assert.True(t, rag.SourceStructuredQuery.Privileged())
	assert.True(t, rag.SourceLiveSnapshot.Privileged())
	assert.True(t, rag.SourceWebSearch.Privileged())
	assert.False(t, rag.SourceSemanticSearch.Privileged())

	assert.False(t, rag.HasPrivileged(nil))
	assert.False(t, rag.HasPrivileged([]rag.Evidence{{Content: "a", Source: rag.SourceSemanticSearch}}))
	assert.True(t, rag.HasPrivileged([]rag.Evidence{
		{Content: "a", Source: rag.SourceSemanticSearch},
		{Content: "b", Source: rag.SourceWebSearch},
	}))
}

func TestJoinContents(t *testing.T) {
	items := []rag.Evidence{
		{Content: "first"},
		{Content: "   "},
		{Content: ""},
		{Content: "second"},
	}
	assert.Equal(t, "first\n\nsecond", rag.JoinContents(items))
	assert.Equal(t, "", rag.JoinContents(nil))
}

func TestNormalizeQuestion(t *testing.T) {
	assert.Equal(t, "who won ipl 2016?", rag.NormalizeQuestion("  Who won\tIPL   2016? "))
	assert.Equal(t, rag.NormalizeQuestion("A  b"), rag.NormalizeQuestion("a b"))
	assert.Empty(t, rag.NormalizeQuestion(" \n "))
}
