package tokenizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingTokenizer struct{}

func (failingTokenizer) CountTokens(string) (int, error) { return 0, errors.New("no bpe data") }
func (failingTokenizer) Name() string                    { return "failing" }

func TestNewTiktokenTokenizer_EncodingSelection(t *testing.T) {
	tests := map[string]string{
		"gpt-4o-mini":   "o200k_base",
		"gpt-4o":        "o200k_base",
		"gpt-4-turbo":   "cl100k_base",
		"gpt-3.5-turbo": "cl100k_base",
		"llama3":        "cl100k_base",
	}
	for model, want := range tests {
		assert.Equal(t, want, NewTiktokenTokenizer(model).Encoding(), model)
	}
}

func TestEstimatorTokenizer(t *testing.T) {
	e := EstimatorTokenizer{}

	n, err := e.CountTokens("")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, _ = e.CountTokens("abc")
	assert.Equal(t, 1, n)

	n, _ = e.CountTokens("Kohli scored 73 off 47 balls")
	assert.Equal(t, 7, n)
}

func TestFallbackTokenizer(t *testing.T) {
	f := NewFallbackTokenizer(failingTokenizer{}, EstimatorTokenizer{})

	n, err := f.CountTokens("twelve chars")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "failing", f.Name())
}
