package rag_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BaSui01/cricketflow/rag"
	"github.com/BaSui01/cricketflow/testutil"
	"github.com/BaSui01/cricketflow/testutil/fixtures"
	"github.com/BaSui01/cricketflow/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOpts = rag.CallOptions{Model: "gpt-4o-mini", Timeout: time.Second}

type fakeVerdictRecorder struct {
	outcomes map[string][]string
}

func (f *fakeVerdictRecorder) RecordVerdict(component, outcome string) {
	if f.outcomes == nil {
		f.outcomes = map[string][]string{}
	}
	f.outcomes[component] = append(f.outcomes[component], outcome)
}

func TestStructuredRelevanceClassifier(t *testing.T) {
	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().
		OnPrompt("How many runs did Kohli score", fixtures.Verdict(true)).
		OnPrompt("What is the lbw rule", fixtures.Verdict(false))
	rec := &fakeVerdictRecorder{}
	c := rag.NewStructuredRelevanceClassifier(provider, testOpts, 0, rag.WithRecorder(rec))

	v, err := c.Classify(ctx, "How many runs did Kohli score in 2016?")
	require.NoError(t, err)
	assert.True(t, v.IsRelevant)

	v, err = c.Classify(ctx, "What is the lbw rule?")
	require.NoError(t, err)
	assert.False(t, v.IsRelevant)

	calls := provider.Calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].Request.JSONMode)
	assert.Equal(t, "gpt-4o-mini", calls[0].Request.Model)
	assert.Contains(t, calls[0].Request.Messages[0].Content, "'deliveries'")
	assert.Equal(t, []string{"yes", "no"}, rec.outcomes["structured_relevance"])
}

func TestClassifier_FailsClosed(t *testing.T) {
	ctx := testutil.TestContext(t)

	t.Run("provider error", func(t *testing.T) {
		provider := mocks.NewMockProvider().WithError(errors.New("boom"))
		c := rag.NewLiveRelevanceClassifier(provider, testOpts, 16)
		v, err := c.Classify(ctx, "What's the score?")
		require.Error(t, err)
		assert.False(t, v.IsRelevant)
	})

	t.Run("malformed output", func(t *testing.T) {
		provider := mocks.NewMockProvider().WithResponse("Sure! The answer is yes.")
		c := rag.NewLiveRelevanceClassifier(provider, testOpts, 16)
		v, err := c.Classify(ctx, "What's the score?")
		assert.ErrorIs(t, err, rag.ErrMalformedVerdict)
		assert.False(t, v.IsRelevant)
	})

	t.Run("timeout", func(t *testing.T) {
		provider := mocks.NewMockProvider().WithResponse(fixtures.Verdict(true)).WithDelay(time.Second)
		opts := testOpts
		opts.Timeout = 20 * time.Millisecond
		c := rag.NewLiveRelevanceClassifier(provider, opts, 16)
		v, err := c.Classify(ctx, "What's the score?")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, v.IsRelevant)
	})
}

func TestClassifier_CachesSuccessfulVerdicts(t *testing.T) {
	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithResponse(fixtures.Verdict(true))
	c := rag.NewLiveRelevanceClassifier(provider, testOpts, 8)

	for i := 0; i < 3; i++ {
		v, err := c.Classify(ctx, "Who is batting now?")
		require.NoError(t, err)
		assert.True(t, v.IsRelevant)
	}
	assert.Equal(t, 1, provider.CallCount())

	// 大小写与空白不同的同一问题命中缓存
	for _, q := range []string{"who is batting NOW?", "  Who   is batting\tnow? "} {
		v, err := c.Classify(ctx, q)
		require.NoError(t, err)
		assert.True(t, v.IsRelevant)
	}
	assert.Equal(t, 1, provider.CallCount())

	// 失败结果不缓存
	failing := mocks.NewMockProvider().On(mocks.PromptContains("Who"),
		mocks.Reply{Err: errors.New("transient")},
		mocks.Reply{Content: fixtures.Verdict(true)},
	)
	c = rag.NewLiveRelevanceClassifier(failing, testOpts, 8)
	_, err := c.Classify(ctx, "Who is bowling?")
	require.Error(t, err)
	v, err := c.Classify(ctx, "Who is bowling?")
	require.NoError(t, err)
	assert.True(t, v.IsRelevant)
	assert.Equal(t, 2, failing.CallCount())
}

func TestLiveQuickCheck(t *testing.T) {
	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().
		OnPrompt("'What is the current score?'", "Yes").
		OnPrompt("'Who won IPL 2016?'", "no")
	c := rag.NewLiveQuickCheck(provider, testOpts, 0)

	v, err := c.Classify(ctx, "What is the current score?")
	require.NoError(t, err)
	assert.True(t, v.IsRelevant)

	v, err = c.Classify(ctx, "Who won IPL 2016?")
	require.NoError(t, err)
	assert.False(t, v.IsRelevant)

	calls := provider.Calls()
	require.Len(t, calls, 2)
	assert.False(t, calls[0].Request.JSONMode)
	assert.Equal(t, "Is this query about a live or current cricket match: 'What is the current score?'",
		calls[0].Request.Messages[1].Content)
}
