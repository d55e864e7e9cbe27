package rag_test

import (
	"errors"
	"testing"

	"github.com/BaSui01/cricketflow/rag"
	"github.com/BaSui01/cricketflow/testutil"
	"github.com/BaSui01/cricketflow/testutil/fixtures"
	"github.com/BaSui01/cricketflow/testutil/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const docGraderFragment = "grader assessing relevance of a retrieved document"

func TestDocumentGrader_FiltersAndKeepsOrder(t *testing.T) {
	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().
		OnPrompt("Retrieved document: \n\n doc-a", fixtures.Verdict(true)).
		OnPrompt("Retrieved document: \n\n doc-b", fixtures.Verdict(false)).
		OnPrompt("Retrieved document: \n\n doc-c", fixtures.Verdict(true))
	g := rag.NewDocumentGrader(provider, testOpts)

	items := []rag.Evidence{
		{Content: "doc-a", Source: rag.SourceSemanticSearch},
		{Content: "doc-b", Source: rag.SourceSemanticSearch},
		{Content: "doc-c", Source: rag.SourceSemanticSearch},
	}
	kept := g.Grade(ctx, "Kohli runs", items)
	require.Len(t, kept, 2)
	assert.Equal(t, "doc-a", kept[0].Content)
	assert.Equal(t, "doc-c", kept[1].Content)
	assert.Equal(t, 3, provider.CallsMatching(docGraderFragment))
}

func TestDocumentGrader_PrivilegedPassThrough(t *testing.T) {
	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithResponse(fixtures.Verdict(false))
	g := rag.NewDocumentGrader(provider, testOpts)

	items := []rag.Evidence{
		{Content: "sql rows", Source: rag.SourceStructuredQuery},
		{Content: "live", Source: rag.SourceLiveSnapshot},
		{Content: "web", Source: rag.SourceWebSearch},
	}
	kept := g.Grade(ctx, "anything", items)
	assert.Equal(t, items, kept)
	assert.Zero(t, provider.CallCount())
}

func TestDocumentGrader_EmptyInputMakesNoCalls(t *testing.T) {
	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider()
	g := rag.NewDocumentGrader(provider, testOpts)

	kept := g.Grade(ctx, "anything", nil)
	assert.Empty(t, kept)
	assert.Zero(t, provider.CallCount())
}

func TestDocumentGrader_DropsOnFailure(t *testing.T) {
	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().
		OnPromptError("doc-a", errors.New("rate limited")).
		OnPrompt("doc-b", "not json").
		OnPrompt("doc-c", fixtures.Verdict(true))
	g := rag.NewDocumentGrader(provider, testOpts)

	kept := g.Grade(ctx, "q", []rag.Evidence{
		{Content: "doc-a", Source: rag.SourceSemanticSearch},
		{Content: "doc-b", Source: rag.SourceSemanticSearch},
		{Content: "doc-c", Source: rag.SourceSemanticSearch},
		{Content: "live", Source: rag.SourceLiveSnapshot},
	})
	require.Len(t, kept, 2)
	assert.Equal(t, "doc-c", kept[0].Content)
	assert.Equal(t, rag.SourceLiveSnapshot, kept[1].Source)
}

func TestQualityGrader_Grounded(t *testing.T) {
	ctx := testutil.TestContext(t)
	evidence := []rag.Evidence{{Content: "Kohli scored 973 runs in 2016.", Source: rag.SourceStructuredQuery}}

	provider := mocks.NewMockProvider().OnPrompt("grounded in / supported by", fixtures.Verdict(true))
	g := rag.NewQualityGrader(provider, testOpts)
	ok, err := g.Grounded(ctx, evidence, "973 runs")
	require.NoError(t, err)
	assert.True(t, ok)

	call := provider.Calls()[0]
	assert.Equal(t, "Set of facts: \n\n Kohli scored 973 runs in 2016. \n\n LLM generation: 973 runs", call.Request.Messages[1].Content)
}

func TestQualityGrader_GroundedEmptyFactsMakesNoCall(t *testing.T) {
	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithResponse(fixtures.Verdict(true))
	g := rag.NewQualityGrader(provider, testOpts)

	ok, err := g.Grounded(ctx, []rag.Evidence{{Content: "  ", Source: rag.SourceSemanticSearch}}, "x")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, provider.CallCount())
}

func TestQualityGrader_FailsClosed(t *testing.T) {
	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithError(errors.New("upstream 500"))
	g := rag.NewQualityGrader(provider, testOpts)

	ok, err := g.Grounded(ctx, []rag.Evidence{{Content: "fact"}}, "answer")
	assert.Error(t, err)
	assert.False(t, ok)

	ok, err = g.AddressesQuestion(ctx, "q", "answer")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestQualityGrader_AddressesQuestion(t *testing.T) {
	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().
		OnPrompt("LLM generation: I don't know", fixtures.Verdict(false)).
		OnPrompt("addresses / resolves a question", fixtures.Verdict(true))
	g := rag.NewQualityGrader(provider, testOpts)

	ok, err := g.AddressesQuestion(ctx, "Who won?", "Mumbai Indians won.")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.AddressesQuestion(ctx, "Who won?", "I don't know")
	require.NoError(t, err)
	assert.False(t, ok)
}
