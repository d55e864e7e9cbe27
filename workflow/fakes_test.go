package workflow_test

import (
	"context"
	"sync"
	"time"

	"github.com/BaSui01/cricketflow/rag"
	"github.com/BaSui01/cricketflow/workflow"
)

type fakeClassifier struct {
	name    string
	verdict func(q string) (bool, error)
	calls   int
}

func (c *fakeClassifier) Name() string { return c.name }

func (c *fakeClassifier) Classify(_ context.Context, q string) (rag.RelevanceVerdict, error) {
	c.calls++
	ok, err := c.verdict(q)
	return rag.RelevanceVerdict{IsRelevant: ok}, err
}

func always(ok bool) func(string) (bool, error) {
	return func(string) (bool, error) { return ok, nil }
}

func failing(err error) func(string) (bool, error) {
	return func(string) (bool, error) { return false, err }
}

type fakeRetriever struct {
	items []rag.Evidence
	err   error
	delay time.Duration
	calls int
	seen  []string
}

func (r *fakeRetriever) Retrieve(ctx context.Context, q string) ([]rag.Evidence, error) {
	r.calls++
	r.seen = append(r.seen, q)
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.items, r.err
}

type fakeLive struct {
	fakeRetriever
	available bool
}

func (l *fakeLive) Available() bool { return l.available }

type fakeWeb struct {
	res   *rag.WebSearchResults
	err   error
	calls int
}

func (w *fakeWeb) WebSearch(_ context.Context, q string) (*rag.WebSearchResults, error) {
	w.calls++
	return w.res, w.err
}

// fakeDocGrader keeps privileged items and applies keep to the rest.
type fakeDocGrader struct {
	keep   func(rag.Evidence) bool
	graded int
}

func (g *fakeDocGrader) Grade(_ context.Context, _ string, items []rag.Evidence) []rag.Evidence {
	var out []rag.Evidence
	for _, it := range items {
		if it.Privileged() {
			out = append(out, it)
			continue
		}
		g.graded++
		if g.keep == nil || g.keep(it) {
			out = append(out, it)
		}
	}
	return out
}

type fakeQuality struct {
	grounded  func() (bool, error)
	addresses func() (bool, error)

	groundedCalls int
	answerCalls   int
}

func (q *fakeQuality) Grounded(context.Context, []rag.Evidence, string) (bool, error) {
	q.groundedCalls++
	return q.grounded()
}

func (q *fakeQuality) AddressesQuestion(context.Context, string, string) (bool, error) {
	q.answerCalls++
	return q.addresses()
}

func yes() (bool, error) { return true, nil }
func no() (bool, error)  { return false, nil }

type fakeGenerator struct {
	answer   func(q string, ev []rag.Evidence) string
	calls    int
	evidence [][]rag.Evidence
}

func (g *fakeGenerator) Generate(_ context.Context, q string, ev []rag.Evidence) string {
	g.calls++
	g.evidence = append(g.evidence, ev)
	return g.answer(q, ev)
}

func fixedAnswer(a string) func(string, []rag.Evidence) string {
	return func(string, []rag.Evidence) string { return a }
}

type fakeRewriter struct {
	calls int
}

func (r *fakeRewriter) Rewrite(_ context.Context, q string) string {
	r.calls++
	return q + " (rewritten)"
}

// recordingObserver collects transitions in order.
type recordingObserver struct {
	mu          sync.Mutex
	transitions []workflow.Transition
}

func (r *recordingObserver) OnTransition(_ context.Context, t workflow.Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

func (r *recordingObserver) path() []workflow.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.transitions) == 0 {
		return nil
	}
	out := []workflow.State{r.transitions[0].From}
	for _, t := range r.transitions {
		out = append(out, t.To)
	}
	return out
}

func (r *recordingObserver) visits(s workflow.State) int {
	n := 0
	for _, t := range r.transitions {
		if t.From == s {
			n++
		}
	}
	return n
}

type fakeRecorder struct {
	episodes    []string
	transitions int
	evidence    map[string][]string
}

func (f *fakeRecorder) RecordEpisode(outcome string, _ int, _ time.Duration) {
	f.episodes = append(f.episodes, outcome)
}

func (f *fakeRecorder) RecordStateTransition(string, string) { f.transitions++ }

func (f *fakeRecorder) RecordEvidence(source, status string, _ time.Duration) {
	if f.evidence == nil {
		f.evidence = map[string][]string{}
	}
	f.evidence[source] = append(f.evidence[source], status)
}

func semanticItem(content string) rag.Evidence {
	return rag.Evidence{Content: content, Source: rag.SourceSemanticSearch}
}

func structuredItem(content string) rag.Evidence {
	return rag.Evidence{Content: content, Source: rag.SourceStructuredQuery, Metadata: map[string]any{"query": "SELECT 1 FROM deliveries"}}
}

func webResults(contents ...string) *rag.WebSearchResults {
	res := &rag.WebSearchResults{}
	for _, c := range contents {
		res.Evidence = append(res.Evidence, rag.Evidence{Content: c, Source: rag.SourceWebSearch})
	}
	return res
}
