package workflow

import (
	"github.com/BaSui01/cricketflow/rag"
)

// State is one node of the answering state machine.
type State string

const (
	StateRetrieve        State = "retrieve"
	StateGradeDocuments  State = "grade_documents"
	StateGenerate        State = "generate"
	StateGradeGeneration State = "grade_generation"
	StateTransformQuery  State = "transform_query"
	StateWebSearch       State = "web_search"
	StateTerminate       State = "terminate"
)

// States lists every non-terminal state in declaration order.
var States = []State{
	StateRetrieve,
	StateGradeDocuments,
	StateGenerate,
	StateGradeGeneration,
	StateTransformQuery,
	StateWebSearch,
}

func (s State) String() string { return string(s) }

// Outcome describes why an episode stopped.
type Outcome string

const (
	// OutcomeUseful the answer passed both quality graders.
	OutcomeUseful Outcome = "useful"
	// OutcomeVerificationExhausted the verification loop bound was hit; the answer may be unverified.
	OutcomeVerificationExhausted Outcome = "verification_exhausted"
	// OutcomeStepBudgetExhausted the global step budget ran out; the last answer is returned as is.
	OutcomeStepBudgetExhausted Outcome = "step_budget_exhausted"
	// OutcomeFailed the episode was aborted, e.g. by context cancellation.
	OutcomeFailed Outcome = "failed"
)

// Episode is the mutable state of a single question.
type Episode struct {
	ID string `json:"id"`
	// OriginalQuestion is the user's input; Question may be rewritten.
	OriginalQuestion string         `json:"original_question"`
	Question         string         `json:"question"`
	Evidence         []rag.Evidence `json:"evidence"`
	Answer           string         `json:"answer"`

	RetrievalIterations    int  `json:"retrieval_iterations"`
	VerificationIterations int  `json:"verification_iterations"`
	WebSearchAttempted     bool `json:"web_search_attempted"`

	WebSearchResults *rag.WebSearchResults `json:"web_search_results,omitempty"`
}

// NewEpisode creates the initial state for a question.
func NewEpisode(id, question string) *Episode {
	return &Episode{
		ID:               id,
		OriginalQuestion: question,
		Question:         question,
	}
}

// Snapshot returns a copy whose evidence slice is detached from the episode.
func (e *Episode) Snapshot() Episode {
	cp := *e
	if e.Evidence != nil {
		cp.Evidence = make([]rag.Evidence, len(e.Evidence))
		copy(cp.Evidence, e.Evidence)
	}
	return cp
}
