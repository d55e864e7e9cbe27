package workflow

import (
	"github.com/BaSui01/cricketflow/rag"
)

// Limits bounds the two local loops of an episode.
type Limits struct {
	// GENERATE is forced once RetrievalIterations reaches this value.
	MaxRetrievalIterations int `json:"max_retrieval_iterations"`
	// The answer is accepted once VerificationIterations exceeds this value.
	MaxVerificationIterations int `json:"max_verification_iterations"`
}

// DefaultLimits returns the production loop bounds.
func DefaultLimits() Limits {
	return Limits{MaxRetrievalIterations: 2, MaxVerificationIterations: 3}
}

// escalate picks web search once, then query rewriting.
func escalate(ep *Episode) State {
	if !ep.WebSearchAttempted {
		return StateWebSearch
	}
	return StateTransformQuery
}

// NextAfterGradeDocuments decides where graded evidence leads.
func NextAfterGradeDocuments(ep *Episode, lim Limits) State {
	switch {
	case ep.RetrievalIterations >= lim.MaxRetrievalIterations:
		return StateGenerate
	case rag.HasPrivileged(ep.Evidence):
		return StateGenerate
	case len(ep.Evidence) == 0:
		return escalate(ep)
	default:
		return StateGenerate
	}
}

// GenerationCheck says which quality graders must run for the current answer.
type GenerationCheck int

const (
	// CheckNone the decision does not need any grader.
	CheckNone GenerationCheck = iota
	// CheckAnswerOnly degraded mode: only the question-relevance grader runs.
	CheckAnswerOnly
	// CheckGroundedFirst groundedness runs, then relevance if grounded.
	CheckGroundedFirst
)

// PlanGenerationCheck is evaluated after VerificationIterations was incremented.
func PlanGenerationCheck(ep *Episode, lim Limits) GenerationCheck {
	switch {
	case ep.VerificationIterations > lim.MaxVerificationIterations:
		return CheckNone
	case rag.IsFailureAnswer(ep.Answer):
		return CheckNone
	case len(ep.Evidence) == 0:
		return CheckAnswerOnly
	default:
		return CheckGroundedFirst
	}
}

// NextAfterGradeGeneration decides where a graded answer leads. Verdicts not
// checked count as negative, as do grader failures.
func NextAfterGradeGeneration(ep *Episode, v rag.QualityVerdict, lim Limits) (State, Outcome) {
	if ep.VerificationIterations > lim.MaxVerificationIterations {
		return StateTerminate, OutcomeVerificationExhausted
	}
	if rag.IsFailureAnswer(ep.Answer) {
		return escalate(ep), ""
	}
	if len(ep.Evidence) == 0 {
		if v.AnswerChecked && v.AddressesQuestion {
			return StateTerminate, OutcomeUseful
		}
		return escalate(ep), ""
	}
	if !v.GroundednessChecked || !v.Grounded {
		if !ep.WebSearchAttempted {
			return StateWebSearch, ""
		}
		// 证据不变，只重新生成
		return StateGenerate, ""
	}
	if v.AnswerChecked && v.AddressesQuestion {
		return StateTerminate, OutcomeUseful
	}
	return escalate(ep), ""
}

// ApplyTransformQuery installs a rewritten question with a fresh retrieval budget.
func ApplyTransformQuery(ep *Episode, rewritten string) {
	if rewritten != "" {
		ep.Question = rewritten
	}
	ep.RetrievalIterations = 0
}

// ApplyRetrieve records a retrieval pass.
func ApplyRetrieve(ep *Episode, evidence []rag.Evidence) {
	ep.Evidence = evidence
	ep.RetrievalIterations++
}

// ApplyWebSearch replaces the evidence with web results; a nil result still
// marks web search as attempted.
func ApplyWebSearch(ep *Episode, res *rag.WebSearchResults) {
	ep.WebSearchAttempted = true
	ep.WebSearchResults = res
	ep.Evidence = nil
	if res != nil {
		ep.Evidence = append([]rag.Evidence(nil), res.Evidence...)
	}
}
