package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BaSui01/cricketflow/config"
	"github.com/BaSui01/cricketflow/internal/ctxkeys"
	"github.com/BaSui01/cricketflow/rag"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrNoAnswer is surfaced when an episode ends without any answer text.
const ErrNoAnswer = "Agent finished processing, but could not determine a final answer."

// =============================================================================
// Collaborators
// =============================================================================

// Retriever returns evidence for a question. An error means "no evidence".
type Retriever interface {
	Retrieve(ctx context.Context, question string) ([]rag.Evidence, error)
}

// LiveSource is a Retriever that can tell cheaply whether it has data.
type LiveSource interface {
	Retriever
	Available() bool
}

// WebSearcher is consulted only on escalation.
type WebSearcher interface {
	WebSearch(ctx context.Context, question string) (*rag.WebSearchResults, error)
}

// DocumentGrader filters non-privileged evidence.
type DocumentGrader interface {
	Grade(ctx context.Context, question string, items []rag.Evidence) []rag.Evidence
}

// QualityGrader checks a generated answer.
type QualityGrader interface {
	Grounded(ctx context.Context, evidence []rag.Evidence, answer string) (bool, error)
	AddressesQuestion(ctx context.Context, question, answer string) (bool, error)
}

// Generator never fails; failures come back as marked answer text.
type Generator interface {
	Generate(ctx context.Context, question string, evidence []rag.Evidence) string
}

// Rewriter returns the original question when it cannot do better.
type Rewriter interface {
	Rewrite(ctx context.Context, question string) string
}

// Recorder receives episode level metrics.
type Recorder interface {
	RecordEpisode(outcome string, steps int, duration time.Duration)
	RecordStateTransition(from, to string)
	RecordEvidence(source, status string, duration time.Duration)
}

// Components wires the orchestrator. Sources and their classifiers are
// optional; a source without its classifier is never consulted.
type Components struct {
	Live                 LiveSource
	LiveQuickCheck       rag.Classifier
	LiveClassifier       rag.Classifier
	Structured           Retriever
	StructuredClassifier rag.Classifier
	Semantic             Retriever
	Web                  WebSearcher

	DocumentGrader DocumentGrader
	QualityGrader  QualityGrader
	Generator      Generator
	Rewriter       Rewriter
}

func (c Components) validate() error {
	switch {
	case c.DocumentGrader == nil:
		return errors.New("document grader is required")
	case c.QualityGrader == nil:
		return errors.New("quality grader is required")
	case c.Generator == nil:
		return errors.New("generator is required")
	case c.Rewriter == nil:
		return errors.New("rewriter is required")
	}
	return nil
}

// Config 编排参数
type Config struct {
	// MaxSteps 全局步数上限，耗尽时返回最后一次生成的答案
	MaxSteps int `json:"max_steps"`
	// CallTimeout 单次检索/分类/评分调用超时，超时视为失败
	CallTimeout time.Duration `json:"call_timeout"`
	Limits      Limits        `json:"limits"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{MaxSteps: 15, CallTimeout: 30 * time.Second, Limits: DefaultLimits()}
}

// ConfigFrom maps the agent section of the service config.
func ConfigFrom(ac config.AgentConfig) Config {
	c := DefaultConfig()
	if ac.MaxSteps > 0 {
		c.MaxSteps = ac.MaxSteps
	}
	if ac.CallTimeout > 0 {
		c.CallTimeout = ac.CallTimeout
	}
	if ac.MaxRetrievalIterations > 0 {
		c.Limits.MaxRetrievalIterations = ac.MaxRetrievalIterations
	}
	if ac.MaxVerificationIterations > 0 {
		c.Limits.MaxVerificationIterations = ac.MaxVerificationIterations
	}
	return c
}

// =============================================================================
// Observation
// =============================================================================

// Transition is emitted after every executed state.
type Transition struct {
	EpisodeID string        `json:"episode_id"`
	Step      int           `json:"step"`
	From      State         `json:"from"`
	To        State         `json:"to"`
	Duration  time.Duration `json:"duration"`
	Episode   Episode       `json:"episode"`
}

// Observer is notified synchronously; implementations must not block.
type Observer interface {
	OnTransition(ctx context.Context, t Transition)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, t Transition)

// OnTransition implements Observer.
func (f ObserverFunc) OnTransition(ctx context.Context, t Transition) { f(ctx, t) }

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithObserver adds an observer notified for every episode.
func WithObserver(obs Observer) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, obs) }
}

// WithIDGenerator replaces the uuid episode ids, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// AskOption configures a single Ask call.
type AskOption func(*askOptions)

type askOptions struct {
	observers []Observer
}

// WithEpisodeObserver adds an observer for this episode only.
func WithEpisodeObserver(obs Observer) AskOption {
	return func(a *askOptions) { a.observers = append(a.observers, obs) }
}

// EpisodeObservers returns the per-episode observers carried by opts, for
// types that stand in for an Orchestrator behind an interface.
func EpisodeObservers(opts ...AskOption) []Observer {
	var ao askOptions
	for _, opt := range opts {
		opt(&ao)
	}
	return ao.observers
}

// =============================================================================
// Orchestrator
// =============================================================================

// Result is what callers see. Exactly one of Answer and Error is non-empty.
type Result struct {
	Answer    string  `json:"answer,omitempty"`
	Error     string  `json:"error,omitempty"`
	EpisodeID string  `json:"episode_id"`
	Steps     int     `json:"steps"`
	Outcome   Outcome `json:"outcome"`
	// Sources of the evidence behind the final answer.
	Sources []rag.Source `json:"sources,omitempty"`
}

// Orchestrator drives episodes through the state machine. It holds no
// per-episode state and is safe for concurrent use.
type Orchestrator struct {
	c         Components
	cfg       Config
	logger    *zap.Logger
	recorder  Recorder
	observers []Observer
	tracer    trace.Tracer
	newID     func() string
}

// NewOrchestrator validates the components and applies defaults.
func NewOrchestrator(c Components, cfg Config, opts ...Option) (*Orchestrator, error) {
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("workflow: %w", err)
	}
	def := DefaultConfig()
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = def.MaxSteps
	}
	if cfg.Limits.MaxRetrievalIterations <= 0 {
		cfg.Limits.MaxRetrievalIterations = def.Limits.MaxRetrievalIterations
	}
	if cfg.Limits.MaxVerificationIterations <= 0 {
		cfg.Limits.MaxVerificationIterations = def.Limits.MaxVerificationIterations
	}

	o := &Orchestrator{
		c:      c,
		cfg:    cfg,
		logger: zap.NewNop(),
		tracer: otel.Tracer("cricketflow/workflow"),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("component", "orchestrator"))
	return o, nil
}

// Ask answers one question. It never returns a Go error: every failure is
// folded into Result.Error.
func (o *Orchestrator) Ask(ctx context.Context, question string, opts ...AskOption) Result {
	var ao askOptions
	for _, opt := range opts {
		opt(&ao)
	}

	ep := NewEpisode(o.newID(), question)
	ctx = ctxkeys.WithEpisodeID(ctx, ep.ID)
	ctx, span := o.tracer.Start(ctx, "episode", trace.WithAttributes(attribute.String("episode.id", ep.ID)))
	defer span.End()

	logger := o.logger.With(zap.String("episode_id", ep.ID))
	logger.Info("episode started", zap.String("question", question))

	start := time.Now()
	steps, outcome, err := o.run(ctx, ep, logger, ao.observers)

	res := Result{EpisodeID: ep.ID, Steps: steps, Outcome: outcome}
	switch {
	case err != nil:
		res.Error = err.Error()
		span.SetStatus(codes.Error, err.Error())
	case ep.Answer == "":
		res.Error = ErrNoAnswer
		span.SetStatus(codes.Error, ErrNoAnswer)
	default:
		res.Answer = ep.Answer
		res.Sources = rag.Sources(ep.Evidence)
	}
	span.SetAttributes(
		attribute.Int("episode.steps", steps),
		attribute.String("episode.outcome", string(outcome)),
	)

	if o.recorder != nil {
		o.recorder.RecordEpisode(string(outcome), steps, time.Since(start))
	}
	logger.Info("episode finished",
		zap.String("outcome", string(outcome)),
		zap.Int("steps", steps),
		zap.Int("retrieval_iterations", ep.RetrievalIterations),
		zap.Int("verification_iterations", ep.VerificationIterations),
		zap.Bool("web_search_attempted", ep.WebSearchAttempted),
		zap.Duration("duration", time.Since(start)),
	)
	return res
}

// run executes states until TERMINATE or the step budget is spent.
func (o *Orchestrator) run(ctx context.Context, ep *Episode, logger *zap.Logger, extra []Observer) (int, Outcome, error) {
	state := StateRetrieve
	outcome := Outcome("")

	for step := 0; ; step++ {
		if state == StateTerminate {
			return step, outcome, nil
		}
		if step >= o.cfg.MaxSteps {
			logger.Warn("step budget exhausted, returning last answer",
				zap.Int("max_steps", o.cfg.MaxSteps),
				zap.String("state", string(state)))
			return step, OutcomeStepBudgetExhausted, nil
		}
		if err := ctx.Err(); err != nil {
			return step, OutcomeFailed, fmt.Errorf("episode aborted: %w", err)
		}

		stepCtx, span := o.tracer.Start(ctx, string(state),
			trace.WithAttributes(attribute.Int("episode.step", step)))
		started := time.Now()
		next, out := o.execute(stepCtx, state, ep, logger)
		span.SetAttributes(attribute.String("next_state", string(next)))
		span.End()

		logger.Debug("state executed",
			zap.String("state", string(state)),
			zap.String("next", string(next)),
			zap.Int("evidence", len(ep.Evidence)),
		)
		if o.recorder != nil {
			o.recorder.RecordStateTransition(string(state), string(next))
		}
		o.notify(ctx, extra, Transition{
			EpisodeID: ep.ID,
			Step:      step + 1,
			From:      state,
			To:        next,
			Duration:  time.Since(started),
			Episode:   ep.Snapshot(),
		})

		state, outcome = next, out
	}
}

func (o *Orchestrator) notify(ctx context.Context, extra []Observer, t Transition) {
	for _, obs := range o.observers {
		obs.OnTransition(ctx, t)
	}
	for _, obs := range extra {
		obs.OnTransition(ctx, t)
	}
}

// execute runs one state and returns the next one.
func (o *Orchestrator) execute(ctx context.Context, state State, ep *Episode, logger *zap.Logger) (State, Outcome) {
	switch state {
	case StateRetrieve:
		ApplyRetrieve(ep, o.retrieve(ctx, ep.Question, logger))
		return StateGradeDocuments, ""

	case StateGradeDocuments:
		ep.Evidence = o.c.DocumentGrader.Grade(ctx, ep.Question, ep.Evidence)
		return NextAfterGradeDocuments(ep, o.cfg.Limits), ""

	case StateGenerate:
		ep.Answer = o.c.Generator.Generate(ctx, ep.Question, ep.Evidence)
		return StateGradeGeneration, ""

	case StateGradeGeneration:
		ep.VerificationIterations++
		v := o.gradeGeneration(ctx, ep, logger)
		next, out := NextAfterGradeGeneration(ep, v, o.cfg.Limits)
		if out == OutcomeVerificationExhausted {
			logger.Warn("verification budget exhausted, accepting unverified answer",
				zap.Int("verification_iterations", ep.VerificationIterations))
		}
		return next, out

	case StateTransformQuery:
		rewritten := o.c.Rewriter.Rewrite(ctx, ep.Question)
		logger.Info("question rewritten", zap.String("from", ep.Question), zap.String("to", rewritten))
		ApplyTransformQuery(ep, rewritten)
		return StateRetrieve, ""

	case StateWebSearch:
		ApplyWebSearch(ep, o.webSearch(ctx, ep.Question, logger))
		return StateGradeDocuments, ""
	}
	// 未知状态直接结束，保证终止
	logger.Error("unknown state", zap.String("state", string(state)))
	return StateTerminate, OutcomeFailed
}

// gradeGeneration runs the graders PlanGenerationCheck asks for. Failures
// leave the verdict negative.
func (o *Orchestrator) gradeGeneration(ctx context.Context, ep *Episode, logger *zap.Logger) rag.QualityVerdict {
	var v rag.QualityVerdict

	answerCheck := func() {
		cctx, cancel := o.callContext(ctx)
		defer cancel()
		ok, err := o.c.QualityGrader.AddressesQuestion(cctx, ep.Question, ep.Answer)
		if err != nil {
			logger.Warn("answer grader failed, treating as not useful", zap.Error(err))
			ok = false
		}
		v.AnswerChecked, v.AddressesQuestion = true, ok
	}

	switch PlanGenerationCheck(ep, o.cfg.Limits) {
	case CheckAnswerOnly:
		answerCheck()
	case CheckGroundedFirst:
		cctx, cancel := o.callContext(ctx)
		ok, err := o.c.QualityGrader.Grounded(cctx, ep.Evidence, ep.Answer)
		cancel()
		if err != nil {
			logger.Warn("groundedness grader failed, treating as not grounded", zap.Error(err))
			ok = false
		}
		v.GroundednessChecked, v.Grounded = true, ok
		if ok {
			answerCheck()
		}
	}
	return v
}

func (o *Orchestrator) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, o.cfg.CallTimeout)
}

// =============================================================================
// Retrieval
// =============================================================================

// retrieve consults sources in fixed order: live snapshot, structured
// query, semantic search. Live evidence short-circuits the pass.
func (o *Orchestrator) retrieve(ctx context.Context, question string, logger *zap.Logger) []rag.Evidence {
	if live := o.liveEvidence(ctx, question, logger); len(live) > 0 {
		return live
	}

	var evidence []rag.Evidence
	if o.c.Structured != nil && o.classify(ctx, o.c.StructuredClassifier, question, logger) {
		evidence = append(evidence, o.fetch(ctx, string(rag.SourceStructuredQuery), o.c.Structured, question, logger)...)
	}
	if o.c.Semantic != nil {
		evidence = append(evidence, o.fetch(ctx, string(rag.SourceSemanticSearch), o.c.Semantic, question, logger)...)
	}
	return evidence
}

func (o *Orchestrator) liveEvidence(ctx context.Context, question string, logger *zap.Logger) []rag.Evidence {
	if o.c.Live == nil || !o.c.Live.Available() {
		return nil
	}
	// 快速判定命中时跳过完整分类器
	if o.c.LiveQuickCheck != nil && o.classify(ctx, o.c.LiveQuickCheck, question, logger) {
		if ev := o.fetch(ctx, string(rag.SourceLiveSnapshot), o.c.Live, question, logger); len(ev) > 0 {
			return ev
		}
	}
	if o.classify(ctx, o.c.LiveClassifier, question, logger) {
		return o.fetch(ctx, string(rag.SourceLiveSnapshot), o.c.Live, question, logger)
	}
	return nil
}

// classify fails closed: a missing classifier or an error means "no".
func (o *Orchestrator) classify(ctx context.Context, c rag.Classifier, question string, logger *zap.Logger) bool {
	if c == nil {
		return false
	}
	cctx, cancel := o.callContext(ctx)
	defer cancel()
	v, err := c.Classify(cctx, question)
	if err != nil {
		logger.Warn("classifier failed, treating as not relevant",
			zap.String("classifier", c.Name()), zap.Error(err))
		return false
	}
	logger.Debug("classified", zap.String("classifier", c.Name()), zap.Bool("relevant", v.IsRelevant))
	return v.IsRelevant
}

func (o *Orchestrator) fetch(ctx context.Context, source string, r Retriever, question string, logger *zap.Logger) []rag.Evidence {
	cctx, cancel := o.callContext(ctx)
	defer cancel()
	start := time.Now()
	ev, err := r.Retrieve(cctx, question)
	status := "ok"
	switch {
	case err != nil:
		status = "error"
		logger.Warn("evidence provider failed", zap.String("source", source), zap.Error(err))
		ev = nil
	case len(ev) == 0:
		status = "empty"
	}
	if o.recorder != nil {
		o.recorder.RecordEvidence(source, status, time.Since(start))
	}
	return ev
}

func (o *Orchestrator) webSearch(ctx context.Context, question string, logger *zap.Logger) *rag.WebSearchResults {
	if o.c.Web == nil {
		logger.Info("web search not configured, skipping")
		return nil
	}
	cctx, cancel := o.callContext(ctx)
	defer cancel()
	start := time.Now()
	res, err := o.c.Web.WebSearch(cctx, question)
	status := "ok"
	switch {
	case err != nil:
		status = "error"
		logger.Warn("web search failed", zap.Error(err))
		res = nil
	case res == nil || len(res.Evidence) == 0:
		status = "empty"
	}
	if o.recorder != nil {
		o.recorder.RecordEvidence(string(rag.SourceWebSearch), status, time.Since(start))
	}
	return res
}
