package api

import (
	"github.com/BaSui01/cricketflow/rag"
	"github.com/BaSui01/cricketflow/workflow"
)

// MaxQuestionLength 单个问题允许的最大字符数（按 rune 计）
const MaxQuestionLength = 2000

// =============================================================================
// 问答类型
// =============================================================================

// AskRequest 表示一次问答请求。
// @Description 问答请求结构
type AskRequest struct {
	// 用户的板球问题
	Question string `json:"question" validate:"required,max=2000" example:"Who scored the most runs in match 1082591?"`
}

// AskResponse 表示问答响应。answer 与 error 恰有一个非空
// @Description 问答响应结构
type AskResponse struct {
	Answer *string `json:"answer"`
	Error  *string `json:"error"`
	// 以下字段用于排障
	EpisodeID string       `json:"episode_id,omitempty" example:"0f8fad5b-d9cb-469f-a165-70867728950e"`
	Outcome   string       `json:"outcome,omitempty" example:"useful"`
	Steps     int          `json:"steps,omitempty" example:"6"`
	Sources   []rag.Source `json:"sources,omitempty"`
}

// NewAskResponse 把编排结果转换为响应体
func NewAskResponse(res workflow.Result) AskResponse {
	resp := AskResponse{
		EpisodeID: res.EpisodeID,
		Outcome:   string(res.Outcome),
		Steps:     res.Steps,
		Sources:   res.Sources,
	}
	if res.Error != "" {
		msg := res.Error
		resp.Error = &msg
	} else {
		answer := res.Answer
		resp.Answer = &answer
	}
	return resp
}

// =============================================================================
// 进度流类型 (GET /ws/ask)
// =============================================================================

// StreamMessage 类型
const (
	StreamTypeTransition = "transition"
	StreamTypeResult     = "result"
	StreamTypeError      = "error"
)

// StreamMessage 是 WebSocket 上发送的一帧
type StreamMessage struct {
	Type       string           `json:"type"`
	Transition *TransitionEvent `json:"transition,omitempty"`
	Result     *AskResponse     `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// TransitionEvent 描述一次状态迁移，不携带证据正文
type TransitionEvent struct {
	EpisodeID              string `json:"episode_id"`
	Step                   int    `json:"step"`
	From                   string `json:"from"`
	To                     string `json:"to"`
	DurationMS             int64  `json:"duration_ms"`
	Question               string `json:"question"`
	EvidenceCount          int    `json:"evidence_count"`
	RetrievalIterations    int    `json:"retrieval_iterations"`
	VerificationIterations int    `json:"verification_iterations"`
	WebSearchAttempted     bool   `json:"web_search_attempted"`
	HasAnswer              bool   `json:"has_answer"`
}

// NewTransitionEvent 从迁移快照构造事件
func NewTransitionEvent(t workflow.Transition) *TransitionEvent {
	return &TransitionEvent{
		EpisodeID:              t.EpisodeID,
		Step:                   t.Step,
		From:                   t.From.String(),
		To:                     t.To.String(),
		DurationMS:             t.Duration.Milliseconds(),
		Question:               t.Episode.Question,
		EvidenceCount:          len(t.Episode.Evidence),
		RetrievalIterations:    t.Episode.RetrievalIterations,
		VerificationIterations: t.Episode.VerificationIterations,
		WebSearchAttempted:     t.Episode.WebSearchAttempted,
		HasAnswer:              t.Episode.Answer != "",
	}
}
