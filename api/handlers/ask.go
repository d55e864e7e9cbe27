package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/BaSui01/cricketflow/api"
	"github.com/BaSui01/cricketflow/internal/ctxkeys"
	"github.com/BaSui01/cricketflow/types"
	"github.com/BaSui01/cricketflow/workflow"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// =============================================================================
// 🏏 问答接口 Handler
// =============================================================================

// Asker 回答单个问题，*workflow.Orchestrator 满足该接口
type Asker interface {
	Ask(ctx context.Context, question string, opts ...workflow.AskOption) workflow.Result
}

// AskHandler 问答接口处理器
type AskHandler struct {
	asker    Asker
	validate *validator.Validate
	logger   *zap.Logger
}

// NewAskHandler 创建问答处理器。asker 为 nil 时所有请求返回 503
func NewAskHandler(asker Asker, logger *zap.Logger) *AskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AskHandler{
		asker:    asker,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.With(zap.String("component", "ask_handler")),
	}
}

// HandleAsk 处理问答请求
// @Summary 回答板球问题
// @Description 运行一次检索-评分-生成-自我纠正回合
// @Tags 问答
// @Accept json
// @Produce json
// @Param request body api.AskRequest true "问答请求"
// @Success 200 {object} api.AskResponse "回答或无法回答的说明"
// @Failure 400 {object} Response "无效请求"
// @Failure 503 {object} Response "编排器不可用"
// @Security ApiKeyAuth
// @Router /ask [post]
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	if h.asker == nil {
		WriteError(w, types.NewServiceUnavailableError("agent is not initialized"), h.logger)
		return
	}
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.AskRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	question, err := h.question(req)
	if err != nil {
		WriteError(w, err, h.logger)
		return
	}

	res := h.asker.Ask(r.Context(), question)
	fields := []zap.Field{
		zap.String("episode_id", res.EpisodeID),
		zap.String("outcome", string(res.Outcome)),
		zap.Int("steps", res.Steps),
	}
	if principal, ok := ctxkeys.Principal(r.Context()); ok {
		fields = append(fields, zap.String("principal", principal))
	}
	h.logger.Debug("question answered", fields...)
	WriteJSON(w, http.StatusOK, api.NewAskResponse(res))
}

// question 校验并规范化问题文本
func (h *AskHandler) question(req api.AskRequest) (string, *types.Error) {
	return validateQuestion(h.validate, req)
}

// validateQuestion 去除首尾空白后按 AskRequest 的校验标签检查，长度按字符计
func validateQuestion(validate *validator.Validate, req api.AskRequest) (string, *types.Error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return "", types.NewInvalidRequestError("question must not be empty")
	}
	req.Question = question
	if err := validate.Struct(req); err != nil {
		return "", types.NewInvalidRequestError("invalid question").WithCause(err)
	}
	return question, nil
}
