package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/BaSui01/cricketflow/api"
	"github.com/BaSui01/cricketflow/types"
	"github.com/BaSui01/cricketflow/workflow"
	"github.com/coder/websocket"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// =============================================================================
// 📡 问答进度流 Handler (GET /ws/ask)
// =============================================================================

const (
	// wsEventBuffer 每个回合的迁移事件缓冲，写端阻塞时丢弃多余事件
	wsEventBuffer  = 32
	wsWriteTimeout = 10 * time.Second
)

// StreamHandler 通过 WebSocket 推送回合的状态迁移与最终结果
type StreamHandler struct {
	asker          Asker
	validate       *validator.Validate
	logger         *zap.Logger
	originPatterns []string
}

// NewStreamHandler 创建进度流处理器。originPatterns 为空时只允许同源
func NewStreamHandler(asker Asker, originPatterns []string, logger *zap.Logger) *StreamHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{
		asker:          asker,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		originPatterns: originPatterns,
		logger:         logger.With(zap.String("component", "ws_ask")),
	}
}

// HandleStream 升级连接后循环读取问题。每个问题先推送若干 transition 帧，再推送一帧 result
// @Summary 问答进度流
// @Tags 问答
// @Router /ws/ask [get]
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if h.asker == nil {
		WriteError(w, types.NewServiceUnavailableError("agent is not initialized"), h.logger)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	stream := &wsStream{conn: conn}
	defer stream.close()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure && !errors.Is(err, context.Canceled) {
				h.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}

		var req api.AskRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if werr := stream.write(ctx, api.StreamMessage{Type: api.StreamTypeError, Error: "invalid JSON message"}); werr != nil {
				return
			}
			continue
		}
		question, verr := validateQuestion(h.validate, req)
		if verr != nil {
			if werr := stream.write(ctx, api.StreamMessage{Type: api.StreamTypeError, Error: verr.Message}); werr != nil {
				return
			}
			continue
		}

		if err := h.answer(ctx, stream, question); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
}

// answer 运行一个回合。观察者只向缓冲通道投递，写 goroutine 负责发送
func (h *StreamHandler) answer(ctx context.Context, stream *wsStream, question string) error {
	events := make(chan workflow.Transition, wsEventBuffer)
	done := make(chan error, 1)

	go func() {
		var writeErr error
		for t := range events {
			if writeErr != nil {
				continue
			}
			writeErr = stream.write(ctx, api.StreamMessage{
				Type:       api.StreamTypeTransition,
				Transition: api.NewTransitionEvent(t),
			})
		}
		done <- writeErr
	}()

	observer := workflow.ObserverFunc(func(_ context.Context, t workflow.Transition) {
		select {
		case events <- t:
		default:
			h.logger.Debug("transition event dropped",
				zap.String("episode_id", t.EpisodeID),
				zap.Int("step", t.Step),
			)
		}
	})

	res := h.asker.Ask(ctx, question, workflow.WithEpisodeObserver(observer))
	close(events)
	if err := <-done; err != nil {
		return err
	}

	resp := api.NewAskResponse(res)
	return stream.write(ctx, api.StreamMessage{Type: api.StreamTypeResult, Result: &resp})
}

// wsStream 串行化写操作，WebSocket 不支持并发写
type wsStream struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed bool
}

func (s *wsStream) write(ctx context.Context, msg api.StreamMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("connection closed")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal stream message: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	if err := s.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

func (s *wsStream) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	_ = s.conn.Close(websocket.StatusNormalClosure, "closing")
}
