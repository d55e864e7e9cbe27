package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BaSui01/cricketflow/api"
	"github.com/BaSui01/cricketflow/workflow"
	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dialStream(t *testing.T, h *StreamHandler) (*websocket.Conn, context.Context) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.HandleStream))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn, ctx
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) api.StreamMessage {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var msg api.StreamMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func sendQuestion(t *testing.T, ctx context.Context, conn *websocket.Conn, q string) {
	t.Helper()
	data, err := json.Marshal(api.AskRequest{Question: q})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

func TestStreamHandler_TransitionsThenResult(t *testing.T) {
	asker := &stubAsker{path: []workflow.State{
		workflow.StateRetrieve, workflow.StateGradeDocuments, workflow.StateGenerate,
		workflow.StateGradeGeneration, workflow.StateTerminate,
	}}
	conn, ctx := dialStream(t, NewStreamHandler(asker, nil, zap.NewNop()))

	sendQuestion(t, ctx, conn, "who won")

	var froms []string
	for i := 0; i < 4; i++ {
		msg := readMessage(t, ctx, conn)
		require.Equal(t, api.StreamTypeTransition, msg.Type)
		require.NotNil(t, msg.Transition)
		assert.Equal(t, i+1, msg.Transition.Step)
		assert.Equal(t, "ep-who won", msg.Transition.EpisodeID)
		froms = append(froms, msg.Transition.From)
	}
	assert.Equal(t, []string{
		workflow.StateRetrieve.String(), workflow.StateGradeDocuments.String(),
		workflow.StateGenerate.String(), workflow.StateGradeGeneration.String(),
	}, froms)

	msg := readMessage(t, ctx, conn)
	require.Equal(t, api.StreamTypeResult, msg.Type)
	require.NotNil(t, msg.Result)
	require.NotNil(t, msg.Result.Answer)
	assert.Equal(t, "answer to who won", *msg.Result.Answer)
}

func TestStreamHandler_MultipleQuestions(t *testing.T) {
	asker := &stubAsker{}
	conn, ctx := dialStream(t, NewStreamHandler(asker, nil, zap.NewNop()))

	for _, q := range []string{"first", "second"} {
		sendQuestion(t, ctx, conn, q)
		msg := readMessage(t, ctx, conn)
		require.Equal(t, api.StreamTypeResult, msg.Type)
		assert.Equal(t, "answer to "+q, *msg.Result.Answer)
	}
	assert.Equal(t, []string{"first", "second"}, asker.asked())
}

func TestStreamHandler_InvalidMessages(t *testing.T) {
	asker := &stubAsker{}
	conn, ctx := dialStream(t, NewStreamHandler(asker, nil, zap.NewNop()))

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("not json")))
	msg := readMessage(t, ctx, conn)
	assert.Equal(t, api.StreamTypeError, msg.Type)

	sendQuestion(t, ctx, conn, "   ")
	msg = readMessage(t, ctx, conn)
	assert.Equal(t, api.StreamTypeError, msg.Type)

	// 出错后连接仍可用
	sendQuestion(t, ctx, conn, "ok")
	msg = readMessage(t, ctx, conn)
	assert.Equal(t, api.StreamTypeResult, msg.Type)
	assert.Equal(t, []string{"ok"}, asker.asked())
}

// 长度按字符计，与 POST /ask 的校验一致
func TestStreamHandler_QuestionLengthCountsCharacters(t *testing.T) {
	asker := &stubAsker{}
	conn, ctx := dialStream(t, NewStreamHandler(asker, nil, zap.NewNop()))

	hindi := strings.Repeat("क", 700) // 2100 字节
	sendQuestion(t, ctx, conn, hindi)
	msg := readMessage(t, ctx, conn)
	assert.Equal(t, api.StreamTypeResult, msg.Type)

	sendQuestion(t, ctx, conn, strings.Repeat("क", api.MaxQuestionLength+1))
	msg = readMessage(t, ctx, conn)
	assert.Equal(t, api.StreamTypeError, msg.Type)
	assert.Equal(t, "invalid question", msg.Error)

	assert.Equal(t, []string{hindi}, asker.asked())
}

func TestStreamHandler_Unavailable(t *testing.T) {
	h := NewStreamHandler(nil, nil, nil)
	w := httptest.NewRecorder()
	h.HandleStream(w, httptest.NewRequest(http.MethodGet, "/ws/ask", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
