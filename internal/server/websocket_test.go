package server

import (
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"ai-learning-assistant-be/internal/dto"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listen serves app on a loopback port and returns its ws:// base URL.
func listen(t *testing.T, app *fiber.App) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.ShutdownWithTimeout(2 * time.Second) })

	return "ws://" + ln.Addr().String()
}

func dialSession(t *testing.T, baseURL, id string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(baseURL+"/api/assistant/v1/sessions/"+id+"/ws", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) dto.SessionEventMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg dto.SessionEventMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg
}

func seqOf(t *testing.T, msg dto.SessionEventMessage) uint64 {
	t.Helper()
	seq, ok := msg.Data["seq"].(float64)
	require.True(t, ok, "%s has no seq", msg.Type)
	return uint64(seq)
}

func TestWebSocketStreamsSessionEventsInOrder(t *testing.T) {
	reply := "Mitochondria make ATP.\nSource: Provided Document"
	app := newTestApp(t, &scriptedProvider{reply: reply})
	baseURL := listen(t, app)
	id := createSession(t, app)

	conn := dialSession(t, baseURL, id)

	snapshot := readEvent(t, conn)
	assert.Equal(t, "assistant.snapshot", snapshot.Type)
	assert.Equal(t, id, snapshot.Data["session_id"])
	assert.Equal(t, uint64(0), seqOf(t, snapshot))

	doc := call[dto.SessionStateResponse](t, app, "POST", "/api/assistant/v1/sessions/"+id+"/document",
		dto.SubmitDocumentRequest{Text: "Mitochondria make ATP."})
	require.Equal(t, http.StatusOK, doc.status)
	assert.Equal(t, uint64(2), doc.Data.Seq)

	ask := call[dto.AskResponse](t, app, "POST", "/api/assistant/v1/sessions/"+id+"/ask?async=true",
		dto.AskRequest{Question: "What do mitochondria make?"})
	require.Equal(t, http.StatusAccepted, ask.status)

	want := []string{
		"assistant.document_processed",
		"assistant.turn_appended",
		"assistant.turn_appended",
		"assistant.query_started",
		"assistant.turn_appended",
		"assistant.query_finished",
	}
	got := make([]dto.SessionEventMessage, 0, len(want))
	for range want {
		got = append(got, readEvent(t, conn))
	}

	for i, msg := range got {
		assert.Equal(t, want[i], msg.Type)
		assert.Equal(t, uint64(i+1), seqOf(t, msg))
		assert.Equal(t, id, msg.Data["session_id"])
	}

	userTurn := got[2].Data["turn"].(map[string]interface{})
	assert.Equal(t, "user", userTurn["role"])
	assert.Equal(t, "What do mitochondria make?", userTurn["content"])

	modelTurn := got[4].Data["turn"].(map[string]interface{})
	assert.Equal(t, "model", modelTurn["role"])
	assert.Equal(t, reply, modelTurn["content"])
	assert.Equal(t, true, got[5].Data["success"])
}

func TestWebSocketLateSubscriberSnapshot(t *testing.T) {
	app := newTestApp(t, &scriptedProvider{reply: "Yes.\nSource: Provided Document"})
	baseURL := listen(t, app)
	id := createSession(t, app)

	call[any](t, app, "POST", "/api/assistant/v1/sessions/"+id+"/document", dto.SubmitDocumentRequest{Text: "doc"})
	call[any](t, app, "POST", "/api/assistant/v1/sessions/"+id+"/ask", dto.AskRequest{Question: "q"})

	conn := dialSession(t, baseURL, id)

	snapshot := readEvent(t, conn)
	require.Equal(t, "assistant.snapshot", snapshot.Type)
	assert.Equal(t, uint64(6), seqOf(t, snapshot))

	state := snapshot.Data["state"].(map[string]interface{})
	assert.Len(t, state["turns"], 3)
	assert.Equal(t, "ready", state["phase"])
	assert.EqualValues(t, 6, state["seq"])

	call[any](t, app, "POST", "/api/assistant/v1/sessions/"+id+"/ask", dto.AskRequest{Question: "again?"})

	next := readEvent(t, conn)
	assert.Equal(t, "assistant.turn_appended", next.Type)
	assert.Equal(t, uint64(7), seqOf(t, next))
}

func TestWebSocketClosedWhenSessionDeleted(t *testing.T) {
	app := newTestApp(t, &scriptedProvider{})
	baseURL := listen(t, app)
	id := createSession(t, app)

	conn := dialSession(t, baseURL, id)
	require.Equal(t, "assistant.snapshot", readEvent(t, conn).Type)

	deleted := call[any](t, app, "DELETE", "/api/assistant/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, deleted.status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	assert.ErrorAs(t, err, &closeErr)
}

func TestWebSocketUnknownSession(t *testing.T) {
	app := newTestApp(t, &scriptedProvider{})
	baseURL := listen(t, app)

	_, resp, err := websocket.DefaultDialer.Dial(baseURL+"/api/assistant/v1/sessions/7f1c2b4e-8a0d-4c8e-9b1a-2d3e4f5a6b7c/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
