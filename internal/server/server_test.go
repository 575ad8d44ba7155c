package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct {
	lastThread  string
	lastMessage string
	reply       string
	err         error
}

func (s *stubChat) Chat(_ context.Context, threadID, message string) (string, error) {
	s.lastThread = threadID
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func testServer(chat *stubChat) *Server {
	return New(Config{Addr: ":0", WebhookToken: "secreto"}, chat, func(context.Context) map[string]string {
		return map[string]string{"stock": "ok"}
	})
}

func TestChat_NewThreadGetsGeneratedID(t *testing.T) {
	chat := &stubChat{reply: "Hola, soy Jaime."}
	srv := testServer(chat)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"hola"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Hola, soy Jaime.", resp.Reply)
	assert.NotEmpty(t, resp.ThreadID)
	assert.Equal(t, resp.ThreadID, rec.Header().Get("X-Thread-Id"))
	assert.Equal(t, resp.ThreadID, chat.lastThread)
	assert.Equal(t, "hola", chat.lastMessage)
}

func TestChat_ExistingThreadIDIsKept(t *testing.T) {
	chat := &stubChat{reply: "ok"}
	srv := testServer(chat)

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"la 2","thread_id":"t-42"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	var resp chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "t-42", resp.ThreadID)
	assert.Equal(t, "t-42", chat.lastThread)
}

func TestChat_BadJSONAndWrongMethod(t *testing.T) {
	srv := testServer(&stubChat{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChat_HandlerErrorReturns500(t *testing.T) {
	srv := testServer(&stubChat{err: fmt.Errorf("redis down")})

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"hola"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	srv := testServer(&stubChat{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "ok", status["stock"])
}

func TestWebhookVerification(t *testing.T) {
	srv := testServer(&stubChat{})

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=secreto&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=otro&hub.challenge=12345", nil)
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := testServer(&stubChat{})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
