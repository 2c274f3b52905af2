package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/relaylabs/chatrelay/internal/handler"
	"github.com/relaylabs/chatrelay/internal/llm"
	"github.com/relaylabs/chatrelay/internal/model"
	"github.com/relaylabs/chatrelay/internal/service"
	"github.com/relaylabs/chatrelay/internal/store/memory"
	"github.com/relaylabs/chatrelay/pkg/logger"
)

func newTestRouter(mock *llm.MockClient) http.Handler {
	st := memory.New()
	log := logger.NewNop()

	sessionSvc := service.NewSessionService(st, log)
	chatSvc := service.NewChatService(st, mock, nil, "be brief", 5*time.Second, log)

	r := chi.NewRouter()
	r.Post("/login", handler.NewSessionHandler(sessionSvc, log).Login)
	r.Post("/chat", handler.NewChatHandler(chatSvc, log).Chat)
	r.Get("/health", handler.NewHealthHandler(st).Health)
	r.Get("/ready", handler.NewHealthHandler(st).Ready)
	return r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, router http.Handler, username string) string {
	t.Helper()
	rec := postJSON(t, router, "/login", model.LoginRequest{Username: username})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.UserID)
	return resp.UserID
}

func TestLoginAndChatFlow(t *testing.T) {
	router := newTestRouter(llm.NewMockClient("hi"))

	userID := login(t, router, "alice")
	require.Equal(t, userID, login(t, router, "alice"))

	rec := postJSON(t, router, "/chat", model.ChatRequest{UserID: userID, Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "hi", resp.Reply)
}

func TestLoginRejectsBlankUsername(t *testing.T) {
	router := newTestRouter(llm.NewMockClient("hi"))

	for _, username := range []string{"", "   "} {
		rec := postJSON(t, router, "/login", model.LoginRequest{Username: username})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(llm.NewMockClient("hi"))

	req := httptest.NewRequest(http.MethodPost, "/login", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatUnknownUserIs404(t *testing.T) {
	router := newTestRouter(llm.NewMockClient("hi"))

	rec := postJSON(t, router, "/chat", model.ChatRequest{UserID: "never-issued", Message: "hello"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatRejectsEmptyFields(t *testing.T) {
	router := newTestRouter(llm.NewMockClient("hi"))
	userID := login(t, router, "alice")

	rec := postJSON(t, router, "/chat", model.ChatRequest{UserID: "", Message: "hello"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, router, "/chat", model.ChatRequest{UserID: userID, Message: ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatCompletionFailureStays200(t *testing.T) {
	mock := llm.NewMockClient("")
	mock.Err = llm.NewError(llm.KindThrottle, nil)
	router := newTestRouter(mock)

	userID := login(t, router, "alice")
	rec := postJSON(t, router, "/chat", model.ChatRequest{UserID: userID, Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Reply)
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(llm.NewMockClient("hi"))

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}
