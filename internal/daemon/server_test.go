package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agentdeck/agentdeck/config"
	"github.com/agentdeck/agentdeck/internal/auth"
	"github.com/agentdeck/agentdeck/internal/bridge"
	"github.com/agentdeck/agentdeck/internal/hookrelay"
	"github.com/agentdeck/agentdeck/internal/notify"
	"github.com/agentdeck/agentdeck/internal/protocol"
	"github.com/agentdeck/agentdeck/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticLister struct {
	sessions []models.Session
}

func (l staticLister) List(ctx context.Context) ([]models.Session, error) { return l.sessions, nil }

func newTestServer(t *testing.T, pin string) (*httptest.Server, *auth.Gate) {
	t.Helper()
	gate, err := auth.NewGate(pin)
	require.NoError(t, err)

	manager := bridge.NewManager(func(string, uint16, uint16) (bridge.PTYHandle, error) {
		t.Fatal("unexpected PTY start")
		return nil, nil
	}, 1024)
	hub := protocol.NewHub(manager, staticLister{}, notify.NewStore(), config.DecisionKeysConfig{Mode: "none"})
	relay := hookrelay.New(hub)

	srv := httptest.NewServer(NewServer(gate, hub, relay, staticLister{}).Handler())
	t.Cleanup(srv.Close)
	return srv, gate
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func TestAuthIssuesToken(t *testing.T) {
	srv, gate := newTestServer(t, "123456")

	resp := postJSON(t, srv.URL+"/auth", map[string]string{"pin": "123456"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, gate.Validate(body.Token))
}

func TestAuthRejectsWrongPIN(t *testing.T) {
	srv, _ := newTestServer(t, "123456")

	resp := postJSON(t, srv.URL+"/auth", map[string]string{"pin": "000000"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSessionsRequiresToken(t *testing.T) {
	srv, gate := newTestServer(t, "123456")

	resp, err := http.Get(srv.URL + "/sessions")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := gate.IssueToken("123456")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/sessions", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var sessions []models.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sessions))
	assert.Empty(t, sessions)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, "123456")

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "agentdeck", body["app"])
}

func TestHookAnswersSynchronously(t *testing.T) {
	srv, _ := newTestServer(t, "123456")

	// No viewer is connected; the answer must still come back fast.
	start := time.Now()
	resp := postJSON(t, srv.URL+"/hook", map[string]interface{}{
		"hook_event_name": "PreToolUse",
		"tool_name":       "Bash",
		"tool_input":      map[string]string{"command": "ls"},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Less(t, time.Since(start), time.Second)

	var answer models.HookResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Equal(t, hookrelay.BehaviorPass, answer.Behavior)
	assert.NotEmpty(t, answer.ID)
}

func TestLoopbackOnlyRejectsRemoteSources(t *testing.T) {
	gate, err := auth.NewGate("123456")
	require.NoError(t, err)
	s := NewServer(gate, nil, hookrelay.New(), staticLister{})

	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(`{}`))
	req.RemoteAddr = "203.0.113.9:50000"
	rec := httptest.NewRecorder()
	s.loopbackOnly(s.handleHook)(rec, req)

	// Rejected before the relay ever sees the event.
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebsocketRejectsBadTokenWith4001(t *testing.T) {
	srv, _ := newTestServer(t, "123456")
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=bogus"

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	_, _, err = ws.ReadMessage()
	require.Error(t, err)
	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close frame, got %v", err)
	assert.Equal(t, 4001, closeErr.Code)
}

func TestWebsocketAcceptsValidToken(t *testing.T) {
	srv, gate := newTestServer(t, "123456")
	token, err := gate.IssueToken("123456")
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err)

	var env struct {
		Type string `json:"type"`
	}
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, "sessions", env.Type)
}
