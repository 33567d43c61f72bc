package daemon

import (
	"encoding/json"
	"io"
	"net"
	"net/http"

	"github.com/agentdeck/agentdeck/internal/auth"
	"github.com/agentdeck/agentdeck/internal/hookrelay"
	"github.com/agentdeck/agentdeck/internal/protocol"
	"github.com/agentdeck/agentdeck/logging"
	"github.com/agentdeck/agentdeck/pkg/models"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// closeInvalidToken is the websocket close code sent when the token
// presented at upgrade time is rejected.
const closeInvalidToken = 4001

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The daemon is reached through an opaque tunnel; origin checks
	// cannot tell friend from foe, the token does.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Server owns the daemon's HTTP surface.
type Server struct {
	gate   *auth.Gate
	hub    *protocol.Hub
	relay  *hookrelay.Relay
	lister protocol.SessionLister
	logger *logrus.Entry
}

func NewServer(gate *auth.Gate, hub *protocol.Hub, relay *hookrelay.Relay, lister protocol.SessionLister) *Server {
	return &Server{
		gate:   gate,
		hub:    hub,
		relay:  relay,
		lister: lister,
		logger: logging.NewLogger("daemon"),
	}
}

// Handler builds the route table, h2c-wrapped so HTTP/2 clients work
// over the plaintext loopback listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth", s.handleAuth)
	mux.HandleFunc("GET /sessions", s.requireToken(s.handleSessions))
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("POST /hook", s.loopbackOnly(s.handleHook))
	mux.HandleFunc("GET /health", s.loopbackOnly(s.handleHealth))
	return h2c.NewHandler(mux, &http2.Server{})
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	token, err := s.gate.IssueToken(body.PIN)
	if err != nil {
		s.logger.Warn("Rejected credential")
		http.Error(w, "invalid credential", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]string{"token": token})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.lister.List(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("Listing sessions")
		http.Error(w, "session discovery failed", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	writeJSON(w, sessions)
}

// handleWS upgrades first and only then verifies the token, so a bad
// credential gets a proper close frame (4001) instead of a raw HTTP
// error the browser cannot distinguish from a network failure.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}

	if !s.gate.Validate(token) {
		s.logger.Warn("Rejected websocket token")
		ws.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(closeInvalidToken, "invalid token"))
		ws.Close()
		return
	}

	s.hub.HandleConn(ws)
}

func (s *Server) handleHook(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		http.Error(w, "unreadable body", http.StatusBadRequest)
		return
	}

	var event models.HookEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		http.Error(w, "invalid hook payload", http.StatusBadRequest)
		return
	}
	event.Raw = raw

	writeJSON(w, s.relay.Handle(event))
}

// handleHealth answers with the app marker so callers can tell this
// daemon apart from an unrelated process squatting on the port.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"app": "agentdeck"})
}

// requireToken guards a route with bearer-token auth.
func (s *Server) requireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.gate.Validate(bearerToken(r)) {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// loopbackOnly rejects requests whose TCP source is not the local
// host. Hook and health traffic must never arrive through the tunnel.
func (s *Server) loopbackOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil || !net.ParseIP(host).IsLoopback() {
			http.Error(w, "loopback only", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 1<<20))
}
