package server

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mr-tron/base58"

	"vibemint/internal/creation"
	"vibemint/internal/domain"
	"vibemint/internal/observability"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is same-origin agnostic; the wallet, not the origin, is the
	// trust boundary.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// registry tracks the open sessions.
type registry struct {
	mu       sync.Mutex
	machines map[string]*creation.Machine
}

func newRegistry() *registry {
	return &registry{machines: make(map[string]*creation.Machine)}
}

func (r *registry) add(id string, m *creation.Machine) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.machines[id] = m
}

func (r *registry) get(id string) *creation.Machine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.machines[id]
}

func (r *registry) remove(id string) *creation.Machine {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.machines[id]
	delete(r.machines, id)
	return m
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.machines)
}

// newSessionID mints a short opaque session identifier.
func newSessionID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return base58.Encode(buf)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id := newSessionID()
	m := s.newMachine(id)
	s.sessions.add(id, m)
	observability.DefaultMetrics.ActiveSessions.Inc()
	s.logger.Printf("[server] session %s opened", id)
	writeJSON(w, http.StatusCreated, m.Status())
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	m := s.sessions.get(r.PathValue("id"))
	if m == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, m.Status())
}

// generateRequest selects the reference coins and an optional prompt.
// Coins arrive inline so the gallery the user picked from stays the source
// of truth, re-fetching could reorder or drop entries mid-dialog.
type generateRequest struct {
	Coins []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Symbol   string `json:"symbol"`
		ImageURL string `json:"image_url"`
	} `json:"coins"`
	Prompt string `json:"prompt"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	m := s.sessions.get(r.PathValue("id"))
	if m == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Coins) == 0 {
		writeError(w, http.StatusBadRequest, "at least one coin is required")
		return
	}
	if len(req.Coins) > domain.MaxSelectedCoins {
		writeError(w, http.StatusBadRequest, "too many coins selected")
		return
	}

	// The selection enforces the capacity and dedup rules; a repeated coin id
	// collapses to one entry.
	selection := domain.NewSelectionSet()
	for _, c := range req.Coins {
		if c.ID == "" {
			writeError(w, http.StatusBadRequest, "coin id is required")
			return
		}
		coin := domain.Coin{ID: c.ID}
		if c.Name != "" {
			name := c.Name
			coin.Name = &name
		}
		if c.Symbol != "" {
			symbol := c.Symbol
			coin.Symbol = &symbol
		}
		if c.ImageURL != "" {
			img := c.ImageURL
			coin.ImageURL = &img
		}
		selection.Add(coin)
	}

	if err := m.Start(r.Context(), selection.Coins(), req.Prompt); err != nil {
		s.writeMachineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, m.Status())
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	m := s.sessions.get(r.PathValue("id"))
	if m == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	if err := m.Retry(r.Context()); err != nil {
		s.writeMachineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, m.Status())
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	m := s.sessions.get(r.PathValue("id"))
	if m == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	if err := m.Mint(r.Context()); err != nil {
		s.writeMachineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, m.Status())
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m := s.sessions.remove(id)
	if m == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	m.Close()
	observability.DefaultMetrics.ActiveSessions.Dec()
	s.logger.Printf("[server] session %s closed", id)
	w.WriteHeader(http.StatusNoContent)
}

// writeMachineError maps machine errors to HTTP statuses.
func (s *Server) writeMachineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, creation.ErrClosed):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, creation.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, creation.ErrWalletNotConnected):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// handleSessionEvents upgrades to a websocket and streams the session's event
// feed until the session closes or the client goes away.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m := s.sessions.get(id)
	if m == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("[server] websocket upgrade for %s failed: %v", id, err)
		return
	}
	defer conn.Close()

	observability.DefaultMetrics.WSClients.Inc()
	defer observability.DefaultMetrics.WSClients.Dec()

	// readPump: the client never sends payloads, but reading is what surfaces
	// pongs and disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-m.Events():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
