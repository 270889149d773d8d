// Package server exposes the HTTP API: market gallery, identity lookups, the
// creations ledger and the per-session creation pipeline with its websocket
// event feed.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vibemint/internal/creation"
	"vibemint/internal/domain"
	"vibemint/internal/market"
	"vibemint/internal/observability"
	"vibemint/internal/storage"
)

const (
	defaultCoinCount = 20
	maxCoinCount     = 100
)

// CoinLister serves ranked market pages. Satisfied by market.Gateway.
type CoinLister interface {
	FetchRankedPage(ctx context.Context, criterion domain.ListCriterion, count int, after string) *market.Page
}

// IdentityResolver looks up profiles and accounts by wallet address.
// Satisfied by identity.Resolver.
type IdentityResolver interface {
	ResolveProfile(ctx context.Context, address string) domain.Profile
	ResolveAccount(ctx context.Context, address string) domain.Account
}

// MachineFactory builds the creation machine for a new session.
type MachineFactory func(sessionID string) *creation.Machine

// Server is the HTTP API. Construct with New, mount via Handler.
type Server struct {
	market     CoinLister
	identity   IdentityResolver
	creations  storage.CreationStore
	newMachine MachineFactory
	logger     *log.Logger
	started    time.Time

	sessions *registry
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Market     CoinLister
	Identity   IdentityResolver
	Creations  storage.CreationStore
	NewMachine MachineFactory
}

// New creates a Server.
func New(deps Deps, logger *log.Logger) *Server {
	return &Server{
		market:     deps.Market,
		identity:   deps.Identity,
		creations:  deps.Creations,
		newMachine: deps.NewMachine,
		logger:     logger,
		started:    time.Now(),
		sessions:   newRegistry(),
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.instrument("/status", s.handleStatus))

	mux.HandleFunc("GET /api/coins", s.instrument("/api/coins", s.handleCoins))
	mux.HandleFunc("GET /api/profile", s.instrument("/api/profile", s.handleProfile))
	mux.HandleFunc("GET /api/account", s.instrument("/api/account", s.handleAccount))
	mux.HandleFunc("GET /api/creations", s.instrument("/api/creations", s.handleCreations))

	mux.HandleFunc("POST /api/sessions", s.instrument("/api/sessions", s.handleCreateSession))
	mux.HandleFunc("GET /api/sessions/{id}", s.instrument("/api/sessions/{id}", s.handleSessionStatus))
	mux.HandleFunc("POST /api/sessions/{id}/generate", s.instrument("/api/sessions/{id}/generate", s.handleGenerate))
	mux.HandleFunc("POST /api/sessions/{id}/retry", s.instrument("/api/sessions/{id}/retry", s.handleRetry))
	mux.HandleFunc("POST /api/sessions/{id}/mint", s.instrument("/api/sessions/{id}/mint", s.handleMint))
	mux.HandleFunc("DELETE /api/sessions/{id}", s.instrument("/api/sessions/{id}", s.handleCloseSession))
	mux.HandleFunc("GET /api/sessions/{id}/ws", s.handleSessionEvents)

	return mux
}

// instrument records request latency per route.
func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		observability.DefaultMetrics.APIRequestLatency.
			WithLabelValues(route, r.Method).
			Observe(time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusResponse is the JSON response for /status.
type statusResponse struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	ActiveSessions int    `json:"active_sessions"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:         "running",
		Uptime:         time.Since(s.started).String(),
		ActiveSessions: s.sessions.len(),
	})
}

// coinJSON is one gallery entry. Nullable market numbers stay null in the
// response rather than collapsing to zero.
type coinJSON struct {
	ID                string   `json:"id"`
	DisplayName       string   `json:"display_name"`
	Name              *string  `json:"name"`
	Symbol            *string  `json:"symbol"`
	ImageURL          string   `json:"image_url"`
	Volume24h         *float64 `json:"volume_24h"`
	MarketCap         *float64 `json:"market_cap"`
	MarketCapDelta24h *float64 `json:"market_cap_delta_24h"`
	UniqueHolders     *float64 `json:"unique_holders"`
}

type coinsResponse struct {
	Coins  []coinJSON `json:"coins"`
	Cursor string     `json:"cursor,omitempty"`
}

func (s *Server) handleCoins(w http.ResponseWriter, r *http.Request) {
	criterion := domain.ListVolume
	switch strings.ToLower(r.URL.Query().Get("list")) {
	case "", "volume":
	case "gainers":
		criterion = domain.ListGainers
	default:
		writeError(w, http.StatusBadRequest, "unknown list, expected volume or gainers")
		return
	}

	count := defaultCoinCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "count must be a positive integer")
			return
		}
		if n > maxCoinCount {
			n = maxCoinCount
		}
		count = n
	}

	page := s.market.FetchRankedPage(r.Context(), criterion, count, r.URL.Query().Get("after"))
	if page == nil {
		writeError(w, http.StatusBadGateway, "market fetch failed")
		return
	}

	resp := coinsResponse{Coins: make([]coinJSON, 0, len(page.Coins)), Cursor: page.Cursor}
	for _, c := range page.Coins {
		resp.Coins = append(resp.Coins, coinJSON{
			ID:                c.ID,
			DisplayName:       c.DisplayName(),
			Name:              c.Name,
			Symbol:            c.Symbol,
			ImageURL:          market.ResolveImageURL(c),
			Volume24h:         c.Volume24h,
			MarketCap:         c.MarketCap,
			MarketCapDelta24h: c.MarketCapDelta24h,
			UniqueHolders:     c.UniqueHolders,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type profileResponse struct {
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatar_url"`
	Exists    bool   `json:"exists"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}
	p := s.identity.ResolveProfile(r.Context(), addr)
	writeJSON(w, http.StatusOK, profileResponse{Handle: p.Handle, AvatarURL: p.AvatarURL, Exists: p.Exists})
}

type accountResponse struct {
	ID                       string `json:"id"`
	WalletAddress            string `json:"wallet_address"`
	AutoMintEnabled          bool   `json:"auto_mint_enabled"`
	SentimentAnalysisEnabled bool   `json:"sentiment_analysis_enabled"`
	BasePrompt               string `json:"base_prompt"`
	Exists                   bool   `json:"exists"`
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}
	a := s.identity.ResolveAccount(r.Context(), addr)
	writeJSON(w, http.StatusOK, accountResponse{
		ID:                       a.ID,
		WalletAddress:            a.WalletAddress,
		AutoMintEnabled:          a.AutoMintEnabled,
		SentimentAnalysisEnabled: a.SentimentAnalysisEnabled,
		BasePrompt:               a.BasePrompt,
		Exists:                   a.Exists,
	})
}

type creationJSON struct {
	SessionID     string    `json:"session_id"`
	WalletAddress string    `json:"wallet_address"`
	CoinName      string    `json:"coin_name"`
	CoinSymbol    string    `json:"coin_symbol"`
	ContentURI    string    `json:"content_uri"`
	TxHash        string    `json:"tx_hash"`
	SourceCoinIDs []string  `json:"source_coin_ids"`
	Prompt        string    `json:"prompt,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (s *Server) handleCreations(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	recs, err := s.creations.GetByWallet(r.Context(), addr)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Printf("[server] creations lookup for %s failed: %v", addr, err)
		writeError(w, http.StatusInternalServerError, "creations lookup failed")
		return
	}

	out := make([]creationJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, creationJSON{
			SessionID:     rec.SessionID,
			WalletAddress: rec.WalletAddress,
			CoinName:      rec.CoinName,
			CoinSymbol:    rec.CoinSymbol,
			ContentURI:    rec.ContentURI,
			TxHash:        rec.TxHash,
			SourceCoinIDs: rec.SourceCoinIDs,
			Prompt:        rec.Prompt,
			CreatedAt:     rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"creations": out})
}
