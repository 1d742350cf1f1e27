// Package api provides the local HTTP server the page-level UI talks to.
// It exposes the intake pipeline: raw key events in, dialogs and cart
// state out, plus the commit trigger.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/partflow-io/partflow/internal/domain"
	"github.com/partflow-io/partflow/internal/intake"
)

// Server is the PartFlow HTTP API server.
type Server struct {
	engine         *intake.Engine
	log            *zap.Logger
	metricsEnabled bool
}

// NewServer creates a new API server over the intake engine.
func NewServer(engine *intake.Engine, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{engine: engine, log: log.Named("api")}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/scan", func(r chi.Router) {
			r.Post("/keys", s.handleScanKeys)
			r.Post("/token", s.handleScanToken)
			r.Post("/focus-lost", s.handleFocusLost)
		})
		r.Route("/resolution", func(r chi.Router) {
			r.Get("/", s.handleGetResolution)
			r.Post("/quantity", s.handleConfirmQuantity)
			r.Post("/manual", s.handleConfirmManual)
			r.Post("/cancel", s.handleCancelResolution)
		})
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.handleGetCart)
			r.Patch("/{key}", s.handleSetQuantity)
			r.Delete("/{key}", s.handleRemoveLine)
		})
		r.Post("/commit", s.handleCommit)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Scan Handlers ──────────────────────────────────────────────────────────

// keyEventPayload is one wire-format key event. "enter", "backspace",
// and "control" name the non-printable codes; anything else with a rune
// is a character.
type keyEventPayload struct {
	Code string `json:"code,omitempty"`
	Rune string `json:"rune,omitempty"`
}

func (p keyEventPayload) toDomain() domain.KeyEvent {
	ev := domain.KeyEvent{At: time.Now()}
	switch p.Code {
	case "enter":
		ev.Code = domain.KeyEnter
	case "backspace":
		ev.Code = domain.KeyBackspace
	case "control":
		ev.Code = domain.KeyControl
	default:
		ev.Code = domain.KeyRune
		for _, r := range p.Rune {
			ev.Rune = r
			break
		}
	}
	return ev
}

// handleScanKeys feeds a batch of raw key events into the capture framer.
// POST /api/scan/keys
func (s *Server) handleScanKeys(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Events []keyEventPayload `json:"events"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid key event payload")
		return
	}
	for _, ev := range payload.Events {
		s.engine.HandleKey(ev.toDomain())
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": len(payload.Events)})
}

// handleScanToken injects a pre-framed token from a buffered scanner.
// POST /api/scan/token
func (s *Server) handleScanToken(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Raw string `json:"raw"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Raw == "" {
		writeError(w, http.StatusBadRequest, "invalid token payload")
		return
	}
	s.engine.SubmitToken(domain.ScanToken{Raw: payload.Raw, CapturedAt: time.Now()})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleFocusLost reports a focus loss on the capture surface.
// POST /api/scan/focus-lost
func (s *Server) handleFocusLost(w http.ResponseWriter, r *http.Request) {
	s.engine.FocusLost()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─── Resolution Handlers ────────────────────────────────────────────────────

// resolutionView is the dialog state the UI renders.
type resolutionView struct {
	ID               string             `json:"id"`
	State            string             `json:"state"`
	Code             string             `json:"code"`
	Part             *domain.PartRecord `json:"part,omitempty"`
	ProposedQuantity int                `json:"proposed_quantity"`
}

// handleGetResolution returns the open resolution, or state "idle".
// GET /api/resolution
func (s *Server) handleGetResolution(w http.ResponseWriter, r *http.Request) {
	res := s.engine.Resolution()
	if res == nil {
		writeJSON(w, http.StatusOK, resolutionView{State: "idle"})
		return
	}
	writeJSON(w, http.StatusOK, resolutionView{
		ID:               res.ID.String(),
		State:            res.State.String(),
		Code:             res.Token.Raw,
		Part:             res.Part,
		ProposedQuantity: res.ProposedQuantity,
	})
}

// handleConfirmQuantity confirms a catalog hit.
// POST /api/resolution/quantity
func (s *Server) handleConfirmQuantity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid quantity payload")
		return
	}
	line, err := s.engine.ConfirmQuantity(payload.Quantity)
	if err != nil {
		writeResolutionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// handleConfirmManual confirms a manual entry for an unknown code.
// POST /api/resolution/manual
func (s *Server) handleConfirmManual(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Description string `json:"description"`
		Quantity    int    `json:"quantity"`
		Actor       string `json:"actor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid manual entry payload")
		return
	}
	line, err := s.engine.ConfirmManual(r.Context(), payload.Description, payload.Quantity, payload.Actor)
	if err != nil {
		writeResolutionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, line)
}

// handleCancelResolution dismisses the open dialog.
// POST /api/resolution/cancel
func (s *Server) handleCancelResolution(w http.ResponseWriter, r *http.Request) {
	s.engine.CancelResolution()
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─── Cart Handlers ──────────────────────────────────────────────────────────

// handleGetCart returns the cart lines and total.
// GET /api/cart
func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	lines := s.engine.Cart()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lines": lines,
		"count": len(lines),
		"total": s.engine.CartTotal(),
	})
}

// handleSetQuantity adjusts one line's quantity; 0 removes it.
// PATCH /api/cart/{key}
func (s *Server) handleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Quantity *int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Quantity == nil {
		writeError(w, http.StatusBadRequest, "quantity must be an integer")
		return
	}
	s.engine.SetQuantity(chi.URLParam(r, "key"), *payload.Quantity)
	s.handleGetCart(w, r)
}

// handleRemoveLine deletes one cart line.
// DELETE /api/cart/{key}
func (s *Server) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	s.engine.RemoveLine(chi.URLParam(r, "key"))
	s.handleGetCart(w, r)
}

// ─── Commit Handler ─────────────────────────────────────────────────────────

// handleCommit submits the cart as a transaction batch.
// POST /api/commit
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var tc domain.TransactionContext
	if err := json.NewDecoder(r.Body).Decode(&tc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction context")
		return
	}

	result, err := s.engine.Commit(r.Context(), tc)
	switch {
	case err == nil:
		status := http.StatusOK
		if !result.AllCommitted() {
			// Partial failure: committed lines are gone from the cart,
			// failed lines remain for retry.
			status = http.StatusMultiStatus
		}
		writeJSON(w, status, result)
	case errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrMissingActor),
		errors.Is(err, domain.ErrMissingDestination):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrCommitInFlight):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("commit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func writeResolutionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrEmptyDescription):
		// Dialog stays open; the UI re-prompts.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrNoResolution),
		errors.Is(err, domain.ErrWrongState):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
