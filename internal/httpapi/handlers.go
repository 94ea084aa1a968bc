package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/codeduels/duel-server/internal/apperr"
	"github.com/codeduels/duel-server/internal/judge"
	"github.com/codeduels/duel-server/internal/lifecycle"
	"github.com/codeduels/duel-server/internal/store"
)

type Handlers struct {
	mgr   *lifecycle.Manager
	judge *judge.Judge
	store store.Store
	log   *zap.SugaredLogger
}

func NewHandlers(mgr *lifecycle.Manager, j *judge.Judge, st store.Store, log *zap.SugaredLogger) *Handlers {
	return &Handlers{mgr: mgr, judge: j, store: st, log: log}
}

type createDuelRequest struct {
	OpponentEmail string `json:"opponentEmail"`
	Difficulty    string `json:"difficulty"`
}

func (h *Handlers) CreateDuel(w http.ResponseWriter, r *http.Request) {
	var req createDuelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("malformed request body"))
		return
	}

	duelID, err := h.mgr.Create(r.Context(), Identity(r.Context()), req.OpponentEmail, req.Difficulty)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusCreated, map[string]string{"duelId": duelID})
}

type submitRequest struct {
	DuelID   string `json:"duelId"`
	Code     string `json:"code"`
	Language string `json:"language"`
}

func (h *Handlers) SubmitCode(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("malformed request body"))
		return
	}
	if req.DuelID == "" {
		writeError(w, apperr.Validation("duelId is required"))
		return
	}

	verdict, err := h.judge.Submit(r.Context(), req.DuelID, Identity(r.Context()), req.Code, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, verdict)
}

func (h *Handlers) ListOngoingMine(w http.ResponseWriter, r *http.Request) {
	duels, err := h.store.ListOngoingFor(r.Context(), Identity(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, duels)
}

func (h *Handlers) ListOngoingAll(w http.ResponseWriter, r *http.Request) {
	duels, err := h.store.ListOngoing(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, duels)
}

// OpponentEmail is the unauthenticated spectator bootstrap: watchers
// need the opponent identity to label incoming code updates.
func (h *Handlers) OpponentEmail(w http.ResponseWriter, r *http.Request) {
	d, err := h.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"opponentEmail": d.OpponentEmail})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindStateConflict:
		status = http.StatusConflict
	case apperr.KindExecutionTimeout:
		status = http.StatusRequestTimeout
	case apperr.KindAuth:
		status = http.StatusUnauthorized
	}

	msg := "internal server error"
	var ae *apperr.Error
	if errors.As(err, &ae) {
		msg = ae.Msg
	}
	respond(w, status, map[string]string{"message": msg})
}
