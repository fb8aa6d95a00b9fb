package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tidwall/gjson"

	"github.com/okian/pixelrelay/internal/domain/consent"
	"github.com/okian/pixelrelay/internal/domain/storefront"
)

// ConsentHandler handles POST /consent.
type ConsentHandler struct {
	deps Dependencies
}

// NewConsentHandler creates a new consent handler.
func NewConsentHandler(deps Dependencies) *ConsentHandler {
	return &ConsentHandler{deps: deps}
}

// HandlePostConsent replaces the current consent state and responds with
// the translated signals.
func (h *ConsentHandler) HandlePostConsent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_consent"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	body, ok := readBody(w, r, op)
	if !ok {
		return
	}
	if !gjson.ValidBytes(body) || !gjson.GetBytes(body, "customerPrivacy").IsObject() {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing customerPrivacy")))
		return
	}
	var n storefront.ConsentNotification
	if err := json.Unmarshal(body, &n); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	signals, err := h.deps.UpdateConsent(r.Context(), consent.FromPrivacy(n.CustomerPrivacy))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, signals)
}
