package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/okian/pixelrelay/internal/dispatch"
	"github.com/okian/pixelrelay/internal/domain/storefront"
	"github.com/okian/pixelrelay/pkg/logger"
)

// EventsHandler handles POST /events.
type EventsHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies) *EventsHandler {
	return &EventsHandler{deps: deps, logger: logger.Get().Named("api")}
}

type ackResponse struct {
	Status    string           `json:"status"`
	Outcome   dispatch.Outcome `json:"outcome,omitempty"`
	Duplicate bool             `json:"duplicate"`
}

// HandlePostEvent accepts one storefront event. The body must be JSON with
// a name. Members whose JSON type does not match are dropped individually;
// everything else in the payload is still dispatched.
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	body, ok := readBody(w, r, op)
	if !ok {
		return
	}
	if !gjson.ValidBytes(body) {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("invalid json")))
		return
	}
	peek := gjson.GetManyBytes(body, "id", "name", "clientId")
	name := strings.TrimSpace(peek[1].String())
	if name == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing name")))
		return
	}

	var e storefront.Event
	if err := json.Unmarshal(body, &e); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// Mistyped members are left empty; the rest of the payload stands.
			h.logger.Warn(ctx, "payload partly decoded",
				logger.String("event", name), logger.String("field", typeErr.Field), logger.Error(err))
		} else {
			h.logger.Warn(ctx, "payload did not decode, dispatching envelope only",
				logger.String("event", name), logger.Error(err))
			e = storefront.Event{}
		}
	}
	e.Name = name
	if e.ID == "" {
		e.ID = peek[0].String()
	}
	if e.ClientID == "" {
		e.ClientID = peek[2].String()
	}
	if ref := r.Referer(); ref != "" {
		e.Live = &storefront.Browsing{Location: ref}
	}

	if h.deps.SeenAndRecord(ctx, e.ID) {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	outcome, err := h.deps.Dispatch(ctx, &e)
	if err != nil {
		h.deps.Unrecord(ctx, e.ID)
		writeError(w, http.StatusServiceUnavailable, "unavailable", WrapKind(op, ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Outcome: outcome})
}
