package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/encero/chores-tracker-sub000/internal/chore"
	"github.com/encero/chores-tracker-sub000/internal/websocket"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIDParam(r *http.Request) (int64, error) {
	return parsePathInt(r, "id")
}

func parsePathInt(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeServiceError maps chore sentinels to statuses. Anything unrecognised
// is logged and reported as a 500 carrying only fallback.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, chore.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chore.ErrNotPending), errors.Is(err, chore.ErrAlreadyRated):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chore.ErrInvalidEffort):
		writeError(w, http.StatusUnprocessableEntity, chore.ErrInvalidEffort.Error())
	case errors.Is(err, chore.ErrNotParticipant), errors.Is(err, chore.ErrNotScheduled):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, chore.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error(fallback, "error", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// notifier is embedded by handlers that push change notifications.
type notifier struct {
	hub *websocket.Hub
}

func (n notifier) broadcast(msg websocket.Message) {
	if n.hub != nil {
		n.hub.Broadcast(msg)
	}
}
