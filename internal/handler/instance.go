package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/encero/chores-tracker-sub000/internal/chore"
	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/reward"
	"github.com/encero/chores-tracker-sub000/internal/store"
	"github.com/encero/chores-tracker-sub000/internal/websocket"
)

type InstanceHandler struct {
	notifier
	service   *chore.Service
	generator *chore.Generator
	instances *store.InstanceStore
	today     func() string
	logger    *slog.Logger
}

func NewInstanceHandler(service *chore.Service, generator *chore.Generator, instances *store.InstanceStore, hub *websocket.Hub, today func() string, logger *slog.Logger) *InstanceHandler {
	return &InstanceHandler{
		notifier:  notifier{hub: hub},
		service:   service,
		generator: generator,
		instances: instances,
		today:     today,
		logger:    logger,
	}
}

// Generate runs generation for ?date= (default today). Safe to call
// repeatedly; existing instances are never duplicated.
func (h *InstanceHandler) Generate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.today()
	}

	res, err := h.generator.GenerateForDate(r.Context(), date)
	if res.Created > 0 {
		h.broadcast(websocket.NewMessage(websocket.EntityInstance, "generated", 0, map[string]any{"date": date, "created": res.Created}))
	}
	if err != nil {
		writeServiceError(w, h.logger, err, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *InstanceHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.InstanceFilter{Date: q.Get("date")}

	if s := q.Get("child_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid child_id")
			return
		}
		f.ChildID = id
	}
	if s := q.Get("status"); s != "" {
		switch model.InstanceStatus(s) {
		case model.InstancePending, model.InstanceCompleted, model.InstanceMissed:
			f.Status = model.InstanceStatus(s)
		default:
			writeError(w, http.StatusBadRequest, "status must be pending, completed or missed")
			return
		}
	}

	instances, err := h.instances.List(f)
	if err != nil {
		h.logger.Error("list instances", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list instances")
		return
	}
	if instances == nil {
		instances = []model.ChoreInstance{}
	}
	writeJSON(w, http.StatusOK, instances)
}

func (h *InstanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	inst, err := h.instances.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get instance")
		return
	}
	if inst == nil {
		writeError(w, http.StatusNotFound, "instance not found")
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *InstanceHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	h.setDone(w, r, true)
}

func (h *InstanceHandler) UnmarkDone(w http.ResponseWriter, r *http.Request) {
	h.setDone(w, r, false)
}

func (h *InstanceHandler) setDone(w http.ResponseWriter, r *http.Request, done bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	childID, err := parsePathInt(r, "child_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid child_id")
		return
	}

	inst, err := h.service.SetParticipantDone(r.Context(), id, childID, done)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update participant")
		return
	}

	action := "done"
	if !done {
		action = "undone"
	}
	h.broadcast(websocket.NewMessage(websocket.EntityInstance, action, id, map[string]any{"child_id": childID}))
	writeJSON(w, http.StatusOK, inst)
}

// parseEfforts reads repeated ?effort=<child_id>:<percent> pairs.
func parseEfforts(values []string) (reward.Efforts, error) {
	efforts := make(reward.Efforts, 0, len(values))
	for _, v := range values {
		idStr, pctStr, ok := strings.Cut(v, ":")
		if !ok {
			return nil, fmt.Errorf("effort %q must be child_id:percent", v)
		}
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("effort %q: invalid child id", v)
		}
		pct, err := strconv.ParseFloat(pctStr, 64)
		if err != nil {
			return nil, fmt.Errorf("effort %q: invalid percent", v)
		}
		efforts = append(efforts, reward.Share{ChildID: id, Percent: pct})
	}
	return efforts, nil
}

func (h *InstanceHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	efforts, err := parseEfforts(r.URL.Query()["effort"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := h.service.Preview(r.Context(), id, efforts)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to build preview")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":       rows,
		"effort_ok":  len(efforts) == 0 || reward.ValidateTotal(efforts, reward.DefaultTolerance),
		"effort_sum": efforts.Total(),
		"qualities":  reward.Qualities,
	})
}

type rateRequest struct {
	Ratings []chore.Rating `json:"ratings"`
	Efforts reward.Efforts `json:"efforts"`
	Force   bool           `json:"force"`
	Quality reward.Quality `json:"quality"`
}

func (h *InstanceHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req rateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	inst, err := h.service.Rate(r.Context(), chore.RateInput{
		InstanceID:     id,
		Ratings:        req.Ratings,
		Efforts:        req.Efforts,
		Force:          req.Force,
		OverallQuality: req.Quality,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to rate instance")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityInstance, "rated", id, map[string]any{
		"completed": inst.Status == model.InstanceCompleted,
	}))
	for _, rt := range req.Ratings {
		h.broadcast(websocket.NewMessage(websocket.EntityBalance, "updated", rt.ChildID, nil))
	}
	writeJSON(w, http.StatusOK, inst)
}
