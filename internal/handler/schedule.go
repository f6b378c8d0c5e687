package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/encero/chores-tracker-sub000/internal/chore"
	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/recurrence"
	"github.com/encero/chores-tracker-sub000/internal/store"
	"github.com/encero/chores-tracker-sub000/internal/websocket"
)

type ScheduleHandler struct {
	notifier
	service   *chore.Service
	generator *chore.Generator
	schedules *store.ScheduleStore
	today     func() string
	logger    *slog.Logger
}

func NewScheduleHandler(service *chore.Service, generator *chore.Generator, schedules *store.ScheduleStore, hub *websocket.Hub, today func() string, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		notifier:  notifier{hub: hub},
		service:   service,
		generator: generator,
		schedules: schedules,
		today:     today,
		logger:    logger,
	}
}

type scheduleRequest struct {
	TemplateID     int64   `json:"template_id"`
	Reward         int64   `json:"reward"`
	IsJoined       bool    `json:"is_joined"`
	IsOptional     bool    `json:"is_optional"`
	ChildIDs       []int64 `json:"child_ids"`
	RecurrenceType string  `json:"recurrence_type"`
	RecurrenceDays []int   `json:"recurrence_days"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
}

func (req scheduleRequest) params() (store.ScheduleParams, error) {
	typ, err := recurrence.ParseType(req.RecurrenceType)
	if err != nil {
		return store.ScheduleParams{}, err
	}
	rule := recurrence.Rule{Type: typ, StartDate: req.StartDate, EndDate: req.EndDate}
	if typ == recurrence.Custom {
		days := make([]string, 0, len(req.RecurrenceDays))
		for _, d := range req.RecurrenceDays {
			if d < 0 || d > 6 {
				return store.ScheduleParams{}, fmt.Errorf("invalid weekday: %d (0=Sunday..6=Saturday)", d)
			}
			days = append(days, strconv.Itoa(d))
		}
		rule.Days = recurrence.ParseDays(strings.Join(days, ","))
	}
	return store.ScheduleParams{
		TemplateID: req.TemplateID,
		Reward:     req.Reward,
		IsJoined:   req.IsJoined,
		Recurrence: rule,
		ChildIDs:   req.ChildIDs,
		IsOptional: req.IsOptional,
	}, nil
}

type scheduleResponse struct {
	model.ScheduledChore
	Description string `json:"description"`
}

func describe(sc *model.ScheduledChore) scheduleResponse {
	return scheduleResponse{ScheduledChore: *sc, Description: sc.Recurrence.Describe()}
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		schedules []model.ScheduledChore
		err       error
	)
	if r.URL.Query().Get("active") == "true" {
		schedules, err = h.schedules.ListActive()
	} else {
		schedules, err = h.schedules.List()
	}
	if err != nil {
		h.logger.Error("list schedules", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}

	out := make([]scheduleResponse, 0, len(schedules))
	for i := range schedules {
		out = append(out, describe(&schedules[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	sc, err := h.schedules.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get schedule")
		return
	}
	if sc == nil {
		writeError(w, http.StatusNotFound, "schedule not found")
		return
	}
	writeJSON(w, http.StatusOK, describe(sc))
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p, err := req.params()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sc, err := h.service.CreateSchedule(r.Context(), p)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create schedule")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntitySchedule, "created", sc.ID, nil))
	writeJSON(w, http.StatusCreated, describe(sc))
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req scheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	p, err := req.params()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sc, err := h.service.UpdateSchedule(r.Context(), id, p)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update schedule")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntitySchedule, "updated", sc.ID, nil))
	writeJSON(w, http.StatusOK, describe(sc))
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.service.DeleteSchedule(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, "failed to delete schedule")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntitySchedule, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// Generate materialises one schedule for ?date= (default today). Optional
// chores are picked up this way.
func (h *ScheduleHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = h.today()
	}

	inst, created, err := h.generator.GenerateSchedule(r.Context(), id, date)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to generate instance")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.broadcast(websocket.NewMessage(websocket.EntityInstance, "created", inst.ID, map[string]any{"date": date}))
	}
	writeJSON(w, status, inst)
}
