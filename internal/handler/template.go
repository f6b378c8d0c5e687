package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/store"
	"github.com/encero/chores-tracker-sub000/internal/websocket"
)

type TemplateHandler struct {
	notifier
	templates *store.TemplateStore
	logger    *slog.Logger
}

func NewTemplateHandler(templates *store.TemplateStore, hub *websocket.Hub, logger *slog.Logger) *TemplateHandler {
	return &TemplateHandler{
		notifier:  notifier{hub: hub},
		templates: templates,
		logger:    logger,
	}
}

type templateRequest struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	DefaultReward int64  `json:"default_reward"`
}

func (req *templateRequest) normalize() string {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" {
		return "title is required"
	}
	if req.DefaultReward < 0 {
		return "default_reward cannot be negative"
	}
	return ""
}

func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List()
	if err != nil {
		h.logger.Error("list templates", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list templates")
		return
	}
	if templates == nil {
		templates = []model.ChoreTemplate{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.normalize(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	tmpl, err := h.templates.Create(req.Title, req.Description, req.Icon, req.DefaultReward)
	if err != nil {
		h.logger.Error("create template", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create template")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTemplate, "created", tmpl.ID, nil))
	writeJSON(w, http.StatusCreated, tmpl)
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.templates.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}

	var req templateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.normalize(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	tmpl, err := h.templates.Update(id, req.Title, req.Description, req.Icon, req.DefaultReward)
	if err != nil {
		h.logger.Error("update template", "template_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update template")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTemplate, "updated", id, nil))
	writeJSON(w, http.StatusOK, tmpl)
}

// Delete removes the template and, through the schema, its schedules.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	existing, err := h.templates.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get template")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "template not found")
		return
	}

	if err := h.templates.Delete(id); err != nil {
		h.logger.Error("delete template", "template_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete template")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityTemplate, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
