package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/encero/chores-tracker-sub000/internal/auth"
	"github.com/encero/chores-tracker-sub000/internal/model"
	"github.com/encero/chores-tracker-sub000/internal/money"
	"github.com/encero/chores-tracker-sub000/internal/store"
	"github.com/encero/chores-tracker-sub000/internal/websocket"
)

var hexColorRegexp = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type ChildHandler struct {
	notifier
	children *store.ChildStore
	ledger   *store.LedgerStore
	logger   *slog.Logger
}

func NewChildHandler(children *store.ChildStore, ledger *store.LedgerStore, hub *websocket.Hub, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{
		notifier: notifier{hub: hub},
		children: children,
		ledger:   ledger,
		logger:   logger,
	}
}

func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	children, err := h.children.List()
	if err != nil {
		h.logger.Error("list children", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list children")
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

type childRequest struct {
	Name        string `json:"name"`
	Color       string `json:"color"`
	AvatarEmoji string `json:"avatar_emoji"`
}

func (req *childRequest) normalize() string {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return "name is required"
	}
	if req.Color == "" {
		req.Color = "#3B82F6"
	}
	if !hexColorRegexp.MatchString(req.Color) {
		return "color must be a hex color (e.g. #FF0000)"
	}
	if req.AvatarEmoji == "" {
		req.AvatarEmoji = "😀"
	}
	return ""
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req childRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.normalize(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	exists, err := h.children.NameExists(req.Name, 0)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check name")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a child with that name already exists")
		return
	}

	child, err := h.children.Create(req.Name, req.Color, req.AvatarEmoji)
	if err != nil {
		h.logger.Error("create child", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create child")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityChild, "created", child.ID, nil))
	writeJSON(w, http.StatusCreated, child)
}

// lookup resolves the {id} path parameter, writing the error response itself
// when the child cannot be loaded.
func (h *ChildHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Child, bool) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return nil, false
	}
	child, err := h.children.GetByID(id)
	if err != nil {
		h.logger.Error("get child", "child_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get child")
		return nil, false
	}
	if child == nil {
		writeError(w, http.StatusNotFound, "child not found")
		return nil, false
	}
	return child, true
}

func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req childRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.normalize(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	exists, err := h.children.NameExists(req.Name, existing.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to check name")
		return
	}
	if exists {
		writeError(w, http.StatusConflict, "a child with that name already exists")
		return
	}

	child, err := h.children.Update(existing.ID, req.Name, req.Color, req.AvatarEmoji)
	if err != nil {
		h.logger.Error("update child", "child_id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update child")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityChild, "updated", child.ID, nil))
	writeJSON(w, http.StatusOK, child)
}

func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.children.Delete(existing.ID); err != nil {
		h.logger.Error("delete child", "child_id", existing.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete child")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityChild, "deleted", existing.ID, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChildHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil || len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}
	if err := h.children.UpdateSortOrder(req.IDs); err != nil {
		h.logger.Error("reorder children", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reorder children")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityChild, "reordered", 0, nil))
	w.WriteHeader(http.StatusNoContent)
}

type pinRequest struct {
	PIN string `json:"pin"`
}

func (h *ChildHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	child, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	hash, err := auth.HashPIN(req.PIN)
	if errors.Is(err, auth.ErrInvalidPIN) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash PIN")
		return
	}

	if err := h.children.SetPIN(child.ID, hash); err != nil {
		h.logger.Error("set child pin", "child_id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to set PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}

func (h *ChildHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	child, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.children.ClearPIN(child.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to clear PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin cleared"})
}

func (h *ChildHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	child, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req pinRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	hash, err := h.children.GetPINHash(child.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get PIN")
		return
	}
	if hash == "" {
		writeError(w, http.StatusBadRequest, "no PIN set for this child")
		return
	}
	if !auth.CheckPIN(hash, req.PIN) {
		writeError(w, http.StatusUnauthorized, "incorrect PIN")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ChildHandler) Balance(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	b, err := h.ledger.GetBalance(id)
	if err != nil {
		h.logger.Error("get balance", "child_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	if b == nil {
		writeError(w, http.StatusNotFound, "child not found")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *ChildHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	child, ok := h.lookup(w, r)
	if !ok {
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	txs, err := h.ledger.ListByChild(child.ID, limit)
	if err != nil {
		h.logger.Error("list transactions", "child_id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}
	if txs == nil {
		txs = []model.BalanceTransaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

type amountRequest struct {
	Amount string `json:"amount"`
	Note   string `json:"note"`
}

// Payout records cash handed to a child. Amount is a decimal string ("12.50").
func (h *ChildHandler) Payout(w http.ResponseWriter, r *http.Request) {
	h.writeLedger(w, r, true)
}

// Adjust records a signed manual correction to a child's balance.
func (h *ChildHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	h.writeLedger(w, r, false)
}

func (h *ChildHandler) writeLedger(w http.ResponseWriter, r *http.Request, payout bool) {
	child, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if amount == 0 || (payout && amount < 0) {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	var tx *model.BalanceTransaction
	if payout {
		tx, err = h.ledger.Payout(child.ID, amount, strings.TrimSpace(req.Note))
	} else {
		tx, err = h.ledger.Adjust(child.ID, amount, strings.TrimSpace(req.Note))
	}
	if errors.Is(err, store.ErrInsufficientBalance) {
		writeError(w, http.StatusConflict, "payout exceeds balance of "+money.Format(child.Balance))
		return
	}
	if err != nil {
		h.logger.Error("write ledger", "child_id", child.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record transaction")
		return
	}

	h.broadcast(websocket.NewMessage(websocket.EntityBalance, "updated", child.ID, nil))
	writeJSON(w, http.StatusCreated, tx)
}
