package handler

import (
	"fmt"
	"net/http"

	"github.com/encero/chores-tracker-sub000/internal/reward"
)

// EffortHandler exposes the effort arithmetic so the rating controls stay
// consistent with what Rate accepts.
type EffortHandler struct{}

func NewEffortHandler() *EffortHandler {
	return &EffortHandler{}
}

type effortResponse struct {
	Efforts reward.Efforts `json:"efforts"`
	Total   float64        `json:"total"`
	Valid   bool           `json:"valid"`
}

func newEffortResponse(e reward.Efforts) effortResponse {
	return effortResponse{
		Efforts: e,
		Total:   e.Total(),
		Valid:   reward.ValidateTotal(e, reward.DefaultTolerance),
	}
}

func (h *EffortHandler) Redistribute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Efforts   reward.Efforts `json:"efforts"`
		ChangedID int64          `json:"changed_id"`
		Value     float64        `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Value < 0 {
		writeError(w, http.StatusBadRequest, "value cannot be negative")
		return
	}
	if id, dup := duplicateID(req.Efforts.IDs()); dup {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("child %d listed twice", id))
		return
	}
	if _, ok := req.Efforts.Get(req.ChangedID); !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("changed_id %d is not in efforts", req.ChangedID))
		return
	}
	writeJSON(w, http.StatusOK, newEffortResponse(reward.Redistribute(req.Efforts, req.ChangedID, req.Value)))
}

func (h *EffortHandler) Equal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChildIDs []int64 `json:"child_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.ChildIDs) == 0 {
		writeError(w, http.StatusBadRequest, "child_ids is required")
		return
	}
	if id, dup := duplicateID(req.ChildIDs); dup {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("child %d listed twice", id))
		return
	}
	writeJSON(w, http.StatusOK, newEffortResponse(reward.InitializeEqual(req.ChildIDs)))
}

func duplicateID(ids []int64) (int64, bool) {
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return id, true
		}
		seen[id] = true
	}
	return 0, false
}
