package httpapi

import (
	"net/http"

	"github.com/xraph/creditledger/pricing"
)

type modelPriceEntry struct {
	ModelID     string            `json:"model_id"`
	BaseModelID string            `json:"base_model_id,omitempty"`
	Price       map[string]string `json:"price"`
}

// getModelPrice returns every model pricing override currently configured.
func (h *handlers) getModelPrice(w http.ResponseWriter, r *http.Request) {
	if h.deps.Pricing == nil {
		writeError(w, http.StatusNotFound, "model pricing catalogue not configured")
		return
	}

	snapshot := h.deps.Pricing.Snapshot()
	out := make([]modelPriceEntry, 0, len(snapshot))
	for modelID, m := range snapshot {
		out = append(out, modelPriceEntry{ModelID: modelID, BaseModelID: m.BaseModelID, Price: m.Price})
	}
	writeJSON(w, http.StatusOK, out)
}

// putModelPrice sets or replaces one model's pricing override.
func (h *handlers) putModelPrice(w http.ResponseWriter, r *http.Request) {
	if h.deps.Pricing == nil {
		writeError(w, http.StatusNotFound, "model pricing catalogue not configured")
		return
	}

	var req modelPriceEntry
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ModelID == "" {
		writeError(w, http.StatusBadRequest, "model_id is required")
		return
	}

	h.deps.Pricing.Set(req.ModelID, pricing.Model{BaseModelID: req.BaseModelID, Price: req.Price})
	writeJSON(w, http.StatusOK, req)
}
