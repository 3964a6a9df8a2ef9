package httpapi

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/creditledger/store"
	"github.com/xraph/creditledger/types"
)

// listRedemptionCodes lists codes matching an optional keyword against
// code or purpose.
func (h *handlers) listRedemptionCodes(w http.ResponseWriter, r *http.Request) {
	if h.deps.Redemption == nil {
		writeError(w, http.StatusNotFound, "redemption codes not configured")
		return
	}

	keyword := r.URL.Query().Get("keyword")
	codes, err := h.deps.Engine.ListRedemptionCodes(r.Context(), keyword)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

type issueRedemptionCodesRequest struct {
	Purpose   string  `json:"purpose"`
	Count     int     `json:"count"`
	Amount    float64 `json:"amount"`
	ExpiredAt *string `json:"expired_at,omitempty"`
}

// issueRedemptionCodes bulk-generates a batch of one-shot codes sharing
// a purpose and amount.
func (h *handlers) issueRedemptionCodes(w http.ResponseWriter, r *http.Request) {
	if h.deps.Redemption == nil {
		writeError(w, http.StatusNotFound, "redemption codes not configured")
		return
	}

	var req issueRedemptionCodesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := types.NewFromString(strconv.FormatFloat(req.Amount, 'f', -1, 64))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	var expiredAt *time.Time
	if req.ExpiredAt != nil && *req.ExpiredAt != "" {
		t, err := parseTimestamp(*req.ExpiredAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid expired_at")
			return
		}
		expiredAt = &t
	}

	codes, err := h.deps.Engine.IssueRedemptionCodes(r.Context(), h.deps.Redemption, req.Purpose, req.Count, amount, expiredAt)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	out := make([]store.RedemptionCode, len(codes))
	for i, c := range codes {
		out[i] = store.RedemptionCode{
			Code:       c.Code,
			Purpose:    c.Purpose,
			Amount:     c.Amount,
			CreatedAt:  c.CreatedAt,
			ExpiredAt:  c.ExpiredAt,
			UserID:     c.UserID,
			ReceivedAt: c.ReceivedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type updateRedemptionCodeRequest struct {
	Purpose   string  `json:"purpose"`
	Amount    float64 `json:"amount"`
	ExpiredAt *string `json:"expired_at,omitempty"`
}

// updateRedemptionCode edits an unclaimed code's purpose, amount, and
// expiry.
func (h *handlers) updateRedemptionCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req updateRedemptionCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := types.NewFromString(strconv.FormatFloat(req.Amount, 'f', -1, 64))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	var expiredAt *time.Time
	if req.ExpiredAt != nil && *req.ExpiredAt != "" {
		t, err := parseTimestamp(*req.ExpiredAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid expired_at")
			return
		}
		expiredAt = &t
	}

	if err := h.deps.Engine.UpdateRedemptionCode(r.Context(), store.RedemptionCode{
		Code:      code,
		Purpose:   req.Purpose,
		Amount:    amount,
		ExpiredAt: expiredAt,
	}); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// deleteRedemptionCode removes an unclaimed code.
func (h *handlers) deleteRedemptionCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.deps.Engine.DeleteRedemptionCode(r.Context(), code); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportRedemptionCodes renders codes matching keyword as CSV, for an
// operator to hand out or archive.
func (h *handlers) exportRedemptionCodes(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	codes, err := h.deps.Engine.ListRedemptionCodes(r.Context(), keyword)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="redemption_codes.csv"`)
	w.WriteHeader(http.StatusOK)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"code", "purpose", "amount", "created_at", "expired_at", "user_id", "received_at"})
	for _, c := range codes {
		_ = cw.Write([]string{
			c.Code,
			c.Purpose,
			c.Amount.String(),
			c.CreatedAt.Format(time.RFC3339),
			formatOptionalTime(c.ExpiredAt),
			formatOptionalString(c.UserID),
			formatOptionalTime(c.ReceivedAt),
		})
	}
	cw.Flush()
}

// receiveRedemptionCode redeems code for the calling user.
func (h *handlers) receiveRedemptionCode(w http.ResponseWriter, r *http.Request) {
	if h.deps.Redemption == nil {
		writeError(w, http.StatusNotFound, "redemption codes not configured")
		return
	}

	userID, err := h.requireUser(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	code := chi.URLParam(r, "code")
	if err := h.deps.Engine.RedeemCode(r.Context(), h.deps.Redemption, code, userID); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Status string `json:"status"`
	}{Status: "redeemed"})
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatOptionalString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
