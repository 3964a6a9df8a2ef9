package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	ledger "github.com/xraph/creditledger"
	"github.com/xraph/creditledger/store"
)

const logPageSize = 20

// getConfig returns the public, unauthenticated view of the ledger's
// configuration: the exchange ratio and no-credit notice a chat client
// needs to decide whether to show a balance indicator.
func (h *handlers) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.PublicConfig)
}

type logsResponse struct {
	Logs  []store.LedgerEntry `json:"logs"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
}

// listUserLogs returns the calling user's own ledger entries, newest
// first, one page at a time.
func (h *handlers) listUserLogs(w http.ResponseWriter, r *http.Request) {
	userID, err := h.requireUser(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	page := parsePage(r.URL.Query().Get("page"))
	userIDs := []string{userID}

	entries, err := h.deps.Engine.List(r.Context(), store.ListOpts{
		UserIDs: userIDs,
		Offset:  (page - 1) * logPageSize,
		Limit:   logPageSize,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	total, err := h.deps.Engine.Count(r.Context(), userIDs)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, logsResponse{Logs: entries, Total: total, Page: page})
}

// listAllLogs is the operator view of ledger entries across users,
// optionally narrowed by a comma-separated list of user ids in query.
func (h *handlers) listAllLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parsePage(q.Get("page"))
	limit := logPageSize
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	var userIDs []string
	if query := strings.TrimSpace(q.Get("query")); query != "" {
		userIDs = strings.Split(query, ",")
	}

	entries, err := h.deps.Engine.List(r.Context(), store.ListOpts{
		UserIDs: userIDs,
		Offset:  (page - 1) * limit,
		Limit:   limit,
	})
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	total, err := h.deps.Engine.Count(r.Context(), userIDs)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, logsResponse{Logs: entries, Total: total, Page: page})
}

type deleteLogsRequest struct {
	Timestamp string `json:"timestamp"`
}

type deleteLogsResponse struct {
	Deleted int64 `json:"deleted"`
}

// deleteLogs prunes every ledger entry created before the given
// timestamp (RFC3339 or unix seconds).
func (h *handlers) deleteLogs(w http.ResponseWriter, r *http.Request) {
	var req deleteLogsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	before, err := parseTimestamp(req.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := h.deps.Engine.Prune(r.Context(), before)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteLogsResponse{Deleted: deleted})
}

type statisticsRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// statistics folds ledger entries and payment tickets in the requested
// window into operator-facing aggregates.
func (h *handlers) statistics(w http.ResponseWriter, r *http.Request) {
	var req statisticsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	start, err := parseTimestamp(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time: "+err.Error())
		return
	}
	end, err := parseTimestamp(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time: "+err.Error())
		return
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end_time must be after start_time")
		return
	}

	stats, err := h.deps.Engine.Statistics(r.Context(), start, end)
	if err != nil {
		writeLedgerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func parsePage(raw string) int {
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// parseTimestamp accepts either an RFC3339 timestamp or a bare unix
// seconds integer, matching the loosely-typed {timestamp} bodies the
// spec's admin endpoints pass around.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ledger.ErrInputInvalid
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, ledger.ErrInputInvalid
}
