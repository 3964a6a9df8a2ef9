package httpapi

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/creditledger/store"
	"github.com/xraph/creditledger/types"
)

type createTicketRequest struct {
	PayType     string  `json:"pay_type"`
	Amount      float64 `json:"amount"`
	ProductName string  `json:"product_name"`
}

// createTicket opens a checkout: it persists a PaymentTicket ahead of
// the gateway round trip, then submits the checkout request and
// forwards the gateway's response verbatim.
func (h *handlers) createTicket(w http.ResponseWriter, r *http.Request) {
	if h.deps.Payment == nil {
		writeError(w, http.StatusNotFound, "payment gateway not configured")
		return
	}

	userID, err := h.requireUser(r)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	var req createTicketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount <= 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	amount, err := types.NewFromString(strconv.FormatFloat(req.Amount, 'f', 2, 64))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	outTradeNo := newOutTradeNo()
	ticket := store.PaymentTicket{
		ID:     outTradeNo,
		UserID: userID,
		Amount: amount,
		Detail: map[string]any{
			"pay_type":     req.PayType,
			"product_name": req.ProductName,
			// The balance credit this ticket will grant once its callback
			// arrives, at the ratio configured when checkout was opened.
			"credit": amount.Mul(h.deps.CreditRatio).String(),
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := h.deps.Engine.CreateTicket(r.Context(), ticket); err != nil {
		writeLedgerError(w, err)
		return
	}

	result := h.deps.Payment.CreateTrade(r.Context(), req.PayType, outTradeNo, req.Amount, req.ProductName, clientIP(r), r.UserAgent())
	if result.Raw != nil {
		// Forward the gateway's own JSON body verbatim; Code/Msg are only
		// populated when CreateTrade fails locally (amount policy, request
		// or transport error, undecodable response).
		writeJSON(w, http.StatusOK, result.Raw)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// newOutTradeNo builds the gateway-mandated out_trade_no format:
// "YYYYMMDDhhmmss.<uuid-hex>".
func newOutTradeNo() string {
	return time.Now().UTC().Format("20060102150405") + "." + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// paymentCallback is the gateway's webhook delivery endpoint. It always
// responds 200 with a plain-text body, per the protocol: the gateway
// retries on any non-200 response, so failures that are the gateway's
// own fault (bad signature, unknown ticket) must still look like
// success at the transport level.
func (h *handlers) paymentCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.deps.Payment == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("no ticket fount"))
		return
	}

	payload := make(map[string]string, len(r.URL.Query()))
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			payload[k] = v[0]
		}
	}

	result := h.deps.Engine.HandlePaymentCallback(r.Context(), h.deps.Payment, payload)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(result))
}

// paymentCallbackRedirect is the browser-facing return_url the gateway
// sends a paying user back to after checkout.
func (h *handlers) paymentCallbackRedirect(w http.ResponseWriter, r *http.Request) {
	target := h.deps.PaymentCallbackHost
	if target == "" {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}
