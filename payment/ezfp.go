// Package payment implements an EZFP-style payment gateway adapter: an
// MD5-signed checkout and webhook protocol used to convert a local
// currency payment into ledger credit.
package payment

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 is the gateway's signing algorithm, not used for security.
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/creditledger/types"
)

func decodeJSON(r io.Reader, v any) error {
	return json.NewDecoder(r).Decode(v)
}

// Config holds the merchant credentials and policy for one gateway
// endpoint.
type Config struct {
	Endpoint      string
	PID           string
	Key           string
	CallbackHost  string
	AmountControl string // comma-separated "a-b" ranges or bare values; empty = no control
}

// Ticket is the narrow view of a PaymentTicket the adapter reads and
// writes during callback processing.
type Ticket struct {
	ID          string
	UserID      string
	Amount      types.Decimal
	HasCallback bool
}

// TicketStore is the persistence slice the adapter needs for callback
// processing. SetCallback must be an atomic check-and-set: sealed is
// true only for the call that actually seals the ticket, so that two
// concurrent deliveries of the same replayed callback can never both
// observe an unsealed ticket and double-credit it.
type TicketStore interface {
	GetTicket(ctx context.Context, id string) (Ticket, bool, error)
	SetCallback(ctx context.Context, id string, callback map[string]string) (sealed bool, err error)
}

// Crediter is the narrow slice of the ledger the adapter needs to credit
// a successful payment.
type Crediter interface {
	AddDelta(ctx context.Context, userID string, delta types.Decimal, detail types.LedgerDetail) error
}

// Client is an EZFP-protocol gateway client.
type Client struct {
	cfg     Config
	tickets TicketStore
	ledger  Crediter
	ratio   types.Decimal
	httpc   *http.Client
}

// NewClient builds a Client. ratio is the configured credit exchange
// ratio: amount (local currency) × ratio = credited amount.
func NewClient(cfg Config, tickets TicketStore, ledger Crediter, ratio types.Decimal) *Client {
	return &Client{
		cfg:     cfg,
		tickets: tickets,
		ledger:  ledger,
		ratio:   ratio,
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// sign computes the MD5 signature over payload's truthy fields
// (excluding sign/sign_type), sorted lexicographically as "key=value",
// joined with "&", with the raw shared secret appended. It mutates and
// returns payload with sign and sign_type set.
func (c *Client) sign(payload map[string]string) map[string]string {
	pairs := make([]string, 0, len(payload))
	for k, v := range payload {
		if k == "sign" || k == "sign_type" {
			continue
		}
		if v == "" {
			continue
		}
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)

	plain := strings.Join(pairs, "&") + c.cfg.Key
	sum := md5.Sum([]byte(plain))

	payload["sign"] = hex.EncodeToString(sum[:])
	payload["sign_type"] = "MD5"
	return payload
}

// Verify reports whether payload carries a valid signature for this
// merchant.
func (c *Client) Verify(payload map[string]string) bool {
	if payload["pid"] != c.cfg.PID {
		return false
	}

	resigned := make(map[string]string, len(payload))
	for k, v := range payload {
		resigned[k] = v
	}
	resigned = c.sign(resigned)

	return payload["sign"] == resigned["sign"] && payload["sign_type"] == resigned["sign_type"]
}

// CheckAmount reports whether amount is within the configured
// amount-control policy. An empty policy allows everything.
func (c *Client) CheckAmount(amount float64) bool {
	if c.cfg.AmountControl == "" {
		return true
	}
	for _, check := range strings.Split(c.cfg.AmountControl, ",") {
		values := strings.Split(strings.TrimSpace(check), "-")
		switch len(values) {
		case 2:
			lo, errLo := strconv.ParseFloat(strings.TrimSpace(values[0]), 64)
			hi, errHi := strconv.ParseFloat(strings.TrimSpace(values[1]), 64)
			if errLo == nil && errHi == nil && amount >= lo && amount <= hi {
				return true
			}
		case 1:
			v, err := strconv.ParseFloat(strings.TrimSpace(values[0]), 64)
			if err == nil && amount == v {
				return true
			}
		}
	}
	return false
}

// deviceFromUA infers a device category from a user-agent string.
func deviceFromUA(ua string) string {
	ua = strings.ToLower(ua)
	switch {
	case strings.Contains(ua, "micromessenger"):
		return "wechat"
	case strings.Contains(ua, "qq"):
		return "qq"
	case strings.Contains(ua, "alipay"):
		return "alipay"
	case strings.Contains(ua, "android"), strings.Contains(ua, "iphone"):
		return "mobile"
	default:
		return "pc"
	}
}

// TradeResult is the gateway's JSON checkout response, or a local
// {code:-1, msg} rejection when the amount fails the control policy, the
// request could not be sent, or the response could not be decoded.
type TradeResult struct {
	Code int            `json:"code,omitempty"`
	Msg  string         `json:"msg,omitempty"`
	Raw  map[string]any `json:"-"`
}

// CreateTrade submits a checkout request to the gateway and returns its
// parsed response.
func (c *Client) CreateTrade(ctx context.Context, payType, outTradeNo string, amount float64, productName, clientIP, userAgent string) TradeResult {
	if !c.CheckAmount(amount) {
		return TradeResult{Code: -1, Msg: fmt.Sprintf("amount invalid, allows %s", strings.ReplaceAll(c.cfg.AmountControl, ",", " "))}
	}

	host := strings.TrimRight(c.cfg.CallbackHost, "/")
	payload := map[string]string{
		"pid":          c.cfg.PID,
		"type":         payType,
		"out_trade_no": outTradeNo,
		"notify_url":   host + "/api/v1/credit/callback",
		"return_url":   host + "/api/v1/credit/callback/redirect",
		"name":         productName,
		"money":        fmt.Sprintf("%.2f", amount),
		"clientip":     clientIP,
		"device":       deviceFromUA(userAgent),
	}
	payload = c.sign(payload)

	form := url.Values{}
	for k, v := range payload {
		form.Set(k, v)
	}

	endpoint := strings.TrimRight(c.cfg.Endpoint, "/") + "/mapi.php"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return TradeResult{Code: -1, Msg: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return TradeResult{Code: -1, Msg: err.Error()}
	}
	defer resp.Body.Close()

	var raw map[string]any
	if err := decodeJSON(resp.Body, &raw); err != nil {
		return TradeResult{Code: -1, Msg: err.Error()}
	}
	return TradeResult{Raw: raw}
}

// HandleCallback processes one webhook delivery. It returns the exact
// plain-text body the gateway expects, matching its protocol verbatim
// (including the "no ticket fount" misspelling, which is part of the
// external contract).
func (c *Client) HandleCallback(ctx context.Context, payload map[string]string) string {
	if !c.Verify(payload) {
		return "invalid signature"
	}

	if payload["trade_status"] != "TRADE_SUCCESS" {
		return "success"
	}

	ticket, ok, err := c.tickets.GetTicket(ctx, payload["out_trade_no"])
	if err != nil || !ok {
		return "no ticket fount"
	}

	if ticket.HasCallback {
		return "success"
	}

	// SetCallback is the atomic gate, not the HasCallback check above:
	// two concurrent deliveries of the same replayed callback can both
	// reach this point with ticket.HasCallback == false, but only one of
	// them gets sealed == true back from the store, so only one credits.
	sealed, err := c.tickets.SetCallback(ctx, ticket.ID, payload)
	if err != nil || !sealed {
		return "success"
	}

	credited := ticket.Amount.Mul(c.ratio)
	_ = c.ledger.AddDelta(ctx, ticket.UserID, credited, types.LedgerDetail{Desc: "payment success"})

	return "success"
}
