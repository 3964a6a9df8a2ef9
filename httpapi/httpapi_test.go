package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ledger "github.com/xraph/creditledger"
	"github.com/xraph/creditledger/store/memory"
	"github.com/xraph/creditledger/types"
)

func newTestEngine(t *testing.T) *ledger.Ledger {
	t.Helper()
	eng := ledger.New(memory.New(), ledger.WithDefaultCredit(types.New(10)))
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("start engine: %v", err)
	}
	return eng
}

func alwaysUser(id string) UserIDFunc {
	return func(r *http.Request) (string, error) { return id, nil }
}

func alwaysAdmin(ok bool) AdminFunc {
	return func(r *http.Request) bool { return ok }
}

func TestGetConfigIsPublic(t *testing.T) {
	deps := Deps{
		Engine: newTestEngine(t),
		PublicConfig: PublicConfig{
			CreditExchangeRatio: "10",
			NoCreditMessage:     "top up",
		},
	}
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var got PublicConfig
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.CreditExchangeRatio != "10" || got.NoCreditMessage != "top up" {
		t.Fatalf("unexpected config: %+v", got)
	}
}

func TestListUserLogsRequiresUser(t *testing.T) {
	deps := Deps{Engine: newTestEngine(t)}
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/logs", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403 with no UserID func configured", rec.Code)
	}
}

func TestListUserLogsReturnsOwnEntries(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	if err := eng.AddDelta(ctx, "u1", types.New(-2), types.LedgerDetail{Desc: "test debit"}); err != nil {
		t.Fatalf("add delta: %v", err)
	}
	if err := eng.AddDelta(ctx, "other-user", types.New(-1), types.LedgerDetail{Desc: "not mine"}); err != nil {
		t.Fatalf("add delta: %v", err)
	}

	deps := Deps{Engine: eng, UserID: alwaysUser("u1")}
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/logs?page=1", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got logsResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 1 || len(got.Logs) != 1 {
		t.Fatalf("expected exactly one entry scoped to u1, got %+v", got)
	}
	if got.Logs[0].UserID != "u1" {
		t.Fatalf("leaked another user's entry: %+v", got.Logs[0])
	}
}

func TestAllLogsRequiresAdmin(t *testing.T) {
	deps := Deps{Engine: newTestEngine(t), Admin: alwaysAdmin(false)}
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/all_logs", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestDeleteLogsPrunesBeforeTimestamp(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()
	if err := eng.AddDelta(ctx, "u1", types.New(-1), types.LedgerDetail{Desc: "old"}); err != nil {
		t.Fatalf("add delta: %v", err)
	}

	deps := Deps{Engine: eng, Admin: alwaysAdmin(true)}
	r := NewRouter(deps)

	future := time.Now().Add(time.Hour).Format(time.RFC3339)
	body := strings.NewReader(`{"timestamp":"` + future + `"}`)
	req := httptest.NewRequest(http.MethodDelete, "/logs", body)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got deleteLogsResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Deleted != 1 {
		t.Fatalf("deleted = %d, want 1", got.Deleted)
	}
}

func TestRedemptionCodeIssueAndReceive(t *testing.T) {
	eng := newTestEngine(t)
	svc := eng.NewRedemptionService(types.New(10))
	deps := Deps{
		Engine:     eng,
		Redemption: svc,
		UserID:     alwaysUser("u1"),
		Admin:      alwaysAdmin(true),
	}
	r := NewRouter(deps)

	issueReq := httptest.NewRequest(http.MethodPost, "/redemption_codes", strings.NewReader(`{"purpose":"promo","count":1,"amount":3}`))
	issueRec := httptest.NewRecorder()
	r.ServeHTTP(issueRec, issueReq)
	if issueRec.Code != http.StatusOK {
		t.Fatalf("issue status = %d: %s", issueRec.Code, issueRec.Body.String())
	}

	var codes []struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(issueRec.Body).Decode(&codes); err != nil {
		t.Fatalf("decode issue response: %v", err)
	}
	if len(codes) != 1 {
		t.Fatalf("expected 1 code, got %d", len(codes))
	}

	receiveReq := httptest.NewRequest(http.MethodGet, "/redemption_codes/"+codes[0].Code+"/receive", nil)
	receiveRec := httptest.NewRecorder()
	r.ServeHTTP(receiveRec, receiveReq)
	if receiveRec.Code != http.StatusOK {
		t.Fatalf("receive status = %d: %s", receiveRec.Code, receiveRec.Body.String())
	}

	credit, err := eng.Ensure(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	// default credit 10 + (3 * ratio 10) = 40
	if !credit.Equal(types.New(40)) {
		t.Fatalf("credit = %s, want 40", credit)
	}

	// Second receive of the same code must fail.
	secondRec := httptest.NewRecorder()
	r.ServeHTTP(secondRec, httptest.NewRequest(http.MethodGet, "/redemption_codes/"+codes[0].Code+"/receive", nil))
	if secondRec.Code == http.StatusOK {
		t.Fatalf("expected second receive to fail, got 200: %s", secondRec.Body.String())
	}
}

func TestPaymentCallbackWithoutGatewayReportsNoTicket(t *testing.T) {
	deps := Deps{Engine: newTestEngine(t)}
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/callback", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (gateway always acks 200)", rec.Code)
	}
	if rec.Body.String() != "no ticket fount" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestPaymentCallbackRedirect(t *testing.T) {
	deps := Deps{Engine: newTestEngine(t), PaymentCallbackHost: "https://example.test/thanks"}
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/callback/redirect", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "https://example.test/thanks" {
		t.Fatalf("Location = %q", got)
	}
}

func TestModelPriceRoundTrip(t *testing.T) {
	deps := Deps{
		Engine:  newTestEngine(t),
		Admin:   alwaysAdmin(true),
		Pricing: NewPriceStore(),
	}
	r := NewRouter(deps)

	putReq := httptest.NewRequest(http.MethodPut, "/models/price", strings.NewReader(`{"model_id":"gpt-4o","price":{"prompt_price":"2"}}`))
	putRec := httptest.NewRecorder()
	r.ServeHTTP(putRec, putReq)
	if putRec.Code != http.StatusOK {
		t.Fatalf("put status = %d: %s", putRec.Code, putRec.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/models/price", nil)
	getRec := httptest.NewRecorder()
	r.ServeHTTP(getRec, getReq)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status = %d", getRec.Code)
	}
	var entries []modelPriceEntry
	if err := json.NewDecoder(getRec.Body).Decode(&entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].ModelID != "gpt-4o" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestStatisticsRequiresValidWindow(t *testing.T) {
	deps := Deps{Engine: newTestEngine(t), Admin: alwaysAdmin(true)}
	r := NewRouter(deps)

	req := httptest.NewRequest(http.MethodPost, "/statistics", strings.NewReader(`{"start_time":"not-a-time","end_time":"2020-01-01T00:00:00Z"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
