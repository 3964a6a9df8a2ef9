package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/creditledger/id"
	"github.com/xraph/creditledger/store"
	"github.com/xraph/creditledger/types"
)

type creditModel struct {
	grove.BaseModel `grove:"table:ledger_credit"`

	UserID    string        `grove:"user_id,pk"`
	Credit    types.Decimal `grove:"credit,type:numeric(24,12)"`
	CreatedAt time.Time     `grove:"created_at"`
	UpdatedAt time.Time     `grove:"updated_at"`
}

func toCreditModel(b store.Balance) *creditModel {
	return &creditModel{
		UserID:    b.UserID,
		Credit:    b.Credit,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func fromCreditModel(m *creditModel) store.Balance {
	b := store.Balance{UserID: m.UserID, Credit: m.Credit}
	b.CreatedAt, b.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return b
}

type creditLogModel struct {
	grove.BaseModel `grove:"table:ledger_credit_log"`

	ID          string          `grove:"id,pk"`
	UserID      string          `grove:"user_id"`
	CreditDelta types.Decimal   `grove:"credit_delta,type:numeric(24,12)"`
	Detail      json.RawMessage `grove:"detail,type:jsonb"`
	CreatedAt   time.Time       `grove:"created_at"`
}

func toCreditLogModel(e store.LedgerEntry) (*creditLogModel, error) {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return nil, err
	}
	return &creditLogModel{
		ID:          e.ID.String(),
		UserID:      e.UserID,
		CreditDelta: e.CreditDelta,
		Detail:      detail,
		CreatedAt:   e.CreatedAt,
	}, nil
}

func fromCreditLogModel(m *creditLogModel) (store.LedgerEntry, error) {
	entryID, err := id.ParseLedgerEntryID(m.ID)
	if err != nil {
		return store.LedgerEntry{}, err
	}
	var detail types.LedgerDetail
	if len(m.Detail) > 0 {
		if err := json.Unmarshal(m.Detail, &detail); err != nil {
			return store.LedgerEntry{}, err
		}
	}
	return store.LedgerEntry{
		ID:          entryID,
		UserID:      m.UserID,
		CreditDelta: m.CreditDelta,
		Detail:      detail,
		CreatedAt:   m.CreatedAt,
	}, nil
}

type tradeTicketModel struct {
	grove.BaseModel `grove:"table:ledger_trade_ticket"`

	ID        string          `grove:"id,pk"`
	UserID    string          `grove:"user_id"`
	Amount    types.Decimal   `grove:"amount,type:numeric(24,12)"`
	Detail    json.RawMessage `grove:"detail,type:jsonb"`
	Callback  json.RawMessage `grove:"callback,type:jsonb"`
	CreatedAt time.Time       `grove:"created_at"`
}

func toTradeTicketModel(t store.PaymentTicket) (*tradeTicketModel, error) {
	detail, err := json.Marshal(t.Detail)
	if err != nil {
		return nil, err
	}
	var callback json.RawMessage
	if t.Callback != nil {
		callback, err = json.Marshal(t.Callback)
		if err != nil {
			return nil, err
		}
	}
	return &tradeTicketModel{
		ID:        t.ID,
		UserID:    t.UserID,
		Amount:    t.Amount,
		Detail:    detail,
		Callback:  callback,
		CreatedAt: t.CreatedAt,
	}, nil
}

func fromTradeTicketModel(m *tradeTicketModel) (store.PaymentTicket, error) {
	var detail map[string]any
	if len(m.Detail) > 0 {
		if err := json.Unmarshal(m.Detail, &detail); err != nil {
			return store.PaymentTicket{}, err
		}
	}
	var callback map[string]string
	if len(m.Callback) > 0 && string(m.Callback) != "null" {
		if err := json.Unmarshal(m.Callback, &callback); err != nil {
			return store.PaymentTicket{}, err
		}
	}
	return store.PaymentTicket{
		ID:        m.ID,
		UserID:    m.UserID,
		Amount:    m.Amount,
		Detail:    detail,
		Callback:  callback,
		CreatedAt: m.CreatedAt,
	}, nil
}

type redemptionCodeModel struct {
	grove.BaseModel `grove:"table:ledger_redemption_code"`

	Code       string        `grove:"code,pk"`
	Purpose    string        `grove:"purpose"`
	Amount     types.Decimal `grove:"amount,type:numeric(24,12)"`
	CreatedAt  time.Time     `grove:"created_at"`
	ExpiredAt  *time.Time    `grove:"expired_at"`
	UserID     *string       `grove:"user_id"`
	ReceivedAt *time.Time    `grove:"received_at"`
}

func toRedemptionCodeModel(c store.RedemptionCode) *redemptionCodeModel {
	return &redemptionCodeModel{
		Code:       c.Code,
		Purpose:    c.Purpose,
		Amount:     c.Amount,
		CreatedAt:  c.CreatedAt,
		ExpiredAt:  c.ExpiredAt,
		UserID:     c.UserID,
		ReceivedAt: c.ReceivedAt,
	}
}

func fromRedemptionCodeModel(m *redemptionCodeModel) store.RedemptionCode {
	return store.RedemptionCode{
		Code:       m.Code,
		Purpose:    m.Purpose,
		Amount:     m.Amount,
		CreatedAt:  m.CreatedAt,
		ExpiredAt:  m.ExpiredAt,
		UserID:     m.UserID,
		ReceivedAt: m.ReceivedAt,
	}
}
