// Package postgres provides a store.Store implementation backed by
// PostgreSQL via the Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	ledger "github.com/xraph/creditledger"
	"github.com/xraph/creditledger/id"
	ledgerstore "github.com/xraph/creditledger/store"
	"github.com/xraph/creditledger/types"
)

var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("ledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("ledger/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// runInTx runs fn within a transaction, committing on success and rolling
// back on error.
func (s *Store) runInTx(ctx context.Context, fn func(ctx context.Context, tx *pgdriver.PgTx) error) error {
	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) EnsureBalance(ctx context.Context, userID string, defaultCredit types.Decimal) (ledgerstore.Balance, error) {
	m := new(creditModel)
	err := s.pg.NewSelect(m).Where("user_id = ?", userID).Scan(ctx)
	if err == nil {
		return fromCreditModel(m), nil
	}
	if !isNoRows(err) {
		return ledgerstore.Balance{}, err
	}

	t := now()
	created := &creditModel{UserID: userID, Credit: defaultCredit, CreatedAt: t, UpdatedAt: t}
	_, err = s.pg.NewInsert(created).
		OnConflict("(user_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return ledgerstore.Balance{}, err
	}

	m = new(creditModel)
	if err := s.pg.NewSelect(m).Where("user_id = ?", userID).Scan(ctx); err != nil {
		return ledgerstore.Balance{}, err
	}
	return fromCreditModel(m), nil
}

func (s *Store) AddDelta(ctx context.Context, userID string, delta types.Decimal, detail types.LedgerDetail) (ledgerstore.LedgerEntry, error) {
	var entry ledgerstore.LedgerEntry
	err := s.runInTx(ctx, func(ctx context.Context, tx *pgdriver.PgTx) error {
		t := now()
		_, err := tx.NewInsert(&creditModel{UserID: userID, Credit: delta, CreatedAt: t, UpdatedAt: t}).
			OnConflict("(user_id) DO UPDATE").
			Set("credit = ledger_credit.credit + EXCLUDED.credit").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return err
		}

		e := ledgerstore.LedgerEntry{
			ID:          id.NewLedgerEntryID(),
			UserID:      userID,
			CreditDelta: delta,
			Detail:      detail,
			CreatedAt:   t,
		}
		logModel, err := toCreditLogModel(e)
		if err != nil {
			return err
		}
		if _, err := tx.NewInsert(logModel).Exec(ctx); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return ledgerstore.LedgerEntry{}, err
	}
	return entry, nil
}

func (s *Store) SetAbsolute(ctx context.Context, userID string, newCredit types.Decimal, detail types.LedgerDetail) (ledgerstore.LedgerEntry, error) {
	var entry ledgerstore.LedgerEntry
	err := s.runInTx(ctx, func(ctx context.Context, tx *pgdriver.PgTx) error {
		existing := new(creditModel)
		err := tx.NewSelect(existing).Where("user_id = ?", userID).Scan(ctx)
		var prior types.Decimal
		t := now()
		switch {
		case err == nil:
			prior = existing.Credit
		case isNoRows(err):
			prior = types.Zero
			if _, ierr := tx.NewInsert(&creditModel{UserID: userID, Credit: types.Zero, CreatedAt: t, UpdatedAt: t}).Exec(ctx); ierr != nil {
				return ierr
			}
		default:
			return err
		}

		_, err = tx.NewUpdate((*creditModel)(nil)).
			Set("credit = ?", newCredit).
			Set("updated_at = ?", t).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return err
		}

		e := ledgerstore.LedgerEntry{
			ID:          id.NewLedgerEntryID(),
			UserID:      userID,
			CreditDelta: newCredit.Sub(prior),
			Detail:      detail,
			CreatedAt:   t,
		}
		logModel, err := toCreditLogModel(e)
		if err != nil {
			return err
		}
		if _, err := tx.NewInsert(logModel).Exec(ctx); err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return ledgerstore.LedgerEntry{}, err
	}
	return entry, nil
}

func (s *Store) ListLedgerEntries(ctx context.Context, opts ledgerstore.ListOpts) ([]ledgerstore.LedgerEntry, error) {
	var models []creditLogModel
	q := s.pg.NewSelect(&models)
	if len(opts.UserIDs) > 0 {
		q = q.Where("user_id IN (?)", opts.UserIDs)
	}
	q = q.OrderExpr("created_at DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromCreditLogModels(models)
}

func (s *Store) CountLedgerEntries(ctx context.Context, userIDs []string) (int64, error) {
	q := s.pg.NewSelect((*creditLogModel)(nil))
	if len(userIDs) > 0 {
		q = q.Where("user_id IN (?)", userIDs)
	}
	return q.Count(ctx)
}

func (s *Store) RangeLedgerEntries(ctx context.Context, start, end time.Time) ([]ledgerstore.LedgerEntry, error) {
	var models []creditLogModel
	err := s.pg.NewSelect(&models).
		Where("created_at >= ?", start).
		Where("created_at < ?", end).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromCreditLogModels(models)
}

func (s *Store) PruneLedgerEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.pg.NewDelete((*creditLogModel)(nil)).
		Where("created_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) CreateTicket(ctx context.Context, t ledgerstore.PaymentTicket) error {
	m, err := toTradeTicketModel(t)
	if err != nil {
		return err
	}
	_, err = s.pg.NewInsert(m).Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return ledger.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetTicket(ctx context.Context, id string) (ledgerstore.PaymentTicket, bool, error) {
	m := new(tradeTicketModel)
	err := s.pg.NewSelect(m).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return ledgerstore.PaymentTicket{}, false, nil
		}
		return ledgerstore.PaymentTicket{}, false, err
	}
	t, err := fromTradeTicketModel(m)
	if err != nil {
		return ledgerstore.PaymentTicket{}, false, err
	}
	return t, true, nil
}

// SetTicketCallback atomically seals a ticket with its first callback,
// guarded by "callback IS NULL" so a replayed webhook delivery never
// seals twice: sealed is false (not an error) when the ticket was
// already sealed by a prior callback.
func (s *Store) SetTicketCallback(ctx context.Context, id string, callback map[string]string) (bool, error) {
	raw, err := json.Marshal(callback)
	if err != nil {
		return false, err
	}
	res, err := s.pg.NewUpdate((*tradeTicketModel)(nil)).
		Set("callback = ?", raw).
		Where("id = ?", id).
		Where("callback IS NULL").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows > 0 {
		return true, nil
	}

	if _, ok, err := s.GetTicket(ctx, id); err != nil {
		return false, err
	} else if !ok {
		return false, ledger.ErrTicketNotFound
	}
	return false, nil
}

func (s *Store) RangeTickets(ctx context.Context, start, end time.Time) ([]ledgerstore.PaymentTicket, error) {
	var models []tradeTicketModel
	err := s.pg.NewSelect(&models).
		Where("created_at >= ?", start).
		Where("created_at < ?", end).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]ledgerstore.PaymentTicket, len(models))
	for i := range models {
		t, err := fromTradeTicketModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) IssueRedemptionCodes(ctx context.Context, codes []ledgerstore.RedemptionCode) error {
	if len(codes) == 0 {
		return nil
	}
	models := make([]*redemptionCodeModel, len(codes))
	for i, c := range codes {
		models[i] = toRedemptionCodeModel(c)
	}
	_, err := s.pg.NewInsert(models).Exec(ctx)
	return err
}

func (s *Store) GetRedemptionCode(ctx context.Context, code string) (ledgerstore.RedemptionCode, bool, error) {
	m := new(redemptionCodeModel)
	err := s.pg.NewSelect(m).Where("code = ?", code).Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return ledgerstore.RedemptionCode{}, false, nil
		}
		return ledgerstore.RedemptionCode{}, false, err
	}
	return fromRedemptionCodeModel(m), true, nil
}

func (s *Store) RedeemCode(ctx context.Context, code, userID string, t time.Time) (ledgerstore.RedemptionCode, error) {
	var result ledgerstore.RedemptionCode
	err := s.runInTx(ctx, func(ctx context.Context, tx *pgdriver.PgTx) error {
		m := new(redemptionCodeModel)
		err := tx.NewSelect(m).Where("code = ?", code).Scan(ctx)
		if err != nil {
			if isNoRows(err) {
				return ledger.ErrCodeNotFound
			}
			return err
		}
		c := fromRedemptionCodeModel(m)
		if c.ReceivedAt != nil {
			return ledger.ErrCodeAlreadyUsed
		}
		if c.ExpiredAt != nil && t.After(*c.ExpiredAt) {
			return ledger.ErrCodeExpired
		}

		_, err = tx.NewUpdate((*redemptionCodeModel)(nil)).
			Set("user_id = ?", userID).
			Set("received_at = ?", t).
			Where("code = ?", code).
			Where("received_at IS NULL").
			Exec(ctx)
		if err != nil {
			return err
		}

		c.UserID = &userID
		c.ReceivedAt = &t
		result = c
		return nil
	})
	if err != nil {
		return ledgerstore.RedemptionCode{}, err
	}
	return result, nil
}

func (s *Store) ListRedemptionCodes(ctx context.Context, keyword string) ([]ledgerstore.RedemptionCode, error) {
	var models []redemptionCodeModel
	q := s.pg.NewSelect(&models)
	if keyword != "" {
		like := "%" + keyword + "%"
		q = q.Where("(code ILIKE ? OR purpose ILIKE ?)", like, like)
	}
	q = q.OrderExpr("created_at DESC")
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	result := make([]ledgerstore.RedemptionCode, len(models))
	for i := range models {
		result[i] = fromRedemptionCodeModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateRedemptionCode(ctx context.Context, code ledgerstore.RedemptionCode) error {
	m := toRedemptionCodeModel(code)
	res, err := s.pg.NewUpdate(m).
		WherePK().
		Where("received_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		existing, ok, gerr := s.GetRedemptionCode(ctx, code.Code)
		if gerr != nil {
			return gerr
		}
		if !ok {
			return ledger.ErrCodeNotFound
		}
		if existing.ReceivedAt != nil {
			return ledger.ErrCodeAlreadyUsed
		}
		return ledger.ErrCodeNotFound
	}
	return nil
}

func (s *Store) DeleteRedemptionCode(ctx context.Context, code string) error {
	res, err := s.pg.NewDelete((*redemptionCodeModel)(nil)).
		Where("code = ?", code).
		Where("received_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		existing, ok, gerr := s.GetRedemptionCode(ctx, code)
		if gerr != nil {
			return gerr
		}
		if !ok {
			return ledger.ErrCodeNotFound
		}
		if existing.ReceivedAt != nil {
			return ledger.ErrCodeAlreadyUsed
		}
		return ledger.ErrCodeNotFound
	}
	return nil
}

func fromCreditLogModels(models []creditLogModel) ([]ledgerstore.LedgerEntry, error) {
	result := make([]ledgerstore.LedgerEntry, len(models))
	for i := range models {
		e, err := fromCreditLogModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation reports whether err represents a unique-constraint
// violation, matching the PostgreSQL error text for a primary-key
// conflict (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}
