package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"deyn/internal/core"
)

// SQLiteStore persists records in a local SQLite database. Monetary
// values are stored as their canonical 3-decimal text form, never as
// floats.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func moneyFromDB(text string) core.Money {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return core.MoneyZero()
	}
	return core.Money{Amount: d}.Round()
}

func (s *SQLiteStore) ListEntities(ctx context.Context) ([]core.Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, kind, contact, note, created_at FROM entities ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var out []core.Entity
	for rows.Next() {
		var e core.Entity
		var kind string
		if err := rows.Scan(&e.ID, &e.Name, &kind, &e.Contact, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e.Kind = core.EntityKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetEntity(ctx context.Context, id int64) (core.Entity, error) {
	var e core.Entity
	var kind string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, kind, contact, note, created_at FROM entities WHERE id = ?", id).
		Scan(&e.ID, &e.Name, &kind, &e.Contact, &e.Note, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entity{}, core.ErrNotFound
	}
	if err != nil {
		return core.Entity{}, fmt.Errorf("get entity: %w", err)
	}
	e.Kind = core.EntityKind(kind)
	return e, nil
}

func (s *SQLiteStore) CreateEntity(ctx context.Context, e core.Entity) (core.Entity, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO entities (name, kind, contact, note, created_at) VALUES (?, ?, ?, ?, ?)",
		e.Name, string(e.Kind), e.Contact, e.Note, e.CreatedAt)
	if err != nil {
		return core.Entity{}, fmt.Errorf("create entity: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return core.Entity{}, fmt.Errorf("entity id: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) UpdateEntity(ctx context.Context, e core.Entity) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE entities SET name = ?, kind = ?, contact = ?, note = ? WHERE id = ?",
		e.Name, string(e.Kind), e.Contact, e.Note, e.ID)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	return checkAffected(res)
}

func (s *SQLiteStore) DeleteEntity(ctx context.Context, id int64) error {
	var n int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM obligations WHERE entity_id = ?", id).Scan(&n); err != nil {
		return fmt.Errorf("count obligations: %w", err)
	}
	if n > 0 {
		return core.ErrEntityInUse
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM entities WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return checkAffected(res)
}

const obligationCols = `id, entity_id, kind, principal, apr, fee, start_date, due_day,
	bounded, total_installments, remaining, installment, status,
	late_fee, grace_days, relationship_factor, tags, created_at`

func scanObligation(row interface{ Scan(...any) error }) (core.Obligation, error) {
	var o core.Obligation
	var kind, status, principal, fee, installment, tags string
	var bounded int
	var lateFee sql.NullString
	var graceDays sql.NullInt64
	err := row.Scan(&o.ID, &o.EntityID, &kind, &principal, &o.APR, &fee,
		&o.StartDate, &o.DueDay, &bounded, &o.Schedule.Total, &o.Schedule.Remaining,
		&installment, &status, &lateFee, &graceDays, &o.RelationshipFactor, &tags, &o.CreatedAt)
	if err != nil {
		return core.Obligation{}, err
	}
	o.Kind = core.ObligationKind(kind)
	o.Status = core.ObligationStatus(status)
	o.Principal = moneyFromDB(principal)
	o.Fee = moneyFromDB(fee)
	o.Installment = moneyFromDB(installment)
	o.Schedule.Bounded = bounded != 0
	if lateFee.Valid {
		o.Penalty = &core.PenaltyPolicy{
			LateFee:   moneyFromDB(lateFee.String),
			GraceDays: int(graceDays.Int64),
		}
	}
	if tags != "" {
		o.Tags = strings.Split(tags, ",")
	}
	return o, nil
}

func (s *SQLiteStore) ListObligations(ctx context.Context, status core.ObligationStatus) ([]core.Obligation, error) {
	query := "SELECT " + obligationCols + " FROM obligations"
	var args []any
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list obligations: %w", err)
	}
	defer rows.Close()

	var out []core.Obligation
	for rows.Next() {
		o, err := scanObligation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan obligation: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) GetObligation(ctx context.Context, id int64) (core.Obligation, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+obligationCols+" FROM obligations WHERE id = ?", id)
	o, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Obligation{}, core.ErrNotFound
	}
	if err != nil {
		return core.Obligation{}, fmt.Errorf("get obligation: %w", err)
	}
	return o, nil
}

func (s *SQLiteStore) CreateObligation(ctx context.Context, o core.Obligation) (core.Obligation, error) {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	var lateFee any
	var graceDays any
	if o.Penalty != nil {
		lateFee = o.Penalty.LateFee.String()
		graceDays = o.Penalty.GraceDays
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO obligations
		(entity_id, kind, principal, apr, fee, start_date, due_day,
		 bounded, total_installments, remaining, installment, status,
		 late_fee, grace_days, relationship_factor, tags, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.EntityID, string(o.Kind), o.Principal.String(), o.APR, o.Fee.String(),
		o.StartDate, o.DueDay, boolToInt(o.Schedule.Bounded), o.Schedule.Total,
		o.Schedule.Remaining, o.Installment.String(), string(o.Status),
		lateFee, graceDays, o.RelationshipFactor, strings.Join(o.Tags, ","), o.CreatedAt)
	if err != nil {
		return core.Obligation{}, fmt.Errorf("create obligation: %w", err)
	}
	o.ID, err = res.LastInsertId()
	if err != nil {
		return core.Obligation{}, fmt.Errorf("obligation id: %w", err)
	}
	return o, nil
}

func (s *SQLiteStore) UpdateObligation(ctx context.Context, o core.Obligation) error {
	var lateFee any
	var graceDays any
	if o.Penalty != nil {
		lateFee = o.Penalty.LateFee.String()
		graceDays = o.Penalty.GraceDays
	}
	res, err := s.db.ExecContext(ctx, `UPDATE obligations SET
		entity_id = ?, kind = ?, principal = ?, apr = ?, fee = ?, start_date = ?,
		due_day = ?, bounded = ?, total_installments = ?, remaining = ?,
		installment = ?, status = ?, late_fee = ?, grace_days = ?,
		relationship_factor = ?, tags = ? WHERE id = ?`,
		o.EntityID, string(o.Kind), o.Principal.String(), o.APR, o.Fee.String(),
		o.StartDate, o.DueDay, boolToInt(o.Schedule.Bounded), o.Schedule.Total,
		o.Schedule.Remaining, o.Installment.String(), string(o.Status),
		lateFee, graceDays, o.RelationshipFactor, strings.Join(o.Tags, ","), o.ID)
	if err != nil {
		return fmt.Errorf("update obligation: %w", err)
	}
	return checkAffected(res)
}

func (s *SQLiteStore) DeleteObligation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM obligations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete obligation: %w", err)
	}
	return checkAffected(res)
}

func (s *SQLiteStore) ListPayments(ctx context.Context, obligationID int64) ([]core.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, obligation_id, amount, paid_at,
		method, note, installment_idx FROM payments WHERE obligation_id = ? ORDER BY id`,
		obligationID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []core.Payment
	for rows.Next() {
		var p core.Payment
		var amount string
		if err := rows.Scan(&p.ID, &p.ObligationID, &amount, &p.Date,
			&p.Method, &p.Note, &p.Installment); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		p.Amount = moneyFromDB(amount)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) RecordPayment(ctx context.Context, p core.Payment) (core.Payment, core.Obligation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Payment{}, core.Obligation{}, fmt.Errorf("begin payment tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		"SELECT "+obligationCols+" FROM obligations WHERE id = ?", p.ObligationID)
	o, err := scanObligation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, core.Obligation{}, core.ErrNotFound
	}
	if err != nil {
		return core.Payment{}, core.Obligation{}, fmt.Errorf("load obligation: %w", err)
	}

	p.Amount = p.Amount.Round()
	res, err := tx.ExecContext(ctx, `INSERT INTO payments
		(obligation_id, amount, paid_at, method, note, installment_idx)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ObligationID, p.Amount.String(), p.Date, p.Method, p.Note, p.Installment)
	if err != nil {
		return core.Payment{}, core.Obligation{}, fmt.Errorf("insert payment: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return core.Payment{}, core.Obligation{}, fmt.Errorf("payment id: %w", err)
	}

	o = applyPayment(o)
	if _, err := tx.ExecContext(ctx,
		"UPDATE obligations SET remaining = ?, status = ? WHERE id = ?",
		o.Schedule.Remaining, string(o.Status), o.ID); err != nil {
		return core.Payment{}, core.Obligation{}, fmt.Errorf("update schedule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Payment{}, core.Obligation{}, fmt.Errorf("commit payment: %w", err)
	}
	return p, o, nil
}

func (s *SQLiteStore) GetSettings(ctx context.Context) (core.Settings, error) {
	var st core.Settings
	var salary, savings string
	err := s.db.QueryRowContext(ctx, `SELECT payday_day, salary, savings_target,
		currency, default_strategy, quiet_from, quiet_to FROM settings WHERE id = 1`).
		Scan(&st.PaydayDay, &salary, &savings, &st.Currency,
			&st.DefaultStrategy, &st.QuietFrom, &st.QuietTo)
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	st.Salary = moneyFromDB(salary)
	st.SavingsTarget = moneyFromDB(savings)
	return st, nil
}

func (s *SQLiteStore) UpdateSettings(ctx context.Context, st core.Settings) error {
	_, err := s.db.ExecContext(ctx, `UPDATE settings SET payday_day = ?, salary = ?,
		savings_target = ?, currency = ?, default_strategy = ?, quiet_from = ?, quiet_to = ?
		WHERE id = 1`,
		st.PaydayDay, st.Salary.String(), st.SavingsTarget.String(), st.Currency,
		st.DefaultStrategy, st.QuietFrom, st.QuietTo)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
